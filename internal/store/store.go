// internal/store/store.go
package store

import (
	"errors"

	"github.com/google/uuid"

	"github.com/heimly/heimly-backend/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write violates a uniqueness invariant
	// (one primary photo per listing, one open verification request per
	// listing, one (id_type, id_number) pair). Retryable by the caller.
	ErrConflict = errors.New("uniqueness conflict")
)

// ListingFilter narrows ListListings results. Zero values mean "no filter".
type ListingFilter struct {
	OwnerProfileID *uuid.UUID
	Statuses       []models.ListingStatus
	City           string
	Search         string
}

// Store is the persistence boundary of the verification workflow. All
// state-machine operations run against it, multi-record writes through
// Atomic. Implementations must enforce the uniqueness invariants at the
// storage level, not just in application logic.
type Store interface {
	// Atomic runs fn inside a transaction. Either every write in fn is
	// applied or none are.
	Atomic(fn func(Store) error) error

	// Users
	CreateUser(u *models.User) error
	GetUser(id uuid.UUID) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	SaveUser(u *models.User) error

	// Owner profiles
	CreateOwnerProfile(p *models.OwnerProfile) error
	GetOwnerProfile(id uuid.UUID) (*models.OwnerProfile, error)
	GetOwnerProfileByUserID(userID uuid.UUID) (*models.OwnerProfile, error)
	SaveOwnerProfile(p *models.OwnerProfile) error
	ListOwnerProfiles(statuses []models.IdentityStatus) ([]models.OwnerProfile, error)

	// Listings
	CreateListing(l *models.Listing) error
	GetListing(id uuid.UUID) (*models.Listing, error)
	SaveListing(l *models.Listing) error
	ListListings(f ListingFilter) ([]models.Listing, error)
	CountListingsByStatus() (map[models.ListingStatus]int64, error)

	// Photos
	CreatePhoto(p *models.ListingPhoto) error
	GetPhoto(id uuid.UUID) (*models.ListingPhoto, error)
	SavePhoto(p *models.ListingPhoto) error
	DeletePhoto(id uuid.UUID) error
	ListPhotos(listingID uuid.UUID) ([]models.ListingPhoto, error)
	PrimaryPhoto(listingID uuid.UUID) (*models.ListingPhoto, error)

	// Documents
	CreateDocument(d *models.ListingDocument) error
	GetDocument(id uuid.UUID) (*models.ListingDocument, error)
	SaveDocument(d *models.ListingDocument) error
	ListDocuments(listingID uuid.UUID) ([]models.ListingDocument, error)

	// Verification requests
	CreateVerificationRequest(r *models.VerificationRequest) error
	GetVerificationRequest(id uuid.UUID) (*models.VerificationRequest, error)
	SaveVerificationRequest(r *models.VerificationRequest) error
	FindActiveRequest(listingID uuid.UUID) (*models.VerificationRequest, error)
	ListRequests(listingID uuid.UUID) ([]models.VerificationRequest, error)

	// Audit log (append-only)
	AppendAudit(e *models.AuditEntry) error
	ListAudit(subject models.AuditSubject) ([]models.AuditEntry, error)
}
