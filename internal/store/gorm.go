// internal/store/gorm.go
package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/heimly/heimly-backend/internal/models"
)

// Gorm is the PostgreSQL-backed Store.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) Atomic(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

// translateErr maps driver errors onto the store error taxonomy.
func translateErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.Is(err, gorm.ErrDuplicatedKey) || (errors.As(err, &pgErr) && pgErr.Code == "23505") {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// Users

func (s *Gorm) CreateUser(u *models.User) error {
	return translateErr(s.db.Create(u).Error, "create user")
}

func (s *Gorm) GetUser(id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		return nil, translateErr(err, "get user")
	}
	return &u, nil
}

func (s *Gorm) GetUserByEmail(email string) (*models.User, error) {
	var u models.User
	if err := s.db.First(&u, "email = ?", email).Error; err != nil {
		return nil, translateErr(err, "get user by email")
	}
	return &u, nil
}

func (s *Gorm) SaveUser(u *models.User) error {
	return translateErr(s.db.Save(u).Error, "save user")
}

// Owner profiles

func (s *Gorm) CreateOwnerProfile(p *models.OwnerProfile) error {
	return translateErr(s.db.Create(p).Error, "create owner profile")
}

func (s *Gorm) GetOwnerProfile(id uuid.UUID) (*models.OwnerProfile, error) {
	var p models.OwnerProfile
	if err := s.db.Preload("User").First(&p, "id = ?", id).Error; err != nil {
		return nil, translateErr(err, "get owner profile")
	}
	return &p, nil
}

func (s *Gorm) GetOwnerProfileByUserID(userID uuid.UUID) (*models.OwnerProfile, error) {
	var p models.OwnerProfile
	if err := s.db.Preload("User").First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, translateErr(err, "get owner profile by user")
	}
	return &p, nil
}

func (s *Gorm) SaveOwnerProfile(p *models.OwnerProfile) error {
	return translateErr(s.db.Omit("User", "Listings").Save(p).Error, "save owner profile")
}

func (s *Gorm) ListOwnerProfiles(statuses []models.IdentityStatus) ([]models.OwnerProfile, error) {
	query := s.db.Preload("User").Order("created_at DESC")
	if len(statuses) > 0 {
		query = query.Where("identity_status IN ?", statuses)
	}
	var profiles []models.OwnerProfile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, translateErr(err, "list owner profiles")
	}
	return profiles, nil
}

// Listings

func (s *Gorm) CreateListing(l *models.Listing) error {
	return translateErr(s.db.Omit("OwnerProfile", "Photos", "Documents").Create(l).Error, "create listing")
}

func (s *Gorm) GetListing(id uuid.UUID) (*models.Listing, error) {
	var l models.Listing
	if err := s.db.Preload("OwnerProfile").Preload("OwnerProfile.User").First(&l, "id = ?", id).Error; err != nil {
		return nil, translateErr(err, "get listing")
	}
	return &l, nil
}

func (s *Gorm) SaveListing(l *models.Listing) error {
	return translateErr(s.db.Omit("OwnerProfile", "Photos", "Documents").Save(l).Error, "save listing")
}

func (s *Gorm) ListListings(f ListingFilter) ([]models.Listing, error) {
	query := s.db.Preload("OwnerProfile").Preload("OwnerProfile.User").
		Preload("Photos").Preload("Documents").Order("created_at DESC")

	if f.OwnerProfileID != nil {
		query = query.Where("owner_profile_id = ?", *f.OwnerProfileID)
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}
	if f.City != "" {
		query = query.Where("city ILIKE ?", "%"+f.City+"%")
	}
	if f.Search != "" {
		term := "%" + f.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", term, term)
	}

	var listings []models.Listing
	if err := query.Find(&listings).Error; err != nil {
		return nil, translateErr(err, "list listings")
	}
	return listings, nil
}

func (s *Gorm) CountListingsByStatus() (map[models.ListingStatus]int64, error) {
	var rows []struct {
		Status models.ListingStatus
		Count  int64
	}
	err := s.db.Model(&models.Listing{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translateErr(err, "count listings by status")
	}

	counts := make(map[models.ListingStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Photos

func (s *Gorm) CreatePhoto(p *models.ListingPhoto) error {
	return translateErr(s.db.Create(p).Error, "create photo")
}

func (s *Gorm) GetPhoto(id uuid.UUID) (*models.ListingPhoto, error) {
	var p models.ListingPhoto
	if err := s.db.First(&p, "id = ?", id).Error; err != nil {
		return nil, translateErr(err, "get photo")
	}
	return &p, nil
}

func (s *Gorm) SavePhoto(p *models.ListingPhoto) error {
	return translateErr(s.db.Save(p).Error, "save photo")
}

func (s *Gorm) DeletePhoto(id uuid.UUID) error {
	return translateErr(s.db.Delete(&models.ListingPhoto{}, "id = ?", id).Error, "delete photo")
}

func (s *Gorm) ListPhotos(listingID uuid.UUID) ([]models.ListingPhoto, error) {
	var photos []models.ListingPhoto
	err := s.db.Where("listing_id = ?", listingID).
		Order("is_primary DESC, position ASC, created_at ASC").
		Find(&photos).Error
	if err != nil {
		return nil, translateErr(err, "list photos")
	}
	return photos, nil
}

func (s *Gorm) PrimaryPhoto(listingID uuid.UUID) (*models.ListingPhoto, error) {
	var p models.ListingPhoto
	err := s.db.First(&p, "listing_id = ? AND is_primary = ?", listingID, true).Error
	if err != nil {
		return nil, translateErr(err, "primary photo")
	}
	return &p, nil
}

// Documents

func (s *Gorm) CreateDocument(d *models.ListingDocument) error {
	return translateErr(s.db.Create(d).Error, "create document")
}

func (s *Gorm) GetDocument(id uuid.UUID) (*models.ListingDocument, error) {
	var d models.ListingDocument
	if err := s.db.First(&d, "id = ?", id).Error; err != nil {
		return nil, translateErr(err, "get document")
	}
	return &d, nil
}

func (s *Gorm) SaveDocument(d *models.ListingDocument) error {
	return translateErr(s.db.Save(d).Error, "save document")
}

func (s *Gorm) ListDocuments(listingID uuid.UUID) ([]models.ListingDocument, error) {
	var docs []models.ListingDocument
	err := s.db.Where("listing_id = ?", listingID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, translateErr(err, "list documents")
	}
	return docs, nil
}

// Verification requests

func (s *Gorm) CreateVerificationRequest(r *models.VerificationRequest) error {
	return translateErr(s.db.Omit("Listing").Create(r).Error, "create verification request")
}

func (s *Gorm) GetVerificationRequest(id uuid.UUID) (*models.VerificationRequest, error) {
	var r models.VerificationRequest
	if err := s.db.First(&r, "id = ?", id).Error; err != nil {
		return nil, translateErr(err, "get verification request")
	}
	return &r, nil
}

func (s *Gorm) SaveVerificationRequest(r *models.VerificationRequest) error {
	return translateErr(s.db.Omit("Listing").Save(r).Error, "save verification request")
}

func (s *Gorm) FindActiveRequest(listingID uuid.UUID) (*models.VerificationRequest, error) {
	var open []models.VerificationRequest
	err := s.db.Where("listing_id = ? AND state IN ?",
		listingID, []models.VerificationRequestState{models.RequestStatePending, models.RequestStateUnderReview}).
		Order("started_at DESC").
		Find(&open).Error
	if err != nil {
		return nil, translateErr(err, "find active request")
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("find active request: %w", ErrNotFound)
	}
	// The partial unique index makes more than one open request a
	// consistency fault; recover with the most recent instead of failing.
	if len(open) > 1 {
		logrus.WithFields(logrus.Fields{
			"listing_id": listingID,
			"count":      len(open),
		}).Warn("Multiple open verification requests found, using most recent")
	}
	return &open[0], nil
}

func (s *Gorm) ListRequests(listingID uuid.UUID) ([]models.VerificationRequest, error) {
	var requests []models.VerificationRequest
	err := s.db.Where("listing_id = ?", listingID).
		Order("started_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, translateErr(err, "list verification requests")
	}
	return requests, nil
}

// Audit log

func (s *Gorm) AppendAudit(e *models.AuditEntry) error {
	return translateErr(s.db.Create(e).Error, "append audit entry")
}

func (s *Gorm) ListAudit(subject models.AuditSubject) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := s.db.Where("subject_type = ? AND subject_id = ?", subject.Type, subject.ID).
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, translateErr(err, "list audit entries")
	}
	return entries, nil
}
