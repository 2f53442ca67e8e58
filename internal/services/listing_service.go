// internal/services/listing_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
	"github.com/heimly/heimly-backend/internal/utils"
)

// ListingService owns the CRUD side of listings: drafts, media and
// document uploads, and archiving. Review transitions live in
// VerificationService.
type ListingService struct {
	store store.Store
}

type CreateListingRequest struct {
	Title        string              `json:"title" validate:"required,min=3,max=200"`
	Description  string              `json:"description,omitempty"`
	PropertyType models.PropertyType `json:"property_type" validate:"required"`
	ListingType  models.ListingType  `json:"listing_type" validate:"required"`
	AddressLine  string              `json:"address_line,omitempty"`
	City         string              `json:"city,omitempty"`
	State        string              `json:"state,omitempty"`
	Country      string              `json:"country,omitempty"`
	PostalCode   string              `json:"postal_code,omitempty"`
	Bedrooms     *int                `json:"bedrooms,omitempty"`
	Bathrooms    *int                `json:"bathrooms,omitempty"`
	Amenities    models.JSONB        `json:"amenities,omitempty"`
	Price        float64             `json:"price" validate:"required,gt=0"`
	Currency     string              `json:"currency,omitempty"`
}

type UpdateListingRequest struct {
	Title        *string              `json:"title,omitempty" validate:"omitempty,min=3,max=200"`
	Description  *string              `json:"description,omitempty"`
	PropertyType *models.PropertyType `json:"property_type,omitempty"`
	ListingType  *models.ListingType  `json:"listing_type,omitempty"`
	AddressLine  *string              `json:"address_line,omitempty"`
	City         *string              `json:"city,omitempty"`
	State        *string              `json:"state,omitempty"`
	Country      *string              `json:"country,omitempty"`
	PostalCode   *string              `json:"postal_code,omitempty"`
	Bedrooms     *int                 `json:"bedrooms,omitempty"`
	Bathrooms    *int                 `json:"bathrooms,omitempty"`
	Amenities    models.JSONB         `json:"amenities,omitempty"`
	Price        *float64             `json:"price,omitempty" validate:"omitempty,gt=0"`
}

// Dashboard groups an owner's listings by workflow stage.
type Dashboard struct {
	Drafts    []models.Listing `json:"drafts"`
	InReview  []models.Listing `json:"in_review"`
	Published []models.Listing `json:"published"`
	Rejected  []models.Listing `json:"rejected"`
	Archived  []models.Listing `json:"archived"`
}

func NewListingService(st store.Store) *ListingService {
	return &ListingService{store: st}
}

// Create opens a new draft. Drafts are always private until the listing
// passes review.
func (s *ListingService) Create(ownerProfileID uuid.UUID, req *CreateListingRequest) (*models.Listing, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	listing := &models.Listing{
		OwnerProfileID: ownerProfileID,
		Title:          req.Title,
		Description:    req.Description,
		PropertyType:   req.PropertyType,
		ListingType:    req.ListingType,
		AddressLine:    req.AddressLine,
		City:           req.City,
		State:          req.State,
		Country:        req.Country,
		PostalCode:     req.PostalCode,
		Bedrooms:       req.Bedrooms,
		Bathrooms:      req.Bathrooms,
		Amenities:      req.Amenities,
		Price:          req.Price,
		Currency:       req.Currency,
		Status:         models.ListingStatusDraft,
		Visibility:     models.VisibilityPrivate,
	}
	if listing.Country == "" {
		listing.Country = "Nigeria"
	}
	if listing.Currency == "" {
		listing.Currency = "NGN"
	}

	if err := s.store.CreateListing(listing); err != nil {
		return nil, err
	}
	return listing, nil
}

func (s *ListingService) Get(listingID uuid.UUID) (*models.Listing, error) {
	return s.store.GetListing(listingID)
}

// Update edits listing fields. Archived listings are frozen.
func (s *ListingService) Update(listingID uuid.UUID, req *UpdateListingRequest) (*models.Listing, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var updated *models.Listing
	err := s.store.Atomic(func(tx store.Store) error {
		listing, err := tx.GetListing(listingID)
		if err != nil {
			return err
		}
		if listing.Status == models.ListingStatusArchived {
			return fmt.Errorf("archived listing cannot be edited: %w", ErrInvalidState)
		}

		if req.Title != nil {
			listing.Title = *req.Title
		}
		if req.Description != nil {
			listing.Description = *req.Description
		}
		if req.PropertyType != nil {
			listing.PropertyType = *req.PropertyType
		}
		if req.ListingType != nil {
			listing.ListingType = *req.ListingType
		}
		if req.AddressLine != nil {
			listing.AddressLine = *req.AddressLine
		}
		if req.City != nil {
			listing.City = *req.City
		}
		if req.State != nil {
			listing.State = *req.State
		}
		if req.Country != nil {
			listing.Country = *req.Country
		}
		if req.PostalCode != nil {
			listing.PostalCode = *req.PostalCode
		}
		if req.Bedrooms != nil {
			listing.Bedrooms = req.Bedrooms
		}
		if req.Bathrooms != nil {
			listing.Bathrooms = req.Bathrooms
		}
		if req.Amenities != nil {
			listing.Amenities = req.Amenities
		}
		if req.Price != nil {
			listing.Price = *req.Price
		}

		if err := tx.SaveListing(listing); err != nil {
			return err
		}
		updated = listing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Archive retires a listing. Only verified or rejected listings can be
// archived; the transition is recorded in the audit log.
func (s *ListingService) Archive(listingID, actorID uuid.UUID) error {
	return s.store.Atomic(func(tx store.Store) error {
		listing, err := tx.GetListing(listingID)
		if err != nil {
			return err
		}
		if listing.Status == models.ListingStatusArchived {
			return nil
		}
		if !listing.CanArchive() {
			return fmt.Errorf("only verified or rejected listings can be archived: %w", ErrInvalidState)
		}

		previous := listing.Status
		listing.Status = models.ListingStatusArchived
		listing.Visibility = models.VisibilityPrivate
		if err := tx.SaveListing(listing); err != nil {
			return err
		}

		return RecordIn(tx, models.ListingSubject(listing.ID), &actorID, models.ActionListingArchived, models.JSONB{
			"previous_status": string(previous),
		})
	})
}

// OwnerDashboard groups the owner's listings by workflow stage.
func (s *ListingService) OwnerDashboard(ownerProfileID uuid.UUID) (*Dashboard, error) {
	listings, err := s.store.ListListings(store.ListingFilter{OwnerProfileID: &ownerProfileID})
	if err != nil {
		return nil, err
	}

	dashboard := &Dashboard{}
	for _, l := range listings {
		switch l.Status {
		case models.ListingStatusDraft:
			dashboard.Drafts = append(dashboard.Drafts, l)
		case models.ListingStatusPendingIdentity, models.ListingStatusPendingDocuments, models.ListingStatusInReview:
			dashboard.InReview = append(dashboard.InReview, l)
		case models.ListingStatusVerified:
			dashboard.Published = append(dashboard.Published, l)
		case models.ListingStatusRejected:
			dashboard.Rejected = append(dashboard.Rejected, l)
		case models.ListingStatusArchived:
			dashboard.Archived = append(dashboard.Archived, l)
		}
	}
	return dashboard, nil
}

// Search returns verified public listings matching the filter.
func (s *ListingService) Search(city, search string) ([]models.Listing, error) {
	return s.store.ListListings(store.ListingFilter{
		Statuses: []models.ListingStatus{models.ListingStatusVerified},
		City:     city,
		Search:   search,
	})
}

// AddPhoto attaches an uploaded photo. The first photo of a listing
// becomes primary automatically.
func (s *ListingService) AddPhoto(listingID, uploaderID uuid.UUID, storageKey, caption string, position int) (*models.ListingPhoto, error) {
	var photo *models.ListingPhoto
	err := s.store.Atomic(func(tx store.Store) error {
		if _, err := tx.GetListing(listingID); err != nil {
			return err
		}

		existing, err := tx.ListPhotos(listingID)
		if err != nil {
			return err
		}

		photo = &models.ListingPhoto{
			ListingID:    listingID,
			StorageKey:   storageKey,
			Caption:      caption,
			IsPrimary:    len(existing) == 0,
			Position:     position,
			UploadedByID: &uploaderID,
		}
		return tx.CreatePhoto(photo)
	})
	if err != nil {
		return nil, err
	}
	return photo, nil
}

// SetPrimaryPhoto swaps the primary flag onto the given photo. The swap
// runs in one transaction so the one-primary-per-listing index never sees
// two primaries.
func (s *ListingService) SetPrimaryPhoto(listingID, photoID uuid.UUID) error {
	return s.store.Atomic(func(tx store.Store) error {
		photo, err := tx.GetPhoto(photoID)
		if err != nil {
			return err
		}
		if photo.ListingID != listingID {
			return fmt.Errorf("photo does not belong to listing: %w", store.ErrNotFound)
		}
		if photo.IsPrimary {
			return nil
		}

		current, err := tx.PrimaryPhoto(listingID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if current != nil {
			current.IsPrimary = false
			if err := tx.SavePhoto(current); err != nil {
				return err
			}
		}

		photo.IsPrimary = true
		return tx.SavePhoto(photo)
	})
}

// RemovePhoto deletes a photo record. When the removed photo was primary,
// the oldest remaining photo is promoted so a listing with photos never
// lacks a primary.
func (s *ListingService) RemovePhoto(listingID, photoID uuid.UUID) error {
	return s.store.Atomic(func(tx store.Store) error {
		photo, err := tx.GetPhoto(photoID)
		if err != nil {
			return err
		}
		if photo.ListingID != listingID {
			return fmt.Errorf("photo does not belong to listing: %w", store.ErrNotFound)
		}

		wasPrimary := photo.IsPrimary
		if err := tx.DeletePhoto(photoID); err != nil {
			return err
		}

		if !wasPrimary {
			return nil
		}
		remaining, err := tx.ListPhotos(listingID)
		if err != nil {
			return err
		}
		if len(remaining) > 0 {
			remaining[0].IsPrimary = true
			return tx.SavePhoto(&remaining[0])
		}
		return nil
	})
}

// ListPhotos returns the photos of a listing, primary first.
func (s *ListingService) ListPhotos(listingID uuid.UUID) ([]models.ListingPhoto, error) {
	return s.store.ListPhotos(listingID)
}

// AddDocument attaches an uploaded property document in the uploaded
// state, awaiting staff review.
func (s *ListingService) AddDocument(listingID uuid.UUID, docType models.DocumentType, storageKey string) (*models.ListingDocument, error) {
	if _, err := s.store.GetListing(listingID); err != nil {
		return nil, err
	}

	doc := &models.ListingDocument{
		ListingID:  listingID,
		DocType:    docType,
		StorageKey: storageKey,
		Status:     models.DocumentStatusUploaded,
	}
	if err := s.store.CreateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns the documents of a listing, newest first.
func (s *ListingService) ListDocuments(listingID uuid.UUID) ([]models.ListingDocument, error) {
	return s.store.ListDocuments(listingID)
}
