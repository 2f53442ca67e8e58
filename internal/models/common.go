// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserRole string

const (
	UserRoleOwner UserRole = "owner"
	UserRoleStaff UserRole = "staff"
)

type IdentityStatus string

const (
	IdentityStatusIncomplete    IdentityStatus = "incomplete"
	IdentityStatusPendingReview IdentityStatus = "pending_review"
	IdentityStatusApproved      IdentityStatus = "approved"
	IdentityStatusRejected      IdentityStatus = "rejected"
)

type IDType string

const (
	IDTypeNIN           IDType = "nin"
	IDTypePassport      IDType = "passport"
	IDTypeDriverLicense IDType = "driver_license"
)

type PreferredContact string

const (
	PreferredContactEmail    PreferredContact = "email"
	PreferredContactPhone    PreferredContact = "phone"
	PreferredContactWhatsApp PreferredContact = "whatsapp"
)

type ListingStatus string

const (
	ListingStatusDraft            ListingStatus = "draft"
	ListingStatusPendingIdentity  ListingStatus = "pending_identity"
	ListingStatusPendingDocuments ListingStatus = "pending_documents"
	ListingStatusInReview         ListingStatus = "in_review"
	ListingStatusVerified         ListingStatus = "verified"
	ListingStatusRejected         ListingStatus = "rejected"
	ListingStatusArchived         ListingStatus = "archived"
)

type VisibilityState string

const (
	VisibilityPrivate VisibilityState = "private"
	VisibilityLimited VisibilityState = "limited"
	VisibilityPublic  VisibilityState = "public"
)

type PropertyType string

const (
	PropertyTypeApartment  PropertyType = "apartment"
	PropertyTypeDuplex     PropertyType = "duplex"
	PropertyTypeBungalow   PropertyType = "bungalow"
	PropertyTypeTerrace    PropertyType = "terrace"
	PropertyTypeDetached   PropertyType = "detached"
	PropertyTypeLand       PropertyType = "land"
	PropertyTypeCommercial PropertyType = "commercial"
	PropertyTypeOther      PropertyType = "other"
)

type ListingType string

const (
	ListingTypeRent     ListingType = "rent"
	ListingTypeSale     ListingType = "sale"
	ListingTypeShortlet ListingType = "shortlet"
)

type DocumentType string

const (
	DocumentTypeCOfO        DocumentType = "c_of_o"
	DocumentTypeDeed        DocumentType = "deed"
	DocumentTypeUtilityBill DocumentType = "utility_bill"
	DocumentTypeTaxReceipt  DocumentType = "tax_receipt"
	DocumentTypeHOALetter   DocumentType = "hoa_letter"
	DocumentTypeOther       DocumentType = "other"
)

type DocumentStatus string

const (
	DocumentStatusUploaded          DocumentStatus = "uploaded"
	DocumentStatusApproved          DocumentStatus = "approved"
	DocumentStatusNeedsResubmission DocumentStatus = "needs_resubmission"
)

type VerificationRequestState string

const (
	RequestStatePending     VerificationRequestState = "pending"
	RequestStateUnderReview VerificationRequestState = "under_review"
	RequestStateApproved    VerificationRequestState = "approved"
	RequestStateRejected    VerificationRequestState = "rejected"
	RequestStateCancelled   VerificationRequestState = "cancelled"
)

// IsOpen reports whether the request still awaits a staff decision.
func (s VerificationRequestState) IsOpen() bool {
	return s == RequestStatePending || s == RequestStateUnderReview
}
