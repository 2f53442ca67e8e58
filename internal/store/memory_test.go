// internal/store/memory_test.go
package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heimly/heimly-backend/internal/models"
)

func seedListing(t *testing.T, m *Memory) *models.Listing {
	t.Helper()

	user := &models.User{Username: "owner", Email: "owner@example.com", Role: models.UserRoleOwner}
	require.NoError(t, m.CreateUser(user))

	profile := &models.OwnerProfile{UserID: user.ID}
	require.NoError(t, m.CreateOwnerProfile(profile))

	listing := &models.Listing{
		OwnerProfileID: profile.ID,
		Title:          "Terrace in Surulere",
		PropertyType:   models.PropertyTypeTerrace,
		ListingType:    models.ListingTypeRent,
		Price:          1500000,
		Status:         models.ListingStatusDraft,
		Visibility:     models.VisibilityPrivate,
	}
	require.NoError(t, m.CreateListing(listing))
	return listing
}

func TestMemoryRejectsSecondPrimaryPhoto(t *testing.T) {
	m := NewMemory()
	listing := seedListing(t, m)

	require.NoError(t, m.CreatePhoto(&models.ListingPhoto{
		ListingID: listing.ID, StorageKey: "a.jpg", IsPrimary: true,
	}))

	err := m.CreatePhoto(&models.ListingPhoto{
		ListingID: listing.ID, StorageKey: "b.jpg", IsPrimary: true,
	})
	assert.ErrorIs(t, err, ErrConflict)

	// Non-primary photos are unrestricted.
	require.NoError(t, m.CreatePhoto(&models.ListingPhoto{
		ListingID: listing.ID, StorageKey: "b.jpg",
	}))
}

func TestMemoryRejectsSecondOpenRequest(t *testing.T) {
	m := NewMemory()
	listing := seedListing(t, m)

	first := &models.VerificationRequest{ListingID: listing.ID, RequestedByID: listing.OwnerProfileID}
	require.NoError(t, m.CreateVerificationRequest(first))

	err := m.CreateVerificationRequest(&models.VerificationRequest{
		ListingID: listing.ID, RequestedByID: listing.OwnerProfileID,
	})
	assert.ErrorIs(t, err, ErrConflict)

	// Closing the open request frees the slot.
	first.State = models.RequestStateRejected
	require.NoError(t, m.SaveVerificationRequest(first))
	require.NoError(t, m.CreateVerificationRequest(&models.VerificationRequest{
		ListingID: listing.ID, RequestedByID: listing.OwnerProfileID,
	}))
}

func TestMemoryRejectsDuplicateIDNumber(t *testing.T) {
	m := NewMemory()

	a := &models.User{Username: "a", Email: "a@example.com"}
	require.NoError(t, m.CreateUser(a))
	b := &models.User{Username: "b", Email: "b@example.com"}
	require.NoError(t, m.CreateUser(b))

	require.NoError(t, m.CreateOwnerProfile(&models.OwnerProfile{
		UserID: a.ID, IDType: models.IDTypeNIN, IDNumber: "12345678901",
	}))

	err := m.CreateOwnerProfile(&models.OwnerProfile{
		UserID: b.ID, IDType: models.IDTypeNIN, IDNumber: "12345678901",
	})
	assert.ErrorIs(t, err, ErrConflict)

	// Same number under a different ID scheme is fine, as are blank numbers.
	require.NoError(t, m.CreateOwnerProfile(&models.OwnerProfile{
		UserID: b.ID, IDType: models.IDTypePassport, IDNumber: "12345678901",
	}))
}

func TestMemoryAtomicRollsBackOnError(t *testing.T) {
	m := NewMemory()
	listing := seedListing(t, m)

	boom := errors.New("boom")
	err := m.Atomic(func(tx Store) error {
		l, err := tx.GetListing(listing.ID)
		if err != nil {
			return err
		}
		l.Status = models.ListingStatusInReview
		if err := tx.SaveListing(l); err != nil {
			return err
		}
		if err := tx.CreateVerificationRequest(&models.VerificationRequest{
			ListingID: l.ID, RequestedByID: l.OwnerProfileID,
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	reloaded, err := m.GetListing(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusDraft, reloaded.Status)

	requests, err := m.ListRequests(listing.ID)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestMemoryAtomicCommits(t *testing.T) {
	m := NewMemory()
	listing := seedListing(t, m)

	err := m.Atomic(func(tx Store) error {
		l, err := tx.GetListing(listing.ID)
		if err != nil {
			return err
		}
		l.Status = models.ListingStatusInReview
		return tx.SaveListing(l)
	})
	require.NoError(t, err)

	reloaded, err := m.GetListing(listing.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusInReview, reloaded.Status)
}
