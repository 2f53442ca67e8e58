// internal/store/memory.go
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/heimly/heimly-backend/internal/models"
)

// Memory is an in-memory Store used by unit tests. It enforces the same
// uniqueness invariants as the Postgres schema and supports transactional
// rollback via snapshotting.
type Memory struct {
	mu   sync.Mutex
	data *memData
	inTx bool
}

type memData struct {
	users     map[uuid.UUID]models.User
	profiles  map[uuid.UUID]models.OwnerProfile
	listings  map[uuid.UUID]models.Listing
	photos    map[uuid.UUID]models.ListingPhoto
	documents map[uuid.UUID]models.ListingDocument
	requests  map[uuid.UUID]models.VerificationRequest
	audit     []models.AuditEntry
}

func NewMemory() *Memory {
	return &Memory{data: &memData{
		users:     make(map[uuid.UUID]models.User),
		profiles:  make(map[uuid.UUID]models.OwnerProfile),
		listings:  make(map[uuid.UUID]models.Listing),
		photos:    make(map[uuid.UUID]models.ListingPhoto),
		documents: make(map[uuid.UUID]models.ListingDocument),
		requests:  make(map[uuid.UUID]models.VerificationRequest),
	}}
}

func (d *memData) clone() *memData {
	c := &memData{
		users:     make(map[uuid.UUID]models.User, len(d.users)),
		profiles:  make(map[uuid.UUID]models.OwnerProfile, len(d.profiles)),
		listings:  make(map[uuid.UUID]models.Listing, len(d.listings)),
		photos:    make(map[uuid.UUID]models.ListingPhoto, len(d.photos)),
		documents: make(map[uuid.UUID]models.ListingDocument, len(d.documents)),
		requests:  make(map[uuid.UUID]models.VerificationRequest, len(d.requests)),
		audit:     append([]models.AuditEntry(nil), d.audit...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.listings {
		c.listings[k] = v
	}
	for k, v := range d.photos {
		c.photos[k] = v
	}
	for k, v := range d.documents {
		c.documents[k] = v
	}
	for k, v := range d.requests {
		c.requests[k] = v
	}
	return c
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// Atomic serializes transactions behind the store mutex and rolls the data
// back to a pre-transaction snapshot when fn fails.
func (m *Memory) Atomic(fn func(Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	tx := &Memory{data: m.data, inTx: true}
	if err := fn(tx); err != nil {
		*m.data = *snapshot
		return err
	}
	return nil
}

func stamp(b *models.BaseModel) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Users

func (m *Memory) CreateUser(u *models.User) error {
	defer m.lock()()
	for _, existing := range m.data.users {
		if existing.Email == u.Email || existing.Username == u.Username {
			return fmt.Errorf("create user: %w", ErrConflict)
		}
	}
	stamp(&u.BaseModel)
	m.data.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(id uuid.UUID) (*models.User, error) {
	defer m.lock()()
	u, ok := m.data.users[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", ErrNotFound)
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(email string) (*models.User, error) {
	defer m.lock()()
	for _, u := range m.data.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("get user by email: %w", ErrNotFound)
}

func (m *Memory) SaveUser(u *models.User) error {
	defer m.lock()()
	if _, ok := m.data.users[u.ID]; !ok {
		return fmt.Errorf("save user: %w", ErrNotFound)
	}
	u.UpdatedAt = time.Now()
	m.data.users[u.ID] = *u
	return nil
}

// Owner profiles

func (m *Memory) idNumberTaken(p *models.OwnerProfile) bool {
	if p.IDNumber == "" {
		return false
	}
	for _, existing := range m.data.profiles {
		if existing.ID != p.ID && existing.IDType == p.IDType && existing.IDNumber == p.IDNumber {
			return true
		}
	}
	return false
}

func (m *Memory) CreateOwnerProfile(p *models.OwnerProfile) error {
	defer m.lock()()
	for _, existing := range m.data.profiles {
		if existing.UserID == p.UserID {
			return fmt.Errorf("create owner profile: %w", ErrConflict)
		}
	}
	if m.idNumberTaken(p) {
		return fmt.Errorf("create owner profile: %w", ErrConflict)
	}
	stamp(&p.BaseModel)
	m.data.profiles[p.ID] = *p
	return nil
}

func (m *Memory) GetOwnerProfile(id uuid.UUID) (*models.OwnerProfile, error) {
	defer m.lock()()
	p, ok := m.data.profiles[id]
	if !ok {
		return nil, fmt.Errorf("get owner profile: %w", ErrNotFound)
	}
	if u, ok := m.data.users[p.UserID]; ok {
		p.User = u
	}
	return &p, nil
}

func (m *Memory) GetOwnerProfileByUserID(userID uuid.UUID) (*models.OwnerProfile, error) {
	defer m.lock()()
	for _, p := range m.data.profiles {
		if p.UserID == userID {
			profile := p
			if u, ok := m.data.users[p.UserID]; ok {
				profile.User = u
			}
			return &profile, nil
		}
	}
	return nil, fmt.Errorf("get owner profile by user: %w", ErrNotFound)
}

func (m *Memory) SaveOwnerProfile(p *models.OwnerProfile) error {
	defer m.lock()()
	if _, ok := m.data.profiles[p.ID]; !ok {
		return fmt.Errorf("save owner profile: %w", ErrNotFound)
	}
	if m.idNumberTaken(p) {
		return fmt.Errorf("save owner profile: %w", ErrConflict)
	}
	p.UpdatedAt = time.Now()
	saved := *p
	saved.User = models.User{}
	saved.Listings = nil
	m.data.profiles[p.ID] = saved
	return nil
}

func (m *Memory) ListOwnerProfiles(statuses []models.IdentityStatus) ([]models.OwnerProfile, error) {
	defer m.lock()()
	var profiles []models.OwnerProfile
	for _, p := range m.data.profiles {
		if len(statuses) > 0 && !containsIdentityStatus(statuses, p.IdentityStatus) {
			continue
		}
		if u, ok := m.data.users[p.UserID]; ok {
			p.User = u
		}
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})
	return profiles, nil
}

func containsIdentityStatus(statuses []models.IdentityStatus, s models.IdentityStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

// Listings

func (m *Memory) CreateListing(l *models.Listing) error {
	defer m.lock()()
	stamp(&l.BaseModel)
	saved := *l
	saved.OwnerProfile = models.OwnerProfile{}
	saved.Photos = nil
	saved.Documents = nil
	m.data.listings[l.ID] = saved
	return nil
}

func (m *Memory) GetListing(id uuid.UUID) (*models.Listing, error) {
	defer m.lock()()
	l, ok := m.data.listings[id]
	if !ok {
		return nil, fmt.Errorf("get listing: %w", ErrNotFound)
	}
	if p, ok := m.data.profiles[l.OwnerProfileID]; ok {
		if u, ok := m.data.users[p.UserID]; ok {
			p.User = u
		}
		l.OwnerProfile = p
	}
	return &l, nil
}

func (m *Memory) SaveListing(l *models.Listing) error {
	defer m.lock()()
	if _, ok := m.data.listings[l.ID]; !ok {
		return fmt.Errorf("save listing: %w", ErrNotFound)
	}
	l.UpdatedAt = time.Now()
	saved := *l
	saved.OwnerProfile = models.OwnerProfile{}
	saved.Photos = nil
	saved.Documents = nil
	m.data.listings[l.ID] = saved
	return nil
}

func (m *Memory) ListListings(f ListingFilter) ([]models.Listing, error) {
	defer m.lock()()
	var listings []models.Listing
	for _, l := range m.data.listings {
		if f.OwnerProfileID != nil && l.OwnerProfileID != *f.OwnerProfileID {
			continue
		}
		if len(f.Statuses) > 0 && !containsListingStatus(f.Statuses, l.Status) {
			continue
		}
		if f.City != "" && !strings.Contains(strings.ToLower(l.City), strings.ToLower(f.City)) {
			continue
		}
		if f.Search != "" {
			term := strings.ToLower(f.Search)
			if !strings.Contains(strings.ToLower(l.Title), term) &&
				!strings.Contains(strings.ToLower(l.Description), term) {
				continue
			}
		}
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
	return listings, nil
}

func containsListingStatus(statuses []models.ListingStatus, s models.ListingStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

func (m *Memory) CountListingsByStatus() (map[models.ListingStatus]int64, error) {
	defer m.lock()()
	counts := make(map[models.ListingStatus]int64)
	for _, l := range m.data.listings {
		counts[l.Status]++
	}
	return counts, nil
}

// Photos

func (m *Memory) CreatePhoto(p *models.ListingPhoto) error {
	defer m.lock()()
	if p.IsPrimary && m.hasOtherPrimary(p) {
		return fmt.Errorf("create photo: %w", ErrConflict)
	}
	stamp(&p.BaseModel)
	m.data.photos[p.ID] = *p
	return nil
}

func (m *Memory) GetPhoto(id uuid.UUID) (*models.ListingPhoto, error) {
	defer m.lock()()
	p, ok := m.data.photos[id]
	if !ok {
		return nil, fmt.Errorf("get photo: %w", ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) SavePhoto(p *models.ListingPhoto) error {
	defer m.lock()()
	if _, ok := m.data.photos[p.ID]; !ok {
		return fmt.Errorf("save photo: %w", ErrNotFound)
	}
	if p.IsPrimary && m.hasOtherPrimary(p) {
		return fmt.Errorf("save photo: %w", ErrConflict)
	}
	p.UpdatedAt = time.Now()
	m.data.photos[p.ID] = *p
	return nil
}

func (m *Memory) DeletePhoto(id uuid.UUID) error {
	defer m.lock()()
	delete(m.data.photos, id)
	return nil
}

func (m *Memory) hasOtherPrimary(p *models.ListingPhoto) bool {
	for _, existing := range m.data.photos {
		if existing.ID != p.ID && existing.ListingID == p.ListingID && existing.IsPrimary {
			return true
		}
	}
	return false
}

func (m *Memory) ListPhotos(listingID uuid.UUID) ([]models.ListingPhoto, error) {
	defer m.lock()()
	var photos []models.ListingPhoto
	for _, p := range m.data.photos {
		if p.ListingID == listingID {
			photos = append(photos, p)
		}
	}
	sort.Slice(photos, func(i, j int) bool {
		if photos[i].IsPrimary != photos[j].IsPrimary {
			return photos[i].IsPrimary
		}
		if photos[i].Position != photos[j].Position {
			return photos[i].Position < photos[j].Position
		}
		return photos[i].CreatedAt.Before(photos[j].CreatedAt)
	})
	return photos, nil
}

func (m *Memory) PrimaryPhoto(listingID uuid.UUID) (*models.ListingPhoto, error) {
	defer m.lock()()
	for _, p := range m.data.photos {
		if p.ListingID == listingID && p.IsPrimary {
			photo := p
			return &photo, nil
		}
	}
	return nil, fmt.Errorf("primary photo: %w", ErrNotFound)
}

// Documents

func (m *Memory) CreateDocument(d *models.ListingDocument) error {
	defer m.lock()()
	stamp(&d.BaseModel)
	if d.UploadedAt.IsZero() {
		d.UploadedAt = d.CreatedAt
	}
	m.data.documents[d.ID] = *d
	return nil
}

func (m *Memory) GetDocument(id uuid.UUID) (*models.ListingDocument, error) {
	defer m.lock()()
	d, ok := m.data.documents[id]
	if !ok {
		return nil, fmt.Errorf("get document: %w", ErrNotFound)
	}
	return &d, nil
}

func (m *Memory) SaveDocument(d *models.ListingDocument) error {
	defer m.lock()()
	if _, ok := m.data.documents[d.ID]; !ok {
		return fmt.Errorf("save document: %w", ErrNotFound)
	}
	d.UpdatedAt = time.Now()
	m.data.documents[d.ID] = *d
	return nil
}

func (m *Memory) ListDocuments(listingID uuid.UUID) ([]models.ListingDocument, error) {
	defer m.lock()()
	var docs []models.ListingDocument
	for _, d := range m.data.documents {
		if d.ListingID == listingID {
			docs = append(docs, d)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

// Verification requests

func (m *Memory) CreateVerificationRequest(r *models.VerificationRequest) error {
	defer m.lock()()
	if r.State == "" {
		r.State = models.RequestStatePending
	}
	if r.State.IsOpen() {
		for _, existing := range m.data.requests {
			if existing.ListingID == r.ListingID && existing.State.IsOpen() {
				return fmt.Errorf("create verification request: %w", ErrConflict)
			}
		}
	}
	stamp(&r.BaseModel)
	if r.StartedAt.IsZero() {
		r.StartedAt = r.CreatedAt
	}
	saved := *r
	saved.Listing = models.Listing{}
	m.data.requests[r.ID] = saved
	return nil
}

func (m *Memory) GetVerificationRequest(id uuid.UUID) (*models.VerificationRequest, error) {
	defer m.lock()()
	r, ok := m.data.requests[id]
	if !ok {
		return nil, fmt.Errorf("get verification request: %w", ErrNotFound)
	}
	return &r, nil
}

func (m *Memory) SaveVerificationRequest(r *models.VerificationRequest) error {
	defer m.lock()()
	if _, ok := m.data.requests[r.ID]; !ok {
		return fmt.Errorf("save verification request: %w", ErrNotFound)
	}
	if r.State.IsOpen() {
		for _, existing := range m.data.requests {
			if existing.ID != r.ID && existing.ListingID == r.ListingID && existing.State.IsOpen() {
				return fmt.Errorf("save verification request: %w", ErrConflict)
			}
		}
	}
	r.UpdatedAt = time.Now()
	saved := *r
	saved.Listing = models.Listing{}
	m.data.requests[r.ID] = saved
	return nil
}

func (m *Memory) FindActiveRequest(listingID uuid.UUID) (*models.VerificationRequest, error) {
	defer m.lock()()
	var open []models.VerificationRequest
	for _, r := range m.data.requests {
		if r.ListingID == listingID && r.State.IsOpen() {
			open = append(open, r)
		}
	}
	if len(open) == 0 {
		return nil, fmt.Errorf("find active request: %w", ErrNotFound)
	}
	sort.Slice(open, func(i, j int) bool {
		return open[i].StartedAt.After(open[j].StartedAt)
	})
	if len(open) > 1 {
		logrus.WithFields(logrus.Fields{
			"listing_id": listingID,
			"count":      len(open),
		}).Warn("Multiple open verification requests found, using most recent")
	}
	return &open[0], nil
}

func (m *Memory) ListRequests(listingID uuid.UUID) ([]models.VerificationRequest, error) {
	defer m.lock()()
	var requests []models.VerificationRequest
	for _, r := range m.data.requests {
		if r.ListingID == listingID {
			requests = append(requests, r)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].StartedAt.After(requests[j].StartedAt)
	})
	return requests, nil
}

// Audit log

func (m *Memory) AppendAudit(e *models.AuditEntry) error {
	defer m.lock()()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.data.audit = append(m.data.audit, *e)
	return nil
}

func (m *Memory) ListAudit(subject models.AuditSubject) ([]models.AuditEntry, error) {
	defer m.lock()()
	var entries []models.AuditEntry
	for _, e := range m.data.audit {
		if e.SubjectType == subject.Type && e.SubjectID == subject.ID {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
