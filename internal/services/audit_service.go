// internal/services/audit_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/heimly/heimly-backend/internal/models"
	"github.com/heimly/heimly-backend/internal/store"
)

// AuditService appends and reads the append-only action trail. Entries are
// written inside the same transaction as the state change they describe:
// callers inside Atomic blocks pass the transactional store via RecordIn.
type AuditService struct {
	store store.Store
}

func NewAuditService(st store.Store) *AuditService {
	return &AuditService{store: st}
}

// Record appends one entry outside any surrounding transaction.
func (s *AuditService) Record(subject models.AuditSubject, actorID *uuid.UUID, action string, payload models.JSONB) error {
	return RecordIn(s.store, subject, actorID, action, payload)
}

// RecordIn appends one entry using the given store, which may be a
// transaction handle.
func RecordIn(st store.Store, subject models.AuditSubject, actorID *uuid.UUID, action string, payload models.JSONB) error {
	entry := &models.AuditEntry{
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		ActorID:     actorID,
		Action:      action,
		Payload:     payload,
	}
	if err := st.AppendAudit(entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// Trail returns the entries for one subject, newest first.
func (s *AuditService) Trail(subject models.AuditSubject) ([]models.AuditEntry, error) {
	return s.store.ListAudit(subject)
}
