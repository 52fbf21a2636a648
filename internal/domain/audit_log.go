package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditAction tags what an audit entry records.
type AuditAction string

const (
	AuditActionApplyChange  AuditAction = "apply_change"
	AuditActionRevertChange AuditAction = "revert_change"
)

// AuditLogEntry is an append-only record of a successfully processed change.
// Failures are recorded on the draft change row itself, not audited.
type AuditLogEntry struct {
	ID        uuid.UUID       `json:"id"`
	ActorID   string          `json:"actorId"`
	ActorName string          `json:"actorName,omitempty"`
	Action    AuditAction     `json:"action"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"createdAt"`
}

// AuditDetails is the structured details blob stored with each entry: which
// change was processed and the snapshot that was actually written.
type AuditDetails struct {
	ChangeID uuid.UUID       `json:"changeId"`
	Kind     ChangeKind      `json:"changeType"`
	MemberID string          `json:"memberId"`
	Written  json.RawMessage `json:"details"`
}

// NewAuditLogEntry builds an entry for a processed change, capturing the
// payload that was written to the directory.
func NewAuditLogEntry(actorID string, action AuditAction, change DraftChange, written json.RawMessage) (AuditLogEntry, error) {
	details, err := json.Marshal(AuditDetails{
		ChangeID: change.ID,
		Kind:     change.Kind,
		MemberID: change.MemberID,
		Written:  written,
	})
	if err != nil {
		return AuditLogEntry{}, fmt.Errorf("failed to marshal audit details: %w", err)
	}
	return AuditLogEntry{
		ID:        uuid.New(),
		ActorID:   actorID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now(),
	}, nil
}
