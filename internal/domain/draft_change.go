package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeKind identifies what a draft change mutates.
type ChangeKind string

const (
	ChangeKindManager ChangeKind = "manager"
	ChangeKindProfile ChangeKind = "profile"
)

// ChangeStatus is the lifecycle state of a draft change.
type ChangeStatus string

const (
	ChangeStatusStaged   ChangeStatus = "staged"
	ChangeStatusApplied  ChangeStatus = "applied"
	ChangeStatusFailed   ChangeStatus = "failed"
	ChangeStatusReverted ChangeStatus = "reverted"
)

// CanTransitionTo enforces the monotonic status lifecycle:
// staged -> applied|failed, applied -> reverted. Nothing else is legal.
func (s ChangeStatus) CanTransitionTo(next ChangeStatus) bool {
	switch s {
	case ChangeStatusStaged:
		return next == ChangeStatusApplied || next == ChangeStatusFailed
	case ChangeStatusApplied:
		return next == ChangeStatusReverted
	default:
		return false
	}
}

// ManagerPayload is the before/after shape of a manager reassignment.
type ManagerPayload struct {
	Manager *string `json:"manager"`
}

// DraftChange is a staged, not-yet-committed mutation to a member. Rows are
// never deleted; applied and failed changes remain as the audit trail's
// source record.
type DraftChange struct {
	ID           uuid.UUID       `json:"id"`
	ActorID      string          `json:"actorId"`
	MemberID     string          `json:"memberId"`
	Kind         ChangeKind      `json:"changeType"`
	Before       json.RawMessage `json:"payloadBefore"`
	After        json.RawMessage `json:"payloadAfter"`
	Status       ChangeStatus    `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	AppliedAt    *time.Time      `json:"appliedAt,omitempty"`
	ErrorMessage *string         `json:"errorMessage,omitempty"`
}

// NewManagerReassignment builds a staged manager change with its before/after snapshots.
func NewManagerReassignment(actorID, memberID string, oldManagerID, newManagerID *string) (DraftChange, error) {
	before, err := json.Marshal(ManagerPayload{Manager: oldManagerID})
	if err != nil {
		return DraftChange{}, fmt.Errorf("failed to marshal before payload: %w", err)
	}
	after, err := json.Marshal(ManagerPayload{Manager: newManagerID})
	if err != nil {
		return DraftChange{}, fmt.Errorf("failed to marshal after payload: %w", err)
	}
	return DraftChange{
		ID:        uuid.New(),
		ActorID:   actorID,
		MemberID:  memberID,
		Kind:      ChangeKindManager,
		Before:    before,
		After:     after,
		Status:    ChangeStatusStaged,
		CreatedAt: time.Now(),
	}, nil
}

// NewProfileUpdate builds a staged profile change. The before snapshot must
// contain exactly the touched fields, captured from the member's live payload
// at staging time.
func NewProfileUpdate(actorID, memberID string, before, after map[string]FieldValue) (DraftChange, error) {
	beforeJSON, err := json.Marshal(ProfilePayload{Fields: before})
	if err != nil {
		return DraftChange{}, fmt.Errorf("failed to marshal before payload: %w", err)
	}
	afterJSON, err := json.Marshal(ProfilePayload{Fields: after})
	if err != nil {
		return DraftChange{}, fmt.Errorf("failed to marshal after payload: %w", err)
	}
	return DraftChange{
		ID:        uuid.New(),
		ActorID:   actorID,
		MemberID:  memberID,
		Kind:      ChangeKindProfile,
		Before:    beforeJSON,
		After:     afterJSON,
		Status:    ChangeStatusStaged,
		CreatedAt: time.Now(),
	}, nil
}

// ManagerPayloads decodes both snapshots of a manager reassignment.
func (c DraftChange) ManagerPayloads() (before, after ManagerPayload, err error) {
	if c.Kind != ChangeKindManager {
		return before, after, fmt.Errorf("change %s is not a manager reassignment", c.ID)
	}
	if err = json.Unmarshal(c.Before, &before); err != nil {
		return before, after, fmt.Errorf("failed to decode before payload: %w", err)
	}
	if err = json.Unmarshal(c.After, &after); err != nil {
		return before, after, fmt.Errorf("failed to decode after payload: %w", err)
	}
	return before, after, nil
}

// ProfilePayloads decodes both snapshots of a profile update.
func (c DraftChange) ProfilePayloads() (before, after ProfilePayload, err error) {
	if c.Kind != ChangeKindProfile {
		return before, after, fmt.Errorf("change %s is not a profile update", c.ID)
	}
	if err = json.Unmarshal(c.Before, &before); err != nil {
		return before, after, fmt.Errorf("failed to decode before payload: %w", err)
	}
	if err = json.Unmarshal(c.After, &after); err != nil {
		return before, after, fmt.Errorf("failed to decode after payload: %w", err)
	}
	return before, after, nil
}
