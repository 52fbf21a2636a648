package staging

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/orgstage/internal/cache"
	"github.com/rpattn/orgstage/internal/domain"
)

// Outcome values echoed per change by apply and revert.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// ChangeResult reports how one change fared.
type ChangeResult struct {
	ChangeID uuid.UUID `json:"changeId"`
	Outcome  string    `json:"status"`
	Message  string    `json:"message"`
}

// ApplyAll commits every staged change against the external directory under
// the org lock. Manager reassignments are applied before profile updates,
// each group in staging order. Changes are isolated: a failure marks that
// change failed with the error recorded verbatim and the batch continues.
// The returned slice always covers the full batch.
func (s *Service) ApplyAll(ctx context.Context, actorID string) ([]ChangeResult, error) {
	// Cheap unlocked pre-check so an empty apply never touches the lock.
	staged, err := s.changes.ListStagedForApply(ctx)
	if err != nil {
		return nil, err
	}
	if len(staged) == 0 {
		return []ChangeResult{}, nil
	}

	results := []ChangeResult{}
	err = s.withLock(ctx, actorID, func(ctx context.Context) error {
		// Re-read under the lock; another run may have drained the queue
		// between the pre-check and acquisition.
		staged, err := s.changes.ListStagedForApply(ctx)
		if err != nil {
			return err
		}
		for _, change := range staged {
			results = append(results, s.applyOne(ctx, actorID, change))
		}
		s.cache.Del(ctx, cache.OrgChartKey(), cache.DraftChangesKey(actorID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"actor":   actorID,
		"changes": len(results),
	}).Info("applied staged changes")
	return results, nil
}

// applyOne pushes a single change to the directory and records the outcome.
// The draft change row and the audit log are only written after the external
// call has succeeded, so neither can reflect a write that never happened.
func (s *Service) applyOne(ctx context.Context, actorID string, change domain.DraftChange) ChangeResult {
	if err := s.pushPayload(ctx, change, change.After, true); err != nil {
		return s.failChange(ctx, change, err)
	}

	if err := s.changes.MarkApplied(ctx, change.ID, s.now()); err != nil {
		s.log.WithError(err).WithField("change_id", change.ID).Error("failed to record applied status")
		return ChangeResult{ChangeID: change.ID, Outcome: OutcomeError, Message: err.Error()}
	}

	entry, err := domain.NewAuditLogEntry(actorID, domain.AuditActionApplyChange, change, change.After)
	if err == nil {
		err = s.audit.Append(ctx, entry)
	}
	if err != nil {
		s.log.WithError(err).WithField("change_id", change.ID).Error("failed to append audit entry")
	}

	return ChangeResult{ChangeID: change.ID, Outcome: OutcomeSuccess, Message: "applied"}
}

// failChange marks the change failed with the error captured verbatim. The
// failure stays on the draft change row; it is not audited.
func (s *Service) failChange(ctx context.Context, change domain.DraftChange, cause error) ChangeResult {
	if err := s.changes.MarkFailed(ctx, change.ID, cause.Error()); err != nil {
		s.log.WithError(err).WithField("change_id", change.ID).Error("failed to record failed status")
	}
	s.log.WithFields(logrus.Fields{
		"change_id": change.ID,
		"member":    change.MemberID,
		"kind":      change.Kind,
	}).WithError(cause).Warn("change failed to apply")
	return ChangeResult{ChangeID: change.ID, Outcome: OutcomeError, Message: cause.Error()}
}

// pushPayload sends one snapshot of a change to the directory and, on
// success, mirrors it into the member's persisted state. With checkTarget
// set, the target member is verified first so a member deactivated or
// deleted between staging and apply fails cleanly without an external call.
func (s *Service) pushPayload(ctx context.Context, change domain.DraftChange, payload json.RawMessage, checkTarget bool) error {
	if checkTarget {
		member, err := s.members.GetByID(ctx, change.MemberID)
		if err != nil {
			return err
		}
		if !member.Active {
			return domain.NewConflictError("member " + change.MemberID + " is no longer active")
		}
	}

	switch change.Kind {
	case domain.ChangeKindManager:
		var snapshot domain.ManagerPayload
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return err
		}
		if err := s.directory.SetManager(ctx, change.MemberID, snapshot.Manager); err != nil {
			return err
		}
		return s.members.UpdateManager(ctx, change.MemberID, snapshot.Manager)
	case domain.ChangeKindProfile:
		var snapshot domain.ProfilePayload
		if err := json.Unmarshal(payload, &snapshot); err != nil {
			return err
		}
		if err := s.directory.SetProfileFields(ctx, change.MemberID, snapshot.Fields); err != nil {
			return err
		}
		return s.mergeProfile(ctx, change.MemberID, snapshot)
	default:
		return domain.NewValidationError("unknown change kind " + string(change.Kind))
	}
}

// mergeProfile folds the written fields into the member's stored payload so
// untouched fields survive a partial update.
func (s *Service) mergeProfile(ctx context.Context, memberID string, snapshot domain.ProfilePayload) error {
	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	merged := member.Profile.Clone()
	if merged.Fields == nil {
		merged.Fields = map[string]domain.FieldValue{}
	}
	for id, value := range snapshot.Fields {
		merged.Fields[id] = value
	}
	return s.members.UpdateProfile(ctx, memberID, merged)
}
