package staging

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rpattn/orgstage/internal/cache"
	"github.com/rpattn/orgstage/internal/domain"
)

// Revert undoes a previously applied change by restoring its before snapshot
// against the directory and the local member state, under the org lock. A
// directory failure is returned to the caller and leaves the change applied:
// a half-applied revert must never be mistaken for a successful one, so
// nothing is recorded on the draft change row.
func (s *Service) Revert(ctx context.Context, changeID uuid.UUID, actorID string) (ChangeResult, error) {
	change, err := s.changes.GetByID(ctx, changeID)
	if err != nil {
		return ChangeResult{}, err
	}
	if change.Status != domain.ChangeStatusApplied {
		return ChangeResult{}, domain.NewNotFoundError("applied change", changeID.String())
	}

	var result ChangeResult
	err = s.withLock(ctx, actorID, func(ctx context.Context) error {
		// Re-read under the lock so two racing reverts cannot both push the
		// before snapshot.
		change, err := s.changes.GetByID(ctx, changeID)
		if err != nil {
			return err
		}
		if change.Status != domain.ChangeStatusApplied {
			return domain.NewNotFoundError("applied change", changeID.String())
		}

		if err := s.pushPayload(ctx, change, change.Before, false); err != nil {
			return err
		}
		if err := s.changes.MarkReverted(ctx, change.ID); err != nil {
			return err
		}

		entry, err := domain.NewAuditLogEntry(actorID, domain.AuditActionRevertChange, change, change.Before)
		if err == nil {
			err = s.audit.Append(ctx, entry)
		}
		if err != nil {
			s.log.WithError(err).WithField("change_id", change.ID).Error("failed to append audit entry")
		}

		s.cache.Del(ctx, cache.OrgChartKey(), cache.DraftChangesKey(actorID))
		result = ChangeResult{ChangeID: change.ID, Outcome: OutcomeSuccess, Message: "reverted"}
		return nil
	})
	if err != nil {
		return ChangeResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"change_id": changeID,
		"actor":     actorID,
	}).Info("reverted change")
	return result, nil
}
