package staging

import "context"

// LockResourceOrg is the single logical resource apply and revert serialize
// on; the whole reporting tree is treated as one resource.
const LockResourceOrg = "org"

// withLock runs fn while holding the org lock. The lock row is deleted
// unconditionally afterwards, whether fn succeeded or not. A held lock
// surfaces as a conflict from Acquire; there is no blocking wait.
func (s *Service) withLock(ctx context.Context, holder string, fn func(context.Context) error) error {
	if err := s.locks.Acquire(ctx, LockResourceOrg, holder); err != nil {
		return err
	}
	defer func() {
		if err := s.locks.Release(ctx, LockResourceOrg); err != nil {
			s.log.WithError(err).WithField("resource", LockResourceOrg).Error("failed to release lock")
		}
	}()
	return fn(ctx)
}
