package memberloader

import (
	"context"
	"time"

	"github.com/rpattn/orgstage/internal/domain"
	"github.com/rpattn/orgstage/internal/repository"

	"github.com/graph-gophers/dataloader"
)

// MemberLoader batches member lookups by opaque directory id.
type MemberLoader struct {
	Loader *dataloader.Loader
}

// NewMemberLoader creates a per-request member loader.
func NewMemberLoader(repo repository.MemberRepository) *MemberLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]string, len(keys))
		for i, k := range keys {
			ids[i] = k.String()
		}

		members, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Map id -> member for ordering
		memberMap := make(map[string]domain.Member, len(members))
		for _, m := range members {
			memberMap[m.ID] = m
		}

		// Build results in the same order as keys
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if m, ok := memberMap[id]; ok {
				results[i] = &dataloader.Result{Data: m}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &MemberLoader{Loader: loader}
}
