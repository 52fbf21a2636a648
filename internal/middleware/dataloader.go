package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/orgstage/internal/memberloader"
	"github.com/rpattn/orgstage/internal/repository"

	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const memberLoaderKey ctxKey = "memberLoader"

// DataLoaderMiddleware attaches a per-request member loader to the context so
// handlers resolving many member ids batch them into one repository call.
func DataLoaderMiddleware(repo repository.MemberRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := memberloader.NewMemberLoader(repo)

			ctx := context.WithValue(r.Context(), memberLoaderKey, loader.Loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// MemberLoaderFromContext retrieves the dataloader from context.
func MemberLoaderFromContext(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(memberLoaderKey).(*dataloader.Loader); ok {
		return l
	}
	return nil
}
