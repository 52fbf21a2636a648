package auth

import "context"

type contextKey string

const actorIDKey contextKey = "actorID"

// SystemActor is attributed when a request carries no actor identity.
const SystemActor = "system"

// ContextWithActorID returns a new context carrying the acting member's id.
func ContextWithActorID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorIDKey, id)
}

// ActorIDFromContext retrieves the acting member's id from the context, if any.
func ActorIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value := ctx.Value(actorIDKey)
	if value == nil {
		return "", false
	}
	id, ok := value.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// ActorOrSystem returns the acting member's id, falling back to the system
// actor when the request is unattributed.
func ActorOrSystem(ctx context.Context) string {
	if id, ok := ActorIDFromContext(ctx); ok {
		return id
	}
	return SystemActor
}
