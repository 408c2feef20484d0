package context

import (
	"context"
)

// Actor identifies who triggered an operation. Authentication happens upstream;
// the ledger only records the identity it is handed.
type Actor struct {
	UserID string
	Name   string
}

type actorKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// GetActor returns Actor from context.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// GetUserID returns the acting user ID or "system" when the call did not come from a user.
func GetUserID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.UserID != "" {
		return a.UserID
	}
	return "system"
}
