package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/plunoo/biskakenauto-sub000/pkg/auth"
	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

// ActorFromContext rebuilds the authenticated caller. Requests that did not
// pass through Auth yield the system actor.
func ActorFromContext(ctx context.Context) auth.Actor {
	role := RoleFromContext(ctx)
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return auth.Actor{Role: role}
	}
	return auth.Actor{UserID: &id, Role: role}
}

// WithActor injects an authenticated caller into the context.
func WithActor(ctx context.Context, userID string, role enums.UserRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxRole, role)
}
