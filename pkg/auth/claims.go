package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/plunoo/biskakenauto-sub000/pkg/enums"
)

// AccessTokenClaims represents the JWT issued by the staff auth service.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller of a mutating operation. Background
// processes (webhooks, cron) use SystemActor.
type Actor struct {
	UserID *uuid.UUID
	Role   enums.UserRole
}

// SystemActor returns an actor with no user and no privileges.
func SystemActor() Actor {
	return Actor{}
}

// IsAdmin reports whether the actor may override terminal-state rules.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// CanManage reports whether the actor holds a manager or admin role.
func (a Actor) CanManage() bool {
	return a.Role == enums.RoleAdmin || a.Role == enums.RoleManager
}

// ActorFromClaims converts verified claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return SystemActor()
	}
	id := claims.UserID
	return Actor{UserID: &id, Role: claims.Role}
}
