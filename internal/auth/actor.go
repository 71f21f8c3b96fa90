package auth

import (
	"context"
	"errors"
)

// Roles known to the core. Credential verification happens upstream; the core
// only performs tenant checks against the resolved actor.
const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleSystem  = "system"
)

// Actor is the resolved identity attached to every core operation. Exactly one
// of UserID and GuestToken is set.
type Actor struct {
	UserID       string
	GuestToken   string
	Role         string
	RestaurantID string
}

// IsGuest reports whether the actor is an ephemeral guest identity
func (a Actor) IsGuest() bool {
	return a.GuestToken != ""
}

// Label returns a loggable identifier for the actor
func (a Actor) Label() string {
	if a.IsGuest() {
		return "guest:" + a.GuestToken
	}
	return a.UserID
}

// ErrNoActor is returned when no actor identity is present in the context
var ErrNoActor = errors.New("no actor in context")

type contextKey struct{}

// WithActor attaches an actor to the context
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, actor)
}

// FromContext extracts the actor from the context
func FromContext(ctx context.Context) (Actor, error) {
	actor, ok := ctx.Value(contextKey{}).(Actor)
	if !ok {
		return Actor{}, ErrNoActor
	}
	return actor, nil
}
