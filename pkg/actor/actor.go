// Package actor provides a universal pattern for identifying the user
// performing actions.
//
// This package is used for:
// - The authorization gate's resolved principal
// - Attributing sales and imports to the acting seller
// - Audit logging (who performed an action)
package actor

import (
	"context"
	"fmt"

	"github.com/nexo/nexo-backend/pkg/policy"
)

// Actor represents the authenticated user performing an action.
type Actor struct {
	// ID is the unique identifier of the actor (profile ID)
	ID string `json:"id"`

	// FullName is the actor's display name
	FullName string `json:"full_name"`

	// Email is the actor's email address
	Email string `json:"email"`

	// Role is the actor's normalized role
	Role policy.Role `json:"role"`

	// OrganizationID is the organization the actor is pinned to.
	// Nil for admins, who select their organization per session.
	OrganizationID *string `json:"organization_id,omitempty"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "system"
	}
	return fmt.Sprintf("%s (%s)", a.FullName, a.Email)
}

// IsAdmin reports whether the actor holds the admin role.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == policy.RoleAdmin
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (e.g., system operations).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	actor, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// MustFromContext retrieves the Actor from the context.
// Panics if no actor is present. Use only when actor is guaranteed to exist.
func MustFromContext(ctx context.Context) *Actor {
	actor := FromContext(ctx)
	if actor == nil {
		panic("actor not found in context")
	}
	return actor
}

// SystemActor returns an Actor representing the system itself.
// Use this for background jobs and event consumers.
func SystemActor() *Actor {
	return &Actor{
		ID:       "00000000-0000-0000-0000-000000000000",
		FullName: "System",
		Email:    "system@nexo.local",
		Role:     policy.RoleAdmin,
	}
}

// IsSystem returns true if the actor represents the system.
func (a *Actor) IsSystem() bool {
	if a == nil {
		return true
	}
	return a.ID == "00000000-0000-0000-0000-000000000000"
}
