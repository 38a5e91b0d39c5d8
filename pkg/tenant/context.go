package tenant

import (
	"context"
	"errors"
)

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const (
	orgIDKey   contextKey = "org_id"
	orgNameKey contextKey = "org_name"
)

var (
	// ErrNoOrgInContext is returned when no organization has been resolved
	// for the request.
	ErrNoOrgInContext = errors.New("no organization in context")
)

// WithOrg adds the active organization to the context.
// This should be called by middleware after resolving the selected
// organization from the session.
func WithOrg(ctx context.Context, id, name string) context.Context {
	ctx = context.WithValue(ctx, orgIDKey, id)
	ctx = context.WithValue(ctx, orgNameKey, name)
	return ctx
}

// WithOrgID adds only the organization ID to the context
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}

// OrgID extracts the active organization ID from context.
// Returns ErrNoOrgInContext if no organization has been selected.
func OrgID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(orgIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoOrgInContext
	}
	return id, nil
}

// OrgName extracts the active organization name from context
func OrgName(ctx context.Context) (string, error) {
	name, ok := ctx.Value(orgNameKey).(string)
	if !ok || name == "" {
		return "", ErrNoOrgInContext
	}
	return name, nil
}

// MustOrgID extracts the organization ID from context and panics if not found.
// Use only in cases where a missing organization is a programming error.
func MustOrgID(ctx context.Context) string {
	id, err := OrgID(ctx)
	if err != nil {
		panic("organization ID not found in context")
	}
	return id
}
