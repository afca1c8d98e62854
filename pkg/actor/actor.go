// Package actor carries the authenticated caller through a request so that
// handlers can record submitters and reviewers and decide what the caller
// may see.
package actor

import (
	"context"
	"fmt"

	"github.com/medflow/medflow-attendance/pkg/permissions"
)

// Actor is the caller of an API request. ID is the caller's employee ID.
type Actor struct {
	ID          string   `json:"id"`
	Email       string   `json:"email,omitempty"`
	RoleName    string   `json:"role_name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Can reports whether the actor holds permission, honouring wildcards
func (a *Actor) Can(permission string) bool {
	if a == nil {
		return false
	}
	return permissions.HasPermission(a.Permissions, permission)
}

// Owns reports whether the actor is the given employee
func (a *Actor) Owns(employeeID string) bool {
	return a != nil && a.ID != "" && a.ID == employeeID
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "anonymous"
	}
	if a.Email == "" {
		return a.ID
	}
	return fmt.Sprintf("%s (%s)", a.ID, a.Email)
}

type contextKey struct{}

// FromContext retrieves the Actor from the context, or nil when the request
// is unauthenticated.
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(contextKey{}).(*Actor)
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, a)
}
