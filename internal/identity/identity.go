// Package identity exposes who, if anyone, is signed in.
package identity

import (
	"context"
	"strings"
)

// Identity is the signed-in user as seen by the ledger.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Provider answers whether a user is currently signed in.
type Provider interface {
	CurrentIdentity() (Identity, bool)
}

// Static always reports the same identity. Used by the CLI, where the user is
// given on the command line.
type Static Identity

// CurrentIdentity implements Provider.
func (s Static) CurrentIdentity() (Identity, bool) {
	id := Identity(s)
	return id, strings.TrimSpace(id.UserID) != ""
}

// Anonymous never has an identity.
type Anonymous struct{}

// CurrentIdentity implements Provider.
func (Anonymous) CurrentIdentity() (Identity, bool) { return Identity{}, false }

type contextKey struct{}

// NewContext returns ctx carrying id, so storage adapters can scope by owner.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity stored by NewContext.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// Owner returns the user ID carried by ctx, or "" when none.
func Owner(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}
