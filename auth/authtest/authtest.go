// Package authtest provides authenticators for tests and local development.
package authtest

import (
	"context"

	"github.com/ggoodman/a11y-warehouse/auth"
)

// NoAuth is a test authenticator that always returns authenticated
// Used for testing and development environments where authentication is not required
type NoAuth struct {
	CallerID string
}

// NewNoAuth creates a new NoAuth authenticator with the specified caller ID
// If callerID is empty, it defaults to "test-caller"
func NewNoAuth(callerID string) *NoAuth {
	if callerID == "" {
		callerID = "test-caller"
	}
	return &NoAuth{CallerID: callerID}
}

// CheckAuthentication always succeeds.
func (n *NoAuth) CheckAuthentication(ctx context.Context, key string) (auth.Principal, error) {
	return principal(n.CallerID), nil
}

type principal string

func (p principal) ID() string { return string(p) }
