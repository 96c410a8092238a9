package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// HeaderName carries the shared secret.
const HeaderName = "x-auth"

// ErrUnauthorized indicates authentication failed or no valid credentials were supplied.
var ErrUnauthorized = errors.New("unauthorized")

var (
	// ErrMissingKey indicates the request carried no x-auth header.
	ErrMissingKey = fmt.Errorf("%w: missing %s header", ErrUnauthorized, HeaderName)
	// ErrInvalidKey indicates the presented key does not match.
	ErrInvalidKey = fmt.Errorf("%w: invalid api key", ErrUnauthorized)
	// ErrBadCount indicates more than one x-auth header was sent.
	ErrBadCount = fmt.Errorf("multiple %s headers", HeaderName)
	// ErrKeyNotSet indicates the server has no key configured.
	ErrKeyNotSet = errors.New("api key not configured")
)

// Principal represents an authenticated caller.
// Implementations should be lightweight and safe for concurrent use.
type Principal interface {
	// ID returns a stable, non-secret identifier for the caller.
	ID() string
}

// Authenticator validates a presented key and returns the caller it belongs to.
type Authenticator interface {
	CheckAuthentication(ctx context.Context, key string) (Principal, error)
}

// KeyFromRequest extracts the single x-auth header value from r.
func KeyFromRequest(r *http.Request) (string, error) {
	keys := r.Header.Values(HeaderName)
	switch len(keys) {
	case 0:
		return "", ErrMissingKey
	case 1:
		return keys[0], nil
	default:
		return "", ErrBadCount
	}
}

// Authenticate extracts the key from r and checks it with a.
func Authenticate(ctx context.Context, a Authenticator, r *http.Request) (Principal, error) {
	key, err := KeyFromRequest(r)
	if err != nil {
		return nil, err
	}
	return a.CheckAuthentication(ctx, key)
}
