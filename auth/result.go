package auth

import (
	"errors"
	"net/http"
)

// AuthenticationChallenge describes how a failed authentication is reported
// over HTTP.
type AuthenticationChallenge struct {
	Status  int
	Message string
}

// ChallengeFor maps an authentication error to its HTTP challenge. It
// returns nil for a nil error.
func ChallengeFor(err error) *AuthenticationChallenge {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBadCount):
		return &AuthenticationChallenge{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, ErrKeyNotSet):
		return &AuthenticationChallenge{Status: http.StatusInternalServerError, Message: err.Error()}
	case errors.Is(err, ErrUnauthorized):
		return &AuthenticationChallenge{Status: http.StatusUnauthorized, Message: err.Error()}
	default:
		return &AuthenticationChallenge{Status: http.StatusInternalServerError, Message: "authentication failed"}
	}
}
