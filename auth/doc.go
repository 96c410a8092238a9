// Package auth gates the HTTP API behind a shared secret.
//
// Callers present the secret in the x-auth header. Exactly one header value
// must be sent; the transport extracts it with KeyFromRequest and hands it to
// an Authenticator. SharedSecret compares it against the configured key in
// constant time.
//
// # Errors
//
// ErrMissingKey and ErrInvalidKey wrap ErrUnauthorized and map to 401.
// ErrBadCount (several x-auth headers) maps to 400. ErrKeyNotSet means the
// server has no key configured and maps to 500, so a misconfigured
// deployment fails closed. ChallengeFor performs this mapping.
package auth
