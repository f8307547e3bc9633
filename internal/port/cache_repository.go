package port

import "context"

type CacheRepository interface {
	// ResolveSession maps a bearer token to a principal id.
	// Returns "" when the token is unknown or expired.
	ResolveSession(ctx context.Context, token string) (string, error)

	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// ReleaseIdempotency removes a previously set idempotency key so a failed
	// request may be retried with the same request id.
	ReleaseIdempotency(ctx context.Context, key string) error
}
