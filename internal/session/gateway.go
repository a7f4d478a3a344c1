package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vote-service/internal/cache"
	"vote-service/internal/signer"
)

// ErrUnauthenticated is returned when token or device id is absent.
var ErrUnauthenticated = errors.New("session: missing credentials")

// ErrInvalidToken is returned when the token signature or encoding is
// malformed.
var ErrInvalidToken = errors.New("session: invalid token")

// ErrSessionExpired is returned when the cache holds no record for the
// (signer, device) pair, or holds a different token. This covers TTL
// expiry and logout-elsewhere uniformly.
var ErrSessionExpired = errors.New("session: expired or superseded")

// Gateway converts a verified login into a signed session token and
// validates later requests against the cache-resident record. A token
// is valid only while it is byte-identical to the one stored for its
// (signer, device) pair, which makes revocation implicit: a new login
// on another device slot overwrites nothing, a new login on the same
// slot supersedes the old token.
type Gateway struct {
	cache   cache.Cache
	signers signer.Store
	secret  string
	ttl     time.Duration
}

func NewGateway(c cache.Cache, signers signer.Store, secret string, ttl time.Duration) *Gateway {
	return &Gateway{cache: c, signers: signers, secret: secret, ttl: ttl}
}

func sessionKey(signerID, deviceID string) string {
	return fmt.Sprintf("session:%s:%s", signerID, deviceID)
}

func deviceInfoKey(signerID, deviceID string) string {
	return fmt.Sprintf("device-info:%s:%s", signerID, deviceID)
}

// Mint issues a token for the signer and stores it under the
// (signer, device) pair with the configured TTL.
func (g *Gateway) Mint(ctx context.Context, signerID, deviceID string) (string, error) {
	token, err := signToken(g.secret, signerID, time.Now())
	if err != nil {
		return "", err
	}

	if err := g.cache.Set(ctx, sessionKey(signerID, deviceID), token, g.ttl); err != nil {
		return "", fmt.Errorf("session: store: %w", err)
	}
	return token, nil
}

// RecordDevice stores device metadata alongside the session. Its TTL
// is refreshed together with the session itself.
func (g *Gateway) RecordDevice(ctx context.Context, signerID, deviceID, info string) error {
	return g.cache.Set(ctx, deviceInfoKey(signerID, deviceID), info, g.ttl)
}

// Validate resolves the signer behind a presented token. On success
// the session TTL is extended when less than half the configured
// lifetime remains, giving sliding-window expiry.
func (g *Gateway) Validate(ctx context.Context, token, deviceID string) (*signer.Signer, error) {
	if token == "" || deviceID == "" {
		return nil, ErrUnauthenticated
	}

	signerID, err := parseToken(g.secret, token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	key := sessionKey(signerID, deviceID)
	stored, err := g.cache.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("session: read: %w", err)
	}
	if stored != token {
		return nil, ErrSessionExpired
	}

	g.refresh(ctx, signerID, deviceID, key)

	sg, err := g.signers.ByID(ctx, signerID)
	if err != nil {
		if errors.Is(err, signer.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("session: resolve signer: %w", err)
	}

	return sg, nil
}

// Revoke deletes the session record; later validations of the old
// token fail with ErrSessionExpired. Idempotent.
func (g *Gateway) Revoke(ctx context.Context, signerID, deviceID string) error {
	return g.cache.Del(ctx,
		sessionKey(signerID, deviceID),
		deviceInfoKey(signerID, deviceID),
	)
}

// RevokeToken revokes the session a raw token belongs to, for logout
// paths that only carry the cookie values.
func (g *Gateway) RevokeToken(ctx context.Context, token, deviceID string) error {
	signerID, err := parseToken(g.secret, token)
	if err != nil {
		return nil // nothing to revoke
	}
	return g.Revoke(ctx, signerID, deviceID)
}

func (g *Gateway) refresh(ctx context.Context, signerID, deviceID, key string) {
	remaining, err := g.cache.TTL(ctx, key)
	if err != nil || remaining > g.ttl/2 {
		return
	}

	// Best-effort: a failed refresh just means the session expires on
	// its current clock.
	_ = g.cache.Expire(ctx, key, g.ttl)
	_ = g.cache.Expire(ctx, deviceInfoKey(signerID, deviceID), g.ttl)
}
