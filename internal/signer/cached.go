package signer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"vote-service/internal/cache"
)

// CachedStore wraps a Store with a short-TTL profile cache to bound
// read amplification on the hot validation path. Callers tolerate a
// staleness window up to the cache TTL for profile fields; session
// validity itself is never cached here.
type CachedStore struct {
	inner Store
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedStore(inner Store, c cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, cache: c, ttl: ttl}
}

func profileKey(id string) string {
	return "signer:profile:" + id
}

func (s *CachedStore) ByID(ctx context.Context, id string) (*Signer, error) {
	if val, err := s.cache.Get(ctx, profileKey(id)); err == nil {
		var sg Signer
		if err := json.Unmarshal([]byte(val), &sg); err == nil {
			return &sg, nil
		}
		// Unparseable cache entry: fall through to the store.
		_ = s.cache.Del(ctx, profileKey(id))
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}

	sg, err := s.inner.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sg); err == nil {
		_ = s.cache.Set(ctx, profileKey(sg.ID), string(data), s.ttl)
	}

	return sg, nil
}

// ByEmail is only used on the login path, which is cold; it always
// hits the relational store.
func (s *CachedStore) ByEmail(ctx context.Context, email string) (*Signer, error) {
	return s.inner.ByEmail(ctx, email)
}
