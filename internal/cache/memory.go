package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process Cache with per-key TTL. It exists for tests
// and single-node development; production always runs on Redis.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	// go-redis fails fast on a dead context; mirror that so callers
	// cannot lean on behavior Redis will not give them.
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(key)
	if !ok {
		return "", ErrMiss
	}
	return e.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value, ttl)
	return nil
}

func (m *Memory) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.liveLocked(key); ok {
		return false, nil
	}
	m.setLocked(key, value, ttl)
	return true, nil
}

func (m *Memory) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incrLocked(key), nil
}

func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.liveLocked(key)
	if !ok {
		return 0, ErrMiss
	}
	if e.expiresAt.IsZero() {
		return 0, nil
	}
	return time.Until(e.expiresAt), nil
}

func (m *Memory) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireLocked(key, ttl)
	return nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Pipelined applies all recorded mutations under one lock acquisition.
func (m *Memory) Pipelined(ctx context.Context, fn func(p Pipeline)) error {
	var p memoryPipeline
	fn(&p)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range p.ops {
		op(m)
	}
	return nil
}

type memoryPipeline struct {
	ops []func(m *Memory)
}

func (p *memoryPipeline) Set(key, value string, ttl time.Duration) {
	p.ops = append(p.ops, func(m *Memory) { m.setLocked(key, value, ttl) })
}

func (p *memoryPipeline) Incr(key string) {
	p.ops = append(p.ops, func(m *Memory) { m.incrLocked(key) })
}

func (p *memoryPipeline) Expire(key string, ttl time.Duration) {
	p.ops = append(p.ops, func(m *Memory) { m.expireLocked(key, ttl) })
}

func (p *memoryPipeline) Del(keys ...string) {
	p.ops = append(p.ops, func(m *Memory) {
		for _, k := range keys {
			delete(m.entries, k)
		}
	})
}

// liveLocked returns the entry for key, evicting it if expired.
func (m *Memory) liveLocked(key string) (memoryEntry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *Memory) setLocked(key, value string, ttl time.Duration) {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = e
}

func (m *Memory) incrLocked(key string) int64 {
	e, ok := m.liveLocked(key)
	var n int64
	if ok {
		n, _ = strconv.ParseInt(e.value, 10, 64)
	}
	n++
	e.value = strconv.FormatInt(n, 10)
	m.entries[key] = e
	return n
}

func (m *Memory) expireLocked(key string, ttl time.Duration) {
	e, ok := m.liveLocked(key)
	if !ok {
		return
	}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	m.entries[key] = e
}
