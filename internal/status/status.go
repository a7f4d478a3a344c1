package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vote-service/internal/cache"
)

// ErrNotFound is returned by Get for unknown or expired records.
// Callers render it as "status unknown", not as a failure.
var ErrNotFound = errors.New("status: not found")

type State string

const (
	StateQueued  State = "queued"
	StateSuccess State = "success"
	StateFailed  State = "failed"
)

// Record is the eventually-consistent submission status a client polls
// for. Queued is always the first recorded state; success and failed
// are terminal.
type Record struct {
	State       State  `json:"status"`
	TxHash      string `json:"tx_hash,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Store keeps TTL-bounded records keyed by (signer, subject). Two jobs
// for the same pair can race through the pre-check, so the terminal
// write is guarded by an atomic marker: the first terminal writer
// wins, later ones are silently dropped.
type Store struct {
	cache cache.Cache
	ttl   time.Duration
}

func New(c cache.Cache, ttl time.Duration) *Store {
	return &Store{cache: c, ttl: ttl}
}

func statusKey(signerID, subject string) string {
	return fmt.Sprintf("vote_status:%s:%s", signerID, subject)
}

func finalKey(signerID, subject string) string {
	return statusKey(signerID, subject) + ":final"
}

// SetQueued records the initial state for a freshly accepted
// submission.
func (s *Store) SetQueued(ctx context.Context, signerID, subject string) error {
	return s.write(ctx, signerID, subject, Record{State: StateQueued})
}

// SetSuccess records the terminal success state with its receipt
// reference. A record already terminal is left untouched.
func (s *Store) SetSuccess(ctx context.Context, signerID, subject, txHash string, block uint64) error {
	return s.setTerminal(ctx, signerID, subject, Record{
		State:       StateSuccess,
		TxHash:      txHash,
		BlockNumber: block,
	})
}

// SetFailed records the terminal failed state with a human-readable
// reason. A record already terminal is left untouched.
func (s *Store) SetFailed(ctx context.Context, signerID, subject, reason string) error {
	return s.setTerminal(ctx, signerID, subject, Record{
		State:  StateFailed,
		Reason: reason,
	})
}

// Get returns the current record or ErrNotFound.
func (s *Store) Get(ctx context.Context, signerID, subject string) (*Record, error) {
	val, err := s.cache.Get(ctx, statusKey(signerID, subject))
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("status: read: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("status: decode: %w", err)
	}
	return &rec, nil
}

func (s *Store) setTerminal(ctx context.Context, signerID, subject string, rec Record) error {
	won, err := s.cache.SetNX(ctx, finalKey(signerID, subject), "1", s.ttl)
	if err != nil {
		return fmt.Errorf("status: terminal marker: %w", err)
	}
	if !won {
		return nil // another writer already recorded a terminal state
	}
	return s.write(ctx, signerID, subject, rec)
}

func (s *Store) write(ctx context.Context, signerID, subject string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("status: encode: %w", err)
	}
	if err := s.cache.Set(ctx, statusKey(signerID, subject), string(data), s.ttl); err != nil {
		return fmt.Errorf("status: write: %w", err)
	}
	return nil
}
