package nonce

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"vote-service/internal/cache"
)

// ErrLedgerUnavailable is returned when the seed read against the
// ledger fails. No counter is created, so a later retry re-seeds from
// the ledger's then-current state.
var ErrLedgerUnavailable = errors.New("nonce: ledger unavailable")

// PendingReader is the single ledger capability the allocator needs.
type PendingReader interface {
	PendingNonce(ctx context.Context, wallet string) (uint64, error)
}

// Allocator hands out strictly increasing, collision-free sequence
// numbers per wallet. The counter lives in the shared cache and is
// only ever mutated through atomic increment, so the guarantee holds
// across every concurrent process, not just this one.
type Allocator struct {
	cache  cache.Cache
	ledger PendingReader
}

func New(c cache.Cache, ledger PendingReader) *Allocator {
	return &Allocator{cache: c, ledger: ledger}
}

func counterKey(wallet string) string {
	return "nonce:" + wallet
}

// Next returns the next nonce for the wallet. On first use the counter
// is seeded from the ledger's pending transaction count; that is the
// only time the ledger is consulted for nonce state. The seed uses
// SetNX so two first-callers cannot both install a counter, and the
// returned value is the pre-increment one, so the first call after
// seeding yields exactly the seed.
func (a *Allocator) Next(ctx context.Context, wallet string) (uint64, error) {
	key := counterKey(wallet)

	if _, err := a.cache.Get(ctx, key); errors.Is(err, cache.ErrMiss) {
		pending, err := a.ledger.PendingNonce(ctx, wallet)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}

		// Losing the SetNX race is fine: someone else seeded first and
		// the increment below still hands out a unique value.
		if _, err := a.cache.SetNX(ctx, key, strconv.FormatUint(pending, 10), 0); err != nil {
			return 0, fmt.Errorf("nonce: seed counter: %w", err)
		}
	} else if err != nil {
		return 0, fmt.Errorf("nonce: read counter: %w", err)
	}

	next, err := a.cache.Incr(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("nonce: increment: %w", err)
	}

	return uint64(next - 1), nil
}
