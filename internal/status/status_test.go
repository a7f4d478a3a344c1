package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vote-service/internal/cache"
)

func newTestStore() *Store {
	return New(cache.NewMemory(), 5*time.Minute)
}

func TestQueuedThenSuccess(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if err := s.SetQueued(ctx, "S1", "V1"); err != nil {
		t.Fatalf("queued: %v", err)
	}

	rec, err := s.Get(ctx, "S1", "V1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.State != StateQueued {
		t.Fatalf("expected queued, got %s", rec.State)
	}

	if err := s.SetSuccess(ctx, "S1", "V1", "0xdeadbeef", 1234); err != nil {
		t.Fatalf("success: %v", err)
	}

	rec, err = s.Get(ctx, "S1", "V1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.State != StateSuccess || rec.TxHash != "0xdeadbeef" || rec.BlockNumber != 1234 {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestTerminalStateIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_ = s.SetQueued(ctx, "S1", "V1")
	if err := s.SetFailed(ctx, "S1", "V1", "confirmation timeout"); err != nil {
		t.Fatalf("failed: %v", err)
	}

	// A later write must not overwrite the terminal state.
	if err := s.SetSuccess(ctx, "S1", "V1", "0xlate", 99); err != nil {
		t.Fatalf("late success: %v", err)
	}
	if err := s.SetFailed(ctx, "S1", "V1", "other reason"); err != nil {
		t.Fatalf("late failed: %v", err)
	}

	rec, err := s.Get(ctx, "S1", "V1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.State != StateFailed || rec.Reason != "confirmation timeout" {
		t.Fatalf("terminal state mutated: %+v", rec)
	}
}

// Two duplicate jobs for the same (signer, subject) can both reach
// their terminal write. Exactly one wins; the record never flips
// afterwards.
func TestConcurrentTerminalWritesFirstWins(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		s := newTestStore()
		_ = s.SetQueued(ctx, "S1", "V1")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.SetSuccess(ctx, "S1", "V1", "0xaaa", 1)
		}()
		go func() {
			defer wg.Done()
			_ = s.SetFailed(ctx, "S1", "V1", "confirmation timeout")
		}()
		wg.Wait()

		rec, err := s.Get(ctx, "S1", "V1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec.State != StateSuccess && rec.State != StateFailed {
			t.Fatalf("no terminal state recorded: %+v", rec)
		}
		winner := rec.State

		// Neither writer may displace the winner after the fact.
		_ = s.SetSuccess(ctx, "S1", "V1", "0xbbb", 2)
		_ = s.SetFailed(ctx, "S1", "V1", "other reason")

		rec, err = s.Get(ctx, "S1", "V1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec.State != winner {
			t.Fatalf("terminal state flipped from %s to %s", winner, rec.State)
		}
	}
}

func TestGetUnknownKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if _, err := s.Get(ctx, "S1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecordsAreScopedBySigner(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_ = s.SetQueued(ctx, "S1", "V1")

	if _, err := s.Get(ctx, "S2", "V1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("record leaked across signers: %v", err)
	}
}

func TestRecordExpires(t *testing.T) {
	ctx := context.Background()
	s := New(cache.NewMemory(), time.Millisecond)

	_ = s.SetQueued(ctx, "S1", "V1")
	time.Sleep(5 * time.Millisecond)

	if _, err := s.Get(ctx, "S1", "V1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}
