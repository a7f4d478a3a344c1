package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"vote-service/internal/ledger"
	"vote-service/internal/logger"
	"vote-service/internal/nonce"
	"vote-service/internal/status"
	"vote-service/internal/vault"
)

// ErrQueueFull is returned by Enqueue when the submission queue is at
// capacity. The caller rejects the request synchronously; nothing is
// queued and no nonce is consumed.
var ErrQueueFull = errors.New("submit: queue full")

// Job carries everything a detached submission needs. The encrypted
// key is vault ciphertext; it is decrypted only inside the worker and
// discarded with the job.
type Job struct {
	SignerID     string
	Wallet       string
	EncryptedKey string
	Subject      string
	Candidate    string
}

// Pool runs ledger submissions detached from the request/response
// cycle on a fixed set of workers over a bounded queue. Every job ends
// in exactly one terminal status, regardless of which step failed;
// errors inside a job are never raised back to the original caller.
type Pool struct {
	jobs     chan Job
	vault    *vault.Vault
	nonces   *nonce.Allocator
	ledger   ledger.Client
	statuses *status.Store

	confirmTimeout time.Duration

	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

func NewPool(
	v *vault.Vault,
	nonces *nonce.Allocator,
	lc ledger.Client,
	statuses *status.Store,
	queueSize int,
	confirmTimeout time.Duration,
) *Pool {
	return &Pool{
		jobs:           make(chan Job, queueSize),
		vault:          v,
		nonces:         nonces,
		ledger:         lc,
		statuses:       statuses,
		confirmTimeout: confirmTimeout,
	}
}

// Start launches n workers.
func (p *Pool) Start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.process(job)
			}
		}()
	}
}

// Enqueue hands a job to the pool without blocking.
func (p *Pool) Enqueue(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrQueueFull
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting jobs and waits for in-flight submissions to
// finish. Signed broadcasts are irrevocable, so there is no
// cancellation of work already handed to the ledger.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) process(job Job) {
	// The request that queued this job is long gone; the job owns its
	// own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), p.confirmTimeout)
	defer cancel()

	receipt, err := p.submit(ctx, job)

	// The job context may be at or past its deadline by the time the
	// outcome is known; recording it gets its own.
	recCtx, recCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer recCancel()

	if err != nil {
		reason := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			// The broadcast may still land later; this outcome is
			// ambiguous, not a guaranteed non-write.
			reason = "confirmation timeout"
		}

		logger.Error("vote submission failed", map[string]any{
			"signer":  job.SignerID,
			"subject": job.Subject,
			"reason":  reason,
		})

		if serr := p.statuses.SetFailed(recCtx, job.SignerID, job.Subject, reason); serr != nil {
			logger.Error("failed to record vote failure", map[string]any{
				"signer":  job.SignerID,
				"subject": job.Subject,
				"error":   serr.Error(),
			})
		}
		return
	}

	logger.Info("vote recorded on ledger", map[string]any{
		"signer": job.SignerID,
		"tx":     receipt.TxHash,
		"block":  receipt.BlockNumber,
	})

	if err := p.statuses.SetSuccess(recCtx, job.SignerID, job.Subject, receipt.TxHash, receipt.BlockNumber); err != nil {
		logger.Error("failed to record vote success", map[string]any{
			"signer":  job.SignerID,
			"subject": job.Subject,
			"error":   err.Error(),
		})
	}
}

func (p *Pool) submit(ctx context.Context, job Job) (*ledger.Receipt, error) {
	plainKey, err := p.vault.Decrypt(job.EncryptedKey)
	if err != nil {
		// ErrDecrypt means the stored key is unusable: data corruption
		// or tampering. Operators must act; the worker never retries.
		return nil, fmt.Errorf("signing key unusable: %w", err)
	}

	key, err := ledger.ParseKey(plainKey)
	if err != nil {
		return nil, fmt.Errorf("signing key malformed: %w", err)
	}

	// A key that signs for a different address than the one the nonce
	// counter tracks would produce an unusable transaction; refuse
	// before any nonce is consumed.
	if derived := ledger.WalletAddress(key); !strings.EqualFold(derived, job.Wallet) {
		return nil, fmt.Errorf("signing key does not match wallet %s", job.Wallet)
	}

	seq, err := p.nonces.Next(ctx, job.Wallet)
	if err != nil {
		return nil, err
	}

	receipt, err := p.ledger.SubmitVote(ctx, key, seq, job.Subject, job.Candidate)
	if err != nil {
		return nil, err
	}

	return receipt, nil
}
