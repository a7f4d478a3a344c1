package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"vote-service/internal/cache"
)

// ErrRateLimited is returned by Issue once the attempts counter for a
// (purpose, identity) pair has reached the configured maximum. No new
// code is issued until the attempts window lapses.
var ErrRateLimited = errors.New("otp: maximum requests exceeded")

type Config struct {
	MaxAttempts   int           // issued codes allowed per window
	CodeTTL       time.Duration // how long a code stays verifiable
	AttemptWindow time.Duration // how long the attempts counter lives
}

// Service issues and verifies single-use codes scoped by
// (purpose, identity). The attempts counter expires on its own, longer
// window, so "how many codes were issued recently" is decoupled from
// "is this code still valid".
type Service struct {
	cache cache.Cache
	cfg   Config
}

func New(c cache.Cache, cfg Config) *Service {
	return &Service{cache: c, cfg: cfg}
}

func codeKey(purpose, identity string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, identity)
}

func attemptsKey(purpose, identity string) string {
	return fmt.Sprintf("otp_attempts:%s:%s", purpose, identity)
}

// Issue generates a 6-digit code and stores it with a short TTL,
// incrementing the attempts counter in the same pipeline.
func (s *Service) Issue(ctx context.Context, purpose, identity string) (string, error) {
	val, err := s.cache.Get(ctx, attemptsKey(purpose, identity))
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		return "", fmt.Errorf("otp: read attempts: %w", err)
	}

	attempts := 0
	if val != "" {
		attempts, _ = strconv.Atoi(val)
	}
	if attempts >= s.cfg.MaxAttempts {
		return "", ErrRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return "", err
	}

	err = s.cache.Pipelined(ctx, func(p cache.Pipeline) {
		p.Set(codeKey(purpose, identity), code, s.cfg.CodeTTL)
		p.Incr(attemptsKey(purpose, identity))
		p.Expire(attemptsKey(purpose, identity), s.cfg.AttemptWindow)
	})
	if err != nil {
		return "", fmt.Errorf("otp: store code: %w", err)
	}

	return code, nil
}

// Verify compares candidate against the stored code. On match the code
// and the attempts counter are deleted together, so a used code can
// never verify again and a successful login resets the rate limit.
// Mismatch or absence returns false with no side effects.
func (s *Service) Verify(ctx context.Context, purpose, identity, candidate string) (bool, error) {
	stored, err := s.cache.Get(ctx, codeKey(purpose, identity))
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("otp: read code: %w", err)
	}

	if candidate == "" || stored != candidate {
		return false, nil
	}

	err = s.cache.Pipelined(ctx, func(p cache.Pipeline) {
		p.Del(codeKey(purpose, identity), attemptsKey(purpose, identity))
	})
	if err != nil {
		return false, fmt.Errorf("otp: consume code: %w", err)
	}

	return true, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
