package vote

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"vote-service/internal/cache"
	"vote-service/internal/ledger"
	"vote-service/internal/middleware"
	"vote-service/internal/nonce"
	"vote-service/internal/session"
	"vote-service/internal/signer"
	"vote-service/internal/status"
	"vote-service/internal/submit"
	"vote-service/internal/vault"
)

type fakeLedger struct {
	mu       sync.Mutex
	pending  uint64
	recorded map[string]bool
	fail     bool
	nonces   []uint64
}

func (f *fakeLedger) PendingNonce(ctx context.Context, wallet string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, nil
}

func (f *fakeLedger) HasVoted(ctx context.Context, subject string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false, context.DeadlineExceeded
	}
	return f.recorded[subject], nil
}

func (f *fakeLedger) SubmitVote(ctx context.Context, key *ecdsa.PrivateKey, n uint64, subject, candidate string) (*ledger.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded[subject] = true
	f.nonces = append(f.nonces, n)
	return &ledger.Receipt{TxHash: "0xfeed", BlockNumber: 42}, nil
}

type fakeSignerStore struct {
	signers map[string]*signer.Signer
}

func (f *fakeSignerStore) ByID(ctx context.Context, id string) (*signer.Signer, error) {
	if sg, ok := f.signers[id]; ok {
		return sg, nil
	}
	return nil, signer.ErrNotFound
}

func (f *fakeSignerStore) ByEmail(ctx context.Context, email string) (*signer.Signer, error) {
	return nil, signer.ErrNotFound
}

type fixture struct {
	router   *gin.Engine
	ledger   *fakeLedger
	pool     *submit.Pool
	statuses *status.Store
	token    string
}

const testSecret = "process-secret"

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := vault.New("test-master-key")
	if err != nil {
		t.Fatalf("vault: %v", err)
	}

	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyCT, err := v.Encrypt(hex.EncodeToString(ethcrypto.FromECDSA(priv)))
	if err != nil {
		t.Fatalf("encrypt key: %v", err)
	}

	fl := &fakeLedger{recorded: make(map[string]bool)}
	mem := cache.NewMemory()

	store := &fakeSignerStore{signers: map[string]*signer.Signer{
		"admin-1": {
			ID:            "admin-1",
			Email:         "a@x.com",
			WalletAddress: ledger.WalletAddress(priv),
			EncryptedKey:  keyCT,
		},
	}}

	gateway := session.NewGateway(mem, store, "jwt-secret", time.Hour)
	token, err := gateway.Mint(context.Background(), "admin-1", "dev-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	statuses := status.New(mem, 5*time.Minute)
	pool := submit.NewPool(v, nonce.New(mem, fl), fl, statuses, 16, time.Second)
	pool.Start(2)
	t.Cleanup(pool.Shutdown)

	handler := NewHandler(fl, pool, statuses, testSecret)

	router := gin.New()
	api := router.Group("/api")
	api.Use(middleware.NewAuthMiddleware(gateway).RequireAuth())
	handler.RegisterRoutes(api)

	return &fixture{router: router, ledger: fl, pool: pool, statuses: statuses, token: token}
}

func (fx *fixture) castVote(t *testing.T, voterID, candidate string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{
		"voter_id":  voterID,
		"candidate": candidate,
	})
	req := httptest.NewRequest("POST", "/api/cast-vote", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+fx.token)
	req.Header.Set("device-id", "dev-1")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func (fx *fixture) voteStatus(t *testing.T, voterID string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/vote-status/"+voterID, nil)
	req.Header.Set("Authorization", "Bearer "+fx.token)
	req.Header.Set("device-id", "dev-1")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w.Code, out
}

func waitForStatus(t *testing.T, fx *fixture, voterID string, want string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, out := fx.voteStatus(t, voterID)
		if out["status"] == want {
			return out
		}
		time.Sleep(10 * time.Millisecond)
	}
	_, out := fx.voteStatus(t, voterID)
	t.Fatalf("status never reached %q, last: %v", want, out)
	return nil
}

func TestCastVoteQueuedThenSuccess(t *testing.T) {
	fx := newFixture(t)

	w := fx.castVote(t, "VOTER-1", "candidate-a")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	out := waitForStatus(t, fx, "VOTER-1", "success")
	if out["tx_hash"] != "0xfeed" {
		t.Fatalf("missing receipt reference: %v", out)
	}

	// The ledger saw the blinded subject, never the raw voter id.
	fx.ledger.mu.Lock()
	defer fx.ledger.mu.Unlock()
	if fx.ledger.recorded["VOTER-1"] {
		t.Fatalf("raw voter id reached the ledger")
	}
	if !fx.ledger.recorded[BlindSubject(testSecret, "admin-1", "VOTER-1")] {
		t.Fatalf("blinded subject not recorded")
	}
}

func TestCastVoteAlreadySubmitted(t *testing.T) {
	fx := newFixture(t)

	fx.castVote(t, "VOTER-1", "candidate-a")
	waitForStatus(t, fx, "VOTER-1", "success")

	w := fx.castVote(t, "VOTER-1", "candidate-b")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["status"] != "already_submitted" {
		t.Fatalf("expected already_submitted, got %v", out)
	}
}

func TestCastVoteValidation(t *testing.T) {
	fx := newFixture(t)

	for _, body := range []string{`{}`, `{"voter_id":"v"}`, `{"candidate":"c"}`} {
		req := httptest.NewRequest("POST", "/api/cast-vote", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+fx.token)
		req.Header.Set("device-id", "dev-1")
		w := httptest.NewRecorder()
		fx.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, w.Code)
		}
	}
}

func TestCastVoteRequiresAuth(t *testing.T) {
	fx := newFixture(t)

	body, _ := json.Marshal(map[string]string{"voter_id": "v", "candidate": "c"})
	req := httptest.NewRequest("POST", "/api/cast-vote", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCastVoteLedgerUnavailable(t *testing.T) {
	fx := newFixture(t)

	fx.ledger.mu.Lock()
	fx.ledger.fail = true
	fx.ledger.mu.Unlock()

	w := fx.castVote(t, "VOTER-1", "candidate-a")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestVoteStatusNotFound(t *testing.T) {
	fx := newFixture(t)

	code, out := fx.voteStatus(t, "UNKNOWN")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if out["status"] != "not_found" {
		t.Fatalf("expected not_found, got %v", out)
	}
}

// Two near-simultaneous casts for the same voter may both pass the
// pre-check; that race is accepted. What must hold: every accepted cast
// reaches a terminal state and distinct voters get distinct nonces.
func TestConcurrentCastsDistinctVoters(t *testing.T) {
	fx := newFixture(t)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := fx.castVote(t, "VOTER-"+string(rune('A'+i)), "candidate-a")
			if w.Code != http.StatusAccepted {
				t.Errorf("voter %d: expected 202, got %d", i, w.Code)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		waitForStatus(t, fx, "VOTER-"+string(rune('A'+i)), "success")
	}

	fx.ledger.mu.Lock()
	defer fx.ledger.mu.Unlock()
	seen := make(map[uint64]bool)
	for _, nn := range fx.ledger.nonces {
		if seen[nn] {
			t.Fatalf("nonce %d reused across submissions", nn)
		}
		seen[nn] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d distinct nonces, got %d", n, len(seen))
	}
}
