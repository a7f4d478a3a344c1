package ledger

import (
	"context"
	"crypto/ecdsa"
)

// Receipt references a confirmed ledger write.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
}

// Client is the append-only external system of record. Submissions are
// irrevocable once broadcast; a gap in confirmed nonces is possible
// when a transaction is abandoned and must be tolerated.
type Client interface {
	// PendingNonce reports the next sequence number the ledger expects
	// for the wallet, counting transactions still in the mempool.
	PendingNonce(ctx context.Context, wallet string) (uint64, error)

	// HasVoted reports whether a subject has already been recorded.
	HasVoted(ctx context.Context, subject string) (bool, error)

	// SubmitVote signs and broadcasts a castVote write with the given
	// nonce and blocks until a receipt confirms inclusion. The key must
	// never be re-signed with a reused nonce after a successful
	// broadcast.
	SubmitVote(ctx context.Context, key *ecdsa.PrivateKey, nonce uint64, subject, candidate string) (*Receipt, error)
}
