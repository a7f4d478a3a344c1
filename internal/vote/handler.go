package vote

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"vote-service/internal/ledger"
	"vote-service/internal/logger"
	"vote-service/internal/middleware"
	"vote-service/internal/status"
	"vote-service/internal/submit"
)

type Handler struct {
	ledger   ledger.Client
	pool     *submit.Pool
	statuses *status.Store
	secret   string
}

func NewHandler(lc ledger.Client, pool *submit.Pool, statuses *status.Store, secret string) *Handler {
	return &Handler{ledger: lc, pool: pool, statuses: statuses, secret: secret}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/cast-vote", h.CastVote)
	r.GET("/vote-status/:voter_id", h.VoteStatus)
}

type castVoteRequest struct {
	VoterID   string `json:"voter_id" binding:"required"`
	Candidate string `json:"candidate" binding:"required"`
}

// CastVote validates the request, runs the best-effort duplicate
// pre-check against the ledger, records queued, and hands the write to
// the background pool. Two near-simultaneous casts for one subject can
// both pass the pre-check; the ledger then accepts one and the other
// ends failed. That race is accepted, not hidden.
func (h *Handler) CastVote(c *gin.Context) {
	sg, ok := middleware.SignerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please re-authenticate"})
		return
	}

	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "voter_id and candidate are required"})
		return
	}

	subject := BlindSubject(h.secret, sg.ID, req.VoterID)

	voted, err := h.ledger.HasVoted(c.Request.Context(), subject)
	if err != nil {
		logger.Error("duplicate pre-check failed", map[string]any{
			"signer": sg.ID,
			"error":  err.Error(),
		})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "rejected",
			"message": "ledger unavailable, try again later",
		})
		return
	}
	if voted {
		c.JSON(http.StatusConflict, gin.H{
			"status":  "already_submitted",
			"message": "voter has already cast a vote",
		})
		return
	}

	if err := h.statuses.SetQueued(c.Request.Context(), sg.ID, subject); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "rejected",
			"message": "could not record submission",
		})
		return
	}

	err = h.pool.Enqueue(submit.Job{
		SignerID:     sg.ID,
		Wallet:       sg.WalletAddress,
		EncryptedKey: sg.EncryptedKey,
		Subject:      subject,
		Candidate:    req.Candidate,
	})
	if errors.Is(err, submit.ErrQueueFull) {
		// The queued record expires via TTL; nothing was signed.
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "rejected",
			"message": "submission queue full, try again later",
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "queued",
		"message": "vote is being processed in the background",
	})
}

// VoteStatus reports the eventually-consistent submission state. An
// unknown or expired record is "not_found", not an error.
func (h *Handler) VoteStatus(c *gin.Context) {
	sg, ok := middleware.SignerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please re-authenticate"})
		return
	}

	voterID := c.Param("voter_id")
	if voterID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "voter_id is required"})
		return
	}

	subject := BlindSubject(h.secret, sg.ID, voterID)

	rec, err := h.statuses.Get(c.Request.Context(), sg.ID, subject)
	if errors.Is(err, status.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "not_found",
			"message": "no vote found for this voter",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "status unavailable"})
		return
	}

	c.JSON(http.StatusOK, rec)
}
