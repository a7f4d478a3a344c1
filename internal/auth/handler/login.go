package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vote-service/internal/cache"
	"vote-service/internal/logger"
	"vote-service/internal/otp"
	"vote-service/internal/session"
	"vote-service/internal/signer"
)

type loginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Login looks up the signer, issues an OTP, and emails it. A pending
// login handle keyed by email carries the signer id to the verify
// step, so the verifier never trusts the client for it.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid email is required"})
		return
	}

	sg, err := h.signers.ByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, signer.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "admin not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}

	code, err := h.otp.Issue(c.Request.Context(), otpPurposeLogin, sg.Email)
	if err != nil {
		if errors.Is(err, otp.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "maximum OTP requests exceeded, try again later",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue OTP"})
		return
	}

	if err := h.cache.Set(c.Request.Context(), pendingLoginKey(sg.Email), sg.ID, pendingLoginTTL); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start login"})
		return
	}

	// Delivery runs detached; a slow relay must not block the response.
	go func(email, code string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.mail.SendOTP(ctx, email, code); err != nil {
			logger.Error("otp delivery failed", map[string]any{
				"email": email,
				"error": err.Error(),
			})
		}
	}(sg.Email, code)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "OTP sent to admin's email",
	})
}

type verifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyLoginOTP turns a verified code into a session for the calling
// device. The OTP and the pending handle were stored under the
// signer's canonical email, so the client-supplied spelling is
// resolved through the store first rather than used as a key.
func (h *Handler) VerifyLoginOTP(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and otp are required"})
		return
	}

	sg, err := h.signers.ByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, signer.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired OTP"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}

	ok, err := h.otp.Verify(c.Request.Context(), otpPurposeLogin, sg.Email, req.OTP)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired OTP"})
		return
	}

	signerID, err := h.cache.Get(c.Request.Context(), pendingLoginKey(sg.Email))
	if errors.Is(err, cache.ErrMiss) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login expired, request a new OTP"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "verification failed"})
		return
	}
	_ = h.cache.Del(c.Request.Context(), pendingLoginKey(sg.Email))

	deviceID := c.GetHeader("device-id")
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	token, err := h.gateway.Mint(c.Request.Context(), signerID, deviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	if ua := c.Request.UserAgent(); ua != "" {
		_ = h.gateway.RecordDevice(c.Request.Context(), signerID, deviceID, ua)
	}

	session.SetCookies(c.Writer, token, deviceID, h.sessionTTL)

	logger.Info("admin logged in", map[string]any{
		"signer": signerID,
		"device": deviceID,
		"ip":     c.ClientIP(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "admin logged in successfully",
		"token":     token,
		"device_id": deviceID,
	})
}

// Logout deletes the session record and clears cookies. Idempotent.
func (h *Handler) Logout(c *gin.Context) {
	token := ""
	if cookie, err := c.Request.Cookie(session.TokenCookieName); err == nil {
		token = cookie.Value
	}
	deviceID := c.GetHeader("device-id")
	if deviceID == "" {
		if cookie, err := c.Request.Cookie(session.DeviceCookieName); err == nil {
			deviceID = cookie.Value
		}
	}

	if token != "" && deviceID != "" {
		_ = h.gateway.RevokeToken(c.Request.Context(), token, deviceID)
	}

	session.ClearCookies(c.Writer)
	c.Status(http.StatusNoContent)
}
