package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"vote-service/internal/cache"
	"vote-service/internal/mailer"
	"vote-service/internal/otp"
	"vote-service/internal/session"
	"vote-service/internal/signer"
)

const (
	otpPurposeLogin = "login"
	pendingLoginTTL = 300 * time.Second
)

type Handler struct {
	otp        *otp.Service
	mail       mailer.Mailer
	signers    signer.Store
	gateway    *session.Gateway
	cache      cache.Cache
	sessionTTL time.Duration
}

func NewHandler(
	otpSvc *otp.Service,
	mail mailer.Mailer,
	signers signer.Store,
	gateway *session.Gateway,
	c cache.Cache,
	sessionTTL time.Duration,
) *Handler {
	return &Handler{
		otp:        otpSvc,
		mail:       mail,
		signers:    signers,
		gateway:    gateway,
		cache:      c,
		sessionTTL: sessionTTL,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/admin/login", h.Login)
	r.POST("/admin/verify-login-otp", h.VerifyLoginOTP)
	r.POST("/admin/logout", h.Logout)
}

func pendingLoginKey(email string) string {
	return "temp:login:" + email
}
