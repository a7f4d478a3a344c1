package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	authhandler "vote-service/internal/auth/handler"
	"vote-service/internal/cache"
	"vote-service/internal/config"
	"vote-service/internal/mailer"
	"vote-service/internal/middleware"
	"vote-service/internal/nonce"
	"vote-service/internal/otp"
	"vote-service/internal/session"
	"vote-service/internal/signer"
	"vote-service/internal/status"
	"vote-service/internal/submit"
	"vote-service/internal/vault"
	"vote-service/internal/vote"
)

const signerProfileTTL = 60 * time.Second
const voteStatusTTL = 5 * time.Minute

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	kv := cache.NewRedis(infra.Redis.Client)

	keyVault, err := vault.New(cfg.MasterKey)
	if err != nil {
		return nil, nil, err
	}

	signerStore := signer.NewCachedStore(
		signer.NewPostgresStore(infra.DB),
		kv,
		signerProfileTTL,
	)

	gateway := session.NewGateway(kv, signerStore, cfg.JWTSecret, cfg.SessionTTL)

	otpService := otp.New(kv, otp.Config{
		MaxAttempts:   cfg.OTPMaxAttempts,
		CodeTTL:       cfg.OTPTTL,
		AttemptWindow: cfg.OTPAttemptWindow,
	})

	mail := mailer.NewSMTP(mailer.SMTPConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		User:     cfg.EmailUser,
		Password: cfg.EmailPassword,
	})

	statuses := status.New(kv, voteStatusTTL)
	nonces := nonce.New(kv, infra.Ledger)

	pool := submit.NewPool(
		keyVault,
		nonces,
		infra.Ledger,
		statuses,
		cfg.QueueSize,
		cfg.ConfirmTimeout,
	)
	pool.Start(cfg.WorkerCount)

	authHandler := authhandler.NewHandler(
		otpService,
		mail,
		signerStore,
		gateway,
		kv,
		cfg.SessionTTL,
	)

	voteHandler := vote.NewHandler(infra.Ledger, pool, statuses, cfg.MasterKey)

	authMiddleware := middleware.NewAuthMiddleware(gateway)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	// ----------------------------
	// Public Routes
	// ----------------------------

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())

	voteHandler.RegisterRoutes(api)

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		pool.Shutdown()
		return infra.DB.Close()
	}, nil
}
