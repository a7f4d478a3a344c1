package app

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"

	"vote-service/internal/config"
	"vote-service/internal/db"
	"vote-service/internal/ledger"
	"vote-service/internal/logger"
	"vote-service/internal/redis"
)

type Infra struct {
	DB     *sql.DB
	Redis  *redis.Client
	Ledger *ledger.EVM
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	sqlDB, err := sql.Open("postgres", cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := db.RunSignerMigration(ctx, sqlDB); err != nil {
		return nil, err
	}

	logger.Info("database ready", nil)

	redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, err
	}

	logger.Info("redis ready", nil)

	ledgerClient, err := ledger.DialEVM(ctx, cfg.RPCURL, cfg.ContractAddress, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	logger.Info("ledger rpc ready", map[string]any{
		"chain_id": cfg.ChainID,
	})

	return &Infra{
		DB:     sqlDB,
		Redis:  redisClient,
		Ledger: ledgerClient,
	}, nil
}
