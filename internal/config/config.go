package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string

	JWTSecret  string
	SessionTTL time.Duration

	MasterKey string

	RPCURL          string
	ChainID         int64
	ContractAddress string
	ConfirmTimeout  time.Duration

	WorkerCount int
	QueueSize   int

	OTPMaxAttempts   int
	OTPTTL           time.Duration
	OTPAttemptWindow time.Duration

	EmailHost     string
	EmailPort     string
	EmailUser     string
	EmailPassword string
}

func Load() Config {

	// Best-effort .env for local development.
	_ = godotenv.Load()

	cfg := Config{

		AppPort: getenv("APP_PORT", "8080"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		SessionTTL: seconds("SESSION_TTL", 3600),

		MasterKey: os.Getenv("MASTER_KEY"),

		RPCURL:          os.Getenv("RPC_URL"),
		ChainID:         int64(intenv("CHAIN_ID", 43113)),
		ContractAddress: os.Getenv("CONTRACT_ADDRESS"),
		ConfirmTimeout:  seconds("CONFIRM_TIMEOUT", 120),

		WorkerCount: intenv("WORKER_COUNT", 4),
		QueueSize:   intenv("QUEUE_SIZE", 64),

		OTPMaxAttempts:   intenv("OTP_MAX_ATTEMPTS", 5),
		OTPTTL:           seconds("OTP_TTL", 300),
		OTPAttemptWindow: seconds("OTP_ATTEMPT_WINDOW", 900),

		EmailHost:     os.Getenv("EMAIL_HOST"),
		EmailPort:     getenv("EMAIL_PORT", "587"),
		EmailUser:     os.Getenv("EMAIL_HOST_USER"),
		EmailPassword: os.Getenv("EMAIL_HOST_PASSWORD"),
	}

	return cfg

}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intenv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func seconds(key string, fallback int) time.Duration {
	return time.Duration(intenv(key, fallback)) * time.Second
}
