package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/admin"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/clock"
	"github.com/redis/go-redis/v9"
)

// openRedis returns nil when REDIS_ADDR is unset; callers then fall back to in-process state.
func openRedis(ctx context.Context, logger *slog.Logger) (*redis.Client, error) {
	addr := config.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: config.String("REDIS_PASSWORD", ""),
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	logger.Info("redis connected", "addr", addr)
	return rdb, nil
}

func newRateLimiter(ctx context.Context, rdb *redis.Client) (httpx.Limiter, error) {
	perMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if err != nil {
		return nil, err
	}
	if perMinute <= 0 {
		return nil, errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if rdb != nil {
		return httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "apptbook:ratelimit"), nil
	}
	rl := httpx.NewMemoryRateLimiter(perMinute)
	go rl.Run(ctx)
	return rl, nil
}

// loadAuthenticator prefers OPERATORS_FILE and falls back to a single operator from
// ADMIN_USERNAME / ADMIN_PASSWORD_HASH.
func loadAuthenticator(logger *slog.Logger) (admin.Authenticator, error) {
	if path := config.String("OPERATORS_FILE", ""); path != "" {
		authn, err := admin.LoadOperatorsFile(path)
		if err != nil {
			return nil, err
		}
		logger.Info("operators loaded", "file", path)
		return authn, nil
	}
	hash, err := config.RequiredString("ADMIN_PASSWORD_HASH")
	if err != nil {
		return nil, fmt.Errorf("%w (generate one with: apptctl hash-password)", err)
	}
	return admin.NewStaticAuthenticator(admin.Credential{
		Username:     config.String("ADMIN_USERNAME", "admin"),
		Name:         config.String("ADMIN_NAME", ""),
		PasswordHash: hash,
	})
}

func newSessionManager(clk clock.Clock, rdb *redis.Client, logger *slog.Logger) (*admin.SessionManager, error) {
	ttl, err := config.Duration("SESSION_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	secret := config.String("SESSION_SECRET", "")
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(buf)
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions end on restart")
	}

	var revoked admin.Revocations
	if rdb != nil {
		revoked = admin.NewRedisRevocations(rdb, "apptbook:revoked")
	} else {
		revoked = admin.NewMemoryRevocations()
	}
	return admin.NewSessionManager(secret, ttl, clk, revoked)
}
