package session

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

// Store is a SessionStore that owns resources
type Store interface {
	domain.SessionStore
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Backend
func Open(cfg domain.SessionConfig, logger *logrus.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath, logger)
	case "redis":
		return NewRedisStore(cfg.RedisURL, cfg.RedisKey, cfg.TTL, logger)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
