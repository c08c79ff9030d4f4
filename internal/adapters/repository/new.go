package repository

import (
	"context"
	"fmt"
	"io"

	"github.com/okian/salesbonus/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the Store selected by cfg. The returned Closer releases backend connections.
func New(ctx context.Context, cfg *config.Config) (Store, io.Closer, error) {
	switch cfg.SnapshotBackend {
	case config.BackendFile:
		return NewFileStore(cfg.SnapshotPath), nopCloser{}, nil
	case config.BackendRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client, cfg.RedisKey), client, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.SnapshotBackend)
	}
}
