package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/answer-grader/internal/cache"
)

// Store is the subset of cache.Store used for vectors.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Cached memoizes another embedder in a Store. Cache failures are logged and
// never fail an embedding.
type Cached struct {
	next   Embedder
	store  Store
	logger *zap.Logger
}

// NewCached wraps next with store.
func NewCached(next Embedder, store Store, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, store: store, logger: logger}
}

// Name reports the wrapped embedder name.
func (c *Cached) Name() string { return c.next.Name() }

// Embed returns the cached vector of text or computes and stores it.
func (c *Cached) Embed(ctx context.Context, text string) ([]float64, error) {
	key := cache.Key(c.next.Name(), text)

	var vec []float64
	found, err := c.store.Get(ctx, key, &vec)
	if err != nil {
		c.logger.Warn("embedding cache lookup failed", zap.Error(err))
	}
	if found && len(vec) > 0 {
		c.logger.Debug("embedding cache hit", zap.String("key", key))
		return vec, nil
	}

	vec, err = c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, vec); err != nil {
		c.logger.Warn("embedding cache store failed", zap.Error(err))
	}

	return vec, nil
}
