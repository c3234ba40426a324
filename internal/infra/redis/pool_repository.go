package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"abbrev-quiz-service/internal/domain"
	"abbrev-quiz-service/internal/game"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// PoolLoader fetches quiz items from a backing store (e.g., Postgres).
type PoolLoader interface {
	LoadItems(ctx context.Context) ([]domain.QuizItem, error)
}

// PoolRepository caches the question pool in Redis and falls back to a loader on cache miss.
// The pool is stored as a JSON array under quiz:pool so every instance serves the same items.
type PoolRepository struct {
	client *redis.Client
	loader PoolLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewPoolRepository(client *redis.Client, loader PoolLoader, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PoolRepository) GetPool(ctx context.Context) (*game.Pool, error) {
	if pool, ok := r.fromCache(ctx); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do(poolKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if pool, ok := r.fromCache(ctx); ok {
			return pool, nil
		}

		items, err := r.loader.LoadItems(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(items); err == nil {
			// best-effort; a failed write just means the next call reloads
			_ = r.client.Set(ctx, poolKey, raw, r.ttlWithJitter()).Err()
		}
		return game.NewPool(items), nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*game.Pool), nil
}

func (r *PoolRepository) fromCache(ctx context.Context) (*game.Pool, bool) {
	raw, err := r.client.Get(ctx, poolKey).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	var items []domain.QuizItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return game.NewPool(items), true
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

const poolKey = "quiz:pool"
