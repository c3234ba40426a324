package memory

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"abbrev-quiz-service/internal/domain"
	"abbrev-quiz-service/internal/game"
	"golang.org/x/sync/singleflight"
)

//go:embed abbreviations_with_categories.json
var embeddedItems []byte

// PoolLoader fetches quiz items from a backing store (embedded file, Postgres, ...).
type PoolLoader interface {
	LoadItems(ctx context.Context) ([]domain.QuizItem, error)
}

// PoolRepository caches the question pool with TTL to avoid repeated loads.
type PoolRepository struct {
	loader PoolLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	pool      *game.Pool
	expiresAt time.Time
}

func NewPoolRepository(loader PoolLoader, ttl time.Duration) *PoolRepository {
	return &PoolRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *PoolRepository) GetPool(ctx context.Context) (*game.Pool, error) {
	if pool, ok := r.cached(r.clock()); ok {
		return pool, nil
	}

	result, err, _ := r.sf.Do("pool", func() (interface{}, error) {
		now := r.clock()
		if pool, ok := r.cached(now); ok {
			return pool, nil
		}

		items, err := r.loader.LoadItems(ctx)
		if err != nil {
			return nil, err
		}
		pool := game.NewPool(items)

		r.mu.Lock()
		r.pool = pool
		r.expiresAt = now.Add(r.ttlWithJitter())
		r.mu.Unlock()
		return pool, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*game.Pool), nil
}

// cached returns the pool if loaded and, when a TTL is set, not yet expired.
func (r *PoolRepository) cached(now time.Time) (*game.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pool == nil {
		return nil, false
	}
	if r.ttl > 0 && !r.expiresAt.After(now) {
		return nil, false
	}
	return r.pool, true
}

func (r *PoolRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticPoolLoader is a loader backed by a fixed slice (useful for tests/demos).
type StaticPoolLoader struct {
	items []domain.QuizItem
}

func NewStaticPoolLoader(items []domain.QuizItem) *StaticPoolLoader {
	return &StaticPoolLoader{items: items}
}

func (l *StaticPoolLoader) LoadItems(_ context.Context) ([]domain.QuizItem, error) {
	return l.items, nil
}

// EmbeddedPoolLoader serves the dataset compiled into the binary.
type EmbeddedPoolLoader struct{}

func NewEmbeddedPoolLoader() EmbeddedPoolLoader {
	return EmbeddedPoolLoader{}
}

func (EmbeddedPoolLoader) LoadItems(_ context.Context) ([]domain.QuizItem, error) {
	return DecodeItems(embeddedItems)
}

// DecodeItems parses the JSON dataset format shared by the embedded file and imports.
func DecodeItems(raw []byte) ([]domain.QuizItem, error) {
	var items []domain.QuizItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode quiz items: %w", err)
	}
	return items, nil
}
