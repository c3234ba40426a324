package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"abbrev-quiz-service/internal/domain"
	"abbrev-quiz-service/internal/game"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// SettingsKey holds the JSON settings blob of a player.
	SettingsKey = "userSettings"
	// HighScoreKeyPrefix is joined with a category to key its high score.
	HighScoreKeyPrefix = "highscore_"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Add(session *game.Session)
	Get(sessionID string) (*game.Session, bool)
	Delete(sessionID string)
	IdleSince(cutoff time.Time) []string
}

// PoolRepository returns the question pool (from cache/backing store).
type PoolRepository interface {
	GetPool(ctx context.Context) (*game.Pool, error)
}

// KeyValueStore persists small per-player values such as settings and high scores.
type KeyValueStore interface {
	Get(ctx context.Context, playerID, key string) (string, bool, error)
	Set(ctx context.Context, playerID, key, value string) error
}

// StartRequest describes a new play session.
type StartRequest struct {
	PlayerID  string
	Category  string
	Feedback  game.Feedback
	OnResults game.ResultsHandler
}

// GameService contains the game use cases.
type GameService struct {
	sessions SessionRepository
	pools    PoolRepository
	kv       KeyValueStore
	rules    game.Rules
	selector *game.Selector
	now      func() time.Time
	after    game.AfterFunc
	newID    func() string
}

// Option customizes a GameService.
type Option func(*GameService)

// WithRules overrides the default difficulty rules.
func WithRules(rules game.Rules) Option {
	return func(s *GameService) { s.rules = rules }
}

// WithSelector injects a question selector, typically seeded for tests.
func WithSelector(sel *game.Selector) Option {
	return func(s *GameService) { s.selector = sel }
}

// WithClock injects time sources for deterministic tests.
func WithClock(now func() time.Time, after game.AfterFunc) Option {
	return func(s *GameService) {
		s.now = now
		s.after = after
	}
}

// WithIDGenerator replaces uuid-based session IDs.
func WithIDGenerator(newID func() string) Option {
	return func(s *GameService) { s.newID = newID }
}

func NewGameService(sessions SessionRepository, pools PoolRepository, kv KeyValueStore, opts ...Option) *GameService {
	s := &GameService{
		sessions: sessions,
		pools:    pools,
		kv:       kv,
		rules:    game.DefaultRules(),
		selector: game.NewSelector(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories lists the playable categories with their item counts.
func (s *GameService) Categories(ctx context.Context) ([]domain.CategorySummary, error) {
	pool, err := s.pools.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	return pool.Categories(), nil
}

// Settings returns the stored settings of a player. Missing or unreadable
// settings silently fall back to the defaults.
func (s *GameService) Settings(ctx context.Context, playerID string) domain.Settings {
	settings := domain.DefaultSettings()
	raw, ok, err := s.kv.Get(ctx, playerID, SettingsKey)
	if err != nil {
		log.Debug().Err(err).Str("player", playerID).Msg("settings read failed, using defaults")
		return settings
	}
	if !ok {
		return settings
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		log.Debug().Err(err).Str("player", playerID).Msg("settings unreadable, using defaults")
		return domain.DefaultSettings()
	}
	if !settings.FontSize.Valid() {
		settings.FontSize = domain.FontMedium
	}
	return settings
}

// SaveSettings validates and stores the settings of a player.
func (s *GameService) SaveSettings(ctx context.Context, playerID string, settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return s.kv.Set(ctx, playerID, SettingsKey, string(raw))
}

// HighScore returns the best finished score of a player in a category, or 0.
func (s *GameService) HighScore(ctx context.Context, playerID, category string) (int, error) {
	raw, ok, err := s.kv.Get(ctx, playerID, HighScoreKeyPrefix+category)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return score, nil
}

// StartSession creates a session for the category and generates its first question.
func (s *GameService) StartSession(ctx context.Context, req StartRequest) (*game.Session, game.Snapshot, error) {
	pool, err := s.pools.GetPool(ctx)
	if err != nil {
		return nil, game.Snapshot{}, err
	}
	if req.Category == "" {
		req.Category = domain.AllCategories
	}
	if !pool.HasCategory(req.Category) {
		return nil, game.Snapshot{}, domain.ErrUnknownCategory
	}

	settings := s.Settings(ctx, req.PlayerID)
	playerID := req.PlayerID
	onResults := req.OnResults
	session := game.NewSession(game.Config{
		ID:       s.newID(),
		Category: req.Category,
		Pool:     pool,
		Selector: s.selector,
		Rules:    s.rules,
		Settings: settings,
		Feedback: req.Feedback,
		OnResults: func(results domain.Results) {
			// Runs after the request that ended the game may be gone.
			if err := s.recordHighScore(context.Background(), playerID, results); err != nil {
				log.Warn().Err(err).Str("player", playerID).Msg("high score not saved")
			}
			if onResults != nil {
				onResults(results)
			}
		},
		Now:   s.now,
		After: s.after,
	})
	s.sessions.Add(session)

	snap := session.Start()
	log.Info().
		Str("session", session.ID()).
		Str("player", playerID).
		Str("category", req.Category).
		Msg("session started")
	return session, snap, nil
}

// Guess submits an answer for the current question.
func (s *GameService) Guess(ctx context.Context, sessionID, option string) (game.GuessOutcome, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.GuessOutcome{}, domain.ErrSessionNotFound
	}
	return session.Guess(ctx, option)
}

// Next advances to the next question.
func (s *GameService) Next(_ context.Context, sessionID string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Next()
}

// Restart consumes a restart request. The flag is cleared so the same request
// cannot reset the session twice.
func (s *GameService) Restart(_ context.Context, sessionID string, req *domain.RestartRequest) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	if req == nil || !req.Restart {
		return session.Snapshot(), nil
	}
	req.Restart = false
	return session.Restart()
}

// Snapshot returns the current state of a session.
func (s *GameService) Snapshot(_ context.Context, sessionID string) (game.Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return game.Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Leave discards a session. In-progress points are not persisted.
func (s *GameService) Leave(_ context.Context, sessionID string) {
	s.sessions.Delete(sessionID)
}

// SweepIdle discards sessions without input for longer than maxIdle and
// returns how many were removed.
func (s *GameService) SweepIdle(_ context.Context, maxIdle time.Duration) int {
	ids := s.sessions.IdleSince(s.now().Add(-maxIdle))
	for _, id := range ids {
		s.sessions.Delete(id)
	}
	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("discarded idle sessions")
	}
	return len(ids)
}

func (s *GameService) recordHighScore(ctx context.Context, playerID string, results domain.Results) error {
	if playerID == "" {
		return nil
	}
	best, err := s.HighScore(ctx, playerID, results.Category)
	if err != nil {
		return err
	}
	if results.Points <= best {
		return nil
	}
	return s.kv.Set(ctx, playerID, HighScoreKeyPrefix+results.Category, strconv.Itoa(results.Points))
}
