package game

import (
	"context"
	"sync"
	"time"

	"abbrev-quiz-service/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Phase is the state of a session.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	PhaseAnswerRevealed Phase = "answer_revealed"
	// PhaseGameOver is the acknowledgement window after the last life is lost.
	PhaseGameOver   Phase = "game_over"
	PhaseTerminated Phase = "terminated"
)

// TerminationReason tells the two normal endings apart.
type TerminationReason string

const (
	ReasonLivesExhausted TerminationReason = "lives_exhausted"
	ReasonPoolExhausted  TerminationReason = "pool_exhausted"
)

// Feedback plays answer cues. Implementations must return promptly; the
// session never waits on playback and drops any error.
type Feedback interface {
	PlaySound(ctx context.Context, event domain.SoundEvent) error
	Vibrate(ctx context.Context, pulse time.Duration) error
}

// ResultsHandler receives the final results of a play-through.
type ResultsHandler func(domain.Results)

// AfterFunc runs f once d has elapsed.
type AfterFunc func(d time.Duration, f func())

// DispatchFunc runs feedback calls. The default starts a goroutine so a guess
// never waits on playback.
type DispatchFunc func(f func())

// Config wires a session to its collaborators.
type Config struct {
	ID        string
	Category  string
	Pool      *Pool
	Selector  *Selector
	Rules     Rules
	Settings  domain.Settings
	Feedback  Feedback
	OnResults ResultsHandler
	Now       func() time.Time
	After     AfterFunc
	Dispatch  DispatchFunc
}

// Snapshot is the UI-facing view of a session.
type Snapshot struct {
	SessionID      string            `json:"sessionId"`
	Category       string            `json:"category"`
	Phase          Phase             `json:"phase"`
	Prompt         string            `json:"prompt"`
	Options        []string          `json:"options"`
	CorrectAnswer  string            `json:"correctAnswer,omitempty"`
	Points         int               `json:"points"`
	LivesRemaining int               `json:"livesRemaining"`
	Answered       int               `json:"answered"`
	SelectedOption string            `json:"selectedOption,omitempty"`
	HasAnswered    bool              `json:"hasAnswered"`
	RevealAnswer   bool              `json:"revealAnswer"`
	Termination    TerminationReason `json:"termination,omitempty"`
}

// GuessOutcome is returned for an accepted guess.
type GuessOutcome struct {
	Correct        bool   `json:"correct"`
	BonusAwarded   bool   `json:"bonusAwarded"`
	Awarded        int    `json:"awarded"`
	Points         int    `json:"points"`
	LivesRemaining int    `json:"livesRemaining"`
	CorrectAnswer  string `json:"correctAnswer"`
	GameOver       bool   `json:"gameOver"`
}

// Session drives one play-through. All transitions go through its methods;
// the results handler fires at most once per play-through.
type Session struct {
	id        string
	category  string
	pool      *Pool
	selector  *Selector
	rules     Rules
	settings  domain.Settings
	feedback  Feedback
	onResults ResultsHandler
	now       func() time.Time
	after     AfterFunc
	dispatch  DispatchFunc

	mu         sync.Mutex
	phase      Phase
	question   Question
	points     int
	lives      int
	answered   PromptSet
	selected   string
	hasAnswer  bool
	reveal     bool
	startedAt  time.Time
	reason     TerminationReason
	fresh      bool
	generation uint64
	handedOff  bool
	lastActive time.Time
}

// NewSession builds an idle session. Call Start to generate the first question.
func NewSession(cfg Config) *Session {
	if cfg.Rules == (Rules{}) {
		cfg.Rules = DefaultRules()
	}
	if cfg.Selector == nil {
		cfg.Selector = NewSelector()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.After == nil {
		cfg.After = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(f func()) { go f() }
	}
	if cfg.Pool == nil {
		cfg.Pool = NewPool(nil)
	}
	return &Session{
		id:         cfg.ID,
		category:   cfg.Category,
		pool:       cfg.Pool,
		selector:   cfg.Selector,
		rules:      cfg.Rules,
		settings:   cfg.Settings,
		feedback:   cfg.Feedback,
		onResults:  cfg.OnResults,
		now:        cfg.Now,
		after:      cfg.After,
		dispatch:   cfg.Dispatch,
		phase:      PhaseIdle,
		lives:      cfg.Rules.StartingLives,
		fresh:      true,
		lastActive: cfg.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Category returns the category fixed at creation.
func (s *Session) Category() string { return s.category }

// LastActive is the time of the last accepted or rejected input.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Start generates the first question. It is a no-op once the session has left idle.
func (s *Session) Start() Snapshot {
	s.mu.Lock()
	s.lastActive = s.now()
	if s.phase != PhaseIdle {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	results, done := s.advanceLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if done {
		s.handOff(results)
	}
	return snap
}

// Guess answers the current question. Only the first guess per question is
// accepted; later ones fail with domain.ErrAlreadyAnswered.
func (s *Session) Guess(ctx context.Context, option string) (GuessOutcome, error) {
	s.mu.Lock()
	s.lastActive = s.now()
	switch s.phase {
	case PhaseIdle:
		s.mu.Unlock()
		return GuessOutcome{}, domain.ErrNoQuestion
	case PhaseAnswerRevealed:
		s.mu.Unlock()
		return GuessOutcome{}, domain.ErrAlreadyAnswered
	case PhaseGameOver, PhaseTerminated:
		s.mu.Unlock()
		return GuessOutcome{}, domain.ErrSessionOver
	}
	if !lo.Contains(s.question.Options, option) {
		s.mu.Unlock()
		return GuessOutcome{}, domain.ErrOptionNotFound
	}

	eval := EvaluateGuess(s.rules, option, s.question.CorrectAnswer, s.now().Sub(s.startedAt), s.lives, s.points)
	s.points = eval.Points
	s.lives = eval.Lives
	s.answered = s.answered.With(s.question.Prompt)
	s.selected = option
	s.hasAnswer = true
	s.reveal = true
	s.fresh = false
	s.phase = PhaseAnswerRevealed

	gameOver := s.lives == 0
	if gameOver {
		s.phase = PhaseGameOver
	}
	gen := s.generation
	outcome := GuessOutcome{
		Correct:        eval.Correct,
		BonusAwarded:   eval.BonusAwarded,
		Awarded:        eval.Awarded,
		Points:         s.points,
		LivesRemaining: s.lives,
		CorrectAnswer:  s.question.CorrectAnswer,
		GameOver:       gameOver,
	}
	s.mu.Unlock()

	if gameOver {
		s.after(s.rules.GameOverDelay, func() { s.finishGameOver(gen) })
	}
	s.playFeedback(ctx, eval.Correct)
	return outcome, nil
}

// Next moves past a revealed answer to a new question, or terminates when the
// pool is exhausted.
func (s *Session) Next() (Snapshot, error) {
	s.mu.Lock()
	s.lastActive = s.now()
	switch s.phase {
	case PhaseAwaitingAnswer:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrNotAnswered
	case PhaseGameOver:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrGameOverPending
	case PhaseTerminated:
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrSessionOver
	}
	results, done := s.advanceLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if done {
		s.handOff(results)
	}
	return snap, nil
}

// Restart resets points, lives and answered prompts and generates a question.
// Restarting a session that has not been played since its last reset returns
// the current state unchanged.
func (s *Session) Restart() (Snapshot, error) {
	s.mu.Lock()
	s.lastActive = s.now()
	if s.phase == PhaseGameOver {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, domain.ErrGameOverPending
	}
	if s.phase != PhaseIdle && s.fresh {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}

	s.generation++
	s.points = 0
	s.lives = s.rules.StartingLives
	s.answered = PromptSet{}
	s.reason = ""
	s.handedOff = false
	s.fresh = true
	results, done := s.advanceLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if done {
		s.handOff(results)
	}
	return snap, nil
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// AnsweredPrompts returns the prompts answered in the current play-through.
func (s *Session) AnsweredPrompts() PromptSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answered
}

func (s *Session) finishGameOver(gen uint64) {
	s.mu.Lock()
	if s.generation != gen || s.phase != PhaseGameOver {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseTerminated
	s.reason = ReasonLivesExhausted
	results, done := s.claimResultsLocked()
	s.mu.Unlock()

	if done {
		s.handOff(results)
	}
}

// advanceLocked generates the next question or terminates on an exhausted pool.
// It reports results when the session terminated.
func (s *Session) advanceLocked() (domain.Results, bool) {
	q, err := s.selector.Select(s.pool, s.category, s.answered)
	if err != nil {
		s.phase = PhaseTerminated
		s.reason = ReasonPoolExhausted
		s.question = Question{}
		s.selected = ""
		s.hasAnswer = false
		s.reveal = false
		return s.claimResultsLocked()
	}

	s.question = q
	s.selected = ""
	s.hasAnswer = false
	s.reveal = false
	s.startedAt = s.now()
	s.phase = PhaseAwaitingAnswer
	return domain.Results{}, false
}

func (s *Session) claimResultsLocked() (domain.Results, bool) {
	if s.handedOff {
		return domain.Results{}, false
	}
	s.handedOff = true
	return domain.Results{Points: s.points, Category: s.category}, true
}

func (s *Session) handOff(results domain.Results) {
	log.Debug().
		Str("session", s.id).
		Str("category", results.Category).
		Int("points", results.Points).
		Msg("session terminated")
	if s.onResults != nil {
		s.onResults(results)
	}
}

// playFeedback hands the answer cues to the dispatcher. Playback errors and
// panics are logged and dropped; they never reach session state.
func (s *Session) playFeedback(ctx context.Context, correct bool) {
	if s.feedback == nil {
		return
	}
	sound := s.settings.SoundEffects
	vibrate := !correct && s.settings.Vibration
	if !sound && !vibrate {
		return
	}
	event := domain.SoundIncorrect
	if correct {
		event = domain.SoundCorrect
	}
	fb, pulse, id := s.feedback, s.rules.VibrationPulse, s.id
	ctx = context.WithoutCancel(ctx)

	s.dispatch(func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn().Interface("panic", r).Str("session", id).Msg("feedback collaborator panicked")
			}
		}()
		if sound {
			if err := fb.PlaySound(ctx, event); err != nil {
				log.Debug().Err(err).Str("session", id).Msg("sound playback skipped")
			}
		}
		if vibrate {
			if err := fb.Vibrate(ctx, pulse); err != nil {
				log.Debug().Err(err).Str("session", id).Msg("vibration skipped")
			}
		}
	})
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:      s.id,
		Category:       s.category,
		Phase:          s.phase,
		Prompt:         s.question.Prompt,
		Options:        append([]string(nil), s.question.Options...),
		Points:         s.points,
		LivesRemaining: s.lives,
		Answered:       s.answered.Len(),
		SelectedOption: s.selected,
		HasAnswered:    s.hasAnswer,
		RevealAnswer:   s.reveal,
		Termination:    s.reason,
	}
	if s.reveal {
		snap.CorrectAnswer = s.question.CorrectAnswer
	}
	return snap
}
