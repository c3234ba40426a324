package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"abbrev-quiz-service/internal/app"
	"abbrev-quiz-service/internal/domain"
	"abbrev-quiz-service/internal/game"
	"github.com/spf13/cobra"
)

// NewPlayCmd plays one session in the terminal against the configured pool.
func NewPlayCmd(configPath *string) *cobra.Command {
	var playerID string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			rt, err := buildRuntime(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			p := &terminalPlayer{
				service:  rt.service,
				playerID: playerID,
				in:       bufio.NewScanner(cmd.InOrStdin()),
				out:      &syncWriter{w: cmd.OutOrStdout()},
			}
			return p.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&playerID, "player", "local", "player id for settings and high scores")
	return cmd
}

type terminalPlayer struct {
	service  *app.GameService
	playerID string
	in       *bufio.Scanner
	out      io.Writer
}

// syncWriter serializes writes; feedback cues print from their own goroutine.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type terminalFeedback struct {
	out io.Writer
}

func (f terminalFeedback) PlaySound(_ context.Context, event domain.SoundEvent) error {
	_, err := fmt.Fprintf(f.out, "  ♪ %s\n", event)
	return err
}

func (f terminalFeedback) Vibrate(_ context.Context, pulse time.Duration) error {
	_, err := fmt.Fprintf(f.out, "  ~ bzzz (%s)\n", pulse)
	return err
}

func (p *terminalPlayer) run(ctx context.Context) error {
	category, err := p.chooseCategory(ctx)
	if err != nil {
		return err
	}

	results := make(chan domain.Results, 1)
	session, snap, err := p.service.StartSession(ctx, app.StartRequest{
		PlayerID:  p.playerID,
		Category:  category,
		Feedback:  terminalFeedback{out: p.out},
		OnResults: func(r domain.Results) { results <- r },
	})
	if err != nil {
		return err
	}
	defer p.service.Leave(context.Background(), session.ID())

	for {
		if snap.Phase == game.PhaseAwaitingAnswer {
			snap, err = p.playQuestion(ctx, session.ID(), snap)
			if err != nil {
				return err
			}
			continue
		}

		var r domain.Results
		select {
		case r = <-results:
		case <-ctx.Done():
			return ctx.Err()
		}
		best, _ := p.service.HighScore(ctx, p.playerID, r.Category)
		fmt.Fprintf(p.out, "\nGame over: %d points in %s (best %d)\n", r.Points, r.Category, best)

		again, ok := p.prompt("Play again? [y/N] ")
		if !ok || !strings.EqualFold(again, "y") {
			return nil
		}
		snap, err = p.service.Restart(ctx, session.ID(), &domain.RestartRequest{Restart: true})
		if err != nil {
			return err
		}
	}
}

// playQuestion asks one question and returns the state after moving on.
func (p *terminalPlayer) playQuestion(ctx context.Context, sessionID string, snap game.Snapshot) (game.Snapshot, error) {
	fmt.Fprintf(p.out, "\n[%d pts, %d lives] What does %s stand for?\n", snap.Points, snap.LivesRemaining, snap.Prompt)
	for i, opt := range snap.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}

	for {
		line, ok := p.prompt("> ")
		if !ok {
			return snap, io.EOF
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(snap.Options) {
			fmt.Fprintf(p.out, "pick 1-%d\n", len(snap.Options))
			continue
		}

		outcome, err := p.service.Guess(ctx, sessionID, snap.Options[n-1])
		if err != nil {
			return snap, err
		}
		switch {
		case outcome.Correct && outcome.BonusAwarded:
			fmt.Fprintf(p.out, "Correct! +%d (speed bonus)\n", outcome.Awarded)
		case outcome.Correct:
			fmt.Fprintf(p.out, "Correct! +%d\n", outcome.Awarded)
		default:
			fmt.Fprintf(p.out, "Wrong, it was %s\n", outcome.CorrectAnswer)
		}
		if outcome.GameOver {
			return p.service.Snapshot(ctx, sessionID)
		}
		return p.service.Next(ctx, sessionID)
	}
}

func (p *terminalPlayer) chooseCategory(ctx context.Context) (string, error) {
	cats, err := p.service.Categories(ctx)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(p.out, "Categories:")
	for i, c := range cats {
		fmt.Fprintf(p.out, "  %d) %s %s (%d)\n", i+1, c.Emoji, c.Name, c.Count)
	}
	for {
		line, ok := p.prompt("Choose a category: ")
		if !ok {
			return "", errors.New("no category chosen")
		}
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(cats) {
			return cats[n-1].Name, nil
		}
		for _, c := range cats {
			if strings.EqualFold(c.Name, line) {
				return c.Name, nil
			}
		}
		fmt.Fprintln(p.out, "unknown category")
	}
}

func (p *terminalPlayer) prompt(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}
