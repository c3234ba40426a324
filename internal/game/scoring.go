package game

import "time"

// Rules are the tunable difficulty constants of a session.
type Rules struct {
	StartingLives  int
	BonusThreshold time.Duration
	BasePoints     int
	BonusPoints    int
	GameOverDelay  time.Duration
	VibrationPulse time.Duration
}

// DefaultRules mirrors the shipped game: three lives, a one point bonus under ten seconds.
func DefaultRules() Rules {
	return Rules{
		StartingLives:  3,
		BonusThreshold: 10 * time.Second,
		BasePoints:     1,
		BonusPoints:    1,
		GameOverDelay:  1500 * time.Millisecond,
		VibrationPulse: 100 * time.Millisecond,
	}
}

// Evaluation is the outcome of scoring one guess. Exactly one of Points or
// Lives differs from the inputs.
type Evaluation struct {
	Correct      bool
	Points       int
	Lives        int
	Awarded      int
	BonusAwarded bool
}

// EvaluateGuess scores a guess against the correct answer.
func EvaluateGuess(rules Rules, selected, correctAnswer string, elapsed time.Duration, lives, points int) Evaluation {
	if selected == correctAnswer {
		awarded := rules.BasePoints
		bonus := elapsed < rules.BonusThreshold
		if bonus {
			awarded += rules.BonusPoints
		}
		return Evaluation{
			Correct:      true,
			Points:       points + awarded,
			Lives:        lives,
			Awarded:      awarded,
			BonusAwarded: bonus,
		}
	}

	lives--
	if lives < 0 {
		lives = 0
	}
	return Evaluation{Points: points, Lives: lives}
}
