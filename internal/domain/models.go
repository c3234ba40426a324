package domain

// AllCategories is the reserved category meaning "no filter".
const AllCategories = "all"

// QuizItem is one abbreviation to guess. Items are loaded once and never mutated.
type QuizItem struct {
	Abbreviation  string   `json:"abbreviation"`
	CorrectAnswer string   `json:"correct_answer"`
	Options       []string `json:"options"`
	Category      string   `json:"category"`
}

// CategorySummary describes a selectable category.
type CategorySummary struct {
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// Results is handed to the results surface when a session terminates.
type Results struct {
	Points   int    `json:"points"`
	Category string `json:"category"`
}

// RestartRequest is the external "play again" signal. It is consumed once.
type RestartRequest struct {
	Restart bool `json:"restart"`
}

// SoundEvent tags the audio cue for an answer.
type SoundEvent string

const (
	SoundCorrect   SoundEvent = "correct"
	SoundIncorrect SoundEvent = "incorrect"
)

// FontSize is the user's preferred text size.
type FontSize string

const (
	FontSmall  FontSize = "Small"
	FontMedium FontSize = "Medium"
	FontLarge  FontSize = "Large"
)

// Valid reports whether f is one of the known sizes.
func (f FontSize) Valid() bool {
	switch f {
	case FontSmall, FontMedium, FontLarge:
		return true
	}
	return false
}

// Settings is the persisted "userSettings" blob.
type Settings struct {
	SoundEffects bool     `json:"soundEffects"`
	Vibration    bool     `json:"vibration"`
	FontSize     FontSize `json:"fontSize"`
	Notification bool     `json:"notification"`
	Username     string   `json:"username"`
}

// DefaultSettings is used when nothing is stored or the stored blob is unreadable.
func DefaultSettings() Settings {
	return Settings{
		SoundEffects: true,
		Vibration:    true,
		FontSize:     FontMedium,
		Notification: true,
		Username:     "",
	}
}

// Validate checks the enumerated fields of a settings blob.
func (s Settings) Validate() error {
	if !s.FontSize.Valid() {
		return ErrInvalidSettings
	}
	return nil
}
