package akidto

import "time"

// GameSummary is one archived game as exposed outside the game package.
type GameSummary struct {
	ChannelID   string
	Outcome     string
	Steps       int
	Progression float64
	GuessName   string
	StartedAt   time.Time
	FinishedAt  time.Time
	Duration    time.Duration
}

// PlayStats are a user's lifetime counters within the retention window.
type PlayStats struct {
	Games     int64
	Victories int64
	Defeats   int64
	Timeouts  int64
}

// GuessCandidate is a display-ready best guess.
type GuessCandidate struct {
	ID          string
	Name        string
	Description string
	Ranking     int
	ImageURL    string
}
