package akinator

import "errors"

var (
	// ErrServiceUnavailable marks network-level failures against the guess service.
	ErrServiceUnavailable = errors.New("akinator service unavailable")
	// ErrProtocolError marks responses whose shape does not match the wire contract.
	ErrProtocolError = errors.New("akinator protocol error")
)

// Answer is the wire enumeration the guess service expects.
// The integer values are a protocol contract and must not change.
type Answer int

const (
	AnswerYes         Answer = 0
	AnswerNo          Answer = 1
	AnswerUnsure      Answer = 2
	AnswerProbably    Answer = 3
	AnswerProbablyNot Answer = 4
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	case AnswerUnsure:
		return "unsure"
	case AnswerProbably:
		return "probably"
	case AnswerProbablyNot:
		return "probably not"
	default:
		return "unknown"
	}
}

// StepInfo is one turn's worth of state from the guess service.
// Signature and Session are only populated on the start-session response.
type StepInfo struct {
	Signature   string
	Session     string
	Question    string
	Step        int
	Progression float64
	GameOver    bool
}

// Guess is the service's current best candidate.
type Guess struct {
	ID          string
	Name        string
	Description string
	Pseudo      string
	Ranking     int
	ImageURL    string
}
