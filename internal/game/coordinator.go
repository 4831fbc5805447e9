package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/froghopperjacob/FredBoat/internal/akinator"
)

// TurnClient is the protocol adapter to the external guess service.
type TurnClient interface {
	StartSession(ctx context.Context, playerToken string) (*akinator.StepInfo, error)
	SubmitAnswer(ctx context.Context, session, signature string, step int, answer akinator.Answer) (*akinator.StepInfo, error)
	FetchGuess(ctx context.Context, session, signature string, step int) (*akinator.Guess, error)
	ResolveGuess(ctx context.Context, session, signature string, step int, elementID string, confirmed bool) error
}

// Sink sends outbound chat traffic. Fire-and-forget; delivery failures are
// logged, never fed back into the state machine.
type Sink interface {
	SendText(ctx context.Context, room, message string) error
	SendTyping(ctx context.Context, room string) error
}

// Presenter renders the user-facing strings for each protocol event. The
// failure text may vary with the error class, so ServiceError receives the
// upstream error.
type Presenter interface {
	Question(userName string, number int, question string) string
	GuessPrompt(guess *akinator.Guess) string
	Victory() string
	Defeat() string
	AlreadyActive(userName string) string
	ServiceError(err error) string
	StartError() string
}

// Binder lets the event-delivery layer route a user's plain messages to the
// coordinator while a game is live. Bound on start, unbound on termination
// and on reaper eviction.
type Binder interface {
	Bind(userID string) error
	Unbind(userID string) error
}

// Outcome classifies how a session ended.
type Outcome string

const (
	OutcomeVictory Outcome = "victory"
	OutcomeDefeat  Outcome = "defeat"
	OutcomeTimeout Outcome = "timeout"
)

// Recorder keeps per-user play counters. Optional; a nil Recorder disables it.
type Recorder interface {
	RecordStart(ctx context.Context, userID string) error
	RecordOutcome(ctx context.Context, userID string, outcome Outcome) error
}

// GameRecord is the archived summary of a finished session. SessionID keys
// the archive row, so recording the same game twice stays a single row.
type GameRecord struct {
	SessionID   string
	UserID      string
	ChannelID   string
	Outcome     Outcome
	Steps       int
	Progression float64
	GuessName   string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Archiver persists finished games. Optional; a nil Archiver disables it.
type Archiver interface {
	SaveGame(ctx context.Context, rec *GameRecord) error
}

const guessThreshold = 90.0

// Coordinator drives the question/guess protocol for every live session.
type Coordinator struct {
	registry  *Registry
	client    TurnClient
	sink      Sink
	presenter Presenter
	binder    Binder
	stats     Recorder
	archive   Archiver
	logger    *zap.Logger
	now       func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithRecorder(r Recorder) CoordinatorOption {
	return func(c *Coordinator) { c.stats = r }
}

func WithArchiver(a Archiver) CoordinatorOption {
	return func(c *Coordinator) { c.archive = a }
}

func WithCoordinatorLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

func NewCoordinator(registry *Registry, client TurnClient, sink Sink, presenter Presenter, binder Binder, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		registry:  registry,
		client:    client,
		sink:      sink,
		presenter: presenter,
		binder:    binder,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens a new game for the user and sends the first question. A user
// with a live game gets an informational reply and no new session.
func (c *Coordinator) Start(ctx context.Context, userID, channelID, userName string) error {
	sess, err := c.registry.Create(userID, channelID, userName)
	if err != nil {
		if errors.Is(err, ErrAlreadyActive) {
			c.send(ctx, channelID, c.presenter.AlreadyActive(userName))
			return nil
		}
		return err
	}

	c.typing(ctx, channelID)
	info, err := c.client.StartSession(ctx, akinator.NewPlayerToken())
	if err != nil {
		c.registry.Remove(userID)
		c.logger.Warn("session_start_failed", zap.String("user", userID), zap.Error(err))
		c.send(ctx, channelID, c.presenter.StartError())
		return nil
	}

	sess.Lock()
	sess.SessionID = info.Session
	sess.Signature = info.Signature
	sess.Step = info.Step
	sess.Progression = info.Progression
	sess.Question = info.Question
	sess.Unlock()

	if err := c.binder.Bind(userID); err != nil {
		c.logger.Warn("bind_failed", zap.String("user", userID), zap.Error(err))
	}
	if c.stats != nil {
		if err := c.stats.RecordStart(ctx, userID); err != nil {
			c.logger.Warn("stats_record_failed", zap.String("user", userID), zap.Error(err))
		}
	}

	c.send(ctx, channelID, c.presenter.Question(userName, info.Step+1, info.Question))
	c.logger.Info("session_started",
		zap.String("user", userID),
		zap.String("channel", channelID),
		zap.Int("step", info.Step))
	return nil
}

// HandleMessage feeds one inbound chat message into the user's session, if
// any. Messages on the wrong channel and non-answer text are dropped without
// a reply. Turns for the same session are serialized by the session lock;
// a message arriving mid-turn waits its turn rather than interleaving.
func (c *Coordinator) HandleMessage(ctx context.Context, userID, channelID, text string) {
	sess, ok := c.registry.Get(userID)
	if !ok {
		return
	}
	if sess.ChannelID != channelID {
		return
	}
	answer, ok := akinator.ParseAnswer(text)
	if !ok {
		return
	}

	sess.Lock()
	defer sess.Unlock()
	if sess.Removed() {
		return
	}
	sess.Touch(c.now())

	switch sess.Phase {
	case PhaseAwaitingAnswer:
		c.answerQuestion(ctx, sess, answer)
	case PhaseAwaitingGuessConfirmation:
		c.answerGuess(ctx, sess, answer)
	}
}

// answerQuestion submits the answer and either asks the next question,
// proposes a guess, or ends the game. On a service failure the session keeps
// its prior state so the user can retry the same answer.
func (c *Coordinator) answerQuestion(ctx context.Context, sess *Session, answer akinator.Answer) {
	c.typing(ctx, sess.ChannelID)

	info, err := c.client.SubmitAnswer(ctx, sess.SessionID, sess.Signature, sess.Step, answer)
	if err != nil {
		c.logger.Warn("submit_answer_failed",
			zap.String("user", sess.UserID),
			zap.Int("step", sess.Step),
			zap.Error(err))
		c.send(ctx, sess.ChannelID, c.presenter.ServiceError(err))
		return
	}

	if info.GameOver {
		c.send(ctx, sess.ChannelID, c.presenter.Defeat())
		c.terminate(ctx, sess, OutcomeDefeat)
		return
	}

	sess.Step = info.Step
	sess.Progression = info.Progression
	sess.Question = info.Question

	if info.Progression >= guessThreshold {
		guess, err := c.client.FetchGuess(ctx, sess.SessionID, sess.Signature, sess.Step)
		if err != nil {
			c.logger.Warn("fetch_guess_failed",
				zap.String("user", sess.UserID),
				zap.Int("step", sess.Step),
				zap.Error(err))
			c.send(ctx, sess.ChannelID, c.presenter.ServiceError(err))
			return
		}
		sess.PendingGuess = guess
		sess.Phase = PhaseAwaitingGuessConfirmation
		c.send(ctx, sess.ChannelID, c.presenter.GuessPrompt(guess))
		return
	}

	c.send(ctx, sess.ChannelID, c.presenter.Question(sess.UserName, sess.Step+1, sess.Question))
}

// answerGuess resolves a pending guess. Only yes and no count here; any other
// answer token is ignored without state change.
func (c *Coordinator) answerGuess(ctx context.Context, sess *Session, answer akinator.Answer) {
	if answer != akinator.AnswerYes && answer != akinator.AnswerNo {
		return
	}
	c.typing(ctx, sess.ChannelID)

	confirmed := answer == akinator.AnswerYes
	err := c.client.ResolveGuess(ctx, sess.SessionID, sess.Signature, sess.Step, sess.PendingGuess.ID, confirmed)
	if err != nil {
		c.logger.Warn("resolve_guess_failed",
			zap.String("user", sess.UserID),
			zap.Int("step", sess.Step),
			zap.Error(err))
		c.send(ctx, sess.ChannelID, c.presenter.ServiceError(err))
		return
	}

	if confirmed {
		c.send(ctx, sess.ChannelID, c.presenter.Victory())
		c.terminate(ctx, sess, OutcomeVictory)
		return
	}

	sess.PendingGuess = nil
	sess.Phase = PhaseAwaitingAnswer
	c.send(ctx, sess.ChannelID, c.presenter.Question(sess.UserName, sess.Step+1, sess.Question))
}

// terminate removes the session from the registry, detaches the event
// binding and records the outcome. Called with the session lock held.
func (c *Coordinator) terminate(ctx context.Context, sess *Session, outcome Outcome) {
	userID := sess.UserID
	// Flag the session before giving up the lock so a queued turn that wins
	// the lock during removal sees it and bails.
	sess.markRemoved()

	sess.Unlock()
	removed := c.registry.Remove(userID)
	sess.Lock()
	if !removed {
		return
	}

	if err := c.binder.Unbind(userID); err != nil {
		c.logger.Warn("unbind_failed", zap.String("user", userID), zap.Error(err))
	}
	if c.stats != nil {
		if err := c.stats.RecordOutcome(ctx, userID, outcome); err != nil {
			c.logger.Warn("stats_record_failed", zap.String("user", userID), zap.Error(err))
		}
	}
	if c.archive != nil {
		rec := &GameRecord{
			SessionID:   sess.ID,
			UserID:      userID,
			ChannelID:   sess.ChannelID,
			Outcome:     outcome,
			Steps:       sess.Step,
			Progression: sess.Progression,
			StartedAt:   sess.StartedAt,
			FinishedAt:  c.now(),
		}
		if sess.PendingGuess != nil {
			rec.GuessName = sess.PendingGuess.Name
		}
		if err := c.archive.SaveGame(ctx, rec); err != nil {
			c.logger.Warn("archive_failed", zap.String("user", userID), zap.Error(err))
		}
	}

	c.logger.Info("session_ended",
		zap.String("user", userID),
		zap.String("outcome", string(outcome)),
		zap.Int("steps", sess.Step))
}

func (c *Coordinator) send(ctx context.Context, channelID, text string) {
	if err := c.sink.SendText(ctx, channelID, text); err != nil {
		c.logger.Warn("send_failed", zap.String("channel", channelID), zap.Error(err))
	}
}

func (c *Coordinator) typing(ctx context.Context, channelID string) {
	_ = c.sink.SendTyping(ctx, channelID)
}
