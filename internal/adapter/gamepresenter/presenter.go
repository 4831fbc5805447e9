package gamepresenter

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/froghopperjacob/FredBoat/internal/akinator"
	"github.com/froghopperjacob/FredBoat/internal/msgcat"
	"github.com/froghopperjacob/FredBoat/pkg/akidto"
)

// Presenter renders game protocol events into chat text via the message
// catalog. Render failures fall back to a plain string so a bad template
// never silences the bot mid-game.
type Presenter struct {
	catalog *msgcat.Catalog
	logger  *zap.Logger
}

func New(catalog *msgcat.Catalog, logger *zap.Logger) *Presenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{catalog: catalog, logger: logger}
}

func (p *Presenter) render(key string, data map[string]any, fallback string) string {
	out, err := p.catalog.Render(key, data)
	if err != nil {
		p.logger.Warn("render_failed", zap.String("key", key), zap.Error(err))
		return fallback
	}
	return out
}

func (p *Presenter) Question(userName string, number int, question string) string {
	return p.render("aki.question", map[string]any{
		"Name":     userName,
		"Number":   number,
		"Question": question,
	}, fmt.Sprintf("**%s: Question %d**\n%s\n[yes/no/idk/probably/probably not]", userName, number, question))
}

func (p *Presenter) GuessPrompt(guess *akinator.Guess) string {
	g := ToDTOGuess(guess)
	return p.render("aki.guess", map[string]any{
		"Name":        g.Name,
		"Description": g.Description,
		"Ranking":     g.Ranking,
		"ImageURL":    g.ImageURL,
	}, fmt.Sprintf("Is this your character?\n**%s**\n%s\n[yes/no]", g.Name, g.Description))
}

func (p *Presenter) Victory() string {
	return p.render("aki.victory", nil, "Great ! Guessed right one more time.")
}

func (p *Presenter) Defeat() string {
	return p.render("aki.defeat", nil, "Bravo !\nYou have defeated me !")
}

func (p *Presenter) AlreadyActive(userName string) string {
	return p.render("aki.already_active", map[string]any{"Name": userName},
		userName+", you already have a game running.")
}

// ServiceError classifies the upstream failure and picks the message
// accordingly: retryable outages invite another attempt, protocol breakage
// does not.
func (p *Presenter) ServiceError(err error) string {
	derr := ToDomainError(err)
	p.logger.Warn("service_error", zap.String("code", derr.Code), zap.Bool("retryable", derr.Retryable))
	if !derr.Retryable {
		return p.render("aki.protocol_error", nil, "The genie said something I could not understand. Try your answer again.")
	}
	return p.render("aki.service_error", nil, "The genie is not answering right now. Try again in a moment.")
}

func (p *Presenter) StartError() string {
	return p.render("aki.start_error", nil, "Could not start a game right now. Please try again later.")
}

// ToDomainError maps turn-client failures onto the DTO error the adapters
// share. Unknown errors count as retryable outages.
func ToDomainError(err error) *akidto.DomainError {
	switch {
	case errors.Is(err, akinator.ErrProtocolError):
		return &akidto.DomainError{Code: "protocol_error", Message: err.Error(), Retryable: false}
	case errors.Is(err, akinator.ErrServiceUnavailable):
		return &akidto.DomainError{Code: "service_unavailable", Message: err.Error(), Retryable: true}
	case err == nil:
		return &akidto.DomainError{Code: "unknown", Retryable: true}
	default:
		return &akidto.DomainError{Code: "unknown", Message: err.Error(), Retryable: true}
	}
}
