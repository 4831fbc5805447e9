package gamepresenter

import (
	"fmt"
	"strings"
	"time"

	"github.com/froghopperjacob/FredBoat/internal/akinator"
	"github.com/froghopperjacob/FredBoat/internal/game"
	"github.com/froghopperjacob/FredBoat/pkg/akidto"
)

type PrefixProvider interface {
	Prefix() string
}

// Formatter renders stats and history summaries for the game commands.
type Formatter struct {
	prefix PrefixProvider
}

func NewFormatter(p PrefixProvider) *Formatter {
	return &Formatter{prefix: p}
}

func ToDTOStats(ps *game.PlayStats) *akidto.PlayStats {
	if ps == nil {
		return nil
	}
	return &akidto.PlayStats{
		Games:     ps.Games,
		Victories: ps.Victories,
		Defeats:   ps.Defeats,
		Timeouts:  ps.Timeouts,
	}
}

func ToDTOGames(recs []*game.GameRecord) []*akidto.GameSummary {
	out := make([]*akidto.GameSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, &akidto.GameSummary{
			ChannelID:   rec.ChannelID,
			Outcome:     string(rec.Outcome),
			Steps:       rec.Steps,
			Progression: rec.Progression,
			GuessName:   rec.GuessName,
			StartedAt:   rec.StartedAt,
			FinishedAt:  rec.FinishedAt,
			Duration:    rec.FinishedAt.Sub(rec.StartedAt),
		})
	}
	return out
}

func ToDTOGuess(g *akinator.Guess) *akidto.GuessCandidate {
	if g == nil {
		return nil
	}
	return &akidto.GuessCandidate{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Ranking:     g.Ranking,
		ImageURL:    g.ImageURL,
	}
}

func (f *Formatter) Stats(userName string, s *akidto.PlayStats) string {
	if s == nil || s.Games == 0 {
		return fmt.Sprintf("%s, no games on record yet. Say '%saki' to start one.", userName, f.prefix.Prefix())
	}
	return fmt.Sprintf("**%s**\nGames: %d\nGenie wins: %d\nYour wins: %d\nTimed out: %d",
		userName, s.Games, s.Victories, s.Defeats, s.Timeouts)
}

func (f *Formatter) History(userName string, games []*akidto.GameSummary) string {
	if len(games) == 0 {
		return fmt.Sprintf("%s, no finished games on record.", userName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Recent games for %s**", userName)
	for i, g := range games {
		guess := g.GuessName
		if guess == "" {
			guess = "-"
		}
		fmt.Fprintf(&b, "\n%d. %s after %d questions (guess: %s, %s)",
			i+1, g.Outcome, g.Steps, guess, g.Duration.Round(time.Second))
	}
	return b.String()
}
