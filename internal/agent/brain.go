package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/bdask/internal/guard"
	"github.com/rahul/bdask/internal/observability"
	"github.com/rahul/bdask/internal/tools"
	"github.com/rahul/bdask/pkg/config"
)

// Fixed replies for sentinel outcomes.
const (
	PhraseNoData  = "Sorry, no matching data was found in the database."
	PhraseInvalid = tools.SentinelInvalid
)

// ErrNoAnswer is returned when the model produced neither a tool call nor
// text.
var ErrNoAnswer = errors.New("model returned no answer")

// Brain answers one user turn of a session.
type Brain interface {
	Think(ctx context.Context, sessionID string, input string) (string, error)
}

type HistoryStore interface {
	AddMessage(sessionID string, role string, content string) error
	GetHistory(sessionID string, limit int) ([]llms.MessageContent, error)
}

// phrase maps an outcome to what the user sees.
func phrase(o tools.Outcome) string {
	switch o.Kind {
	case tools.KindSuccess:
		return o.Text
	case tools.KindEmpty:
		return PhraseNoData
	default:
		return PhraseInvalid
	}
}

// NewBrain builds the router selected by cfg.Router.Mode. When
// cfg.ScreenRouterInput is set, turns first pass a router screen (length and
// injection phrases); the dataset tools still apply their own input guard.
func NewBrain(cfg *config.Config, model llms.Model, registry *tools.Registry, history HistoryStore, prompts *PromptManager, logger *observability.Logger) (Brain, error) {
	if logger == nil {
		logger = observability.Nop()
	}

	var screen *guard.InputGuard
	if cfg.ScreenRouterInput() {
		g, err := guard.NewRouterScreen(cfg.Guard.MaxInputLength)
		if err != nil {
			return nil, fmt.Errorf("router screen: %w", err)
		}
		screen = g
	}

	switch cfg.Router.Mode {
	case "rules":
		b := NewRulesBrain(registry, history)
		b.Screen = screen
		b.Logger = logger
		return b, nil
	case "llm":
		if model == nil {
			return nil, errors.New("llm router needs a model")
		}
		b := NewRouterBrain(model, registry, history, prompts)
		b.Screen = screen
		b.HistoryTurns = cfg.Router.HistoryTurns
		b.Logger = logger
		return b, nil
	default:
		return nil, fmt.Errorf("unknown router mode %q", cfg.Router.Mode)
	}
}
