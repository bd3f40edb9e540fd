package agent

import (
	"context"
	"strings"
	"time"

	"github.com/rahul/bdask/internal/guard"
	"github.com/rahul/bdask/internal/observability"
	"github.com/rahul/bdask/internal/tools"
)

// Rule scores a tool by how many of its keywords occur in a question.
type Rule struct {
	Tool     string
	Keywords []string
}

// FallbackTool handles questions no rule matches.
const FallbackTool = "web_search_tool"

var DefaultRules = []Rule{
	{
		Tool: "institutions_db_tool",
		Keywords: []string{
			"university", "universities", "college", "colleges", "institution",
			"institutions", "school", "schools", "madrasa", "polytechnic", "campus",
		},
	},
	{
		Tool: "hospitals_db_tool",
		Keywords: []string{
			"hospital", "hospitals", "clinic", "clinics", "bed", "beds",
			"doctor", "doctors", "medical", "health", "icu",
		},
	},
	{
		Tool: "restaurants_db_tool",
		Keywords: []string{
			"restaurant", "restaurants", "cuisine", "food", "biryani", "cafe",
			"dine", "dining", "eat", "menu",
		},
	},
}

// RoutingResult is the outcome of keyword routing.
type RoutingResult struct {
	Tool  string
	Score int
}

// RulesBrain routes by keyword table, without a model. Ties go to the tool
// registered first.
type RulesBrain struct {
	Registry *tools.Registry
	History  HistoryStore
	Rules    []Rule
	Screen   *guard.InputGuard
	Logger   *observability.Logger
}

func NewRulesBrain(registry *tools.Registry, history HistoryStore) *RulesBrain {
	return &RulesBrain{
		Registry: registry,
		History:  history,
		Rules:    DefaultRules,
		Logger:   observability.Nop(),
	}
}

// Route picks the registered tool with the highest keyword score.
func (b *RulesBrain) Route(input string) RoutingResult {
	lower := strings.ToLower(input)
	scores := make(map[string]int)
	for _, rule := range b.Rules {
		for _, kw := range rule.Keywords {
			if containsWord(lower, kw) {
				scores[rule.Tool]++
			}
		}
	}

	best := RoutingResult{Tool: FallbackTool}
	for _, t := range b.Registry.Tools() {
		if s := scores[t.Name()]; s > best.Score {
			best = RoutingResult{Tool: t.Name(), Score: s}
		}
	}
	return best
}

func (b *RulesBrain) Think(ctx context.Context, sessionID string, input string) (string, error) {
	if b.Screen != nil {
		v := b.Screen.Check(input)
		b.Logger.LogGuardCheck(ctx, "router_input", v.Allowed(), v.Reason)
		if !v.Allowed() {
			return PhraseInvalid, nil
		}
	}

	route := b.Route(input)
	b.Logger.LogToolCall(ctx, route.Tool, input)
	start := time.Now()

	outcome := tools.Invalid()
	if t := b.Registry.Get(route.Tool); t != nil {
		outcome = t.Answer(ctx, input)
	}
	b.Logger.LogToolResult(ctx, route.Tool, outcome.Kind.String(), time.Since(start), nil)

	answer := phrase(outcome)
	b.remember(sessionID, input, answer)
	return answer, nil
}

func (b *RulesBrain) remember(sessionID, input, answer string) {
	if b.History == nil {
		return
	}
	if err := b.History.AddMessage(sessionID, "human", input); err != nil {
		b.Logger.Warn().Err(err).Msg("failed to store message")
		return
	}
	if err := b.History.AddMessage(sessionID, "ai", answer); err != nil {
		b.Logger.Warn().Err(err).Msg("failed to store message")
	}
}

func containsWord(text, word string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if f == word {
			return true
		}
	}
	return false
}
