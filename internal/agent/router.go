package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/bdask/internal/guard"
	"github.com/rahul/bdask/internal/observability"
	"github.com/rahul/bdask/internal/tools"
)

// RouterBrain lets the model pick one tool per turn through function
// calling. Only the first tool call of a turn runs.
type RouterBrain struct {
	Model    llms.Model
	Registry *tools.Registry
	History  HistoryStore
	Prompts  *PromptManager

	// Screen, if set, rejects a turn before any model call.
	Screen       *guard.InputGuard
	HistoryTurns int
	Logger       *observability.Logger
}

func NewRouterBrain(model llms.Model, registry *tools.Registry, history HistoryStore, prompts *PromptManager) *RouterBrain {
	return &RouterBrain{
		Model:        model,
		Registry:     registry,
		History:      history,
		Prompts:      prompts,
		HistoryTurns: 6,
		Logger:       observability.Nop(),
	}
}

func (b *RouterBrain) Think(ctx context.Context, sessionID string, input string) (string, error) {
	if b.Screen != nil {
		v := b.Screen.Check(input)
		b.Logger.LogGuardCheck(ctx, "router_input", v.Allowed(), v.Reason)
		if !v.Allowed() {
			return PhraseInvalid, nil
		}
	}

	systemPrompt, err := b.Prompts.GetRouterPrompt(b.Registry.Tools())
	if err != nil {
		return "", fmt.Errorf("load router prompt: %w", err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
	}
	if b.History != nil && b.HistoryTurns > 0 {
		history, err := b.History.GetHistory(sessionID, b.HistoryTurns*2)
		if err != nil {
			b.Logger.Warn().Err(err).Str("session_id", sessionID).Msg("history unavailable")
		}
		messages = append(messages, history...)
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, input))

	var llmTools []llms.Tool
	for _, t := range b.Registry.Tools() {
		llmTools = append(llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	choice, err := b.generate(ctx, messages, llms.WithTools(llmTools))
	if err != nil {
		return "", err
	}

	var answer string
	if len(choice.ToolCalls) == 0 {
		answer = choice.Content
	} else {
		answer, err = b.useTool(ctx, messages, choice)
		if err != nil {
			return "", err
		}
	}

	if strings.TrimSpace(answer) == "" {
		return "", ErrNoAnswer
	}
	b.remember(sessionID, input, answer)
	return answer, nil
}

// useTool runs the first tool call of choice. Sentinel outcomes become fixed
// phrases; a Success goes back to the model, without tools, for phrasing.
func (b *RouterBrain) useTool(ctx context.Context, messages []llms.MessageContent, choice *llms.ContentChoice) (string, error) {
	tc := choice.ToolCalls[0]
	if len(choice.ToolCalls) > 1 {
		b.Logger.Warn().Int("tool_calls", len(choice.ToolCalls)).Msg("ignoring all but the first tool call")
	}
	if tc.FunctionCall == nil {
		return PhraseInvalid, nil
	}

	name, args := tc.FunctionCall.Name, tc.FunctionCall.Arguments
	b.Logger.LogToolCall(ctx, name, args)
	start := time.Now()
	outcome := b.Registry.Execute(ctx, name, args)
	b.Logger.LogToolResult(ctx, name, outcome.Kind.String(), time.Since(start), nil)

	if outcome.Kind != tools.KindSuccess {
		return phrase(outcome), nil
	}

	var assistantParts []llms.ContentPart
	if choice.Content != "" {
		assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
	}
	assistantParts = append(assistantParts, tc)
	messages = append(messages,
		llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: assistantParts},
		llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       name,
					Content:    outcome.String(),
				},
			},
		},
	)

	final, err := b.generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if final.Content == "" {
		return outcome.Text, nil
	}
	return final.Content, nil
}

func (b *RouterBrain) generate(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentChoice, error) {
	resp, err := b.Model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrNoAnswer
	}
	choice := resp.Choices[0]
	b.Logger.LogLLM(ctx, messages, choice.Content, choice.ToolCalls)
	return choice, nil
}

func (b *RouterBrain) remember(sessionID, input, answer string) {
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
