package tools

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rahul/bdask/internal/observability"
)

// Searcher runs a web search. *duckduckgo.Tool satisfies it.
type Searcher interface {
	Call(ctx context.Context, query string) (string, error)
}

// WebSearchTool answers general-knowledge questions from a web search.
type WebSearchTool struct {
	searcher  Searcher
	maxLength int
	log       *observability.Logger
}

func (s *WebSearchTool) Name() string {
	return "web_search_tool"
}

func (s *WebSearchTool) Description() string {
	return "Use only for general knowledge questions such as: policy, definitions, cultural context."
}

func (s *WebSearchTool) Parameters() map[string]any {
	return queryParameters("The search query to look up")
}

// Answer returns the search text verbatim; an overlong query or a failed
// search is Invalid.
func (s *WebSearchTool) Answer(ctx context.Context, query string) Outcome {
	start := time.Now()
	s.log.LogToolCall(ctx, s.Name(), query)

	if n := utf8.RuneCountInString(query); n > s.maxLength {
		s.log.LogGuardCheck(ctx, "search_length", false, fmt.Sprintf("query too long: %d chars (max %d)", n, s.maxLength))
		s.log.LogToolResult(ctx, s.Name(), SentinelInvalid, time.Since(start), nil)
		return Invalid()
	}

	res, err := s.call(ctx, query)
	if err != nil {
		s.log.LogToolResult(ctx, s.Name(), SentinelInvalid, time.Since(start), err)
		return Invalid()
	}

	s.log.LogToolResult(ctx, s.Name(), KindSuccess.String(), time.Since(start), nil)
	return Success(res)
}

func (s *WebSearchTool) call(ctx context.Context, query string) (res string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search panic: %v", r)
		}
	}()
	res, err = s.searcher.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	return res, nil
}
