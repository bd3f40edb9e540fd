package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rahul/bdask/internal/guard"
	"github.com/rahul/bdask/internal/observability"
)

// Delegate answers a natural-language question against one dataset,
// typically by translating it to SQL and running it.
type Delegate interface {
	Answer(ctx context.Context, question string) (string, error)
}

// DelegateFunc adapts a function to Delegate.
type DelegateFunc func(ctx context.Context, question string) (string, error)

func (f DelegateFunc) Answer(ctx context.Context, question string) (string, error) {
	return f(ctx, question)
}

// DatasetTool answers questions about one allow-listed table.
type DatasetTool struct {
	key         string
	table       string
	description string
	input       *guard.InputGuard
	sql         *guard.SQLGuard
	delegate    Delegate
	log         *observability.Logger
}

func (d *DatasetTool) Name() string {
	return d.key + "_db_tool"
}

func (d *DatasetTool) Description() string {
	return d.description
}

func (d *DatasetTool) Parameters() map[string]any {
	return queryParameters("The user's question about " + d.key + ", in natural language")
}

// Key returns the dataset key the tool is bound to.
func (d *DatasetTool) Key() string {
	return d.key
}

// Answer screens query, checks the table binding and forwards the query
// unchanged to the delegate. Every failure is Invalid.
func (d *DatasetTool) Answer(ctx context.Context, query string) Outcome {
	start := time.Now()
	d.log.LogToolCall(ctx, d.Name(), query)

	if v := d.input.Check(query); !v.Allowed() {
		d.log.LogGuardCheck(ctx, "input", false, v.Reason)
		d.log.LogToolResult(ctx, d.Name(), SentinelInvalid, time.Since(start), nil)
		return Invalid()
	}

	if v := d.sql.Check(guard.Probe(d.table), []string{d.table}); !v.Allowed() {
		d.log.LogGuardCheck(ctx, "table_binding", false, v.Reason)
		d.log.LogToolResult(ctx, d.Name(), SentinelInvalid, time.Since(start), nil)
		return Invalid()
	}

	text, err := d.call(ctx, query)
	if err != nil {
		d.log.LogToolResult(ctx, d.Name(), SentinelInvalid, time.Since(start), err)
		return Invalid()
	}

	out := normalize(text)
	d.log.LogToolResult(ctx, d.Name(), out.Kind.String(), time.Since(start), nil)
	return out
}

func (d *DatasetTool) call(ctx context.Context, query string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delegate panic: %v", r)
		}
	}()
	return d.delegate.Answer(ctx, query)
}

func normalize(text string) Outcome {
	switch {
	case strings.Contains(text, SentinelInvalid):
		return Invalid()
	case strings.Contains(text, SentinelEmpty), strings.TrimSpace(text) == "":
		return Empty()
	default:
		return Success(text)
	}
}
