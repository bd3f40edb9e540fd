package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/tools/sqldatabase"

	"github.com/rahul/bdask/internal/guard"
	"github.com/rahul/bdask/internal/tools"
)

var sqlPromptVariables = []string{"dialect", "top_k", "table_info", "input"}

// SQLAgent turns a question about one dataset into a single SELECT, runs it
// and phrases the rows. It satisfies tools.Delegate.
type SQLAgent struct {
	chain *chains.SQLDatabaseChain
}

// NewSQLAgent binds a SQLDatabaseChain to engine. An empty promptTemplate
// keeps the chain's built-in prompt. forbidden, the SQL guard's refused
// substrings (guard.DefaultSQLForbidden when nil), is offered to the
// template as {{.forbidden}}.
func NewSQLAgent(llm llms.Model, engine sqldatabase.Engine, promptTemplate string, topK int, forbidden []string) (*SQLAgent, error) {
	db, err := sqldatabase.NewSQLDatabase(rowCountingEngine{engine}, nil)
	if err != nil {
		return nil, fmt.Errorf("sql database: %w", err)
	}
	chain := chains.NewSQLDatabaseChain(llm, topK, db)
	if promptTemplate != "" {
		if forbidden == nil {
			forbidden = guard.DefaultSQLForbidden
		}
		tmpl := prompts.NewPromptTemplate(promptTemplate, sqlPromptVariables)
		tmpl.PartialVariables = map[string]any{
			"forbidden": strings.Join(forbidden, ", "),
		}
		chain.LLMChain.Prompt = tmpl
	}
	return &SQLAgent{chain: chain}, nil
}

// Answer returns EMPTY_RESULT whenever the final statement returned no rows,
// whatever the model wrote.
func (a *SQLAgent) Answer(ctx context.Context, question string) (string, error) {
	var rows rowCount
	ctx = context.WithValue(ctx, rowCountKey{}, &rows)

	out, err := chains.Run(ctx, a.chain, question, chains.WithTemperature(0))
	if err != nil {
		return "", err
	}
	if rows.ran && rows.n == 0 {
		return tools.SentinelEmpty, nil
	}
	return out, nil
}

type rowCountKey struct{}

type rowCount struct {
	ran bool
	n   int
}

// rowCountingEngine records the row count of the latest statement on the
// rowCount carried by the context.
type rowCountingEngine struct {
	sqldatabase.Engine
}

func (e rowCountingEngine) Query(ctx context.Context, query string, args ...any) ([]string, [][]string, error) {
	cols, rows, err := e.Engine.Query(ctx, query, args...)
	if rc, ok := ctx.Value(rowCountKey{}).(*rowCount); ok && err == nil {
		rc.ran = true
		rc.n = len(rows)
	}
	return cols, rows, err
}
