package tools

import (
	"fmt"
	"sort"

	"github.com/rahul/bdask/internal/guard"
	"github.com/rahul/bdask/internal/observability"
)

// Allowlist maps a dataset key to the single table it may reference.
type Allowlist map[string]string

// Table returns the table bound to key.
func (a Allowlist) Table(key string) (string, bool) {
	t, ok := a[key]
	return t, ok && t != ""
}

// Tables returns every allow-listed table, sorted.
func (a Allowlist) Tables() []string {
	out := make([]string, 0, len(a))
	for _, t := range a {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Toolkit holds everything adapters share: the allow-list, the guards and
// their thresholds. Adapters are built from it rather than from globals.
type Toolkit struct {
	Allowlist       Allowlist
	Input           *guard.InputGuard
	SQL             *guard.SQLGuard
	SearchMaxLength int
	Logger          *observability.Logger
}

func (k *Toolkit) logger() *observability.Logger {
	if k.Logger == nil {
		return observability.Nop()
	}
	return k.Logger
}

// NewDatasetTool binds delegate to the dataset key. The key must be in the
// allow-list.
func (k *Toolkit) NewDatasetTool(key, description string, delegate Delegate) (*DatasetTool, error) {
	table, ok := k.Allowlist.Table(key)
	if !ok {
		return nil, fmt.Errorf("dataset %q is not allow-listed", key)
	}
	if delegate == nil {
		return nil, fmt.Errorf("dataset %q: nil delegate", key)
	}
	input := k.Input
	if input == nil {
		input = guard.DefaultInputGuard()
	}
	sql := k.SQL
	if sql == nil {
		sql = guard.NewSQLGuard(nil)
	}
	return &DatasetTool{
		key:         key,
		table:       table,
		description: description,
		input:       input,
		sql:         sql,
		delegate:    delegate,
		log:         k.logger(),
	}, nil
}

// NewWebSearchTool wraps searcher with the configured length limit.
func (k *Toolkit) NewWebSearchTool(searcher Searcher) *WebSearchTool {
	maxLength := k.SearchMaxLength
	if maxLength <= 0 {
		maxLength = guard.DefaultMaxInputLength
	}
	return &WebSearchTool{
		searcher:  searcher,
		maxLength: maxLength,
		log:       k.logger(),
	}
}
