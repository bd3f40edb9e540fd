package guard

import (
	"fmt"
	"strings"
)

// DefaultSQLForbidden lists substrings that disqualify a statement no matter
// where they appear, string literals included.
var DefaultSQLForbidden = []string{
	"insert",
	"update",
	"delete",
	"drop",
	"alter",
	"create",
	"pragma",
	"attach",
	"detach",
	";",
}

// SQLGuard restricts statements to single SELECTs over permitted tables.
// Matching is by substring on the lower-cased text; it is a heuristic and
// does not parse SQL.
type SQLGuard struct {
	forbidden []string
}

// NewSQLGuard builds a guard over the given forbidden substrings, or
// DefaultSQLForbidden when nil.
func NewSQLGuard(forbidden []string) *SQLGuard {
	if forbidden == nil {
		forbidden = DefaultSQLForbidden
	}
	g := &SQLGuard{}
	for _, f := range forbidden {
		g.forbidden = append(g.forbidden, strings.ToLower(f))
	}
	return g
}

// Forbidden returns the forbidden substrings, lower-cased.
func (g *SQLGuard) Forbidden() []string {
	return append([]string(nil), g.forbidden...)
}

// Check accepts sql iff it starts with select, contains no forbidden
// substring and mentions at least one of tables.
func (g *SQLGuard) Check(sql string, tables []string) Verdict {
	text := strings.ToLower(strings.TrimSpace(sql))

	if !strings.HasPrefix(text, "select") {
		return deny("only SELECT statements are allowed")
	}
	for _, f := range g.forbidden {
		if strings.Contains(text, f) {
			return deny(fmt.Sprintf("statement contains forbidden token %q", f))
		}
	}
	for _, t := range tables {
		if t != "" && strings.Contains(text, strings.ToLower(t)) {
			return allow()
		}
	}
	return deny("statement references no permitted table")
}

// Probe is the synthetic statement used to self-check a dataset binding.
func Probe(table string) string {
	return "select * from " + table
}
