package guard

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// DefaultMaxInputLength is the longest user text, in characters, that
// reaches a model.
const DefaultMaxInputLength = 300

// DefaultInjectionPatterns matches the usual prompt-injection phrasing.
var DefaultInjectionPatterns = []string{
	`\bignore\b`,
	`\breveal\b`,
	`\bdisregard\b`,
	`\bsystem\s+prompt\b`,
	`\bprevious\s+instructions\b`,
}

// DefaultInputDenyPatterns blocks statement separators, comment markers and
// destructive statements on top of DefaultInjectionPatterns. It guards text
// headed for SQL generation.
var DefaultInputDenyPatterns = append([]string{
	`;`,
	`--`,
	`/\*`,
	`\b(drop|delete|update|insert|alter|create|pragma)\b`,
}, DefaultInjectionPatterns...)

// InputGuard rejects oversized or pattern-matching user text.
type InputGuard struct {
	MaxLength int
	deny      []*regexp.Regexp
}

// NewInputGuard compiles patterns case-insensitively. A maxLength of zero
// or less selects DefaultMaxInputLength; nil patterns select
// DefaultInputDenyPatterns.
func NewInputGuard(maxLength int, patterns []string) (*InputGuard, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxInputLength
	}
	if patterns == nil {
		patterns = DefaultInputDenyPatterns
	}

	g := &InputGuard{MaxLength: maxLength}
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, fmt.Errorf("compile input pattern %q: %w", p, err)
		}
		g.deny = append(g.deny, re)
	}
	return g, nil
}

// DefaultInputGuard returns a guard built from the package defaults.
func DefaultInputGuard() *InputGuard {
	g, err := NewInputGuard(DefaultMaxInputLength, DefaultInputDenyPatterns)
	if err != nil {
		panic(err)
	}
	return g
}

// NewRouterScreen builds the guard applied to a turn before any tool is
// chosen: the length limit and the injection phrases only, so general
// questions using words like "update" still reach web search.
func NewRouterScreen(maxLength int) (*InputGuard, error) {
	return NewInputGuard(maxLength, DefaultInjectionPatterns)
}

// Check accepts text unless it is longer than MaxLength characters or
// matches a deny pattern.
func (g *InputGuard) Check(text string) Verdict {
	if n := utf8.RuneCountInString(text); n > g.MaxLength {
		return deny(fmt.Sprintf("input too long: %d chars (max %d)", n, g.MaxLength))
	}
	for _, re := range g.deny {
		if re.MatchString(text) {
			return deny(fmt.Sprintf("input matches restricted pattern: %s", re.String()))
		}
	}
	return allow()
}
