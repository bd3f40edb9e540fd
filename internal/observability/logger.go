package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypeTurn       EventType = "turn"
	EventTypeGuardCheck EventType = "guard_check"
	EventTypeToolCall   EventType = "tool_call"
	EventTypeToolResult EventType = "tool_result"
	EventTypeSQL        EventType = "sql"
	EventTypeLLM        EventType = "llm"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	turnKey
)

// WithTurn tags ctx with the session and turn ids used to correlate events.
func WithTurn(ctx context.Context, sessionID, turnID string) context.Context {
	ctx = context.WithValue(ctx, sessionKey, sessionID)
	return context.WithValue(ctx, turnKey, turnID)
}

// TurnIDs returns the ids set by WithTurn, or empty strings.
func TurnIDs(ctx context.Context) (sessionID, turnID string) {
	sessionID, _ = ctx.Value(sessionKey).(string)
	turnID, _ = ctx.Value(turnKey).(string)
	return sessionID, turnID
}

// Options configures NewLogger.
type Options struct {
	Level  string // zerolog level name, default "info"
	Format string // "console" or "json"
	Output io.Writer

	// LLMLogPath receives model transcripts as JSON lines when set.
	LLMLogPath    string
	LLMLogMaxSize int64
}

// Logger handles structured logging.
type Logger struct {
	zl  zerolog.Logger
	llm *zerolog.Logger
}

func NewLogger(opts Options) (*Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	if opts.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		lvl, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = lvl
	}

	l := &Logger{zl: zerolog.New(out).Level(level).With().Timestamp().Logger()}

	if opts.LLMLogPath != "" {
		maxSize := opts.LLMLogMaxSize
		if maxSize <= 0 {
			maxSize = 10 * 1024 * 1024 // 10MB
		}
		f := &rotatingFile{path: opts.LLMLogPath, maxSize: maxSize}
		llm := zerolog.New(f).With().Timestamp().Logger()
		l.llm = &llm
	}
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

func (l *Logger) event(ctx context.Context, e *zerolog.Event, typ EventType) *zerolog.Event {
	sessionID, turnID := TurnIDs(ctx)
	e = e.Str("type", string(typ))
	if sessionID != "" {
		e = e.Str("session_id", sessionID)
	}
	if turnID != "" {
		e = e.Str("turn_id", turnID)
	}
	return e
}

// Helper methods for common events

func (l *Logger) LogTurn(ctx context.Context, input, response string, took time.Duration) {
	l.event(ctx, l.zl.Info(), EventTypeTurn).
		Int("input_chars", len([]rune(input))).
		Int("response_chars", len([]rune(response))).
		Dur("took", took).
		Msg("turn complete")
}

func (l *Logger) LogGuardCheck(ctx context.Context, stage string, allowed bool, reason string) {
	e := l.zl.Debug()
	if !allowed {
		e = l.zl.Warn()
	}
	l.event(ctx, e, EventTypeGuardCheck).
		Str("stage", stage).
		Bool("allowed", allowed).
		Str("reason", reason).
		Msg("guard check")
}

func (l *Logger) LogToolCall(ctx context.Context, tool, args string) {
	l.event(ctx, l.zl.Info(), EventTypeToolCall).
		Str("tool", tool).
		Str("args", args).
		Msg("tool call")
}

func (l *Logger) LogToolResult(ctx context.Context, tool, outcome string, took time.Duration, err error) {
	e := l.zl.Info()
	if err != nil {
		e = l.zl.Warn().Err(err)
	}
	l.event(ctx, e, EventTypeToolResult).
		Str("tool", tool).
		Str("outcome", outcome).
		Dur("took", took).
		Msg("tool result")
}

func (l *Logger) LogSQL(ctx context.Context, dataset, sql string, allowed bool, reason string) {
	e := l.zl.Debug()
	if !allowed {
		e = l.zl.Warn()
	}
	l.event(ctx, e, EventTypeSQL).
		Str("dataset", dataset).
		Str("sql", sql).
		Bool("allowed", allowed).
		Str("reason", reason).
		Msg("sql statement")
}

// LogLLM writes a model exchange to the transcript file, if configured.
func (l *Logger) LogLLM(ctx context.Context, prompt any, response string, toolCalls any) {
	if l.llm == nil {
		return
	}
	l.event(ctx, l.llm.Log(), EventTypeLLM).
		Interface("prompt", prompt).
		Str("response", response).
		Interface("tool_calls", toolCalls).
		Send()
}

// rotatingFile appends to path and keeps one .old generation once the file
// grows past maxSize.
type rotatingFile struct {
	mu      sync.Mutex
	path    string
	maxSize int64
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return 0, fmt.Errorf("create log directory: %w", err)
	}

	// Check size before writing
	if info, err := os.Stat(r.path); err == nil && info.Size() > r.maxSize {
		r.rotate()
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return f.Write(p)
}

func (r *rotatingFile) rotate() {
	oldPath := r.path + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(r.path, oldPath)
}
