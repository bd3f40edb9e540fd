package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/term"

	"github.com/rahul/bdask/internal/agent"
	"github.com/rahul/bdask/internal/observability"
)

type lineReader interface {
	ReadLine() (string, error)
}

// Terminal is the interactive "Ask: " loop. One session per process.
type Terminal struct {
	Brain     agent.Brain
	SessionID string
	Timeout   time.Duration
	Logger    *observability.Logger

	lines   lineReader
	out     io.Writer
	policy  *bluemonday.Policy
	restore func() error
	mu      sync.Mutex
}

var _ Messenger = (*Terminal)(nil)

// NewTerminal reads lines from in and writes prompts and answers to out.
func NewTerminal(brain agent.Brain, prompt string, in io.Reader, out io.Writer) *Terminal {
	t := newTerminal(brain, out)
	t.lines = &scannerReader{sc: bufio.NewScanner(in), out: out, prompt: prompt}
	return t
}

// NewInteractiveTerminal puts stdin in raw mode and reads through a line
// editor with history. Call Stop to restore the terminal.
func NewInteractiveTerminal(brain agent.Brain, prompt string, stdin, stdout *os.File) (*Terminal, error) {
	fd := int(stdin.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw terminal: %w", err)
	}
	screen := struct {
		io.Reader
		io.Writer
	}{stdin, stdout}
	editor := term.NewTerminal(screen, prompt)
	if w, h, err := term.GetSize(fd); err == nil {
		editor.SetSize(w, h)
	}

	t := newTerminal(brain, editor)
	t.lines = editor
	t.restore = func() error { return term.Restore(fd, state) }
	return t, nil
}

func newTerminal(brain agent.Brain, out io.Writer) *Terminal {
	return &Terminal{
		Brain:     brain,
		SessionID: uuid.NewString(),
		Logger:    observability.Nop(),
		out:       out,
		policy:    bluemonday.StrictPolicy(),
	}
}

func (t *Terminal) Start(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := t.lines.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if isExit(input) {
			return nil
		}

		if err := t.Send(t.SessionID, t.turn(ctx, input)); err != nil {
			return err
		}
	}
}

func (t *Terminal) Send(_ string, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintln(t.out, text)
	return err
}

func (t *Terminal) Stop() error {
	if t.restore == nil {
		return nil
	}
	return t.restore()
}

// turn answers one input. Brain errors and panics become INVALID_QUERY.
func (t *Terminal) turn(ctx context.Context, input string) string {
	ctx = observability.WithTurn(ctx, t.SessionID, uuid.NewString())
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := t.think(ctx, input)
	if err != nil {
		t.Logger.Error().Err(err).Str("session_id", t.SessionID).Msg("turn failed")
		response = agent.PhraseInvalid
	}
	response = t.plain(response)
	t.Logger.LogTurn(ctx, input, response, time.Since(start))
	return response
}

func (t *Terminal) think(ctx context.Context, input string) (response string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("brain panic: %v", r)
		}
	}()
	return t.Brain.Think(ctx, t.SessionID, input)
}

// plain strips markup the model may have produced.
func (t *Terminal) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(t.policy.Sanitize(s)))
}

func isExit(input string) bool {
	return strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit")
}

type scannerReader struct {
	sc     *bufio.Scanner
	out    io.Writer
	prompt string
}

func (r *scannerReader) ReadLine() (string, error) {
	fmt.Fprint(r.out, r.prompt)
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.sc.Text(), nil
}

// Writer returns the writer responses go to. In interactive mode writes
// through it redraw the prompt, so logs can share the screen.
func (t *Terminal) Writer() io.Writer {
	return t.out
}
