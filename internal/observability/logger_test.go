package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_EventsCarryTurnIDs(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Options{Level: "debug", Format: "json", Output: &buf})
	require.NoError(t, err)

	ctx := WithTurn(context.Background(), "session-1", "turn-1")
	l.LogToolCall(ctx, "hospitals_db_tool", `{"query":"beds"}`)
	l.LogToolResult(ctx, "hospitals_db_tool", "NO_DATA_FOUND", time.Millisecond, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "tool_call", lines[0]["type"])
	assert.Equal(t, "session-1", lines[0]["session_id"])
	assert.Equal(t, "turn-1", lines[0]["turn_id"])
	assert.Equal(t, "NO_DATA_FOUND", lines[1]["outcome"])
}

func TestLogger_GuardDenyIsWarn(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLogger(Options{Level: "warn", Format: "json", Output: &buf})
	require.NoError(t, err)

	ctx := context.Background()
	l.LogGuardCheck(ctx, "input", true, "ok")
	l.LogGuardCheck(ctx, "input", false, "input too long")
	l.LogToolResult(ctx, "web_search_tool", "INVALID_QUERY", 0, errors.New("boom"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, false, lines[0]["allowed"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(Options{Level: "loud"})
	assert.Error(t, err)
}

func TestLogger_LLMTranscriptRotates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "llm.jsonl")

	l, err := NewLogger(Options{Output: &bytes.Buffer{}, LLMLogPath: path, LLMLogMaxSize: 10})
	require.NoError(t, err)

	ctx := context.Background()
	l.LogLLM(ctx, "prompt one", "response one", nil)
	l.LogLLM(ctx, "prompt two", "response two", nil)

	current, err := os.ReadFile(path)
	require.NoError(t, err)
	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)

	assert.Contains(t, string(old), "response one")
	assert.Contains(t, string(current), "response two")
	assert.NotContains(t, string(current), "response one")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.LogLLM(context.Background(), "p", "r", nil)
	l.LogTurn(context.Background(), "in", "out", time.Second)
}

func TestWriteBanner(t *testing.T) {
	var buf bytes.Buffer
	writeBanner(&buf, 80, false)
	assert.Contains(t, buf.String(), "institutions / hospitals / restaurants / web")
	assert.NotContains(t, buf.String(), colorReset)
}
