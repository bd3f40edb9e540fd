package agent

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/bdask/internal/tools"
)

func TestPromptManager_Defaults(t *testing.T) {
	pm := NewPromptManager("")

	router, err := pm.GetRouterPrompt(nil)
	require.NoError(t, err)
	assert.Contains(t, router, "Never guess or fabricate data")
	assert.NotContains(t, router, "## Available Tools")

	sql, err := pm.GetSQLPrompt()
	require.NoError(t, err)
	for _, v := range sqlPromptVariables {
		assert.Contains(t, sql, "{{."+v+"}}")
	}
	assert.Contains(t, sql, "EMPTY_RESULT")
}

func TestPromptManager_GetRouterPrompt(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"router.md": "Router Content",
		"user.md":   "User Content",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	pm := NewPromptManager(dir)
	ts := []tools.Tool{
		&stubTool{name: "hospitals_db_tool", description: "Hospitals in Bangladesh."},
		&stubTool{name: "web_search_tool", description: "General knowledge."},
	}
	prompt, err := pm.GetRouterPrompt(ts)
	require.NoError(t, err)

	assert.Contains(t, prompt, "- hospitals_db_tool: Hospitals in Bangladesh.")
	assert.Contains(t, prompt, "- web_search_tool: General knowledge.")
	assert.NotContains(t, prompt, "Never guess or fabricate data")

	// Verify order
	router := strings.Index(prompt, "Router Content")
	user := strings.Index(prompt, "User Content")
	toolList := strings.Index(prompt, "## Available Tools")
	assert.Less(t, router, user)
	assert.Less(t, user, toolList)
}

func TestPromptManager_FallsBackPerFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sql.md"), []byte("custom {{.input}}"), 0644))

	pm := NewPromptManager(dir)
	sql, err := pm.GetSQLPrompt()
	require.NoError(t, err)
	assert.Equal(t, "custom {{.input}}", sql)

	router, err := pm.GetRouterPrompt(nil)
	require.NoError(t, err)
	assert.Contains(t, router, "data routing assistant")
}
