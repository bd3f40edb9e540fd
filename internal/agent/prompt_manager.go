package agent

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rahul/bdask/internal/tools"
)

//go:embed prompts/*.md
var defaultPrompts embed.FS

const (
	routerPromptFile = "router.md"
	sqlPromptFile    = "sql.md"
	userPromptFile   = "user.md"
)

// PromptManager loads prompts from Directory, falling back to the built-in
// copies for any file the directory does not provide.
type PromptManager struct {
	Directory string
}

func NewPromptManager(dir string) *PromptManager {
	return &PromptManager{Directory: dir}
}

func (pm *PromptManager) read(name string) (string, error) {
	if pm.Directory != "" {
		data, err := os.ReadFile(filepath.Join(pm.Directory, name))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read prompt %s: %w", name, err)
		}
	}
	data, err := defaultPrompts.ReadFile("prompts/" + name)
	if err != nil {
		return "", fmt.Errorf("read prompt %s: %w", name, err)
	}
	return string(data), nil
}

// GetRouterPrompt returns router.md, then the operator's user.md if the
// directory has one, then the descriptions of ts.
func (pm *PromptManager) GetRouterPrompt(ts []tools.Tool) (string, error) {
	base, err := pm.read(routerPromptFile)
	if err != nil {
		return "", err
	}
	contents := []string{strings.TrimSpace(base)}

	if pm.Directory != "" {
		if data, err := os.ReadFile(filepath.Join(pm.Directory, userPromptFile)); err == nil {
			contents = append(contents, strings.TrimSpace(string(data)))
		}
	}

	var toolDescriptions []string
	for _, t := range ts {
		toolDescriptions = append(toolDescriptions, fmt.Sprintf("- %s: %s", t.Name(), t.Description()))
	}
	if len(toolDescriptions) > 0 {
		contents = append(contents, "## Available Tools:\n"+strings.Join(toolDescriptions, "\n"))
	}

	return strings.Join(contents, "\n\n---\n\n"), nil
}

// GetSQLPrompt returns the NL->SQL template. It is a Go template over
// dialect, top_k, table_info and input.
func (pm *PromptManager) GetSQLPrompt() (string, error) {
	return pm.read(sqlPromptFile)
}
