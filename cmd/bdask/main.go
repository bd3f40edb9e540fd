package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/tools/duckduckgo"
	"golang.org/x/sync/errgroup"

	"github.com/rahul/bdask/internal/agent"
	"github.com/rahul/bdask/internal/gateway"
	"github.com/rahul/bdask/internal/guard"
	"github.com/rahul/bdask/internal/observability"
	"github.com/rahul/bdask/internal/store"
	"github.com/rahul/bdask/internal/tools"
	"github.com/rahul/bdask/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "bdask: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	observability.PrintBanner()

	// The terminal comes first so logs can be drawn above the prompt.
	var (
		term      *gateway.Terminal
		logOutput io.Writer = os.Stderr
	)
	if observability.IsTerminal(os.Stdin) {
		term, err = gateway.NewInteractiveTerminal(nil, cfg.App.Prompt, os.Stdin, os.Stdout)
		if err != nil {
			return err
		}
		defer term.Stop()
		logOutput = term.Writer()
	} else {
		term = gateway.NewTerminal(nil, cfg.App.Prompt, os.Stdin, os.Stdout)
	}

	logger, err := observability.NewLogger(observability.Options{
		Level:         cfg.Log.Level,
		Format:        cfg.Log.Format,
		Output:        logOutput,
		LLMLogPath:    cfg.Log.LLMLogPath,
		LLMLogMaxSize: cfg.Log.LLMLogMaxSize,
	})
	if err != nil {
		return err
	}

	llm, err := newModel(cfg)
	if err != nil {
		return err
	}

	inputGuard, err := guard.NewInputGuard(cfg.Guard.MaxInputLength, cfg.Guard.DenyPatterns)
	if err != nil {
		return fmt.Errorf("input guard: %w", err)
	}
	sqlGuard := guard.NewSQLGuard(cfg.Guard.SQLForbidden)

	datasets, err := openDatasets(ctx, cfg, sqlGuard, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, d := range datasets {
			d.Close()
		}
	}()

	prompts := agent.NewPromptManager(cfg.App.PromptsDir)
	sqlPrompt, err := prompts.GetSQLPrompt()
	if err != nil {
		return err
	}

	toolkit := &tools.Toolkit{
		Allowlist:       cfg.Allowlist(),
		Input:           inputGuard,
		SQL:             sqlGuard,
		SearchMaxLength: cfg.Search.MaxLength,
		Logger:          logger,
	}

	registry := tools.NewRegistry()
	for _, d := range datasets {
		sqlAgent, err := agent.NewSQLAgent(llm, d, sqlPrompt, cfg.Router.SQLTopK, sqlGuard.Forbidden())
		if err != nil {
			return fmt.Errorf("dataset %s: %w", d.Key, err)
		}
		t, err := toolkit.NewDatasetTool(d.Key, cfg.Datasets[d.Key].Description, sqlAgent)
		if err != nil {
			return err
		}
		registry.Register(t)
	}

	if cfg.SearchEnabled() {
		ddg, err := duckduckgo.New(cfg.Search.MaxResults, userAgent(cfg))
		if err != nil {
			logger.Warn().Err(err).Msg("web search disabled")
		} else {
			registry.Register(toolkit.NewWebSearchTool(ddg))
		}
	}

	history, err := store.NewHistoryStore(cfg.Memory.Path)
	if err != nil {
		return err
	}
	defer history.Close()

	brain, err := agent.NewBrain(cfg, llm, registry, history, prompts, logger)
	if err != nil {
		return err
	}
	term.Brain = brain
	term.Timeout = cfg.App.TurnTimeout
	term.Logger = logger

	logger.Info().
		Str("router", cfg.Router.Mode).
		Int("tools", len(registry.Tools())).
		Str("session_id", term.SessionID).
		Msg("ready")

	return term.Start(ctx)
}

// newModel builds the client for the default enabled provider.
func newModel(cfg *config.Config) (llms.Model, error) {
	name, p := cfg.GetDefaultProvider()
	if name == "" {
		return nil, fmt.Errorf("no enabled provider in config")
	}

	switch name {
	case "openai", "openrouter", "github":
		opts := []openai.Option{
			openai.WithToken(p.APIKey),
			openai.WithModel(p.Model),
		}
		if p.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(p.BaseURL))
		}
		return openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{
			anthropic.WithToken(p.APIKey),
			anthropic.WithModel(p.Model),
		}
		if p.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(p.BaseURL))
		}
		return anthropic.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(p.Model)}
		if p.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(p.BaseURL))
		}
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("provider %s is not supported", name)
	}
}

// openDatasets opens every allow-listed dataset concurrently, in
// config.DatasetKeys order.
func openDatasets(ctx context.Context, cfg *config.Config, g *guard.SQLGuard, logger *observability.Logger) ([]*store.Dataset, error) {
	datasets := make([]*store.Dataset, len(config.DatasetKeys))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, key := range config.DatasetKeys {
		eg.Go(func() error {
			dc := cfg.Datasets[key]
			d, err := store.OpenDataset(egCtx, key, dc.Path, dc.Table, g, logger)
			if err != nil {
				return fmt.Errorf("%w (run csv2sqlite first?)", err)
			}
			datasets[i] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		for _, d := range datasets {
			if d != nil {
				d.Close()
			}
		}
		return nil, err
	}
	return datasets, nil
}

func userAgent(cfg *config.Config) string {
	if cfg.Search.UserAgent != "" {
		return cfg.Search.UserAgent
	}
	return duckduckgo.DefaultUserAgent
}
