package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/rahul/bdask/internal/observability"
	"github.com/rahul/bdask/internal/store"
	"github.com/rahul/bdask/pkg/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	csvDir := flag.String("csv", "csv_files", "directory holding <dataset>.csv files")
	dbDir := flag.String("db", "", "write <dataset>.db files here instead of the configured paths")
	flag.Parse()

	logger, err := observability.NewLogger(observability.Options{Level: "info", Format: "console"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error().Err(err).Msg("load config")
		os.Exit(1)
	}

	targets := importTargets(cfg, *csvDir, *dbDir)
	if err := importAll(context.Background(), targets); err != nil {
		logger.Error().Err(err).Msg("import failed")
		os.Exit(1)
	}
	for _, t := range targets {
		fmt.Printf("Created %s (table %s, %d rows)\n", t.DBPath, t.Table, t.Rows)
	}
}

// target is one CSV -> SQLite conversion.
type target struct {
	Key     string
	CSVPath string
	DBPath  string
	Table   string
	Rows    int
}

// importTargets resolves each dataset's CSV source and the database file and
// table bdask will open. A non-empty dbDir replaces the configured directory.
func importTargets(cfg *config.Config, csvDir, dbDir string) []*target {
	var out []*target
	for _, key := range config.DatasetKeys {
		dc := cfg.Datasets[key]
		dbPath := dc.Path
		if dbDir != "" {
			dbPath = filepath.Join(dbDir, filepath.Base(dc.Path))
		}
		out = append(out, &target{
			Key:     key,
			CSVPath: filepath.Join(csvDir, key+".csv"),
			DBPath:  dbPath,
			Table:   dc.Table,
		})
	}
	return out
}

func importAll(ctx context.Context, targets []*target) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range targets {
		g.Go(func() error {
			n, err := store.ImportFile(ctx, t.CSVPath, t.DBPath, t.Table)
			t.Rows = n
			return err
		})
	}
	return g.Wait()
}
