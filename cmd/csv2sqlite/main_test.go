package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/bdask/internal/store"
	"github.com/rahul/bdask/pkg/config"
)

const sampleCSV = "Name,City\nA,Dhaka\nB,Sylhet\n"

func loadConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	body := "datasets:\n" +
		"  hospitals:\n" +
		"    path: " + filepath.Join(dir, "data", "health.db") + "\n" +
		"    table: hospital_list\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	t.Chdir(dir)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func writeCSVs(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	for _, key := range config.DatasetKeys {
		require.NoError(t, os.WriteFile(filepath.Join(dir, key+".csv"), []byte(sampleCSV), 0644))
	}
}

func TestImportAll_UsesConfiguredDatasets(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, dir)
	csvDir := filepath.Join(dir, "csv")
	writeCSVs(t, csvDir)

	targets := importTargets(cfg, csvDir, "")
	require.NoError(t, importAll(context.Background(), targets))

	for _, tg := range targets {
		assert.Equal(t, 2, tg.Rows, tg.Key)
		dc := cfg.Datasets[tg.Key]
		d, err := store.OpenDataset(context.Background(), tg.Key, dc.Path, dc.Table, nil, nil)
		require.NoError(t, err, tg.Key)
		d.Close()
	}
	assert.FileExists(t, filepath.Join(dir, "data", "health.db"))
	assert.Equal(t, "hospital_list", targets[1].Table)
}

func TestImportTargets_DBDirOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, dir)

	targets := importTargets(cfg, "csv", "out")
	require.Len(t, targets, len(config.DatasetKeys))
	assert.Equal(t, filepath.Join("out", "health.db"), targets[1].DBPath)
	assert.Equal(t, filepath.Join("csv", "hospitals.csv"), targets[1].CSVPath)
	assert.Equal(t, filepath.Join("out", "institutions.db"), targets[0].DBPath)
}

func TestImportAll_MissingCSV(t *testing.T) {
	dir := t.TempDir()
	cfg := loadConfig(t, dir)

	err := importAll(context.Background(), importTargets(cfg, filepath.Join(dir, "none"), dir))
	assert.Error(t, err)
}
