package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyHark/HarkFlowV2-sub000/internal/billing"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/model"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/serverapp"
	"github.com/AndyHark/HarkFlowV2-sub000/internal/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func seed(t *testing.T, dataDir string) {
	t.Helper()
	ctx := context.Background()
	b, err := store.NewFileBackend(dataDir)
	require.NoError(t, err)
	c := serverapp.NewCollections(b)

	acme, err := c.Clients.Create(ctx, model.Client{Name: "Acme"})
	require.NoError(t, err)
	_, err = c.Retainers.Create(ctx, model.Retainer{ClientID: acme.ID, MonthlyHours: 2, HourlyRate: 100, IsActive: true})
	require.NoError(t, err)
	mins := 180.0
	_, err = c.TimeEntries.Create(ctx, model.TimeEntry{
		ClientID:        acme.ID,
		UserEmail:       "ann@x.com",
		StartTime:       time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local),
		DurationMinutes: &mins,
		HourlyRate:      60,
	})
	require.NoError(t, err)
}

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harkflow.yml")
	body := "store:\n  backend: file\n  data_dir: " + dataDir + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReportMonthly(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	seed(t, dataDir)
	cfgPath := writeConfig(t, dataDir)

	out, err := run(t, "--config", cfgPath, "report", "monthly", "--month", "2024-05")
	require.NoError(t, err)
	assert.Contains(t, out, "Month 2024-05")
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "300.00")

	var buf bytes.Buffer
	require.NoError(t, printMonthly(&buf, billing.MonthlyReport{Month: "2024-06", Clients: []billing.ClientReport{{ClientName: "Solo", Hours: 1.5}}}))
	assert.Contains(t, buf.String(), "Solo")
}

func TestBackupAndRestore(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	seed(t, dataDir)
	cfgPath := writeConfig(t, dataDir)
	archive := filepath.Join(t.TempDir(), "b.tar.gz")

	out, err := run(t, "--config", cfgPath, "backup", "--out", archive)
	require.NoError(t, err)
	assert.Contains(t, out, archive)

	target := filepath.Join(t.TempDir(), "restored")
	_, err = run(t, "--config", cfgPath, "restore", "--archive", archive, "--target-dir", target)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "clients.json"))

	restoreArchive = ""
	_, err = run(t, "--config", cfgPath, "restore")
	assert.Error(t, err)
}
