package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "file", c.Store.Backend)
	assert.Equal(t, "data", c.Store.DataDir)
	assert.Equal(t, "Not Started", c.Tasks.NotStartedLabel)
	assert.True(t, c.Tasks.Rollback())
	assert.Equal(t, 10*time.Second, c.Server.ShutdownTimeout)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harkflow.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  shutdown_timeout: 3s
store:
  backend: sqlite
  data_dir: /var/lib/harkflow
tasks:
  not_started_label: "To Do"
  rollback_on_successor_failure: false
billing:
  default_hourly_rate: 85
`), 0o644))

	t.Setenv("HARKFLOW_ADDR", ":9100")
	t.Setenv("HARKFLOW_LLM_API_KEY", "k-123")

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", c.Server.Addr)
	assert.Equal(t, 3*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", c.Store.Backend)
	assert.Equal(t, "/var/lib/harkflow/harkflow.db", c.Store.SQLitePath)
	assert.Equal(t, "/var/lib/harkflow/uploads", c.Uploads.Dir)
	assert.Equal(t, "To Do", c.Tasks.NotStartedLabel)
	assert.False(t, c.Tasks.Rollback())
	assert.Equal(t, 85.0, c.Billing.DefaultHourlyRate)
	assert.Equal(t, "k-123", c.LLM.APIKey)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
