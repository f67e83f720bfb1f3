package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Http.Port)
	assert.Equal(t, "random_forest", cfg.Artifacts.ModelType)
	assert.Equal(t, "preprocessing_objects.json", cfg.Artifacts.ScalerPath)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Empty(t, cfg.Database.Path)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	payload := `
http:
  port: 9090
  timeout: 5s
log:
  level: debug
  format: console
artifacts:
  scaler_path: /models/scaler.json
  model_type: decision_tree
  model_path: /models/tree.json
  watch: true
database:
  path: /var/lib/obesity/history.db
cache:
  size: 16
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Http.Port)
	assert.Equal(t, 5*time.Second, cfg.Http.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "decision_tree", cfg.Artifacts.ModelType)
	assert.True(t, cfg.Artifacts.Watch)
	assert.Equal(t, "/var/lib/obesity/history.db", cfg.Database.Path)
	assert.Equal(t, 16, cfg.Cache.Size)
	// untouched keys keep their defaults
	assert.Equal(t, 3, cfg.Log.MaxBackups)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OBESITY_PORT", "7000")
	t.Setenv("OBESITY_MODEL_PATH", "/tmp/forest.json")
	t.Setenv("OBESITY_DB_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Http.Port)
	assert.Equal(t, "/tmp/forest.json", cfg.Artifacts.ModelPath)
	assert.Empty(t, cfg.Database.Path)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("OBESITY_PORT", "not-a-port")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("OBESITY_PORT", "8080")
	t.Setenv("OBESITY_MODEL_TYPE", "svm")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http: [1, 2"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}
