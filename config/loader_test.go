package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/trackflow/runid"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trackflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_DefaultsWithoutFile(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "offline", cfg.Provider)
	assert.Equal(t, "file", cfg.Store.Type)
	assert.Equal(t, "https://api.wandb.ai", cfg.WandB.BaseURL)
	assert.Equal(t, 10, cfg.Rollout.SaveEvery)
}

func TestLoader_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "offline", cfg.Provider)
}

func TestLoader_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
provider: wandb
run:
  project: experiments
  tags:
    - rl
    - ppo
wandb:
  api_key: file-key
  entity: team-a
  timeout: 45s
store:
  type: redis
  redis:
    addr: redis.internal:6379
`)

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "wandb", cfg.Provider)
	assert.Equal(t, "experiments", cfg.Run.Project)
	assert.Equal(t, []string{"rl", "ppo"}, cfg.Run.Tags)
	assert.Equal(t, "file-key", cfg.WandB.APIKey)
	assert.Equal(t, 45*time.Second, cfg.WandB.Timeout)
	assert.Equal(t, "redis", cfg.Store.Type)
	assert.Equal(t, "redis.internal:6379", cfg.Store.Redis.Addr)

	// 未覆盖的字段保留默认值
	assert.Equal(t, "trackflow:runid:", cfg.Store.Redis.KeyPrefix)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := writeConfigFile(t, `
provider: wandb
wandb:
  api_key: file-key
`)

	t.Setenv("TRACKFLOW_WANDB_API_KEY", "env-key")
	t.Setenv("TRACKFLOW_PROVIDER", "mlflow")
	t.Setenv("TRACKFLOW_MLFLOW_TRACKING_URI", "http://mlflow.internal:5000")
	t.Setenv("TRACKFLOW_ROLLOUT_SAMPLES_PER_BATCH", "128")
	t.Setenv("TRACKFLOW_JOURNAL_ENABLED", "false")
	t.Setenv("TRACKFLOW_VIEWER_POLL_INTERVAL", "250ms")
	t.Setenv("TRACKFLOW_RUN_TAGS", "a, b,c")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "mlflow", cfg.Provider)
	assert.Equal(t, "env-key", cfg.WandB.APIKey)
	assert.Equal(t, "http://mlflow.internal:5000", cfg.MLflow.TrackingURI)
	assert.Equal(t, 128, cfg.Rollout.SamplesPerBatch)
	assert.False(t, cfg.Journal.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Viewer.PollInterval)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Run.Tags)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_PROVIDER", "mlflow")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, "mlflow", cfg.Provider)
}

func TestLoader_ValidatorRejects(t *testing.T) {
	path := writeConfigFile(t, "provider: nonsense\n")

	_, err := NewLoader().
		WithConfigPath(path).
		WithValidator((*Config).Validate).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestLoader_MalformedYAMLFails(t *testing.T) {
	path := writeConfigFile(t, "provider: [unclosed\n")

	_, err := NewLoader().WithConfigPath(path).Load()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Store.Type = "etcd"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Rollout.Enabled = true
	cfg.Rollout.Path = ""
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Telemetry.SampleRate = 2.0
	require.Error(t, cfg.Validate())
}

func TestConvert_StoreConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Type = "redis"
	cfg.Store.Redis.Addr = "example:6379"

	storeCfg := cfg.Store.ToStoreConfig()
	assert.Equal(t, runid.StoreTypeRedis, storeCfg.Type)
	assert.Equal(t, "example:6379", storeCfg.Redis.Addr)
	assert.Equal(t, "trackflow:runid:", storeCfg.Redis.KeyPrefix)
}

func TestConvert_RunConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Run.Project = "demo"
	cfg.Run.Entity = "team"
	cfg.Run.Tags = []string{"x"}

	runCfg := cfg.Run.ToRunConfig()
	assert.Equal(t, "demo", runCfg.Project)
	assert.Equal(t, "team", runCfg.Entity)
	assert.Equal(t, []string{"x"}, runCfg.Tags)
	require.NoError(t, runCfg.Validate())
}
