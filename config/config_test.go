package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/statement-viz/config"
	"github.com/warp/statement-viz/viz"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", "")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr())
	assert.Equal(t, "statements.db", cfg.Storage.Path)
	assert.Equal(t, viz.DefaultOptions(), cfg.Viz.Options())
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	// GIVEN
	path := writeFile(t, "config.toml", `
[server]
port = 9090
shutdown_timeout = "5s"

[storage]
path = ":memory:"

[viz]
label_share_threshold = 10.0
reconcile_residual = true
`)

	// WHEN
	cfg, err := config.Load(path, "")

	// THEN
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout.Std())
	assert.Equal(t, ":memory:", cfg.Storage.Path)
	assert.Equal(t, 10.0, cfg.Viz.Options().LabelShareThreshold)
	assert.True(t, cfg.Viz.ReconcileResidual)
	assert.Equal(t, viz.DefaultBridgeTolerance, cfg.Viz.BridgeTolerance)
}

func TestLoad_EnvOverridesTOML(t *testing.T) {
	path := writeFile(t, "config.toml", "[server]\nport = 9090\n")
	t.Setenv("STATEMENTVIZ_SERVER_PORT", "7070")
	t.Setenv("STATEMENTVIZ_SERVER_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("STATEMENTVIZ_DATA_IMPORT_ON_START", "false")

	cfg, err := config.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Data.ImportOnStart)
}

func TestLoad_DotEnvFile(t *testing.T) {
	// .env values land in the process environment; clear them afterwards
	t.Setenv("STATEMENTVIZ_DATA_DIR", "")
	require.NoError(t, os.Unsetenv("STATEMENTVIZ_DATA_DIR"))
	envFile := writeFile(t, ".env", "STATEMENTVIZ_DATA_DIR=/srv/companies\n")

	cfg, err := config.Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "/srv/companies", cfg.Data.Dir)
}

func TestLoad_MissingDotEnvIsIgnored(t *testing.T) {
	_, err := config.Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{name: "bad toml", toml: "[server\nport = 1"},
		{name: "port out of range", toml: "[server]\nport = 70000\n"},
		{name: "unknown log level", toml: "[logging]\nlevel = \"loud\"\n"},
		{name: "threshold above 100", toml: "[viz]\nlabel_share_threshold = 150.0\n"},
		{name: "bad import schedule", toml: "[data]\nimport_schedule = \"every tuesday\"\n"},
		{name: "bad env int", env: map[string]string{"STATEMENTVIZ_SERVER_PORT": "http"}},
		{name: "bad env bool", env: map[string]string{"STATEMENTVIZ_VIZ_RECONCILE_RESIDUAL": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := ""
			if tt.toml != "" {
				path = writeFile(t, "config.toml", tt.toml)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.Load(path, "")
			assert.Error(t, err)
		})
	}
}

func TestLoad_ImportSchedule(t *testing.T) {
	path := writeFile(t, "config.toml", "[data]\nimport_schedule = \"*/15 * * * *\"\n")
	t.Setenv("STATEMENTVIZ_DATA_IMPORT_SCHEDULE", "0 6 * * 1-5")

	cfg, err := config.Load(path, "")

	require.NoError(t, err)
	assert.Equal(t, "0 6 * * 1-5", cfg.Data.ImportSchedule)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"), "")
	assert.Error(t, err)
}
