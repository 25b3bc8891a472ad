package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "assets/tablecloth", cfg.AssetDir)
	assert.Equal(t, "team-information.json", cfg.TeamsFile)
	assert.Equal(t, 95, cfg.JPEGQuality)
	assert.Equal(t, 4, cfg.LoadWorkers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Development)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TABLECLOTH_ADDR", "127.0.0.1:9000")
	t.Setenv("TABLECLOTH_JPEG_QUALITY", "80")
	t.Setenv("TABLECLOTH_DEV", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, 80, cfg.JPEGQuality)
	assert.True(t, cfg.Development)
}

func TestLoad_DotenvFile(t *testing.T) {
	// Registered so the variable is restored after godotenv sets it.
	t.Setenv("TABLECLOTH_ASSET_DIR", "")
	os.Unsetenv("TABLECLOTH_ASSET_DIR")
	t.Setenv("TABLECLOTH_LOAD_WORKERS", "2")

	path := filepath.Join(t.TempDir(), ".env")
	content := "TABLECLOTH_ASSET_DIR=/srv/asset\nTABLECLOTH_LOAD_WORKERS=8\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/asset", cfg.AssetDir)
	assert.Equal(t, 2, cfg.LoadWorkers, "environment wins over dotenv")
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"quality too high", "TABLECLOTH_JPEG_QUALITY", "101"},
		{"quality zero", "TABLECLOTH_JPEG_QUALITY", "0"},
		{"quality not a number", "TABLECLOTH_JPEG_QUALITY", "best"},
		{"no workers", "TABLECLOTH_LOAD_WORKERS", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
