package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvRecognizerKey, "")

	cfg, err := load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 1024, cfg.Audio.Resolution)
	assert.Equal(t, 5*time.Second, cfg.CaptureDuration())
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 5*time.Second, cfg.StartTimeout())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv(EnvRecognizerKey, "")
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := Default()
	cfg.Audio.Device = "USB Audio"
	cfg.Audio.Resolution = 256
	cfg.Recognize.APIKey = "must-not-persist"
	require.NoError(t, cfg.save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "must-not-persist")

	loaded, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, "USB Audio", loaded.Audio.Device)
	assert.Equal(t, 256, loaded.Audio.Resolution)
	assert.Empty(t, loaded.Recognize.APIKey)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	t.Setenv(EnvRecognizerKey, "")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"audio": {"device": "Mic"}, "poll_interval_ms": 100}`), 0644))

	cfg, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, "Mic", cfg.Audio.Device)
	assert.Equal(t, 1024, cfg.Audio.Resolution)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvRecognizerKey+"=from-dotenv\n"), 0600))

	// godotenv does not override variables that are already set.
	require.NoError(t, os.Unsetenv(EnvRecognizerKey))
	t.Cleanup(func() { os.Unsetenv(EnvRecognizerKey) })

	cfg, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Recognize.APIKey)

	t.Setenv(EnvRecognizerKey, "from-env")
	cfg, err = load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Recognize.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for name, body := range map[string]string{
		"malformed":           `{"audio": `,
		"unknown mode":        `{"recognize": {"mode": "magic"}}`,
		"http no endpoint":    `{"recognize": {"mode": "http"}}`,
		"negative resolution": `{"audio": {"resolution": -1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))

			_, err := load(path)
			assert.Error(t, err)
		})
	}
}

func TestConfigPathUsesXDG(t *testing.T) {
	if filepath.Separator != '/' || os.Getenv("HOME") == "" {
		t.Skip("unix only")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)

	assert.Contains(t, Path(), filepath.Join("tunetray", "config.json"))
	assert.True(t, filepath.IsAbs(Path()))
}
