package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("RORICHAT_HOME", home)
	t.Setenv("RORICHAT_BASE_URL", "")
	t.Setenv("RORICHAT_ROLE", "")
	return home
}

func TestLoadCreatesDefault(t *testing.T) {
	home := withHome(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "default", cfg.ActiveProfile)
	assert.True(t, cfg.IsValid())
	assert.Equal(t, "http://localhost:8080", cfg.GetBaseURL())
	assert.Equal(t, DefaultRole, cfg.GetRole())
	assert.Equal(t, 30*time.Millisecond, cfg.GetTypingInterval())
	assert.Zero(t, cfg.GetRequestTimeout())
	assert.FileExists(t, filepath.Join(home, ".rorichat", "config.json"))
}

func TestSaveRoundTrip(t *testing.T) {
	withHome(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.Profiles["work"] = Profile{BaseURL: "http://chat.internal", Role: "coder", RequestTimeoutS: 20}
	cfg.ActiveProfile = "work"
	require.NoError(t, cfg.Save())

	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://chat.internal", cfg.GetBaseURL())
	assert.Equal(t, "coder", cfg.GetRole())
	assert.Equal(t, 20*time.Second, cfg.GetRequestTimeout())
}

func TestMissingActiveProfileFallsBack(t *testing.T) {
	home := withHome(t)
	path := filepath.Join(home, ".rorichat", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{
		"profiles": {"b": {"base_url": "http://b"}, "a": {"base_url": "http://a"}},
		"active_profile": "gone"
	}`), 0600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.ActiveProfile)
	assert.Equal(t, "http://a", cfg.GetBaseURL())
}

func TestNoProfilesIsAnError(t *testing.T) {
	home := withHome(t)
	path := filepath.Join(home, ".rorichat", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`{"profiles": {}}`), 0600))

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "no profiles defined")
}

func TestEnvOverrides(t *testing.T) {
	withHome(t)
	t.Setenv("RORICHAT_BASE_URL", "http://override")
	t.Setenv("RORICHAT_ROLE", "pm")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://override", cfg.GetBaseURL())
	assert.Equal(t, "pm", cfg.GetRole())

	t.Setenv("RORICHAT_ROLE", "pirate")
	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultRole, cfg.GetRole())
}

func TestSetRoleValidates(t *testing.T) {
	withHome(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.NoError(t, cfg.SetRole("scholar"))
	assert.Equal(t, "scholar", cfg.GetRole())
	assert.Error(t, cfg.SetRole("pirate"))
}

func TestPaths(t *testing.T) {
	home := withHome(t)

	state, err := StatePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".rorichat", "state.db"), state)

	logs, err := LogPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".rorichat", "logs", "rorichat.log"), logs)
}
