package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiorender/internal/config"
)

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, resolved, exists, err := config.Load(path)
	require.NoError(t, err)
	require.False(t, exists)
	require.Equal(t, path, resolved)
	require.Equal(t, config.Default(), *cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audiorender.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend = "pulseaudio"
log_level = "trace"
buffer_duration = "40ms"
`), 0o644))

	cfg, _, exists, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, "pulseaudio", cfg.Backend)
	require.Equal(t, config.Duration(40*time.Millisecond), cfg.BufferDuration)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, logger.LevelTrace, level)
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"unknown_field":     `volume = 3`,
		"bad_duration":      `buffer_duration = "soon"`,
		"negative_duration": `buffer_duration = "-1s"`,
		"bad_level":         `log_level = "loud"`,
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "audiorender.toml")
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, _, _, err := config.Load(path)
			require.Error(t, err)
		})
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "audiorender.toml")
	cfg := config.Default()
	cfg.Backend = "oto"
	require.NoError(t, cfg.Save(path))

	loaded, _, exists, err := config.Load(path)
	require.NoError(t, err)
	require.True(t, exists)
	require.Equal(t, cfg, *loaded)
}
