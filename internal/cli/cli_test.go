package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiorender/internal/config"
)

func ptr[T any](v T) *T {
	return &v
}

func newFlags(configPath string) Flags {
	return Flags{
		ConfigPath:     ptr(configPath),
		Backend:        ptr(""),
		LogLevel:       ptr(""),
		BufferDuration: ptr(time.Duration(0)),
		NetPprofAddr:   ptr(""),
		ListBackends:   ptr(false),
		ProbeBackends:  ptr(false),
	}
}

func TestFlagsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audiorender.toml")
	require.NoError(t, os.WriteFile(path, []byte("backend = \"oto\"\nbuffer_duration = \"50ms\"\n"), 0o644))

	flags := newFlags(path)
	cfg, err := flags.Config()
	require.NoError(t, err)
	require.Equal(t, "oto", cfg.Backend)
	require.Equal(t, config.Duration(50*time.Millisecond), cfg.BufferDuration)

	*flags.Backend = "pulseaudio"
	*flags.BufferDuration = 20 * time.Millisecond
	*flags.LogLevel = "debug"
	cfg, err = flags.Config()
	require.NoError(t, err)
	require.Equal(t, "pulseaudio", cfg.Backend)
	require.Equal(t, config.Duration(20*time.Millisecond), cfg.BufferDuration)
	require.Equal(t, "debug", cfg.LogLevel)

	*flags.LogLevel = "shouting"
	_, err = flags.Config()
	require.Error(t, err)
}

func TestListBackends(t *testing.T) {
	var buf bytes.Buffer
	ListBackends(context.Background(), &buf, false)
	out := buf.String()
	for _, name := range []string{"pulseaudio", "portaudio", "malgo", "oto"} {
		require.Contains(t, out, name)
	}
}
