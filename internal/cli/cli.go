// Package cli contains the flag, config and logger plumbing shared by the
// commands.
package cli

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/audiorender/internal/config"
	"github.com/xaionaro-go/audiorender/pkg/audio/playback"
	"github.com/xaionaro-go/observability"

	_ "github.com/xaionaro-go/audiorender/pkg/audio/backends/malgo"
	_ "github.com/xaionaro-go/audiorender/pkg/audio/backends/oto"
	_ "github.com/xaionaro-go/audiorender/pkg/audio/backends/portaudio"
	_ "github.com/xaionaro-go/audiorender/pkg/audio/backends/pulseaudio"
	_ "github.com/xaionaro-go/audiorender/pkg/audio/backends/wasapi"
)

type Flags struct {
	ConfigPath     *string
	Backend        *string
	LogLevel       *string
	BufferDuration *time.Duration
	NetPprofAddr   *string
	ListBackends   *bool
	ProbeBackends  *bool
}

// RegisterFlags adds the common flags to the default pflag set.
func RegisterFlags() Flags {
	return Flags{
		ConfigPath:     pflag.String("config", "", "path to the TOML config (default: the user config dir)"),
		Backend:        pflag.String("backend", "", "audio backend to use (default: the first one that works)"),
		LogLevel:       pflag.String("log-level", "", "log level"),
		BufferDuration: pflag.Duration("buffer-duration", 0, "the requested device buffer duration"),
		NetPprofAddr:   pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections"),
		ListBackends:   pflag.Bool("list-backends", false, "print the registered audio backends and exit"),
		ProbeBackends:  pflag.Bool("probe-backends", false, "with --list-backends: open every backend to show its mix format"),
	}
}

// Config loads the config file and applies the flags given explicitly on
// top of it.
func (f Flags) Config() (*config.Config, error) {
	cfg, _, _, err := config.Load(*f.ConfigPath)
	if err != nil {
		return nil, err
	}
	if *f.Backend != "" {
		cfg.Backend = *f.Backend
	}
	if *f.LogLevel != "" {
		cfg.LogLevel = *f.LogLevel
	}
	if *f.BufferDuration != 0 {
		cfg.BufferDuration = config.Duration(*f.BufferDuration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init builds the logger and puts it into the context.
func (f Flags) Init(cfg *config.Config) (context.Context, error) {
	loggerLevel, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}

	if *f.NetPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*f.NetPprofAddr, nil)) })
	}
	return ctx, nil
}

// OpenClient opens a playback client on the configured backend.
func OpenClient(ctx context.Context, cfg *config.Config) (*playback.Client, error) {
	opts := playback.Options{
		playback.OptionBufferDuration(cfg.BufferDuration),
		playback.OptionDeviceErrorHandler(func(ctx context.Context, op playback.Operation, err error) {
			logger.Errorf(ctx, "device error on %s: %v", op, err)
		}),
	}
	var (
		c   *playback.Client
		err error
	)
	if cfg.Backend == "" {
		c, err = playback.NewAuto(ctx, opts...)
	} else {
		c, err = playback.NewByName(ctx, cfg.Backend, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open a playback client: %w", err)
	}
	logger.Infof(ctx, "opened a playback client %s: %s, buffer %d frames", c.ID(), c.WaveFormat(), c.BufferFrameCount())
	return c, nil
}

func AssertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
