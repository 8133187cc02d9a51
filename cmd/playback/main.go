package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/audiorender/internal/cli"
	"github.com/xaionaro-go/audiorender/pkg/audio/playback"
	"github.com/xaionaro-go/audiorender/pkg/audio/source"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"
)

func main() {
	flags := cli.RegisterFlags()
	sampleRate := pflag.Uint32("raw-sample-rate", 48000, "sample rate of a raw float32le input")
	channels := pflag.Uint16("raw-channels", 2, "channel count of a raw float32le input")
	pflag.Parse()

	cfg, err := flags.Config()
	cli.AssertNoError(err)
	ctx, err := flags.Init(cfg)
	cli.AssertNoError(err)
	defer belt.Flush(ctx)

	if *flags.ListBackends {
		cli.ListBackends(ctx, os.Stdout, *flags.ProbeBackends)
		return
	}

	if pflag.NArg() != 1 {
		panic("expected exactly one positional argument: path to an .ogg/.mp3 file or to a raw float32le file")
	}
	filePath := pflag.Arg(0)
	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()

	logger.Infof(ctx, "starting...")
	file, err := os.Open(filePath)
	cli.AssertNoError(err)
	defer file.Close()
	rc := datacounter.NewReaderCounter(file)

	var src *source.Source
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ogg", ".oga":
		src, err = source.Vorbis(rc)
		cli.AssertNoError(err)
	case ".mp3":
		src, err = source.MP3(rc)
		cli.AssertNoError(err)
	default:
		src = source.RawFloat32(rc, types.SampleRate(*sampleRate), types.Channel(*channels))
	}
	logger.Debugf(ctx, "input format: %s", src)

	client, err := cli.OpenClient(ctx, cfg)
	cli.AssertNoError(err)
	defer client.Close()

	r, err := source.ConvertFor(client, src)
	cli.AssertNoError(err)

	observability.Go(ctx, func(ctx context.Context) {
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Debugf(ctx, "read: %d bytes, padding: %d frames", rc.Count(), client.CurrentPadding(ctx))
			}
		}
	})

	client.Start(ctx)
	frames, err := playback.Pump(ctx, client, r)
	logger.Infof(ctx, "queued %d frames", frames)
	if err != nil {
		logger.Errorf(ctx, "playback interrupted: %v", err)
	} else if err := playback.Drain(ctx, client); err != nil {
		logger.Errorf(ctx, "unable to drain: %v", err)
	}
	client.Stop(ctx)
	cli.AssertNoError(client.Close())
}
