package main

import (
	"os"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/audiorender/internal/cli"
	"github.com/xaionaro-go/audiorender/pkg/audio/playback"
	"github.com/xaionaro-go/audiorender/pkg/audio/source"
)

func main() {
	flags := cli.RegisterFlags()
	frequency := pflag.Float64("frequency", 440, "tone frequency in Hz")
	amplitude := pflag.Float32("amplitude", 0.3, "tone amplitude, 0..1")
	duration := pflag.Duration("duration", 500*time.Millisecond, "tone duration")
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

	client, err := cli.OpenClient(ctx, cfg)
	cli.AssertNoError(err)
	defer client.Close()

	tone := source.Sine(*frequency, *amplitude, *duration, client.SampleRate(), 1)
	r, err := source.ConvertFor(client, tone)
	cli.AssertNoError(err)

	client.Start(ctx)
	frames, err := playback.Pump(ctx, client, r)
	cli.AssertNoError(err)
	logger.Debugf(ctx, "queued %d frames", frames)
	cli.AssertNoError(playback.Drain(ctx, client))
	client.Stop(ctx)
}
