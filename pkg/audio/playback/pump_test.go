package playback

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiorender/pkg/audio/backends/fake"
)

func TestPump(t *testing.T) {
	ctx, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelFn()

	platform := newFake(t, func(cfg *fake.Config) {
		cfg.BufferFrames = 100
		cfg.ConsumePerPadding = 50
	})
	c := newClient(t, platform)
	c.Start(ctx)

	const frames = 1000
	data := make([]byte, frames*c.FrameSize()+3)
	for idx := range data {
		data[idx] = byte(idx * 7)
	}

	written, err := Pump(ctx, c, bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, int64(frames), written)
	require.Equal(t, data[:frames*c.FrameSize()], platform.Written())

	require.NoError(t, Drain(ctx, c))
	require.Zero(t, c.CurrentPadding(ctx))
}

func TestPumpCancel(t *testing.T) {
	platform := newFake(t, func(cfg *fake.Config) { cfg.BufferFrames = 100 })
	c := newClient(t, platform)

	// nothing consumes the buffer, so the pump has to wait for the context
	ctx, cancelFn := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancelFn()
	written, err := Pump(ctx, c, bytes.NewReader(make([]byte, 1000*c.FrameSize())))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, int64(100), written)
}

func TestPumpClosed(t *testing.T) {
	platform := newFake(t, nil)
	c := newClient(t, platform)
	require.NoError(t, c.Close())

	_, err := Pump(context.Background(), c, bytes.NewReader(make([]byte, 64)))
	require.ErrorIs(t, err, ErrClosed)
}

func TestDrainNotStarted(t *testing.T) {
	ctx := context.Background()
	platform := newFake(t, nil)
	c := newClient(t, platform)
	platform.SetPadding(10)
	require.ErrorIs(t, Drain(ctx, c), ErrNotStarted)

	platform.SetPadding(0)
	require.NoError(t, Drain(ctx, c))
}
