package playback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiorender/pkg/audio/backends/fake"
	"github.com/xaionaro-go/audiorender/pkg/audio/handletable"
)

func TestHost(t *testing.T) {
	ctx := context.Background()
	var platforms []*fake.Subsystem
	host := NewHost(func(ctx context.Context) (*Client, error) {
		platform := fake.NewSubsystem(fake.DefaultConfig())
		platforms = append(platforms, platform)
		return New(ctx, platform)
	})

	h0, err := host.CreatePlayback(ctx)
	require.NoError(t, err)
	h1, err := host.CreatePlayback(ctx)
	require.NoError(t, err)
	require.NotEqual(t, h0, h1)
	require.Equal(t, 2, host.Len())

	c0, err := host.Playback(h0)
	require.NoError(t, err)
	require.Equal(t, StateReady, c0.State())

	require.NoError(t, host.ClosePlayback(h0))
	require.Equal(t, StateClosed, c0.State())
	require.Empty(t, platforms[0].Live())

	_, err = host.Playback(h0)
	require.ErrorIs(t, err, handletable.ErrStaleHandle)
	require.ErrorIs(t, host.ClosePlayback(h0), handletable.ErrStaleHandle)

	require.NoError(t, host.Close())
	require.Zero(t, host.Len())
	require.Empty(t, platforms[1].Live())
}

func TestHostCreateFailure(t *testing.T) {
	ctx := context.Background()
	cfg := fake.DefaultConfig()
	cfg.FailAt = fake.FailDefaultRenderEndpoint
	host := NewHost(func(ctx context.Context) (*Client, error) {
		return New(ctx, fake.NewSubsystem(cfg))
	})

	_, err := host.CreatePlayback(ctx)
	require.ErrorIs(t, err, ErrNoDefaultDevice)
	require.Zero(t, host.Len())
}

func TestAutoHostAppliesOptions(t *testing.T) {
	ctx := context.Background()
	registerFactories()
	host := NewAutoHost(OptionBufferDuration(DefaultBufferDuration * 2))
	defer host.Close()

	h, err := host.CreatePlayback(ctx)
	require.NoError(t, err)
	c, err := host.Playback(h)
	require.NoError(t, err)
	require.Equal(t, uint32(9600), c.BufferFrameCount())
}
