package playback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiorender/pkg/audio/backends/fake"
	"github.com/xaionaro-go/audiorender/pkg/audio/registry"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

type brokenFactory struct{}

func (brokenFactory) Name() string { return "broken" }
func (brokenFactory) NewSubsystem() (types.Subsystem, error) {
	return nil, errors.New("no such sound server")
}

var registerFactoriesOnce sync.Once

func registerFactories() {
	registerFactoriesOnce.Do(func() {
		registry.RegisterSubsystemFactory(1000, brokenFactory{})
		registry.RegisterSubsystemFactory(1, fake.Factory{Config: fake.DefaultConfig()})
	})
}

func TestNewAuto(t *testing.T) {
	ctx := context.Background()
	registerFactories()

	c, err := NewAuto(ctx)
	require.NoError(t, err)
	require.Equal(t, types.SampleFormatSignedInt16, c.Format())
	require.NoError(t, c.Close())
	require.Equal(t, fake.Name, getLastSuccessfulSubsystemFactory().Name())

	c, err = NewByName(ctx, fake.Name, OptionBufferDuration(DefaultBufferDuration*2))
	require.NoError(t, err)
	require.Equal(t, uint32(9600), c.BufferFrameCount())
	require.NoError(t, c.Close())

	_, err = NewByName(ctx, "broken")
	require.ErrorIs(t, err, ErrSubsystemInit)

	_, err = NewByName(ctx, "nonexistent")
	require.Error(t, err)
}
