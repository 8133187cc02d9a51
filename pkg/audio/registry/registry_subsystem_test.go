package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

type dummySubsystemFactoryLow struct{}

func (dummySubsystemFactoryLow) Name() string { return "low" }
func (dummySubsystemFactoryLow) NewSubsystem() (types.Subsystem, error) {
	return nil, nil
}

type dummySubsystemFactoryHigh struct{}

func (*dummySubsystemFactoryHigh) Name() string { return "high" }
func (*dummySubsystemFactoryHigh) NewSubsystem() (types.Subsystem, error) {
	return nil, nil
}

type dummySubsystemFactoryNameClash struct{}

func (dummySubsystemFactoryNameClash) Name() string { return "low" }
func (dummySubsystemFactoryNameClash) NewSubsystem() (types.Subsystem, error) {
	return nil, nil
}

func TestRegistry(t *testing.T) {
	RegisterSubsystemFactory(1, dummySubsystemFactoryLow{})
	RegisterSubsystemFactory(10, &dummySubsystemFactoryHigh{})

	factories := SubsystemFactories()
	require.Len(t, factories, 2)
	require.Equal(t, "high", factories[0].Name())
	require.Equal(t, "low", factories[1].Name())

	entries := Entries()
	require.Len(t, entries, 2)
	require.Equal(t, 10, entries[0].Priority)
	require.Equal(t, 1, entries[1].Priority)

	factory, err := SubsystemFactoryByName("low")
	require.NoError(t, err)
	require.IsType(t, dummySubsystemFactoryLow{}, factory)

	_, err = SubsystemFactoryByName("nope")
	require.Error(t, err)

	require.Panics(t, func() {
		RegisterSubsystemFactory(5, &dummySubsystemFactoryLow{})
	})
	require.Panics(t, func() {
		RegisterSubsystemFactory(5, dummySubsystemFactoryNameClash{})
	})
}
