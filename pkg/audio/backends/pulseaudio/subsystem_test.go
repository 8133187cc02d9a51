package pulseaudio

import (
	"testing"

	"github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestChannelMap(t *testing.T) {
	_, err := channelMap(0)
	require.Error(t, err)

	m, err := channelMap(1)
	require.NoError(t, err)
	require.Equal(t, proto.ChannelMap{proto.ChannelMono}, m)

	for _, channels := range []int{2, 6, 8} {
		m, err := channelMap(channels)
		require.NoError(t, err)
		require.Equal(t, proto.ChannelMap{proto.ChannelLeft, proto.ChannelRight}, m)
	}
}
