// Package source provides PCM producers for feeding a playback client.
package source

import (
	"fmt"
	"io"

	"github.com/xaionaro-go/audiorender/pkg/audio/playback"
	"github.com/xaionaro-go/audiorender/pkg/audio/resampler"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

// Source is an interleaved PCM stream of a known format.
type Source struct {
	io.Reader
	Format resampler.Format
}

func (s *Source) String() string {
	return s.Format.String()
}

// ClientFormat returns the format the client expects in WriteBuffer.
func ClientFormat(c *playback.Client) (resampler.Format, error) {
	if c == nil || c.State() == playback.StateClosed {
		return resampler.Format{}, playback.ErrClosed
	}
	return resampler.FormatFromWaveFormat(c.WaveFormat())
}

// ConvertFor returns a reader producing the source in the format of the
// client. If the formats already match the source reader is returned as is.
func ConvertFor(c *playback.Client, src *Source) (io.Reader, error) {
	outFormat, err := ClientFormat(c)
	if err != nil {
		return nil, fmt.Errorf("unable to get the client format: %w", err)
	}
	if outFormat == src.Format {
		return src.Reader, nil
	}
	r, err := resampler.NewResampler(src.Format, src.Reader, outFormat)
	if err != nil {
		return nil, fmt.Errorf("unable to convert %s to %s: %w", src.Format, outFormat, err)
	}
	return r, nil
}

// RawFloat32 wraps a reader of interleaved float32le samples.
func RawFloat32(
	r io.Reader,
	sampleRate types.SampleRate,
	channels types.Channel,
) *Source {
	return &Source{
		Reader: r,
		Format: resampler.Format{
			Channels:   channels,
			SampleRate: sampleRate,
			PCMFormat:  types.PCMFormatFloat32LE,
		},
	}
}
