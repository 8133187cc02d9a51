package source

import (
	"io"
	"math"
	"time"

	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

type sine struct {
	frequency  float64
	amplitude  float32
	sampleRate types.SampleRate
	channels   types.Channel
	frames     uint64
	position   uint64
}

func (s *sine) Read(p []float32) (int, error) {
	if s.position >= s.frames || s.channels == 0 {
		return 0, io.EOF
	}
	channels := int(s.channels)
	frames := min(uint64(len(p)/channels), s.frames-s.position)
	for i := uint64(0); i < frames; i++ {
		t := float64(s.position+i) / float64(s.sampleRate)
		v := s.amplitude * float32(math.Sin(2*math.Pi*s.frequency*t))
		for c := 0; c < channels; c++ {
			p[int(i)*channels+c] = v
		}
	}
	s.position += frames
	return int(frames) * channels, nil
}

// Sine generates a tone of the given frequency and duration.
func Sine(
	frequency float64,
	amplitude float32,
	duration time.Duration,
	sampleRate types.SampleRate,
	channels types.Channel,
) *Source {
	return RawFloat32(newReaderFromFloat32Reader(&sine{
		frequency:  frequency,
		amplitude:  amplitude,
		sampleRate: sampleRate,
		channels:   channels,
		frames:     uint64(duration.Seconds() * float64(sampleRate)),
	}), sampleRate, channels)
}
