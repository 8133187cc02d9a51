package source

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/xaionaro-go/audiorender/pkg/audio/resampler"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

// MP3 decodes an MPEG-1/2 layer III stream; the decoder always outputs
// 16-bit stereo.
func MP3(r io.Reader) (*Source, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize an mp3 decoder: %w", err)
	}
	return &Source{
		Reader: decoder,
		Format: resampler.Format{
			Channels:   2,
			SampleRate: types.SampleRate(decoder.SampleRate()),
			PCMFormat:  types.PCMFormatS16LE,
		},
	}, nil
}
