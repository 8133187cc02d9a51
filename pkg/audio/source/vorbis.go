package source

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

// Vorbis decodes an Ogg Vorbis stream.
func Vorbis(r io.Reader) (*Source, error) {
	oggReader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}
	return RawFloat32(
		newReaderFromFloat32Reader(oggReader),
		types.SampleRate(oggReader.SampleRate()),
		types.Channel(oggReader.Channels()),
	), nil
}
