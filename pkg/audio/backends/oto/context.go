package oto

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

// oto allows only one context per process, so the mix format is fixed.
const (
	SampleRate = types.SampleRate(48000)
	Channels   = types.Channel(2)
	Format     = oto.FormatFloat32LE
)

var (
	otoContext     *oto.Context
	otoContextErr  error
	otoContextOnce sync.Once
)

func getOtoContext() (*oto.Context, error) {
	otoContextOnce.Do(func() {
		ctx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   int(SampleRate),
			ChannelCount: int(Channels),
			Format:       Format,
		})
		if err != nil {
			otoContextErr = fmt.Errorf("unable to initialize an oto context: %w", err)
			return
		}
		<-readyChan
		otoContext = ctx
	})
	return otoContext, otoContextErr
}

func mixFormat() types.WaveFormat {
	return types.WaveFormat{
		FormatTag:     types.FormatTagIEEEFloat,
		Channels:      uint16(Channels),
		SamplesPerSec: uint32(SampleRate),
		BitsPerSample: 32,
	}
}
