// Package resampler converts interleaved PCM between sample formats, sample
// rates and channel layouts, so that a producer can feed a playback client
// whatever format the device negotiated.
package resampler

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

const (
	distanceStep = 10000
)

type Format struct {
	Channels   types.Channel
	SampleRate types.SampleRate
	PCMFormat  types.PCMFormat
}

func (f Format) FrameSize() uint {
	return uint(f.Channels) * uint(f.PCMFormat.Size())
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", f.PCMFormat, f.SampleRate, f.Channels)
}

// FormatFromWaveFormat returns the interleaved format a device expects
// for the given mix format.
func FormatFromWaveFormat(wf types.WaveFormat) (Format, error) {
	switch wf.FormatTag {
	case types.FormatTagALaw, types.FormatTagMuLaw:
		return Format{}, fmt.Errorf("companded mix format %s is not linear PCM", wf)
	}
	sampleFormat := types.SampleFormatFromWaveFormat(wf)
	if sampleFormat == types.SampleFormatUnsupported {
		return Format{}, fmt.Errorf("unsupported mix format %s", wf)
	}
	return Format{
		Channels:   types.Channel(wf.Channels),
		SampleRate: types.SampleRate(wf.SamplesPerSec),
		PCMFormat:  sampleFormat.PCMFormat(),
	}, nil
}

func (f Format) validate() error {
	switch {
	case f.Channels == 0:
		return fmt.Errorf("zero channels")
	case f.SampleRate == 0:
		return fmt.Errorf("zero sample rate")
	case f.PCMFormat == types.PCMFormatUndefined || f.PCMFormat >= types.EndOfPCMFormat:
		return fmt.Errorf("invalid PCM format %v", f.PCMFormat)
	}
	return nil
}

type Resampler struct {
	inReader    io.Reader
	inFormat    Format
	outFormat   Format
	inDistance  uint64
	outDistance uint64
	locker      sync.Mutex
	buffer      []byte
	leftover    int
	frame       []float64
	precalculated
}

type precalculated struct {
	inSampleSize    uint
	outSampleSize   uint
	inFrameSize     uint
	outFrameSize    uint
	outDistanceStep uint64
}

var _ io.Reader = (*Resampler)(nil)

func NewResampler(
	inFormat Format,
	inReader io.Reader,
	outFormat Format,
) (*Resampler, error) {
	r := &Resampler{
		inReader:  inReader,
		inFormat:  inFormat,
		outFormat: outFormat,
	}
	err := r.init()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a resampler from %s to %s: %w", inFormat, outFormat, err)
	}
	return r, nil
}

func (r *Resampler) init() error {
	if err := r.inFormat.validate(); err != nil {
		return fmt.Errorf("invalid input format: %w", err)
	}
	if err := r.outFormat.validate(); err != nil {
		return fmt.Errorf("invalid output format: %w", err)
	}
	in, out := r.inFormat.Channels, r.outFormat.Channels
	if in != out && in != 1 && out != 1 {
		return fmt.Errorf("do not know how to convert %d channels to %d", in, out)
	}

	r.inSampleSize = uint(r.inFormat.PCMFormat.Size())
	r.outSampleSize = uint(r.outFormat.PCMFormat.Size())
	r.inFrameSize = r.inFormat.FrameSize()
	r.outFrameSize = r.outFormat.FrameSize()
	r.frame = make([]float64, out)

	sampleRateAdjust := float64(r.outFormat.SampleRate) / float64(r.inFormat.SampleRate)
	r.outDistanceStep = uint64(float64(distanceStep) / sampleRateAdjust)

	r.inDistance = 0
	r.outDistance = 0
	return nil
}

// decodeFrame reads one input frame into r.frame, mixing or duplicating
// channels as needed.
func (r *Resampler) decodeFrame(src []byte) {
	in, out := uint(r.inFormat.Channels), uint(r.outFormat.Channels)
	switch {
	case in == out:
		for c := uint(0); c < in; c++ {
			r.frame[c] = getFloat64(r.inFormat.PCMFormat, src[c*r.inSampleSize:])
		}
	case in == 1:
		v := getFloat64(r.inFormat.PCMFormat, src)
		for c := range r.frame {
			r.frame[c] = v
		}
	default:
		var sum float64
		for c := uint(0); c < in; c++ {
			sum += getFloat64(r.inFormat.PCMFormat, src[c*r.inSampleSize:])
		}
		r.frame[0] = sum / float64(in)
	}
}

func (r *Resampler) encodeFrame(dst []byte) {
	for c, v := range r.frame {
		setFloat64(r.outFormat.PCMFormat, dst[uint(c)*r.outSampleSize:], v)
	}
}

// Read fills p with whole output frames. A trailing partial input frame is
// kept until the next call.
func (r *Resampler) Read(p []byte) (int, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	maxOutFrames := uint64(len(p)) / uint64(r.outFrameSize)
	if maxOutFrames == 0 {
		return 0, nil
	}

	framesToRead := uint64(float64(maxOutFrames) * float64(r.inFormat.SampleRate) / float64(r.outFormat.SampleRate))
	if framesToRead == 0 {
		framesToRead = 1
	}
	need := int(framesToRead * uint64(r.inFrameSize))
	if cap(r.buffer) < need {
		buffer := make([]byte, need)
		copy(buffer, r.buffer[:r.leftover])
		r.buffer = buffer
	}
	r.buffer = r.buffer[:max(need, r.leftover)]

	var (
		n   int
		err error
	)
	if r.leftover < need {
		n, err = r.inReader.Read(r.buffer[r.leftover:need])
	}
	available := r.leftover + n
	framesRead := uint64(available) / uint64(r.inFrameSize)

	dstFrameIdx := uint64(0)
	srcFrameIdx := uint64(0)
	for srcFrameIdx < framesRead && dstFrameIdx < maxOutFrames {
		// skip input frames while the output is behind
		for r.inDistance < r.outDistance && srcFrameIdx < framesRead {
			srcFrameIdx++
			r.inDistance += distanceStep
		}
		if srcFrameIdx >= framesRead {
			break
		}

		r.decodeFrame(r.buffer[srcFrameIdx*uint64(r.inFrameSize):])
		for dstFrameIdx < maxOutFrames && r.outDistance <= r.inDistance {
			r.encodeFrame(p[dstFrameIdx*uint64(r.outFrameSize):])
			dstFrameIdx++
			r.outDistance += r.outDistanceStep
		}

		srcFrameIdx++
		r.inDistance += distanceStep
	}

	consumed := int(srcFrameIdx * uint64(r.inFrameSize))
	r.leftover = copy(r.buffer, r.buffer[consumed:available])
	if errors.Is(err, io.EOF) {
		switch {
		case r.leftover >= int(r.inFrameSize):
			// there are still whole frames to convert
			err = nil
		case r.leftover > 0:
			err = fmt.Errorf("the input ended in the middle of a frame: %w", io.ErrUnexpectedEOF)
		}
	}
	return int(dstFrameIdx * uint64(r.outFrameSize)), err
}
