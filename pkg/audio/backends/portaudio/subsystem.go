package portaudio

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/audiorender/pkg/audio/backends/ringsession"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

const maxChannels = 2

type Subsystem struct{}

var _ types.Subsystem = (*Subsystem)(nil)

func NewSubsystem() *Subsystem {
	return &Subsystem{}
}

func (*Subsystem) Init(ctx context.Context) error {
	logger.Debugf(ctx, "portaudio version: %s", portaudio.VersionText())
	return nil
}

// NewDeviceEnumerator initializes the portaudio library; the library is
// reference counted, so the enumerator terminates it on Release.
func (*Subsystem) NewDeviceEnumerator(ctx context.Context) (types.DeviceEnumerator, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to initialize portaudio: %w", err)
	}
	return &deviceEnumerator{}, nil
}

type deviceEnumerator struct{}

func (*deviceEnumerator) Release() {
	if err := portaudio.Terminate(); err != nil {
		logger.Default().Debugf("unable to terminate portaudio: %v", err)
	}
}

func (*deviceEnumerator) DefaultRenderEndpoint(ctx context.Context) (types.Endpoint, error) {
	info, err := portaudio.DefaultOutputDevice()
	if err != nil {
		return nil, fmt.Errorf("unable to get the default output device: %w", err)
	}
	logger.Debugf(ctx, "device info: %#+v", info)
	if info.MaxOutputChannels <= 0 {
		return nil, fmt.Errorf("device '%s' has no output channels", info.Name)
	}
	return &endpoint{Device: info}, nil
}

type endpoint struct {
	Device *portaudio.DeviceInfo
}

func (*endpoint) Release() {}

func (e *endpoint) waveFormat() types.WaveFormat {
	return types.WaveFormat{
		FormatTag:     types.FormatTagIEEEFloat,
		Channels:      uint16(min(e.Device.MaxOutputChannels, maxChannels)),
		SamplesPerSec: uint32(e.Device.DefaultSampleRate),
		BitsPerSample: 32,
	}
}

func (e *endpoint) ActivateSession(ctx context.Context) (types.SessionClient, error) {
	return ringsession.New(e.waveFormat(), e.openStream), nil
}

func (e *endpoint) openStream(
	ctx context.Context,
	session *ringsession.Session,
) (ringsession.Sink, error) {
	waveFormat := session.WaveFormat()
	params := portaudio.LowLatencyParameters(nil, e.Device)
	params.Output.Channels = int(waveFormat.Channels)
	params.SampleRate = float64(waveFormat.SamplesPerSec)
	logger.Debugf(ctx, "opening a stream: %dHz %dch, latency %v", waveFormat.SamplesPerSec, waveFormat.Channels, params.Output.Latency)

	stream, err := portaudio.OpenStream(params, func(out []float32) {
		if len(out) == 0 {
			return
		}
		b := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(out))), len(out)*int(unsafe.Sizeof(out[0])))
		session.Read(b)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to open the stream: %w", err)
	}
	return &streamSink{Stream: stream}, nil
}

type streamSink struct {
	*portaudio.Stream
}

func (s *streamSink) Start(context.Context) error {
	return s.Stream.Start()
}

func (s *streamSink) Stop(context.Context) error {
	return s.Stream.Stop()
}

func (s *streamSink) Close() error {
	return s.Stream.Close()
}
