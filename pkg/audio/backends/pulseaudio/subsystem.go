package pulseaudio

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
	"github.com/xaionaro-go/audiorender/pkg/audio/backends/ringsession"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

// Subsystem renders through a PulseAudio (or PipeWire-pulse) server.
// The server mixes in float32; the stream is opened with the sample rate
// and the channel count of the default sink.
type Subsystem struct{}

var _ types.Subsystem = (*Subsystem)(nil)

func NewSubsystem() *Subsystem {
	return &Subsystem{}
}

func (*Subsystem) Init(context.Context) error {
	return nil
}

func (*Subsystem) NewDeviceEnumerator(ctx context.Context) (types.DeviceEnumerator, error) {
	c, err := pulse.NewClient()
	if err != nil {
		return nil, fmt.Errorf("unable to open a client to Pulse: %w", err)
	}
	return &deviceEnumerator{PulseClient: c}, nil
}

type deviceEnumerator struct {
	PulseClient *pulse.Client
}

func (e *deviceEnumerator) Release() {
	e.PulseClient.Close()
}

func (e *deviceEnumerator) DefaultRenderEndpoint(ctx context.Context) (types.Endpoint, error) {
	sink, err := e.PulseClient.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("unable to get the default sink: %w", err)
	}
	logger.Debugf(ctx, "default sink: %s, %dHz, %dch", sink.Name(), sink.SampleRate(), sink.Channels())
	return &endpoint{PulseClient: e.PulseClient, Sink: sink}, nil
}

type endpoint struct {
	PulseClient *pulse.Client
	Sink        *pulse.Sink
}

func (*endpoint) Release() {}

func (e *endpoint) ActivateSession(ctx context.Context) (types.SessionClient, error) {
	chanMap, err := channelMap(len(e.Sink.Channels()))
	if err != nil {
		return nil, err
	}
	waveFormat := types.WaveFormat{
		FormatTag:     types.FormatTagIEEEFloat,
		Channels:      uint16(len(chanMap)),
		SamplesPerSec: uint32(e.Sink.SampleRate()),
		BitsPerSample: 32,
	}
	return ringsession.New(waveFormat, func(ctx context.Context, session *ringsession.Session) (ringsession.Sink, error) {
		stream, err := e.PulseClient.NewPlayback(
			&pulseReader{
				pulseFormat: proto.FormatFloat32LE,
				Session:     session,
			},
			pulse.PlaybackSink(e.Sink),
			pulse.PlaybackLatency(session.BufferDuration().Seconds()),
			pulse.PlaybackSampleRate(int(waveFormat.SamplesPerSec)),
			pulse.PlaybackChannels(chanMap),
		)
		if err != nil {
			return nil, fmt.Errorf("unable to initialize a playback: %w", err)
		}
		return &playbackSink{PlaybackStream: stream}, nil
	}), nil
}

// channelMap maps the sink's channel count onto what the stream is opened
// with; more than two channels are downmixed by the server.
func channelMap(channels int) (proto.ChannelMap, error) {
	switch {
	case channels <= 0:
		return nil, fmt.Errorf("the sink reports %d channels", channels)
	case channels == 1:
		return proto.ChannelMap{proto.ChannelMono}, nil
	default:
		return proto.ChannelMap{proto.ChannelLeft, proto.ChannelRight}, nil
	}
}

type pulseReader struct {
	pulseFormat byte
	*ringsession.Session
}

var _ pulse.Reader = (*pulseReader)(nil)

func (r *pulseReader) Format() byte {
	return r.pulseFormat
}

type playbackSink struct {
	*pulse.PlaybackStream
}

func (s *playbackSink) Start(context.Context) error {
	s.PlaybackStream.Start()
	if err := s.PlaybackStream.Error(); err != nil {
		return fmt.Errorf("an error occurred during playback: %w", err)
	}
	return nil
}

func (s *playbackSink) Stop(context.Context) error {
	s.PlaybackStream.Stop()
	if err := s.PlaybackStream.Error(); err != nil {
		return fmt.Errorf("an error occurred during playback: %w", err)
	}
	return nil
}

func (s *playbackSink) Close() (err error) {
	defer func() {
		r := recover()
		if r != nil {
			err = fmt.Errorf("got a panic: %v", r)
		}
	}()
	s.PlaybackStream.Stop()
	s.PlaybackStream.Close()
	return
}
