package malgo

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gen2brain/malgo"
	"github.com/xaionaro-go/audiorender/pkg/audio/backends/ringsession"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

// miniaudio converts to the device format itself, so the session always
// mixes in this one.
const (
	SampleRate = types.SampleRate(48000)
	Channels   = types.Channel(2)
)

type Subsystem struct{}

var _ types.Subsystem = (*Subsystem)(nil)

func NewSubsystem() *Subsystem {
	return &Subsystem{}
}

func (*Subsystem) Init(context.Context) error {
	return nil
}

func (*Subsystem) NewDeviceEnumerator(ctx context.Context) (types.DeviceEnumerator, error) {
	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Tracef(ctx, "miniaudio: %s", message)
	})
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a miniaudio context: %w", err)
	}
	return &deviceEnumerator{MalgoCtx: malgoCtx}, nil
}

type deviceEnumerator struct {
	MalgoCtx *malgo.AllocatedContext
}

func (e *deviceEnumerator) Release() {
	if err := e.MalgoCtx.Uninit(); err != nil {
		logger.Default().Debugf("unable to uninit the miniaudio context: %v", err)
	}
	e.MalgoCtx.Free()
}

func (e *deviceEnumerator) DefaultRenderEndpoint(ctx context.Context) (types.Endpoint, error) {
	devices, err := e.MalgoCtx.Context.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("unable to list playback devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no playback devices")
	}
	for _, dev := range devices {
		if dev.IsDefault != 0 {
			logger.Debugf(ctx, "default playback device: %s", dev.Name())
			return &endpoint{MalgoCtx: e.MalgoCtx, Device: &dev}, nil
		}
	}
	// some backends do not mark the default device; miniaudio then picks
	// it itself when no device ID is given
	logger.Debugf(ctx, "no playback device is marked as default, using the system default")
	return &endpoint{MalgoCtx: e.MalgoCtx}, nil
}

type endpoint struct {
	MalgoCtx *malgo.AllocatedContext
	Device   *malgo.DeviceInfo
}

func (*endpoint) Release() {}

func (e *endpoint) ActivateSession(ctx context.Context) (types.SessionClient, error) {
	waveFormat := types.WaveFormat{
		FormatTag:     types.FormatTagIEEEFloat,
		Channels:      uint16(Channels),
		SamplesPerSec: uint32(SampleRate),
		BitsPerSample: 32,
	}
	return ringsession.New(waveFormat, e.openDevice), nil
}

func (e *endpoint) openDevice(
	ctx context.Context,
	session *ringsession.Session,
) (ringsession.Sink, error) {
	waveFormat := session.WaveFormat()
	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(waveFormat.Channels)
	cfg.SampleRate = waveFormat.SamplesPerSec
	cfg.PeriodSizeInMilliseconds = uint32(session.BufferDuration().Milliseconds() / 4)
	if e.Device != nil {
		cfg.Playback.DeviceID = e.Device.ID.Pointer()
	}

	device, err := malgo.InitDevice(e.MalgoCtx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			session.Read(out)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to initialize the playback device: %w", err)
	}
	return &deviceSink{Device: device}, nil
}

type deviceSink struct {
	*malgo.Device
}

func (s *deviceSink) Start(context.Context) error {
	return s.Device.Start()
}

func (s *deviceSink) Stop(context.Context) error {
	return s.Device.Stop()
}

func (s *deviceSink) Close() error {
	s.Device.Uninit()
	return nil
}
