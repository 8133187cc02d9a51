package oto

import (
	"context"
	"fmt"

	"github.com/ebitengine/oto/v3"
	"github.com/xaionaro-go/audiorender/pkg/audio/backends/ringsession"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

type Subsystem struct {
	OtoCtx *oto.Context
}

var _ types.Subsystem = (*Subsystem)(nil)

func NewSubsystem() *Subsystem {
	return &Subsystem{}
}

func (s *Subsystem) Init(context.Context) error {
	if s.OtoCtx != nil {
		return nil
	}
	otoCtx, err := getOtoContext()
	if err != nil {
		return fmt.Errorf("unable to get an oto context: %w", err)
	}
	s.OtoCtx = otoCtx
	return nil
}

func (s *Subsystem) NewDeviceEnumerator(context.Context) (types.DeviceEnumerator, error) {
	if s.OtoCtx == nil {
		return nil, fmt.Errorf("the oto context is not initialized")
	}
	if err := s.OtoCtx.Err(); err != nil {
		return nil, fmt.Errorf("the oto context is broken: %w", err)
	}
	return &deviceEnumerator{OtoCtx: s.OtoCtx}, nil
}

// deviceEnumerator does not own the process-wide oto context.
type deviceEnumerator struct {
	OtoCtx *oto.Context
}

func (*deviceEnumerator) Release() {}

// DefaultRenderEndpoint returns the only device oto can play to.
func (e *deviceEnumerator) DefaultRenderEndpoint(context.Context) (types.Endpoint, error) {
	return &endpoint{OtoCtx: e.OtoCtx}, nil
}

type endpoint struct {
	OtoCtx *oto.Context
}

func (*endpoint) Release() {}

func (e *endpoint) ActivateSession(context.Context) (types.SessionClient, error) {
	waveFormat := mixFormat()
	return ringsession.New(waveFormat, func(ctx context.Context, session *ringsession.Session) (ringsession.Sink, error) {
		player := e.OtoCtx.NewPlayer(session)
		// keep oto's own read-ahead below the session buffer, otherwise
		// the padding would not reflect what is still to be heard
		bufferDuration := session.BufferDuration() / 2
		player.SetBufferSize(int(bufferDuration.Seconds()*float64(waveFormat.SamplesPerSec)) * int(waveFormat.BlockAlign()))
		return &playerSink{Player: player}, nil
	}), nil
}

type playerSink struct {
	*oto.Player
}

func (s *playerSink) Start(context.Context) error {
	s.Player.Play()
	return s.Player.Err()
}

func (s *playerSink) Stop(context.Context) error {
	s.Player.Pause()
	return s.Player.Err()
}

func (s *playerSink) Close() error {
	return s.Player.Close()
}
