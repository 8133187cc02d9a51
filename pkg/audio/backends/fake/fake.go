// Package fake is an in-memory audio platform. It records every handle it
// hands out and can be told to fail at any step, which makes it suitable
// for exercising the acquisition and teardown paths of a playback client.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

const Name = "fake"

var (
	ErrInjected   = errors.New("injected failure")
	ErrNotStopped = errors.New("the session is not stopped")
	ErrTooLarge   = errors.New("requested more frames than available")
	ErrNotGranted = errors.New("releasing more frames than granted")
)

// FailPoint selects the platform call that misbehaves.
type FailPoint uint

const (
	FailNone = FailPoint(iota)
	FailInit
	FailDeviceEnumerator
	FailDefaultRenderEndpoint
	FailActivateSession
	FailMixFormat
	FailInitialize
	FailBufferSize
	FailRenderClient
	FailGetBuffer
	FailReleaseBuffer
	FailCurrentPadding
	FailStart
	FailStop
)

func (p FailPoint) String() string {
	switch p {
	case FailNone:
		return "none"
	case FailInit:
		return "init"
	case FailDeviceEnumerator:
		return "device_enumerator"
	case FailDefaultRenderEndpoint:
		return "default_render_endpoint"
	case FailActivateSession:
		return "activate_session"
	case FailMixFormat:
		return "mix_format"
	case FailInitialize:
		return "initialize"
	case FailBufferSize:
		return "buffer_size"
	case FailRenderClient:
		return "render_client"
	case FailGetBuffer:
		return "get_buffer"
	case FailReleaseBuffer:
		return "release_buffer"
	case FailCurrentPadding:
		return "current_padding"
	case FailStart:
		return "start"
	case FailStop:
		return "stop"
	default:
		return fmt.Sprintf("fail_point_%d", uint(p))
	}
}

type Config struct {
	WaveFormat types.WaveFormat

	// BufferFrames overrides the buffer capacity; when zero it is derived
	// from the requested buffer duration and the sample rate.
	BufferFrames uint32

	// FailAt makes the selected call return ErrInjected (or a zero buffer
	// size for FailBufferSize).
	FailAt FailPoint

	// NilAt makes the selected call return a nil handle without an error.
	NilAt FailPoint

	// ConsumePerPadding is the amount of frames the simulated hardware
	// consumes on each padding query while the session is started.
	ConsumePerPadding uint32
}

func DefaultConfig() Config {
	return Config{
		WaveFormat: types.WaveFormat{
			FormatTag:     types.FormatTagPCM,
			Channels:      2,
			SamplesPerSec: 48000,
			BitsPerSample: 16,
		},
	}
}

type Subsystem struct {
	Config Config

	locker         sync.Mutex
	initCalls      int
	live           map[string]struct{}
	releaseOrder   []string
	doubleReleases []string
	shareMode      types.ShareMode
	bufferDuration time.Duration
	bufferFrames   uint32
	padding        uint32
	started        bool
	startCalls     int
	stopCalls      int
	granted        uint32
	buffer         []byte
	written        []byte
}

var _ types.Subsystem = (*Subsystem)(nil)

func NewSubsystem(cfg Config) *Subsystem {
	return &Subsystem{
		Config: cfg,
		live:   map[string]struct{}{},
	}
}

func (s *Subsystem) fail(p FailPoint) error {
	if s.Config.FailAt == p {
		return fmt.Errorf("%w at %s", ErrInjected, p)
	}
	return nil
}

func (s *Subsystem) acquire(name string) {
	s.live[name] = struct{}{}
}

func (s *Subsystem) release(name string) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if _, ok := s.live[name]; !ok {
		s.doubleReleases = append(s.doubleReleases, name)
		return
	}
	delete(s.live, name)
	s.releaseOrder = append(s.releaseOrder, name)
}

func (s *Subsystem) Init(ctx context.Context) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.initCalls++
	return s.fail(FailInit)
}

func (s *Subsystem) NewDeviceEnumerator(ctx context.Context) (types.DeviceEnumerator, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if err := s.fail(FailDeviceEnumerator); err != nil {
		return nil, err
	}
	if s.Config.NilAt == FailDeviceEnumerator {
		return nil, nil
	}
	s.acquire(HandleEnumerator)
	return &enumerator{s}, nil
}

// Handle names as reported by Live and ReleaseOrder.
const (
	HandleEnumerator   = "enumerator"
	HandleEndpoint     = "endpoint"
	HandleSession      = "session"
	HandleMixFormat    = "mix_format"
	HandleRenderClient = "render_client"
)

type enumerator struct{ *Subsystem }

func (e *enumerator) Release() { e.release(HandleEnumerator) }

func (e *enumerator) DefaultRenderEndpoint(ctx context.Context) (types.Endpoint, error) {
	e.locker.Lock()
	defer e.locker.Unlock()
	if err := e.fail(FailDefaultRenderEndpoint); err != nil {
		return nil, err
	}
	if e.Config.NilAt == FailDefaultRenderEndpoint {
		return nil, nil
	}
	e.acquire(HandleEndpoint)
	return &endpoint{e.Subsystem}, nil
}

type endpoint struct{ *Subsystem }

func (e *endpoint) Release() { e.release(HandleEndpoint) }

func (e *endpoint) ActivateSession(ctx context.Context) (types.SessionClient, error) {
	e.locker.Lock()
	defer e.locker.Unlock()
	if err := e.fail(FailActivateSession); err != nil {
		return nil, err
	}
	if e.Config.NilAt == FailActivateSession {
		return nil, nil
	}
	e.acquire(HandleSession)
	return &session{e.Subsystem}, nil
}

type mixFormat struct {
	*Subsystem
	waveFormat types.WaveFormat
}

func (f *mixFormat) Release() { f.release(HandleMixFormat) }

func (f *mixFormat) WaveFormat() types.WaveFormat {
	return f.waveFormat
}

type session struct{ *Subsystem }

var _ types.SessionClient = (*session)(nil)

func (s *session) Release() { s.release(HandleSession) }

func (s *session) MixFormat(ctx context.Context) (types.MixFormat, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if err := s.fail(FailMixFormat); err != nil {
		return nil, err
	}
	if s.Config.NilAt == FailMixFormat {
		return nil, nil
	}
	s.acquire(HandleMixFormat)
	return &mixFormat{Subsystem: s.Subsystem, waveFormat: s.Config.WaveFormat}, nil
}

func (s *session) Initialize(
	ctx context.Context,
	shareMode types.ShareMode,
	bufferDuration time.Duration,
	format types.MixFormat,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	if err := s.fail(FailInitialize); err != nil {
		return err
	}
	s.shareMode = shareMode
	s.bufferDuration = bufferDuration
	s.bufferFrames = s.Config.BufferFrames
	if s.bufferFrames == 0 {
		s.bufferFrames = uint32(bufferDuration.Seconds() * float64(format.WaveFormat().SamplesPerSec))
	}
	s.buffer = make([]byte, s.bufferFrames*format.WaveFormat().BlockAlign())
	return nil
}

func (s *session) BufferSize(ctx context.Context) (uint32, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.Config.FailAt == FailBufferSize {
		return 0, nil
	}
	return s.bufferFrames, nil
}

func (s *session) RenderClient(ctx context.Context) (types.RenderClient, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if err := s.fail(FailRenderClient); err != nil {
		return nil, err
	}
	if s.Config.NilAt == FailRenderClient {
		return nil, nil
	}
	s.acquire(HandleRenderClient)
	return &renderClient{s.Subsystem}, nil
}

func (s *session) CurrentPadding(ctx context.Context) (uint32, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if err := s.fail(FailCurrentPadding); err != nil {
		return 0, err
	}
	if s.started {
		s.padding -= min(s.padding, s.Config.ConsumePerPadding)
	}
	return s.padding, nil
}

func (s *session) Start(ctx context.Context) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.startCalls++
	if err := s.fail(FailStart); err != nil {
		return err
	}
	if s.started {
		return ErrNotStopped
	}
	s.started = true
	return nil
}

func (s *session) Stop(ctx context.Context) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.stopCalls++
	if err := s.fail(FailStop); err != nil {
		return err
	}
	s.started = false
	return nil
}

type renderClient struct{ *Subsystem }

func (r *renderClient) Release() { r.release(HandleRenderClient) }

func (r *renderClient) GetBuffer(ctx context.Context, frames uint32) ([]byte, error) {
	r.locker.Lock()
	defer r.locker.Unlock()
	if err := r.fail(FailGetBuffer); err != nil {
		return nil, err
	}
	if frames > r.bufferFrames-r.padding {
		return nil, fmt.Errorf("%w: %d > %d-%d", ErrTooLarge, frames, r.bufferFrames, r.padding)
	}
	r.granted = frames
	return r.buffer[:frames*r.Config.WaveFormat.BlockAlign()], nil
}

func (r *renderClient) ReleaseBuffer(ctx context.Context, frames uint32, flags types.BufferFlags) error {
	r.locker.Lock()
	defer r.locker.Unlock()
	if err := r.fail(FailReleaseBuffer); err != nil {
		return err
	}
	if frames > r.granted {
		return fmt.Errorf("%w: %d > %d", ErrNotGranted, frames, r.granted)
	}
	data := r.buffer[:frames*r.Config.WaveFormat.BlockAlign()]
	if flags&types.BufferFlagSilent != 0 {
		clear(data)
	}
	r.written = append(r.written, data...)
	r.padding += frames
	r.granted = 0
	return nil
}

// Live returns the names of the handles that are acquired and not released yet.
func (s *Subsystem) Live() []string {
	s.locker.Lock()
	defer s.locker.Unlock()
	result := make([]string, 0, len(s.live))
	for name := range s.live {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func (s *Subsystem) ReleaseOrder() []string {
	s.locker.Lock()
	defer s.locker.Unlock()
	return append([]string(nil), s.releaseOrder...)
}

func (s *Subsystem) DoubleReleases() []string {
	s.locker.Lock()
	defer s.locker.Unlock()
	return append([]string(nil), s.doubleReleases...)
}

func (s *Subsystem) InitCalls() int {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.initCalls
}

func (s *Subsystem) ShareMode() types.ShareMode {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.shareMode
}

func (s *Subsystem) BufferDuration() time.Duration {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.bufferDuration
}

func (s *Subsystem) SetPadding(frames uint32) {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.padding = frames
}

// Consume simulates the hardware playing out the given amount of frames.
func (s *Subsystem) Consume(frames uint32) {
	s.locker.Lock()
	defer s.locker.Unlock()
	s.padding -= min(s.padding, frames)
}

func (s *Subsystem) Written() []byte {
	s.locker.Lock()
	defer s.locker.Unlock()
	return append([]byte(nil), s.written...)
}

func (s *Subsystem) IsStarted() bool {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.started
}

func (s *Subsystem) StartCalls() int {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.startCalls
}

func (s *Subsystem) StopCalls() int {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.stopCalls
}

// Factory builds a fresh Subsystem on each call; it is not registered
// automatically.
type Factory struct {
	Config Config
}

func (Factory) Name() string {
	return Name
}

func (f Factory) NewSubsystem() (types.Subsystem, error) {
	return NewSubsystem(f.Config), nil
}
