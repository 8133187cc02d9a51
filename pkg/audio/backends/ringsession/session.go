// Package ringsession provides a shared-mode render session on top of
// audio APIs that pull samples through a callback or an io.Reader: the
// writer side fills a ring buffer through the RenderClient, and the
// backend's audio thread drains it with Read.
package ringsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/iamcalledrob/circular"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

var (
	ErrNotInitialized     = errors.New("the session is not initialized")
	ErrAlreadyInitialized = errors.New("the session is already initialized")
	ErrExclusiveMode      = errors.New("exclusive mode is not supported")
	ErrNotStopped         = errors.New("the session is not stopped")
	ErrBufferTooLarge     = errors.New("requested more frames than free in the buffer")
	ErrBufferSize         = errors.New("released more frames than requested")
	ErrReleased           = errors.New("the session is released")
)

// Sink is the backend-specific consumer of the ring buffer.
type Sink interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Close() error
}

// SinkOpener creates the consumer of the session. It is called once, from
// Initialize, when the buffer is already allocated.
type SinkOpener func(ctx context.Context, session *Session) (Sink, error)

type Session struct {
	locker         sync.Mutex
	waveFormat     types.WaveFormat
	openSink       SinkOpener
	sink           Sink
	ring           *circular.Buffer
	bufferDuration time.Duration
	frameSize      uint32
	bufferFrames   uint32
	queuedBytes    uint32
	grantedFrames  uint32
	scratch        []byte
	started        bool
	released       bool
}

var _ types.SessionClient = (*Session)(nil)

func New(
	waveFormat types.WaveFormat,
	openSink SinkOpener,
) *Session {
	return &Session{
		waveFormat: waveFormat,
		openSink:   openSink,
		frameSize:  waveFormat.BlockAlign(),
	}
}

// Release closes the sink. The sink is closed without holding the lock,
// as closing a callback-driven sink waits for the running callback, which
// may be blocked in Read.
func (s *Session) Release() {
	s.locker.Lock()
	if s.released {
		s.locker.Unlock()
		return
	}
	s.released = true
	s.started = false
	sink := s.sink
	s.sink = nil
	s.locker.Unlock()

	if sink != nil {
		if err := sink.Close(); err != nil {
			logger.Default().Debugf("unable to close the sink %T: %v", sink, err)
		}
	}
}

type mixFormat types.WaveFormat

func (mixFormat) Release() {}

func (f mixFormat) WaveFormat() types.WaveFormat {
	return types.WaveFormat(f)
}

func (s *Session) MixFormat(ctx context.Context) (types.MixFormat, error) {
	return mixFormat(s.waveFormat), nil
}

func (s *Session) Initialize(
	ctx context.Context,
	shareMode types.ShareMode,
	bufferDuration time.Duration,
	format types.MixFormat,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()
	switch {
	case s.released:
		return ErrReleased
	case s.ring != nil:
		return ErrAlreadyInitialized
	case shareMode != types.ShareModeShared:
		return fmt.Errorf("%w: %s", ErrExclusiveMode, shareMode)
	}
	if wf := format.WaveFormat(); wf != s.waveFormat {
		return fmt.Errorf("the session mixes only %s, but %s was requested", s.waveFormat, wf)
	}
	if s.frameSize == 0 {
		return fmt.Errorf("invalid mix format %s", s.waveFormat)
	}

	bufferFrames := uint32(bufferDuration.Seconds() * float64(s.waveFormat.SamplesPerSec))
	if bufferFrames == 0 {
		return fmt.Errorf("buffer duration %v is too short for %dHz", bufferDuration, s.waveFormat.SamplesPerSec)
	}
	logger.Debugf(ctx, "ring buffer: %d frames (%v) of %d bytes", bufferFrames, bufferDuration, s.frameSize)

	s.bufferDuration = bufferDuration
	s.bufferFrames = bufferFrames
	s.ring = circular.NewBuffer(int(bufferFrames * s.frameSize))
	s.scratch = make([]byte, bufferFrames*s.frameSize)

	sink, err := s.openSinkUnlocked(ctx)
	if err != nil {
		s.ring = nil
		s.scratch = nil
		return fmt.Errorf("unable to open the sink: %w", err)
	}
	s.sink = sink
	return nil
}

// openSinkUnlocked lets the opener call the session's getters.
func (s *Session) openSinkUnlocked(ctx context.Context) (Sink, error) {
	s.locker.Unlock()
	defer s.locker.Lock()
	return s.openSink(ctx, s)
}

func (s *Session) WaveFormat() types.WaveFormat {
	return s.waveFormat
}

func (s *Session) BufferDuration() time.Duration {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.bufferDuration
}

func (s *Session) BufferSize(ctx context.Context) (uint32, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.ring == nil {
		return 0, ErrNotInitialized
	}
	return s.bufferFrames, nil
}

func (s *Session) RenderClient(ctx context.Context) (types.RenderClient, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.ring == nil {
		return nil, ErrNotInitialized
	}
	return &renderClient{Session: s}, nil
}

func (s *Session) CurrentPadding(ctx context.Context) (uint32, error) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if s.ring == nil {
		return 0, ErrNotInitialized
	}
	return s.queuedFrames(), nil
}

// queuedFrames counts a frame partially consumed by Read as still queued, so
// the free space reported to writers never exceeds what the ring can take.
func (s *Session) queuedFrames() uint32 {
	return (s.queuedBytes + s.frameSize - 1) / s.frameSize
}

func (s *Session) Start(ctx context.Context) error {
	s.locker.Lock()
	switch {
	case s.released:
		s.locker.Unlock()
		return ErrReleased
	case s.sink == nil:
		s.locker.Unlock()
		return ErrNotInitialized
	case s.started:
		s.locker.Unlock()
		return ErrNotStopped
	}
	sink := s.sink
	s.started = true
	s.locker.Unlock()

	if err := sink.Start(ctx); err != nil {
		s.setStarted(false)
		return fmt.Errorf("unable to start the sink: %w", err)
	}
	return nil
}

// Stop pauses the sink; the queued frames are kept. The sink is stopped
// without holding the lock, see Release.
func (s *Session) Stop(ctx context.Context) error {
	s.locker.Lock()
	switch {
	case s.released:
		s.locker.Unlock()
		return ErrReleased
	case s.sink == nil:
		s.locker.Unlock()
		return ErrNotInitialized
	case !s.started:
		s.locker.Unlock()
		return nil
	}
	sink := s.sink
	s.started = false
	s.locker.Unlock()

	if err := sink.Stop(ctx); err != nil {
		s.setStarted(true)
		return fmt.Errorf("unable to stop the sink: %w", err)
	}
	return nil
}

func (s *Session) setStarted(started bool) {
	s.locker.Lock()
	defer s.locker.Unlock()
	if !s.released {
		s.started = started
	}
}

// Read fills p with queued samples, padding it with silence if there is not
// enough queued. It never fails and always reports len(p) bytes, as the
// audio thread calling it has to output something anyway.
//
// p does not have to be frame aligned: the remainder of a partially read
// frame stays in the ring and is returned first by the next Read.
func (s *Session) Read(p []byte) (int, error) {
	s.locker.Lock()
	defer s.locker.Unlock()

	n := 0
	if s.ring != nil && s.queuedBytes > 0 {
		var err error
		n, err = s.ring.Read(p)
		if err != nil && !errors.Is(err, io.EOF) {
			logger.Default().Errorf("unable to read from the ring buffer: %v", err)
		}
		s.queuedBytes -= min(uint32(n), s.queuedBytes)
	}
	clear(p[n:])
	return len(p), nil
}

type renderClient struct {
	*Session
}

var _ types.RenderClient = (*renderClient)(nil)

// Release of the render client does not release the session.
func (r *renderClient) Release() {}

func (r *renderClient) GetBuffer(ctx context.Context, frames uint32) ([]byte, error) {
	r.locker.Lock()
	defer r.locker.Unlock()
	if r.ring == nil {
		return nil, ErrNotInitialized
	}
	free := r.bufferFrames - r.queuedFrames()
	if frames > free {
		return nil, fmt.Errorf("%w: %d > %d", ErrBufferTooLarge, frames, free)
	}
	r.grantedFrames = frames
	return r.scratch[:frames*r.frameSize], nil
}

func (r *renderClient) ReleaseBuffer(ctx context.Context, frames uint32, flags types.BufferFlags) error {
	r.locker.Lock()
	defer r.locker.Unlock()
	if r.ring == nil {
		return ErrNotInitialized
	}
	if frames > r.grantedFrames {
		return fmt.Errorf("%w: %d > %d", ErrBufferSize, frames, r.grantedFrames)
	}
	r.grantedFrames = 0

	data := r.scratch[:frames*r.frameSize]
	if flags&types.BufferFlagSilent != 0 {
		clear(data)
	}
	w, err := r.ring.Write(data)
	r.queuedBytes += uint32(w)
	if err != nil {
		return fmt.Errorf("unable to write to the ring buffer: %w", err)
	}
	if w != len(data) {
		return fmt.Errorf("wrote %d bytes instead of %d", w, len(data))
	}
	return nil
}
