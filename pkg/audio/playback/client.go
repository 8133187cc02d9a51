package playback

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/google/uuid"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

// WriteFailed is returned by WriteBuffer instead of a frame count when
// nothing could be written.
const WriteFailed = -1

// Client is a shared-mode render session on the default output device.
//
// All the methods are safe to call on a nil *Client and on a closed
// Client: queries return zero values, WriteBuffer fails, and Start, Stop
// and Close do nothing.
type Client struct {
	locker sync.Mutex
	id     uuid.UUID
	config Config
	state  State

	waveFormat       types.WaveFormat
	sampleRate       types.SampleRate
	channels         types.Channel
	format           types.SampleFormat
	bufferFrameCount uint32
	frameSize        uint32

	enumerator   types.DeviceEnumerator
	endpoint     types.Endpoint
	session      types.SessionClient
	mixFormat    types.MixFormat
	renderClient types.RenderClient
}

// New opens a render session on the default output device of the
// given subsystem. If any step fails, everything acquired up to that
// point is released and a *ConstructionError is returned.
func New(
	ctx context.Context,
	subsystem types.Subsystem,
	opts ...Option,
) (_ *Client, _err error) {
	c := &Client{
		id:     uuid.New(),
		config: Options(opts).Config(),
		state:  StateConstructing,
	}
	ctx = c.ctxWithLogger(ctx)
	logger.Debugf(ctx, "New(%T)", subsystem)
	defer func() { logger.Debugf(ctx, "/New(%T): %v", subsystem, _err) }()

	if err := c.acquire(ctx, subsystem); err != nil {
		c.release(ctx)
		return nil, err
	}

	c.state = StateReady
	logger.Debugf(ctx, "negotiated: %s -> %s/%dHz/%dch, buffer: %d frames", c.waveFormat, c.format, c.sampleRate, c.channels, c.bufferFrameCount)
	return c, nil
}

func (c *Client) ctxWithLogger(ctx context.Context) context.Context {
	return logger.CtxWithLogger(ctx, logger.FromCtx(ctx).WithField("session_id", c.id.String()))
}

func (c *Client) acquire(
	ctx context.Context,
	subsystem types.Subsystem,
) error {
	if subsystem == nil {
		return newConstructionError(StepSubsystemInit, ErrSubsystemInit, errNilHandle)
	}
	if err := subsystem.Init(ctx); err != nil {
		return newConstructionError(StepSubsystemInit, ErrSubsystemInit, err)
	}

	var err error
	c.enumerator, err = subsystem.NewDeviceEnumerator(ctx)
	if err == nil && c.enumerator == nil {
		err = errNilHandle
	}
	if err != nil {
		return newConstructionError(StepDeviceEnumerator, ErrDeviceEnumeration, err)
	}

	c.endpoint, err = c.enumerator.DefaultRenderEndpoint(ctx)
	if err == nil && c.endpoint == nil {
		err = errNilHandle
	}
	if err != nil {
		return newConstructionError(StepDefaultEndpoint, ErrNoDefaultDevice, err)
	}

	c.session, err = c.endpoint.ActivateSession(ctx)
	if err == nil && c.session == nil {
		err = errNilHandle
	}
	if err != nil {
		return newConstructionError(StepActivateSession, ErrDeviceActivation, err)
	}

	c.mixFormat, err = c.session.MixFormat(ctx)
	if err == nil && c.mixFormat == nil {
		err = errNilHandle
	}
	if err != nil {
		return newConstructionError(StepMixFormat, ErrFormatQuery, err)
	}

	c.waveFormat = c.mixFormat.WaveFormat()
	if c.waveFormat.SamplesPerSec == 0 || c.waveFormat.Channels == 0 {
		return newConstructionError(StepMixFormat, ErrFormatQuery, fmt.Errorf("invalid mix format %s", c.waveFormat))
	}
	c.sampleRate = types.SampleRate(c.waveFormat.SamplesPerSec)
	c.channels = types.Channel(c.waveFormat.Channels)

	c.format = types.SampleFormatFromWaveFormat(c.waveFormat)
	if c.format == types.SampleFormatUnsupported {
		if !c.config.AllowUnsupportedFormat {
			return newConstructionError(StepFormatTranslation, ErrUnsupportedFormat, fmt.Errorf("mix format %s", c.waveFormat))
		}
		logger.Warnf(ctx, "the mix format %s is not supported, all writes will fail", c.waveFormat)
	}
	c.frameSize = c.format.BytesPerSample() * uint32(c.channels)

	err = c.session.Initialize(ctx, types.ShareModeShared, c.config.BufferDuration, c.mixFormat)
	if err != nil {
		return newConstructionError(StepSessionInit, ErrSessionInit, err)
	}

	c.bufferFrameCount, err = c.session.BufferSize(ctx)
	if err == nil && c.bufferFrameCount == 0 {
		err = fmt.Errorf("buffer size is zero")
	}
	if err != nil {
		return newConstructionError(StepBufferSize, ErrZeroBuffer, err)
	}

	c.renderClient, err = c.session.RenderClient(ctx)
	if err == nil && c.renderClient == nil {
		err = errNilHandle
	}
	if err != nil {
		return newConstructionError(StepRenderClient, ErrRenderClient, err)
	}

	return nil
}

// release frees the handles in the order: mix format, render client,
// session, endpoint, enumerator. Every handle is released at most once.
func (c *Client) release(ctx context.Context) {
	if c.mixFormat != nil {
		logger.Tracef(ctx, "releasing the mix format")
		c.mixFormat.Release()
		c.mixFormat = nil
	}
	if c.renderClient != nil {
		logger.Tracef(ctx, "releasing the render client")
		c.renderClient.Release()
		c.renderClient = nil
	}
	if c.session != nil {
		logger.Tracef(ctx, "releasing the session")
		c.session.Release()
		c.session = nil
	}
	if c.endpoint != nil {
		logger.Tracef(ctx, "releasing the endpoint")
		c.endpoint.Release()
		c.endpoint = nil
	}
	if c.enumerator != nil {
		logger.Tracef(ctx, "releasing the enumerator")
		c.enumerator.Release()
		c.enumerator = nil
	}
	c.state = StateClosed
}

// deviceErrorReport keeps a device error until the client lock is released,
// so that the DeviceErrorHandler is free to call back into the client.
type deviceErrorReport struct {
	op  Operation
	err error
}

func (r *deviceErrorReport) set(ctx context.Context, op Operation, err error) {
	logger.Warnf(ctx, "device error during %s: %v", op, err)
	r.op, r.err = op, err
}

// notifyDeviceError must be called without c.locker held.
func (c *Client) notifyDeviceError(ctx context.Context, report *deviceErrorReport) {
	if report.err == nil || c.config.DeviceErrorHandler == nil {
		return
	}
	c.config.DeviceErrorHandler(ctx, report.op, report.err)
}

func (c *Client) ID() uuid.UUID {
	if c == nil {
		return uuid.Nil
	}
	return c.id
}

func (c *Client) State() State {
	if c == nil {
		return StateClosed
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	return c.state
}

func (c *Client) SampleRate() types.SampleRate {
	if c == nil {
		return 0
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.state == StateClosed {
		return 0
	}
	return c.sampleRate
}

func (c *Client) Channels() types.Channel {
	if c == nil {
		return 0
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.state == StateClosed {
		return 0
	}
	return c.channels
}

func (c *Client) Format() types.SampleFormat {
	if c == nil {
		return types.SampleFormatUnsupported
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.state == StateClosed {
		return types.SampleFormatUnsupported
	}
	return c.format
}

// WaveFormat returns the native mix format the session was negotiated with.
func (c *Client) WaveFormat() types.WaveFormat {
	if c == nil {
		return types.WaveFormat{}
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.state == StateClosed {
		return types.WaveFormat{}
	}
	return c.waveFormat
}

func (c *Client) BufferFrameCount() uint32 {
	if c == nil {
		return 0
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.state == StateClosed {
		return 0
	}
	return c.bufferFrameCount
}

// FrameSize is the size of one frame of the input of WriteBuffer, in bytes.
func (c *Client) FrameSize() uint32 {
	if c == nil {
		return 0
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.state == StateClosed {
		return 0
	}
	return c.frameSize
}

// CurrentPadding returns the amount of frames queued in the device buffer
// and not played yet. It returns 0 if there is no session or if the
// device could not be queried.
func (c *Client) CurrentPadding(ctx context.Context) uint32 {
	if c == nil {
		return 0
	}
	var report deviceErrorReport
	defer c.notifyDeviceError(ctx, &report)
	c.locker.Lock()
	defer c.locker.Unlock()
	padding, err := c.currentPadding(ctx)
	if err != nil {
		report.set(ctx, OperationCurrentPadding, err)
		return 0
	}
	return padding
}

func (c *Client) currentPadding(ctx context.Context) (uint32, error) {
	if c.session == nil {
		return 0, nil
	}
	return c.session.CurrentPadding(ctx)
}

// AvailableFrames returns how many frames WriteBuffer would accept right now.
func (c *Client) AvailableFrames(ctx context.Context) uint32 {
	if c == nil {
		return 0
	}
	var report deviceErrorReport
	defer c.notifyDeviceError(ctx, &report)
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.renderClient == nil {
		return 0
	}
	padding, err := c.currentPadding(ctx)
	if err != nil {
		report.set(ctx, OperationCurrentPadding, err)
		return 0
	}
	return c.bufferFrameCount - min(padding, c.bufferFrameCount)
}

// WriteBuffer copies up to `frames` frames from `data` into the device
// buffer and returns how many were committed. It never writes more than
// the device has free space for, so the caller must be ready to resubmit
// the remainder. On failure it returns WriteFailed and the reason.
func (c *Client) WriteBuffer(
	ctx context.Context,
	data []byte,
	frames uint32,
) (_ret int, _err error) {
	if c == nil {
		return WriteFailed, ErrClosed
	}
	ctx = c.ctxWithLogger(ctx)
	logger.Tracef(ctx, "WriteBuffer(%d bytes, %d frames)", len(data), frames)
	defer func() { logger.Tracef(ctx, "/WriteBuffer(%d bytes, %d frames): %d %v", len(data), frames, _ret, _err) }()
	var report deviceErrorReport
	defer c.notifyDeviceError(ctx, &report)
	c.locker.Lock()
	defer c.locker.Unlock()

	if c.renderClient == nil {
		return WriteFailed, ErrClosed
	}
	if c.frameSize == 0 {
		return WriteFailed, fmt.Errorf("%w: %s", ErrUnsupportedFormat, c.waveFormat)
	}

	padding, err := c.currentPadding(ctx)
	if err != nil {
		report.set(ctx, OperationWriteBuffer, err)
		return WriteFailed, fmt.Errorf("%w: unable to get the padding: %w", ErrBufferUnavailable, err)
	}
	free := c.bufferFrameCount - min(padding, c.bufferFrameCount)
	supplied := uint32(min(uint64(len(data))/uint64(c.frameSize), math.MaxUint32))
	request := min(free, frames, supplied)
	if request == 0 {
		return 0, nil
	}

	buf, err := c.renderClient.GetBuffer(ctx, request)
	if err == nil && buf == nil {
		err = errNilHandle
	}
	if err != nil {
		report.set(ctx, OperationWriteBuffer, err)
		return WriteFailed, fmt.Errorf("%w: %w", ErrBufferUnavailable, err)
	}

	count := request * c.frameSize
	if count > uint32(len(buf)) {
		logger.Warnf(ctx, "the device granted %d bytes instead of %d", len(buf), count)
		request = uint32(len(buf)) / c.frameSize
		count = request * c.frameSize
	}
	copy(buf[:count], data[:count])

	if err := c.renderClient.ReleaseBuffer(ctx, request, types.BufferFlagsNone); err != nil {
		report.set(ctx, OperationWriteBuffer, err)
		return WriteFailed, fmt.Errorf("%w: %w", ErrBufferCommit, err)
	}
	return int(request), nil
}

// Start starts the playback of the queued frames. Device errors are
// reported to the DeviceErrorHandler and otherwise ignored.
func (c *Client) Start(ctx context.Context) {
	if c == nil {
		return
	}
	ctx = c.ctxWithLogger(ctx)
	var report deviceErrorReport
	defer c.notifyDeviceError(ctx, &report)
	c.locker.Lock()
	defer c.locker.Unlock()

	switch c.state {
	case StateReady, StateStopped:
	default:
		logger.Debugf(ctx, "Start: nothing to do in state %s", c.state)
		return
	}

	if err := c.session.Start(ctx); err != nil {
		report.set(ctx, OperationStart, err)
		return
	}
	c.state = StateStarted
}

// Stop pauses the playback; the queued frames stay in the device buffer.
// Device errors are reported to the DeviceErrorHandler and otherwise ignored.
func (c *Client) Stop(ctx context.Context) {
	if c == nil {
		return
	}
	ctx = c.ctxWithLogger(ctx)
	var report deviceErrorReport
	defer c.notifyDeviceError(ctx, &report)
	c.locker.Lock()
	defer c.locker.Unlock()

	if c.state != StateStarted {
		logger.Debugf(ctx, "Stop: nothing to do in state %s", c.state)
		return
	}

	if err := c.session.Stop(ctx); err != nil {
		report.set(ctx, OperationStop, err)
		return
	}
	c.state = StateStopped
}

// Close releases the device session immediately, without waiting for
// the queued frames to be played. It always returns nil.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.locker.Lock()
	defer c.locker.Unlock()
	if c.state == StateClosed {
		return nil
	}
	ctx := c.ctxWithLogger(context.Background())
	logger.Debugf(ctx, "Close")
	c.release(ctx)
	return nil
}
