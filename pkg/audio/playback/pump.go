package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
)

const minPollInterval = time.Millisecond

var ErrNotStarted = errors.New("the playback is not started")

func (c *Client) pollInterval() time.Duration {
	sampleRate := c.SampleRate()
	if sampleRate == 0 {
		return minPollInterval
	}
	bufferDuration := time.Duration(float64(c.BufferFrameCount()) / float64(sampleRate) * float64(time.Second))
	return max(bufferDuration/4, minPollInterval)
}

// Pump reads whole frames from the reader and writes them to the client
// as fast as the device consumes them. It returns the amount of frames
// written when the reader is exhausted, the context is cancelled, or
// a write fails. A trailing incomplete frame is dropped.
func Pump(
	ctx context.Context,
	c *Client,
	r io.Reader,
) (_ret int64, _err error) {
	logger.Debugf(ctx, "Pump")
	defer func() { logger.Debugf(ctx, "/Pump: %d %v", _ret, _err) }()

	frameSize := c.FrameSize()
	if frameSize == 0 {
		return 0, ErrClosed
	}

	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()

	buf := make([]byte, c.BufferFrameCount()*frameSize)
	var (
		pending []byte
		total   int64
		eof     bool
	)
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		if len(pending) == 0 {
			if eof {
				return total, nil
			}
			n, err := io.ReadFull(r, buf)
			switch {
			case err == nil:
			case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
				eof = true
			default:
				return total, fmt.Errorf("unable to read: %w", err)
			}
			pending = buf[:n-n%int(frameSize)]
			continue
		}

		written, err := c.WriteBuffer(ctx, pending, uint32(len(pending))/frameSize)
		if err != nil {
			return total, fmt.Errorf("unable to write to the device: %w", err)
		}
		total += int64(written)
		pending = pending[written*int(frameSize):]
		if len(pending) == 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain waits until the device has played everything queued.
func Drain(
	ctx context.Context,
	c *Client,
) (_err error) {
	logger.Debugf(ctx, "Drain")
	defer func() { logger.Debugf(ctx, "/Drain: %v", _err) }()

	ticker := time.NewTicker(c.pollInterval())
	defer ticker.Stop()
	for {
		if c.CurrentPadding(ctx) == 0 {
			return nil
		}
		if state := c.State(); state != StateStarted {
			return fmt.Errorf("%w (state: %s)", ErrNotStarted, state)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
