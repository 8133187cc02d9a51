package playback

import (
	"context"
	"time"
)

// DefaultBufferDuration is the buffering latency requested from the device.
const DefaultBufferDuration = 100 * time.Millisecond

type Operation string

const (
	OperationCurrentPadding = Operation("current_padding")
	OperationStart          = Operation("start")
	OperationStop           = Operation("stop")
	OperationWriteBuffer    = Operation("write_buffer")
)

// DeviceErrorHandler receives the device errors that the control operations
// do not return to their callers. It is called after the client lock is
// released, so it may call any method of the client, including Close.
type DeviceErrorHandler func(ctx context.Context, op Operation, err error)

type Config struct {
	BufferDuration         time.Duration
	AllowUnsupportedFormat bool
	DeviceErrorHandler     DeviceErrorHandler
}

func DefaultConfig() Config {
	return Config{
		BufferDuration: DefaultBufferDuration,
	}
}

type Option interface {
	apply(*Config)
}

type Options []Option

func (s Options) Config() Config {
	cfg := DefaultConfig()
	for _, opt := range s {
		opt.apply(&cfg)
	}
	return cfg
}

type OptionBufferDuration time.Duration

func (opt OptionBufferDuration) apply(cfg *Config) {
	if opt > 0 {
		cfg.BufferDuration = time.Duration(opt)
	}
}

// OptionAllowUnsupportedFormat lets construction succeed on a mix format
// that has no SampleFormat mapping; writes on such a client always fail.
type OptionAllowUnsupportedFormat bool

func (opt OptionAllowUnsupportedFormat) apply(cfg *Config) {
	cfg.AllowUnsupportedFormat = bool(opt)
}

type OptionDeviceErrorHandler DeviceErrorHandler

func (opt OptionDeviceErrorHandler) apply(cfg *Config) {
	cfg.DeviceErrorHandler = DeviceErrorHandler(opt)
}
