package types

import (
	"context"
	"time"
)

// Releaser is implemented by every device handle. Release must be called
// exactly once by the owner of the handle.
type Releaser interface {
	Release()
}

type ShareMode uint

const (
	ShareModeShared = ShareMode(iota)
	ShareModeExclusive
)

func (m ShareMode) String() string {
	switch m {
	case ShareModeShared:
		return "shared"
	case ShareModeExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

type BufferFlags uint32

const (
	BufferFlagsNone  = BufferFlags(0)
	BufferFlagSilent = BufferFlags(0x2)
)

// Subsystem is the entry point into a platform audio stack.
type Subsystem interface {
	// Init prepares the audio stack for use from the calling thread.
	// Calling it again is not an error.
	Init(ctx context.Context) error
	NewDeviceEnumerator(ctx context.Context) (DeviceEnumerator, error)
}

type DeviceEnumerator interface {
	Releaser
	DefaultRenderEndpoint(ctx context.Context) (Endpoint, error)
}

type Endpoint interface {
	Releaser
	ActivateSession(ctx context.Context) (SessionClient, error)
}

// MixFormat is a device-allocated mix format. Release frees it.
type MixFormat interface {
	Releaser
	WaveFormat() WaveFormat
}

type SessionClient interface {
	Releaser
	MixFormat(ctx context.Context) (MixFormat, error)
	Initialize(
		ctx context.Context,
		shareMode ShareMode,
		bufferDuration time.Duration,
		format MixFormat,
	) error
	BufferSize(ctx context.Context) (uint32, error)
	RenderClient(ctx context.Context) (RenderClient, error)
	CurrentPadding(ctx context.Context) (uint32, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type RenderClient interface {
	Releaser

	// GetBuffer returns a writable region of the device buffer of exactly
	// frames*blockAlign bytes.
	GetBuffer(ctx context.Context, frames uint32) ([]byte, error)

	// ReleaseBuffer commits the first frames of the region returned by the
	// last GetBuffer call.
	ReleaseBuffer(ctx context.Context, frames uint32, flags BufferFlags) error
}
