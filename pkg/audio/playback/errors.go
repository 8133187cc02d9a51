package playback

import (
	"errors"
	"fmt"
)

// Construction error kinds. A failed New returns a *ConstructionError that
// matches exactly one of them with errors.Is.
var (
	ErrSubsystemInit     = errors.New("unable to initialize the audio subsystem")
	ErrDeviceEnumeration = errors.New("unable to create a device enumerator")
	ErrNoDefaultDevice   = errors.New("no default render device")
	ErrDeviceActivation  = errors.New("unable to activate a session on the device")
	ErrFormatQuery       = errors.New("unable to query the mix format")
	ErrUnsupportedFormat = errors.New("unsupported mix format")
	ErrSessionInit       = errors.New("unable to initialize the session")
	ErrZeroBuffer        = errors.New("the device reported an empty buffer")
	ErrRenderClient      = errors.New("unable to get the render client")
)

// Run-time errors returned by WriteBuffer alongside WriteFailed.
var (
	ErrClosed            = errors.New("the playback client is closed")
	ErrBufferUnavailable = errors.New("unable to get the device buffer")
	ErrBufferCommit      = errors.New("unable to commit the device buffer")
)

type Step uint

const (
	StepSubsystemInit = Step(iota + 1)
	StepDeviceEnumerator
	StepDefaultEndpoint
	StepActivateSession
	StepMixFormat
	StepFormatTranslation
	StepSessionInit
	StepBufferSize
	StepRenderClient
)

func (s Step) String() string {
	switch s {
	case StepSubsystemInit:
		return "subsystem_init"
	case StepDeviceEnumerator:
		return "device_enumerator"
	case StepDefaultEndpoint:
		return "default_endpoint"
	case StepActivateSession:
		return "activate_session"
	case StepMixFormat:
		return "mix_format"
	case StepFormatTranslation:
		return "format_translation"
	case StepSessionInit:
		return "session_init"
	case StepBufferSize:
		return "buffer_size"
	case StepRenderClient:
		return "render_client"
	default:
		return fmt.Sprintf("step_%d", uint(s))
	}
}

type ConstructionError struct {
	Step Step
	Kind error
	Err  error
}

func (e *ConstructionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("step %d (%s): %v", e.Step, e.Step, e.Kind)
	}
	return fmt.Sprintf("step %d (%s): %v: %v", e.Step, e.Step, e.Kind, e.Err)
}

func (e *ConstructionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newConstructionError(step Step, kind error, err error) *ConstructionError {
	return &ConstructionError{
		Step: step,
		Kind: kind,
		Err:  err,
	}
}

var errNilHandle = errors.New("the platform returned a nil handle")
