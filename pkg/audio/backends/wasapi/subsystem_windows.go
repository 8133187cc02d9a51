//go:build windows

package wasapi

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

const (
	hresultSFalse            = 0x00000001
	hresultRPCEChangedMode   = 0x80010106
	referenceTimeUnit        = 100 * time.Nanosecond
	audclntBufferFlagsSilent = 0x2
)

type Subsystem struct{}

var _ types.Subsystem = (*Subsystem)(nil)

func NewSubsystem() *Subsystem {
	return &Subsystem{}
}

// Init joins the multithreaded apartment. Repeated calls and threads that
// are already in an apartment are fine.
func (*Subsystem) Init(ctx context.Context) error {
	err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED)
	if err == nil {
		return nil
	}
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		switch oleErr.Code() {
		case hresultSFalse:
			return nil
		case hresultRPCEChangedMode:
			logger.Debugf(ctx, "the thread is already in a single-threaded apartment")
			return nil
		}
	}
	return fmt.Errorf("CoInitializeEx failed: %w", err)
}

func (*Subsystem) NewDeviceEnumerator(ctx context.Context) (types.DeviceEnumerator, error) {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return nil, fmt.Errorf("unable to create the device enumerator: %w", err)
	}
	if mmde == nil {
		return nil, nil
	}
	return &deviceEnumerator{MMDE: mmde}, nil
}

type deviceEnumerator struct {
	MMDE *wca.IMMDeviceEnumerator
}

func (e *deviceEnumerator) Release() {
	e.MMDE.Release()
}

func (e *deviceEnumerator) DefaultRenderEndpoint(ctx context.Context) (types.Endpoint, error) {
	var mmd *wca.IMMDevice
	if err := e.MMDE.GetDefaultAudioEndpoint(wca.ERender, wca.EConsole, &mmd); err != nil {
		return nil, fmt.Errorf("unable to get the default render endpoint: %w", err)
	}
	if mmd == nil {
		return nil, nil
	}
	return &endpoint{MMD: mmd}, nil
}

type endpoint struct {
	MMD *wca.IMMDevice
}

func (e *endpoint) Release() {
	e.MMD.Release()
}

func (e *endpoint) ActivateSession(ctx context.Context) (types.SessionClient, error) {
	var ac *wca.IAudioClient
	if err := e.MMD.Activate(wca.IID_IAudioClient, wca.CLSCTX_ALL, nil, &ac); err != nil {
		return nil, fmt.Errorf("unable to activate an audio client: %w", err)
	}
	if ac == nil {
		return nil, nil
	}
	return &sessionClient{AC: ac}, nil
}

type sessionClient struct {
	AC *wca.IAudioClient

	// blockAlign of the format the session was initialized with.
	blockAlign uint32
}

var _ types.SessionClient = (*sessionClient)(nil)

func (s *sessionClient) Release() {
	s.AC.Release()
}

func (s *sessionClient) MixFormat(ctx context.Context) (types.MixFormat, error) {
	var wfx *wca.WAVEFORMATEX
	if err := s.AC.GetMixFormat(&wfx); err != nil {
		return nil, fmt.Errorf("GetMixFormat failed: %w", err)
	}
	if wfx == nil {
		return nil, nil
	}
	raw := unsafe.Slice((*byte)(unsafe.Pointer(wfx)), waveFormatExSize+int(wfx.CbSize))
	waveFormat, ok := parseWaveFormat(raw)
	if !ok {
		ole.CoTaskMemFree(uintptr(unsafe.Pointer(wfx)))
		return nil, fmt.Errorf("unable to parse the mix format")
	}
	logger.Debugf(ctx, "mix format: %s", waveFormat)
	return &mixFormat{WFX: wfx, waveFormat: waveFormat}, nil
}

type mixFormat struct {
	WFX        *wca.WAVEFORMATEX
	waveFormat types.WaveFormat
}

func (f *mixFormat) Release() {
	ole.CoTaskMemFree(uintptr(unsafe.Pointer(f.WFX)))
}

func (f *mixFormat) WaveFormat() types.WaveFormat {
	return f.waveFormat
}

func (s *sessionClient) Initialize(
	ctx context.Context,
	shareMode types.ShareMode,
	bufferDuration time.Duration,
	format types.MixFormat,
) error {
	if shareMode != types.ShareModeShared {
		return fmt.Errorf("share mode %s is not supported", shareMode)
	}
	f, ok := format.(*mixFormat)
	if !ok {
		return fmt.Errorf("the format %T was not obtained from this backend", format)
	}
	refTime := wca.REFERENCE_TIME(bufferDuration / referenceTimeUnit)
	if err := s.AC.Initialize(wca.AUDCLNT_SHAREMODE_SHARED, 0, refTime, 0, f.WFX, nil); err != nil {
		return fmt.Errorf("IAudioClient.Initialize failed: %w", err)
	}
	s.blockAlign = uint32(f.WFX.NBlockAlign)
	return nil
}

func (s *sessionClient) BufferSize(ctx context.Context) (uint32, error) {
	var frames uint32
	if err := s.AC.GetBufferSize(&frames); err != nil {
		return 0, fmt.Errorf("GetBufferSize failed: %w", err)
	}
	return frames, nil
}

func (s *sessionClient) RenderClient(ctx context.Context) (types.RenderClient, error) {
	if s.blockAlign == 0 {
		return nil, fmt.Errorf("the session is not initialized")
	}

	var arc *wca.IAudioRenderClient
	if err := s.AC.GetService(wca.IID_IAudioRenderClient, &arc); err != nil {
		return nil, fmt.Errorf("unable to get the render client: %w", err)
	}
	if arc == nil {
		return nil, nil
	}
	return &renderClient{ARC: arc, BlockAlign: s.blockAlign}, nil
}

func (s *sessionClient) CurrentPadding(ctx context.Context) (uint32, error) {
	var padding uint32
	if err := s.AC.GetCurrentPadding(&padding); err != nil {
		return 0, fmt.Errorf("GetCurrentPadding failed: %w", err)
	}
	return padding, nil
}

func (s *sessionClient) Start(ctx context.Context) error {
	return s.AC.Start()
}

func (s *sessionClient) Stop(ctx context.Context) error {
	return s.AC.Stop()
}

type renderClient struct {
	ARC        *wca.IAudioRenderClient
	BlockAlign uint32
}

func (r *renderClient) Release() {
	r.ARC.Release()
}

func (r *renderClient) GetBuffer(ctx context.Context, frames uint32) ([]byte, error) {
	var data *byte
	if err := r.ARC.GetBuffer(frames, &data); err != nil {
		return nil, fmt.Errorf("IAudioRenderClient.GetBuffer failed: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("IAudioRenderClient.GetBuffer returned no memory")
	}
	return unsafe.Slice(data, frames*r.BlockAlign), nil
}

func (r *renderClient) ReleaseBuffer(ctx context.Context, frames uint32, flags types.BufferFlags) error {
	var nativeFlags uint32
	if flags&types.BufferFlagSilent != 0 {
		nativeFlags |= audclntBufferFlagsSilent
	}
	return r.ARC.ReleaseBuffer(frames, nativeFlags)
}
