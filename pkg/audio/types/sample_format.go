package types

import (
	"fmt"
)

// SampleFormat is the device-independent sample format a render session
// was negotiated with.
type SampleFormat uint

const (
	SampleFormatUnsupported = SampleFormat(iota)
	SampleFormatSignedInt16
	SampleFormatSignedInt32
	SampleFormatFloat32
	SampleFormatUnsignedInt8
)

func (f SampleFormat) String() string {
	switch f {
	case SampleFormatUnsupported:
		return "unsupported"
	case SampleFormatSignedInt16:
		return "s16"
	case SampleFormatSignedInt32:
		return "s32"
	case SampleFormatFloat32:
		return "f32"
	case SampleFormatUnsignedInt8:
		return "u8"
	default:
		return fmt.Sprintf("unknown_sample_format_%d", uint(f))
	}
}

// BytesPerSample returns 0 for SampleFormatUnsupported.
func (f SampleFormat) BytesPerSample() uint32 {
	switch f {
	case SampleFormatSignedInt16:
		return 2
	case SampleFormatSignedInt32, SampleFormatFloat32:
		return 4
	case SampleFormatUnsignedInt8:
		return 1
	default:
		return 0
	}
}

func (f SampleFormat) PCMFormat() PCMFormat {
	switch f {
	case SampleFormatSignedInt16:
		return PCMFormatS16LE
	case SampleFormatSignedInt32:
		return PCMFormatS32LE
	case SampleFormatFloat32:
		return PCMFormatFloat32LE
	case SampleFormatUnsignedInt8:
		return PCMFormatU8
	default:
		return PCMFormatUndefined
	}
}

// SampleFormatFromWaveFormat translates a native mix format into
// a SampleFormat. Combinations without a mapping yield
// SampleFormatUnsupported.
func SampleFormatFromWaveFormat(wf WaveFormat) SampleFormat {
	switch wf.FormatTag {
	case FormatTagPCM:
		return signedIntFormat(wf.BitsPerSample)
	case FormatTagIEEEFloat:
		return SampleFormatFloat32
	case FormatTagALaw, FormatTagMuLaw:
		return SampleFormatUnsignedInt8
	case FormatTagExtensible:
		switch wf.SubFormat {
		case FormatTagIEEEFloat:
			return SampleFormatFloat32
		case FormatTagPCM:
			return signedIntFormat(wf.BitsPerSample)
		}
	}
	return SampleFormatUnsupported
}

func signedIntFormat(bitsPerSample uint16) SampleFormat {
	switch bitsPerSample {
	case 16:
		return SampleFormatSignedInt16
	case 32:
		return SampleFormatSignedInt32
	default:
		return SampleFormatUnsupported
	}
}
