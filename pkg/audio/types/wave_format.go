package types

import (
	"fmt"
)

// FormatTag is a wave format tag as reported by audio devices.
type FormatTag uint16

const (
	FormatTagUnknown    = FormatTag(0x0000)
	FormatTagPCM        = FormatTag(0x0001)
	FormatTagIEEEFloat  = FormatTag(0x0003)
	FormatTagALaw       = FormatTag(0x0006)
	FormatTagMuLaw      = FormatTag(0x0007)
	FormatTagExtensible = FormatTag(0xFFFE)
)

func (t FormatTag) String() string {
	switch t {
	case FormatTagPCM:
		return "pcm"
	case FormatTagIEEEFloat:
		return "ieee_float"
	case FormatTagALaw:
		return "alaw"
	case FormatTagMuLaw:
		return "mulaw"
	case FormatTagExtensible:
		return "extensible"
	default:
		return fmt.Sprintf("format_tag_0x%04X", uint16(t))
	}
}

// WaveFormat describes the format a device mixes shared-mode streams in.
//
// SubFormat is meaningful only for FormatTagExtensible: it is the format
// tag carried by the KSDATAFORMAT_SUBTYPE GUID, or FormatTagUnknown if the
// GUID does not follow the tag-based scheme.
type WaveFormat struct {
	FormatTag     FormatTag
	Channels      uint16
	SamplesPerSec uint32
	BitsPerSample uint16
	SubFormat     FormatTag
}

func (wf WaveFormat) BlockAlign() uint32 {
	return uint32(wf.Channels) * uint32(wf.BitsPerSample) / 8
}

func (wf WaveFormat) String() string {
	if wf.FormatTag == FormatTagExtensible {
		return fmt.Sprintf("%s(%s)/%dbit/%dHz/%dch", wf.FormatTag, wf.SubFormat, wf.BitsPerSample, wf.SamplesPerSec, wf.Channels)
	}
	return fmt.Sprintf("%s/%dbit/%dHz/%dch", wf.FormatTag, wf.BitsPerSample, wf.SamplesPerSec, wf.Channels)
}
