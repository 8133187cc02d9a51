// Package wasapi is the Windows Core Audio backend. It is the only backend
// with a native shared-mode render session; elsewhere the package only
// provides the wave format parsing.
package wasapi

import (
	"bytes"
	"encoding/binary"

	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

const (
	waveFormatExSize         = 18
	waveFormatExtensibleSize = waveFormatExSize + 22
	subFormatOffset          = 24
)

// the tail shared by all KSDATAFORMAT_SUBTYPE_* GUIDs derived from a format tag
var subFormatBaseTail = [12]byte{
	0x00, 0x00, 0x10, 0x00,
	0x80, 0x00, 0x00, 0xaa, 0x00, 0x38, 0x9b, 0x71,
}

// parseWaveFormat decodes a WAVEFORMATEX (or WAVEFORMATEXTENSIBLE) block.
func parseWaveFormat(raw []byte) (types.WaveFormat, bool) {
	if len(raw) < waveFormatExSize {
		return types.WaveFormat{}, false
	}
	wf := types.WaveFormat{
		FormatTag:     types.FormatTag(binary.LittleEndian.Uint16(raw[0:])),
		Channels:      binary.LittleEndian.Uint16(raw[2:]),
		SamplesPerSec: binary.LittleEndian.Uint32(raw[4:]),
		BitsPerSample: binary.LittleEndian.Uint16(raw[14:]),
	}
	if wf.FormatTag == types.FormatTagExtensible {
		wf.SubFormat = parseSubFormat(raw)
	}
	return wf, true
}

func parseSubFormat(raw []byte) types.FormatTag {
	if len(raw) < waveFormatExtensibleSize {
		return types.FormatTagUnknown
	}
	cbSize := binary.LittleEndian.Uint16(raw[16:])
	if cbSize < waveFormatExtensibleSize-waveFormatExSize {
		return types.FormatTagUnknown
	}
	guid := raw[subFormatOffset : subFormatOffset+16]
	if !bytes.Equal(guid[4:], subFormatBaseTail[:]) {
		return types.FormatTagUnknown
	}
	data1 := binary.LittleEndian.Uint32(guid)
	if data1 > 0xffff {
		return types.FormatTagUnknown
	}
	return types.FormatTag(data1)
}
