package wasapi

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

func waveFormatEx(tag types.FormatTag, channels uint16, rate uint32, bits uint16) []byte {
	raw := make([]byte, waveFormatExSize)
	blockAlign := channels * bits / 8
	binary.LittleEndian.PutUint16(raw[0:], uint16(tag))
	binary.LittleEndian.PutUint16(raw[2:], channels)
	binary.LittleEndian.PutUint32(raw[4:], rate)
	binary.LittleEndian.PutUint32(raw[8:], rate*uint32(blockAlign))
	binary.LittleEndian.PutUint16(raw[12:], blockAlign)
	binary.LittleEndian.PutUint16(raw[14:], bits)
	return raw
}

func waveFormatExtensible(subFormat uint32, channels uint16, rate uint32, bits uint16) []byte {
	raw := waveFormatEx(types.FormatTagExtensible, channels, rate, bits)
	binary.LittleEndian.PutUint16(raw[16:], 22)
	ext := make([]byte, 22)
	binary.LittleEndian.PutUint16(ext[0:], bits)
	binary.LittleEndian.PutUint32(ext[2:], 0x3)
	binary.LittleEndian.PutUint32(ext[6:], subFormat)
	copy(ext[10:], subFormatBaseTail[:])
	return append(raw, ext...)
}

func TestParseWaveFormat(t *testing.T) {
	for _, tc := range []struct {
		name   string
		raw    []byte
		ok     bool
		expect types.WaveFormat
		sample types.SampleFormat
	}{
		{
			name:   "pcm16",
			raw:    waveFormatEx(types.FormatTagPCM, 2, 48000, 16),
			ok:     true,
			expect: types.WaveFormat{FormatTag: types.FormatTagPCM, Channels: 2, SamplesPerSec: 48000, BitsPerSample: 16},
			sample: types.SampleFormatSignedInt16,
		},
		{
			name:   "extensible_float",
			raw:    waveFormatExtensible(uint32(types.FormatTagIEEEFloat), 2, 44100, 32),
			ok:     true,
			expect: types.WaveFormat{FormatTag: types.FormatTagExtensible, Channels: 2, SamplesPerSec: 44100, BitsPerSample: 32, SubFormat: types.FormatTagIEEEFloat},
			sample: types.SampleFormatFloat32,
		},
		{
			name:   "extensible_pcm24",
			raw:    waveFormatExtensible(uint32(types.FormatTagPCM), 6, 96000, 24),
			ok:     true,
			expect: types.WaveFormat{FormatTag: types.FormatTagExtensible, Channels: 6, SamplesPerSec: 96000, BitsPerSample: 24, SubFormat: types.FormatTagPCM},
			sample: types.SampleFormatUnsupported,
		},
		{
			name:   "extensible_truncated",
			raw:    waveFormatExtensible(uint32(types.FormatTagPCM), 2, 48000, 16)[:30],
			ok:     true,
			expect: types.WaveFormat{FormatTag: types.FormatTagExtensible, Channels: 2, SamplesPerSec: 48000, BitsPerSample: 16},
			sample: types.SampleFormatUnsupported,
		},
		{
			name: "too_short",
			raw:  make([]byte, 10),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			wf, ok := parseWaveFormat(tc.raw)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.expect, wf)
			if ok {
				require.Equal(t, tc.sample, types.SampleFormatFromWaveFormat(wf))
			}
		})
	}
}

func TestParseSubFormatForeignGUID(t *testing.T) {
	raw := waveFormatExtensible(uint32(types.FormatTagPCM), 2, 48000, 16)
	raw[subFormatOffset+5] = 0xff
	require.Equal(t, types.FormatTagUnknown, parseSubFormat(raw))
}
