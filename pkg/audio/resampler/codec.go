package resampler

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/audiorender/pkg/audio/types"
)

func getFloat64(f types.PCMFormat, p []byte) float64 {
	switch f {
	case types.PCMFormatU8:
		return (float64(p[0]) - 128) / 128
	case types.PCMFormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768
	case types.PCMFormatS16BE:
		return float64(int16(binary.BigEndian.Uint16(p))) / 32768
	case types.PCMFormatS24LE:
		val := int32(uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16)
		if val&0x800000 != 0 {
			val |= -16777216
		}
		return float64(val) / 8388608
	case types.PCMFormatS24BE:
		val := int32(uint32(p[2]) | uint32(p[1])<<8 | uint32(p[0])<<16)
		if val&0x800000 != 0 {
			val |= -16777216
		}
		return float64(val) / 8388608
	case types.PCMFormatS32LE:
		return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648
	case types.PCMFormatS32BE:
		return float64(int32(binary.BigEndian.Uint32(p))) / 2147483648
	case types.PCMFormatS64LE:
		return float64(int64(binary.LittleEndian.Uint64(p))) / 9223372036854775808
	case types.PCMFormatS64BE:
		return float64(int64(binary.BigEndian.Uint64(p))) / 9223372036854775808
	case types.PCMFormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case types.PCMFormatFloat32BE:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(p)))
	case types.PCMFormatFloat64LE:
		return math.Float64frombits(binary.LittleEndian.Uint64(p))
	case types.PCMFormatFloat64BE:
		return math.Float64frombits(binary.BigEndian.Uint64(p))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

func setFloat64(f types.PCMFormat, p []byte, v float64) {
	if f != types.PCMFormatFloat32LE && f != types.PCMFormatFloat32BE &&
		f != types.PCMFormatFloat64LE && f != types.PCMFormatFloat64BE {
		v = max(-1, min(v, 1))
	}
	switch f {
	case types.PCMFormatU8:
		p[0] = byte(min(math.Round(v*128+128), 255))
	case types.PCMFormatS16LE:
		binary.LittleEndian.PutUint16(p, uint16(int16(min(math.Round(v*32768), 32767))))
	case types.PCMFormatS16BE:
		binary.BigEndian.PutUint16(p, uint16(int16(min(math.Round(v*32768), 32767))))
	case types.PCMFormatS24LE:
		val := int32(math.Round(v * 8388608))
		if val > 8388607 {
			val = 8388607
		}
		if val < -8388608 {
			val = -8388608
		}
		p[0] = byte(val)
		p[1] = byte(val >> 8)
		p[2] = byte(val >> 16)
	case types.PCMFormatS24BE:
		val := int32(math.Round(v * 8388608))
		if val > 8388607 {
			val = 8388607
		}
		if val < -8388608 {
			val = -8388608
		}
		p[0] = byte(val >> 16)
		p[1] = byte(val >> 8)
		p[2] = byte(val)
	case types.PCMFormatS32LE:
		binary.LittleEndian.PutUint32(p, uint32(int32(min(math.Round(v*2147483648), 2147483647))))
	case types.PCMFormatS32BE:
		binary.BigEndian.PutUint32(p, uint32(int32(min(math.Round(v*2147483648), 2147483647))))
	case types.PCMFormatS64LE:
		binary.LittleEndian.PutUint64(p, uint64(toInt64(v)))
	case types.PCMFormatS64BE:
		binary.BigEndian.PutUint64(p, uint64(toInt64(v)))
	case types.PCMFormatFloat32LE:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	case types.PCMFormatFloat32BE:
		binary.BigEndian.PutUint32(p, math.Float32bits(float32(v)))
	case types.PCMFormatFloat64LE:
		binary.LittleEndian.PutUint64(p, math.Float64bits(v))
	case types.PCMFormatFloat64BE:
		binary.BigEndian.PutUint64(p, math.Float64bits(v))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

func toInt64(v float64) int64 {
	if v >= 1 {
		return math.MaxInt64
	}
	return int64(math.Round(v * 9223372036854775808))
}
