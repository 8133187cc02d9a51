package source

import (
	"encoding/binary"
	"math"
)

type float32Reader interface {
	Read(p []float32) (int, error)
}

// readerFromFloat32Reader exposes a float32 sample reader as float32le bytes.
type readerFromFloat32Reader struct {
	float32Reader
	samples []float32
}

func newReaderFromFloat32Reader(r float32Reader) *readerFromFloat32Reader {
	return &readerFromFloat32Reader{float32Reader: r}
}

func (r *readerFromFloat32Reader) Read(p []byte) (int, error) {
	count := len(p) / 4
	if count == 0 {
		return 0, nil
	}
	if cap(r.samples) < count {
		r.samples = make([]float32, count)
	}
	samples := r.samples[:count]
	n, err := r.float32Reader.Read(samples)
	for i, v := range samples[:n] {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(v))
	}
	return n * 4, err
}
