// Package handletable maps opaque integer handles to owned values, so that
// a host holding a handle of a released value gets an error instead of
// a dangling reference.
package handletable

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrInvalidHandle = errors.New("invalid handle")
	ErrStaleHandle   = errors.New("stale handle")
)

// Handle is the slot index (plus one) in the lower 32 bits and the slot
// generation in the upper 32 bits. The zero Handle is never issued.
type Handle uint64

func newHandle(idx uint32, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(idx+1))
}

func (h Handle) index() (uint32, bool) {
	idx := uint32(h)
	if idx == 0 {
		return 0, false
	}
	return idx - 1, true
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

func (h Handle) String() string {
	idx, ok := h.index()
	if !ok {
		return "handle(nil)"
	}
	return fmt.Sprintf("handle(%d@%d)", idx, h.generation())
}

type slot[T io.Closer] struct {
	generation uint32
	inUse      bool
	value      T
}

type Table[T io.Closer] struct {
	locker    sync.Mutex
	slots     []slot[T]
	freeSlots []uint32
}

func (t *Table[T]) Insert(value T) Handle {
	t.locker.Lock()
	defer t.locker.Unlock()

	var idx uint32
	if n := len(t.freeSlots); n > 0 {
		idx = t.freeSlots[n-1]
		t.freeSlots = t.freeSlots[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot[T]{})
	}

	s := &t.slots[idx]
	s.generation++
	s.inUse = true
	s.value = value
	return newHandle(idx, s.generation)
}

func (t *Table[T]) lookup(h Handle) (*slot[T], uint32, error) {
	idx, ok := h.index()
	if !ok || int(idx) >= len(t.slots) {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	s := &t.slots[idx]
	if !s.inUse || s.generation != h.generation() {
		return nil, 0, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return s, idx, nil
}

func (t *Table[T]) Get(h Handle) (T, error) {
	t.locker.Lock()
	defer t.locker.Unlock()
	s, _, err := t.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Remove detaches the value from the table without closing it.
func (t *Table[T]) Remove(h Handle) (T, error) {
	t.locker.Lock()
	defer t.locker.Unlock()
	var zero T
	s, idx, err := t.lookup(h)
	if err != nil {
		return zero, err
	}
	value := s.value
	s.value = zero
	s.inUse = false
	t.freeSlots = append(t.freeSlots, idx)
	return value, nil
}

func (t *Table[T]) Close(h Handle) error {
	value, err := t.Remove(h)
	if err != nil {
		return err
	}
	return value.Close()
}

// CloseAll closes and removes every value in the table.
func (t *Table[T]) CloseAll() error {
	t.locker.Lock()
	var values []T
	var zero T
	for idx := range t.slots {
		s := &t.slots[idx]
		if !s.inUse {
			continue
		}
		values = append(values, s.value)
		s.value = zero
		s.inUse = false
		t.freeSlots = append(t.freeSlots, uint32(idx))
	}
	t.locker.Unlock()

	var mErr *multierror.Error
	for _, value := range values {
		if err := value.Close(); err != nil {
			mErr = multierror.Append(mErr, err)
		}
	}
	return mErr.ErrorOrNil()
}

func (t *Table[T]) Len() int {
	t.locker.Lock()
	defer t.locker.Unlock()
	return len(t.slots) - len(t.freeSlots)
}
