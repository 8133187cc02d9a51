package handletable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type closer struct {
	closeCount int
	err        error
}

func (c *closer) Close() error {
	c.closeCount++
	return c.err
}

func TestTable(t *testing.T) {
	var table Table[*closer]

	a := &closer{}
	hA := table.Insert(a)
	require.NotZero(t, hA)

	got, err := table.Get(hA)
	require.NoError(t, err)
	require.Same(t, a, got)
	require.Equal(t, 1, table.Len())

	require.NoError(t, table.Close(hA))
	require.Equal(t, 1, a.closeCount)
	require.Zero(t, table.Len())

	_, err = table.Get(hA)
	require.ErrorIs(t, err, ErrStaleHandle)
	require.ErrorIs(t, table.Close(hA), ErrStaleHandle)
	require.Equal(t, 1, a.closeCount)

	// the slot is reused, but the old handle must not reach the new value
	b := &closer{}
	hB := table.Insert(b)
	require.NotEqual(t, hA, hB)
	require.Equal(t, uint32(hA), uint32(hB))
	_, err = table.Get(hA)
	require.ErrorIs(t, err, ErrStaleHandle)
	got, err = table.Get(hB)
	require.NoError(t, err)
	require.Same(t, b, got)
}

func TestTableInvalidHandle(t *testing.T) {
	var table Table[*closer]
	_, err := table.Get(0)
	require.ErrorIs(t, err, ErrInvalidHandle)
	_, err = table.Get(newHandle(42, 1))
	require.ErrorIs(t, err, ErrInvalidHandle)
}

func TestTableCloseAll(t *testing.T) {
	var table Table[*closer]
	a := &closer{}
	b := &closer{err: errors.New("boom")}
	hA := table.Insert(a)
	table.Insert(b)

	err := table.CloseAll()
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
	require.Equal(t, 1, a.closeCount)
	require.Equal(t, 1, b.closeCount)
	require.Zero(t, table.Len())

	_, err = table.Get(hA)
	require.ErrorIs(t, err, ErrStaleHandle)
}
