package cpu

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/minion/internal/asm/rv32"
)

func TestResolveRegions(t *testing.T) {
	m := newTestMachine(t, rv32.Nop(), rv32.Ret())

	assert.Nil(t, m.Resolve(0, 1), "address 0")
	assert.Nil(t, m.Resolve(4, 1), "address 4")

	b := m.Resolve(5, 4)
	require.Len(t, b, 4)
	b[0] = 0xaa
	assert.Equal(t, byte(0xaa), m.Stack()[5])

	assert.Len(t, m.Resolve(testCodeOrg-4, 4), 4)
	assert.Nil(t, m.Resolve(testCodeOrg-2, 4), "stack access crossing into code")

	code := m.Resolve(testCodeOrg, 4)
	require.Len(t, code, 4)
	assert.Equal(t, []byte{0x13, 0, 0, 0}, code)
	assert.Len(t, m.Resolve(testCodeOrg+4, 4), 4)
	assert.Nil(t, m.Resolve(testCodeOrg+8, 1), "past the image")
	assert.Nil(t, m.Resolve(testCodeOrg+6, 4), "short view at the end of the image")
}

func TestMapAndResolve(t *testing.T) {
	m := newTestMachine(t, rv32.Ret())
	buf := make([]byte, 16)

	v := m.Map(buf)
	assert.Equal(t, MapTag, v)
	assert.True(t, IsMapped(v))
	assert.Equal(t, 1, m.MappedCount())

	view := m.Resolve(v+12, 4)
	require.Len(t, view, 4)
	view[3] = 0x7f
	assert.Equal(t, byte(0x7f), buf[15])

	assert.Nil(t, m.Resolve(v+13, 4))
	assert.Nil(t, m.Resolve(v+16, 1))

	require.NoError(t, m.Unmap(v))
	assert.Zero(t, m.MappedCount())
	assert.Nil(t, m.Resolve(v, 1))
}

func TestMapUsesFirstFreeSlot(t *testing.T) {
	m := newTestMachine(t, rv32.Ret())

	var addrs []uint32
	for i := 0; i < 3; i++ {
		addrs = append(addrs, m.Map(make([]byte, 4)))
	}
	assert.Equal(t, []uint32{MapTag, MapTag | 1<<20, MapTag | 2<<20}, addrs)

	require.NoError(t, m.Unmap(addrs[1]))
	assert.Equal(t, MapTag|1<<20, m.Map(make([]byte, 4)))
	assert.Equal(t, MapTag|3<<20, m.Map(make([]byte, 4)))
}

func TestMapLimits(t *testing.T) {
	m := newTestMachine(t, rv32.Ret())

	assert.Zero(t, m.Map(make([]byte, MaxMapSize+1)))
	assert.NotZero(t, m.Map(make([]byte, MaxMapSize)))

	for i := 1; i < MapSlots; i++ {
		require.NotZero(t, m.Map(make([]byte, 1)))
	}
	assert.Equal(t, MapSlots, m.MappedCount())
	assert.Zero(t, m.Map(make([]byte, 1)), "all slots in use")
}

func TestUnmapErrors(t *testing.T) {
	m := newTestMachine(t, rv32.Ret())

	require.ErrorIs(t, m.Unmap(0x1234), ErrNotMapped)
	// Unmapping a free slot is allowed.
	require.NoError(t, m.Unmap(MapTag|5<<20))
}

func TestMapSlice(t *testing.T) {
	m := newTestMachine(t, rv32.Ret())
	vals := []int32{1, 2, 3}

	v := MapSlice(m, vals)
	require.NotZero(t, v)
	require.True(t, m.WriteU32(v+8, 99))
	assert.Equal(t, int32(99), vals[2])

	got, ok := m.ReadU32(v + 4)
	require.True(t, ok)
	assert.Equal(t, uint32(2), got)

	_, ok = m.ReadU32(v + 12)
	assert.False(t, ok)
}

func TestGuestPokeThroughWindow(t *testing.T) {
	bin := link(t, rv32.Func("poke32",
		rv32.Sw(rv32.A1, rv32.A0, 0),
		rv32.Ret(),
	))
	m, err := New(bin, WithLogger(nil))
	require.NoError(t, err)

	buf := make([]int32, 10)
	v := MapSlice(m, buf)
	m.SetRegU(10, v+4)
	m.SetA1(0x12345678)
	require.NoError(t, m.Call(context.Background(), "poke32", 0, 100))
	assert.Equal(t, int32(0x12345678), buf[1])
	require.NoError(t, m.Unmap(v))
}

func TestCString(t *testing.T) {
	m := newTestMachine(t, rv32.Ret())
	v := m.Map([]byte("hello\x00world"))

	s, ok := m.CString(v, 64)
	assert.True(t, ok)
	assert.Equal(t, "hello", s)

	s, ok = m.CString(v+6, 64)
	assert.False(t, ok, "runs off the end of the window")
	assert.Equal(t, "world", s)

	s, ok = m.CString(v, 3)
	assert.False(t, ok)
	assert.Equal(t, "hel", s)
}

func TestReleaseClearsWindows(t *testing.T) {
	m := newTestMachine(t, rv32.Ret())
	m.Map(make([]byte, 4))
	m.Release()
	assert.Zero(t, m.MappedCount())
	assert.Nil(t, m.Stack())
}
