package cpu

import (
	"fmt"
	"unsafe"
)

func slotBase(idx int) uint32 { return MapTag | uint32(idx)<<20 }

func slotIndex(v uint32) int { return int((v >> 20) & 0xf) }

// IsMapped reports whether v carries the window tag.
func IsMapped(v uint32) bool { return v&MapTagMask == MapTag }

// Resolve translates guest address a into a host view of at least n bytes.
// It returns nil when a is unresolved or the region ends before a+n.
//
// Addresses in (4, CodeOrg) hit the stack, tagged addresses hit an active
// window, and addresses from CodeOrg on hit the code image.
func (m *Machine) Resolve(a uint32, n int) []byte {
	var view []byte
	switch {
	case a > 4 && a < m.codeOrg:
		view = m.stack[a:]
	case IsMapped(a) && m.slots[slotIndex(a)].active:
		slot := &m.slots[slotIndex(a)]
		off := a - slotBase(slotIndex(a))
		if uint64(off) >= uint64(len(slot.buf)) {
			return nil
		}
		view = slot.buf[off:]
	case a >= m.codeOrg:
		off := a - m.codeOrg
		if uint64(off) >= uint64(len(m.code)) {
			return nil
		}
		view = m.code[off:]
	default:
		return nil
	}
	if len(view) < n {
		return nil
	}
	return view[:n:n]
}

// Map exposes buf to guest code and returns the guest address of its first
// byte, or 0 when buf is too large or every window is in use.
func (m *Machine) Map(buf []byte) uint32 {
	if len(buf) > MaxMapSize {
		m.log.Error("mem map: buffer too large", "size", len(buf), "max", MaxMapSize)
		return 0
	}
	for i := range m.slots {
		if !m.slots[i].active {
			m.slots[i] = memSlot{buf: buf, active: true}
			return slotBase(i)
		}
	}
	m.log.Error("mem map: no free slots", "slots", MapSlots)
	return 0
}

// MapSlice maps the memory backing s. T must not contain pointers.
func MapSlice[T any](m *Machine, s []T) uint32 {
	if len(s) == 0 {
		return m.Map([]byte{})
	}
	size := len(s) * int(unsafe.Sizeof(s[0]))
	return m.Map(unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), size))
}

// Unmap releases the window containing v. Unmapping a free window is a
// no-op.
func (m *Machine) Unmap(v uint32) error {
	if !IsMapped(v) {
		m.log.Error("mem unmap: not a mapped address", "addr", hex32(v))
		return fmt.Errorf("%w: %#08x", ErrNotMapped, v)
	}
	m.slots[slotIndex(v)] = memSlot{}
	return nil
}

// MappedCount returns the number of active windows.
func (m *Machine) MappedCount() int {
	n := 0
	for _, s := range m.slots {
		if s.active {
			n++
		}
	}
	return n
}

// ReadU32 reads a little-endian word from guest memory.
func (m *Machine) ReadU32(a uint32) (uint32, bool) {
	b := m.Resolve(a, 4)
	if b == nil {
		return 0, false
	}
	return cpuEndian.Uint32(b), true
}

// WriteU32 stores a little-endian word into guest memory.
func (m *Machine) WriteU32(a uint32, v uint32) bool {
	b := m.Resolve(a, 4)
	if b == nil {
		return false
	}
	cpuEndian.PutUint32(b, v)
	return true
}

// CString reads a NUL-terminated string starting at a, reading at most max
// bytes.
func (m *Machine) CString(a uint32, max int) (string, bool) {
	out := make([]byte, 0, 32)
	for i := 0; i < max; i++ {
		b := m.Resolve(a+uint32(i), 1)
		if b == nil {
			return string(out), false
		}
		if b[0] == 0 {
			return string(out), true
		}
		out = append(out, b[0])
	}
	return string(out), false
}
