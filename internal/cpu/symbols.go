package cpu

import "github.com/tinyrange/minion/internal/loader"

// Funcs returns the borrowed symbol table.
func (m *Machine) Funcs() []loader.Func { return m.funcs }

// FindFunc returns the index of the function called name, or -1. Names are
// compared exactly.
func (m *Machine) FindFunc(name string) int {
	for i := range m.funcs {
		if m.funcs[i].Name == name {
			return i
		}
	}
	return -1
}

func (m *Machine) validFuncIdx(idx int) bool { return idx >= 0 && idx < len(m.funcs) }

// SetPCToFuncIdx moves the program counter to the entry of function idx.
// An out-of-range index leaves the machine unchanged.
func (m *Machine) SetPCToFuncIdx(idx int) bool {
	if !m.validFuncIdx(idx) {
		return false
	}
	m.pc = m.funcs[idx].Addr
	return true
}

func (m *Machine) SetPCToFunc(name string) bool {
	return m.SetPCToFuncIdx(m.FindFunc(name))
}

// FuncInstrCount returns the size of function idx in instructions, or 0.
func (m *Machine) FuncInstrCount(idx int) int {
	if !m.validFuncIdx(idx) {
		return 0
	}
	return m.funcs[idx].InstrCount()
}

// ValidPC reports whether the program counter points into the code region.
func (m *Machine) ValidPC() bool { return m.pc >= m.codeOrg }

// FetchPCInstr returns the word at the program counter, or 0 when the
// counter is outside the code image.
func (m *Machine) FetchPCInstr() uint32 {
	if m.pc < m.codeOrg {
		return 0
	}
	off := uint64(m.pc - m.codeOrg)
	if off+4 > uint64(len(m.code)) {
		return 0
	}
	return cpuEndian.Uint32(m.code[off:])
}
