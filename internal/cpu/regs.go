package cpu

import (
	"fmt"
	"io"
	"math"
)

const (
	regRA = 1
	regSP = 2
	regGP = 3
	regT0 = 5
	regA0 = 10
	regT3 = 28
)

var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

var fabiNames = [32]string{
	"ft0", "ft1", "ft2", "ft3", "ft4", "ft5", "ft6", "ft7",
	"fs0", "fs1", "fa0", "fa1", "fa2", "fa3", "fa4", "fa5",
	"fa6", "fa7", "fs2", "fs3", "fs4", "fs5", "fs6", "fs7",
	"fs8", "fs9", "fs10", "fs11", "ft8", "ft9", "ft10", "ft11",
}

// RegName returns the name of integer register n, either numeric (x5) or
// its ABI name (t0).
func RegName(n uint32, abi bool) string {
	n &= 0x1f
	if abi {
		return abiNames[n]
	}
	return fmt.Sprintf("x%d", n)
}

// FRegName is RegName for the float file.
func FRegName(n uint32, abi bool) string {
	n &= 0x1f
	if abi {
		return fabiNames[n]
	}
	return fmt.Sprintf("f%d", n)
}

func (m *Machine) setReg(n uint32, v int32) {
	if n != 0 {
		m.regs[n] = v
	}
}

// Reg returns integer register n.
func (m *Machine) Reg(n uint32) int32 { return m.regs[n&0x1f] }

// SetReg writes integer register n. Writes to x0 are ignored.
func (m *Machine) SetReg(n uint32, v int32) { m.setReg(n&0x1f, v) }

// SetRegU is SetReg for unsigned values such as guest addresses.
func (m *Machine) SetRegU(n uint32, v uint32) { m.setReg(n&0x1f, int32(v)) }

func (m *Machine) RA() uint32 { return uint32(m.regs[regRA]) }
func (m *Machine) SP() uint32 { return uint32(m.regs[regSP]) }
func (m *Machine) GP() uint32 { return uint32(m.regs[regGP]) }

// A returns argument register a<n> for n in [0, 7].
func (m *Machine) A(n int) int32 { return m.regs[regA0+(n&7)] }

func (m *Machine) SetA(n int, v int32) { m.regs[regA0+(n&7)] = v }

// T returns temporary register t<n>. Like A, the index wraps, here modulo 7.
func (m *Machine) T(n int) int32 { return m.regs[tempReg(n)] }

func (m *Machine) SetT(n int, v int32) { m.regs[tempReg(n)] = v }

var tempRegs = [7]int{regT0, regT0 + 1, regT0 + 2, regT3, regT3 + 1, regT3 + 2, regT3 + 3}

func tempReg(n int) int { return tempRegs[uint(n)%7] }

func (m *Machine) A0() int32 { return m.regs[regA0] }
func (m *Machine) A1() int32 { return m.regs[regA0+1] }

func (m *Machine) SetA0(v int32) { m.regs[regA0] = v }
func (m *Machine) SetA1(v int32) { m.regs[regA0+1] = v }

// FregS returns the single-precision view of float register n: the low 32
// bits of the cell.
func (m *Machine) FregS(n uint32) float32 {
	return math.Float32frombits(uint32(m.fregs[n&0x1f]))
}

// SetFregS replaces the low 32 bits of float register n and keeps the high
// half.
func (m *Machine) SetFregS(n uint32, v float32) {
	m.setFregBitsS(n&0x1f, math.Float32bits(v))
}

func (m *Machine) fregBitsS(n uint32) uint32 { return uint32(m.fregs[n]) }

func (m *Machine) setFregBitsS(n uint32, bits uint32) {
	m.fregs[n] = m.fregs[n]&^0xffffffff | uint64(bits)
}

func (m *Machine) FregD(n uint32) float64 {
	return math.Float64frombits(m.fregs[n&0x1f])
}

func (m *Machine) SetFregD(n uint32, v float64) {
	m.fregs[n&0x1f] = math.Float64bits(v)
}

// FregBits returns the raw 64-bit cell of float register n.
func (m *Machine) FregBits(n uint32) uint64 { return m.fregs[n&0x1f] }

const (
	regFA0 = 10
	regFA1 = 11
)

func (m *Machine) FA0S() float32 { return m.FregS(regFA0) }
func (m *Machine) FA1S() float32 { return m.FregS(regFA1) }
func (m *Machine) FA0D() float64 { return m.FregD(regFA0) }
func (m *Machine) FA1D() float64 { return m.FregD(regFA1) }

func (m *Machine) SetFA0S(v float32) { m.SetFregS(regFA0, v) }
func (m *Machine) SetFA1S(v float32) { m.SetFregS(regFA1, v) }
func (m *Machine) SetFA0D(v float64) { m.SetFregD(regFA0, v) }
func (m *Machine) SetFA1D(v float64) { m.SetFregD(regFA1, v) }

// DumpRegs writes the integer register file, four registers per line.
func (m *Machine) DumpRegs(w io.Writer) {
	fmt.Fprintf(w, "pc: %08X\n", m.pc)
	for i := uint32(0); i < 32; i++ {
		fmt.Fprintf(w, "%4s: %08X", abiNames[i], uint32(m.regs[i]))
		if i%4 == 3 {
			fmt.Fprintln(w)
		} else {
			fmt.Fprint(w, "  ")
		}
	}
}

func (m *Machine) DumpFregsS(w io.Writer) {
	for i := uint32(0); i < 32; i++ {
		fmt.Fprintf(w, "%4s: %-12g", fabiNames[i], m.FregS(i))
		if i%4 == 3 {
			fmt.Fprintln(w)
		} else {
			fmt.Fprint(w, "  ")
		}
	}
}

func (m *Machine) DumpFregsD(w io.Writer) {
	for i := uint32(0); i < 32; i++ {
		fmt.Fprintf(w, "%4s: %-12g", fabiNames[i], m.FregD(i))
		if i%4 == 3 {
			fmt.Fprintln(w)
		} else {
			fmt.Fprint(w, "  ")
		}
	}
}
