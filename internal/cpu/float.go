package cpu

import (
	"math"
)

// FCLASS.S result bits.
const (
	FClassNegInf       = 1 << 0
	FClassNegNormal    = 1 << 1
	FClassNegSubnormal = 1 << 2
	FClassNegZero      = 1 << 3
	FClassPosZero      = 1 << 4
	FClassPosSubnormal = 1 << 5
	FClassPosNormal    = 1 << 6
	FClassPosInf       = 1 << 7
	FClassSNaN         = 1 << 8
	FClassQNaN         = 1 << 9
)

const signMask32 = uint32(1) << 31

// Precision selector in bits [26:25].
const (
	precSingle = 0
	precDouble = 1
)

func precision(insn uint32) uint32 { return (insn >> 25) & 3 }

// execLoadFP copies raw bytes into a float cell. FLW replaces the low
// word only.
func (m *Machine) execLoadFP(insn uint32) {
	addr := uint32(m.regs[Rs1(insn)] + ImmI(insn))
	rd := Rd(insn)

	switch Funct3(insn) {
	case 0b010: // FLW
		if b := m.Resolve(addr, 4); b != nil {
			m.setFregBitsS(rd, cpuEndian.Uint32(b))
		}
	case 0b011: // FLD
		if b := m.Resolve(addr, 8); b != nil {
			m.fregs[rd] = cpuEndian.Uint64(b)
		}
	}
}

func (m *Machine) execStoreFP(insn uint32) {
	addr := uint32(m.regs[Rs1(insn)] + ImmS(insn))
	rs2 := Rs2(insn)

	switch Funct3(insn) {
	case 0b010: // FSW
		if b := m.Resolve(addr, 4); b != nil {
			cpuEndian.PutUint32(b, m.fregBitsS(rs2))
		}
	case 0b011: // FSD
		if b := m.Resolve(addr, 8); b != nil {
			cpuEndian.PutUint64(b, m.fregs[rs2])
		}
	}
}

// execFused runs FMADD, FMSUB, FNMSUB and FNMADD. The product is rounded
// to single precision before the addend is applied.
func (m *Machine) execFused(insn uint32) {
	if precision(insn) != precSingle {
		m.unsupportedFP(insn)
		return
	}
	a := m.FregS(Rs1(insn))
	b := m.FregS(Rs2(insn))
	c := m.FregS(Rs3(insn))
	prod := float32(a * b)

	var res float32
	switch OpGroup(insn) {
	case 0: // FMADD.S
		res = prod + c
	case 1: // FMSUB.S
		res = prod - c
	case 2: // FNMSUB.S
		res = -(prod - c)
	case 3: // FNMADD.S
		res = -(prod + c)
	}
	m.SetFregS(Rd(insn), res)
}

func (m *Machine) execOpFP(insn uint32) {
	if precision(insn) != precSingle {
		m.unsupportedFP(insn)
		return
	}

	rd, rs1, rs2 := Rd(insn), Rs1(insn), Rs2(insn)
	f3 := Funct3(insn)
	a := m.FregS(rs1)
	b := m.FregS(rs2)

	switch insn >> 27 {
	case 0x00: // FADD.S
		m.SetFregS(rd, a+b)
	case 0x01: // FSUB.S
		m.SetFregS(rd, a-b)
	case 0x02: // FMUL.S
		m.SetFregS(rd, a*b)
	case 0x03: // FDIV.S
		if b != 0 {
			m.SetFregS(rd, a/b)
		} else {
			m.SetFregS(rd, 0)
		}
	case 0x04:
		ab, bb := m.fregBitsS(rs1), m.fregBitsS(rs2)
		var sign uint32
		switch f3 {
		case 0b000: // FSGNJ.S
			sign = bb & signMask32
		case 0b001: // FSGNJN.S
			sign = ^bb & signMask32
		case 0b010: // FSGNJX.S
			sign = (ab ^ bb) & signMask32
		default:
			return
		}
		m.setFregBitsS(rd, ab&^signMask32|sign)
	case 0x05:
		switch f3 {
		case 0b000: // FMIN.S
			if a < b {
				m.SetFregS(rd, a)
			} else {
				m.SetFregS(rd, b)
			}
		case 0b001: // FMAX.S
			if a > b {
				m.SetFregS(rd, a)
			} else {
				m.SetFregS(rd, b)
			}
		}
	case 0x08: // FCVT.S.D
		m.SetFregS(rd, float32(m.FregD(rs1)))
	case 0x0B: // FSQRT.S
		m.SetFregS(rd, float32(math.Sqrt(float64(a))))
	case 0x14:
		switch f3 {
		case 0b000: // FLE.S
			m.setReg(rd, b2i(a <= b))
		case 0b001: // FLT.S
			m.setReg(rd, b2i(a < b))
		case 0b010: // FEQ.S
			m.setReg(rd, b2i(a == b))
		}
	case 0x18:
		if rs2 == 0 { // FCVT.W.S
			m.setReg(rd, cvtF32ToI32(a))
		} else { // FCVT.WU.S
			m.setReg(rd, int32(cvtF32ToU32(a)))
		}
	case 0x1A:
		if rs2 == 0 { // FCVT.S.W
			m.SetFregS(rd, float32(m.regs[rs1]))
		} else { // FCVT.S.WU
			m.SetFregS(rd, float32(uint32(m.regs[rs1])))
		}
	case 0x1C:
		if f3 == 0 { // FMV.X.W
			m.setReg(rd, int32(m.fregBitsS(rs1)))
		} else { // FCLASS.S
			m.setReg(rd, int32(ClassifyF32(a)))
		}
	case 0x1E: // FMV.W.X
		m.setFregBitsS(rd, uint32(m.regs[rs1]))
	default:
		m.log.Warn("unhandled float op", "pc", hex32(m.pc), "insn", hex32(insn))
	}
}

func (m *Machine) unsupportedFP(insn uint32) {
	m.log.Warn("double-precision arithmetic is not supported", "pc", hex32(m.pc), "insn", hex32(insn))
}

// cvtF32ToI32 truncates toward zero and saturates. NaN converts to the
// largest positive value.
func cvtF32ToI32(f float32) int32 {
	switch {
	case math.IsNaN(float64(f)):
		return math.MaxInt32
	case f >= 2147483648.0:
		return math.MaxInt32
	case f < -2147483648.0:
		return math.MinInt32
	}
	return int32(f)
}

func cvtF32ToU32(f float32) uint32 {
	switch {
	case math.IsNaN(float64(f)):
		return math.MaxUint32
	case f >= 4294967296.0:
		return math.MaxUint32
	case f < 0:
		return 0
	}
	return uint32(f)
}

// ClassifyF32 returns the FCLASS.S mask for f.
func ClassifyF32(f float32) uint32 {
	bits := math.Float32bits(f)
	neg := bits&signMask32 != 0
	exp := (bits >> 23) & 0xff
	frac := bits & 0x7fffff

	switch {
	case exp == 0xff && frac != 0:
		if frac&(1<<22) != 0 {
			return FClassQNaN
		}
		return FClassSNaN
	case exp == 0xff:
		if neg {
			return FClassNegInf
		}
		return FClassPosInf
	case exp == 0 && frac == 0:
		if neg {
			return FClassNegZero
		}
		return FClassPosZero
	case exp == 0:
		if neg {
			return FClassNegSubnormal
		}
		return FClassPosSubnormal
	case neg:
		return FClassNegNormal
	default:
		return FClassPosNormal
	}
}
