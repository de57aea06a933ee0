package cpu

import "math"

// execMulDiv implements the M extension. Division by zero yields 0 for
// both quotient and remainder, and the signed overflow case
// MinInt32 / -1 yields MinInt32 with remainder 0.
func (m *Machine) execMulDiv(insn uint32) {
	rd := Rd(insn)
	if rd == 0 {
		return
	}
	a := m.regs[Rs1(insn)]
	b := m.regs[Rs2(insn)]
	ua, ub := uint32(a), uint32(b)

	var res int32
	switch Funct3(insn) {
	case 0b000: // MUL
		res = a * b
	case 0b001: // MULH
		res = int32((int64(a) * int64(b)) >> 32)
	case 0b010: // MULHSU
		res = int32((int64(a) * int64(ub)) >> 32)
	case 0b011: // MULHU
		res = int32((uint64(ua) * uint64(ub)) >> 32)
	case 0b100: // DIV
		switch {
		case b == 0:
			res = 0
		case a == math.MinInt32 && b == -1:
			res = math.MinInt32
		default:
			res = a / b
		}
	case 0b101: // DIVU
		if ub != 0 {
			res = int32(ua / ub)
		}
	case 0b110: // REM
		if b != 0 && !(a == math.MinInt32 && b == -1) {
			res = a % b
		}
	case 0b111: // REMU
		if ub != 0 {
			res = int32(ua % ub)
		}
	}
	m.regs[rd] = res
}
