package cpu

import (
	"encoding/binary"
	"fmt"
)

var cpuEndian = binary.LittleEndian

const (
	OpLoad    = 0x03
	OpLoadFP  = 0x07
	OpMiscMem = 0x0F
	OpImm     = 0x13
	OpAuipc   = 0x17
	OpStore   = 0x23
	OpStoreFP = 0x27
	OpAMO     = 0x2F
	OpReg     = 0x33
	OpLui     = 0x37
	OpMadd    = 0x43
	OpMsub    = 0x47
	OpNmsub   = 0x4B
	OpNmadd   = 0x4F
	OpFP      = 0x53
	OpBranch  = 0x63
	OpJalr    = 0x67
	OpJal     = 0x6F
	OpSystem  = 0x73
)

// retInsn is "jalr x0, 0(ra)".
const retInsn = 0x00008067

// Exec decodes and runs one instruction at the current program counter.
//
// In echo-only mode the instruction is printed and the counter advances by
// four. In exec mode the counter advances by four unless the instruction
// changed control flow, and StatusNative is set once control reaches
// NativePC.
func (m *Machine) Exec(insn uint32, mode Mode) Status {
	if !Is32Bit(insn) {
		m.raiseFault("not an rv32g instruction", "insn", hex32(insn))
		return m.status
	}
	if m.fault {
		m.status = StatusNative
		return m.status
	}
	m.status = 0

	exec := mode&ModeExec != 0
	if exec && m.pc == NativePC {
		m.log.Error("invalid PC", "pc", hex32(m.pc))
		return m.status
	}

	if mode&ModeEcho != 0 {
		fmt.Fprintf(m.echo, "%08X: %08X  %s\n", m.pc, insn, Disasm(m.pc, insn, m.echoCfg))
	}

	if !exec {
		m.pc += 4
		return m.status
	}

	m.dispatch(insn)

	m.instrsExecuted++
	if m.status == 0 {
		m.pc += 4
	} else if m.pc == NativePC {
		m.status |= StatusNative
	}
	return m.status
}

func (m *Machine) dispatch(insn uint32) {
	switch Opcode(insn) {
	case OpLoad:
		m.execLoad(insn)
	case OpStore:
		m.execStore(insn)
	case OpBranch:
		m.execBranch(insn)
	case OpJalr:
		m.execJalr(insn)
	case OpJal:
		m.execJal(insn)
	case OpImm:
		m.execOpImm(insn)
	case OpReg:
		if Funct7(insn) == 1 {
			m.execMulDiv(insn)
		} else {
			m.execOp(insn)
		}
	case OpLui:
		m.setReg(Rd(insn), int32(ImmU(insn)<<12))
	case OpAuipc:
		m.setReg(Rd(insn), int32(m.pc+ImmU(insn)<<12))
	case OpSystem:
		m.execSystem(insn)
	case OpMiscMem:
		// FENCE orders nothing in a single-hart interpreter.
	case OpAMO:
		if m.hooks.Atomic != nil {
			m.hooks.Atomic.ExecAtomic(m, insn)
		}
	case OpLoadFP:
		m.execLoadFP(insn)
	case OpStoreFP:
		m.execStoreFP(insn)
	case OpMadd, OpMsub, OpNmsub, OpNmadd:
		m.execFused(insn)
	case OpFP:
		m.execOpFP(insn)
	default:
		// Reserved and custom opcodes execute as no-ops.
	}
}

func (m *Machine) execLoad(insn uint32) {
	rd := Rd(insn)
	if rd == 0 {
		return
	}
	addr := uint32(m.regs[Rs1(insn)] + ImmI(insn))

	switch Funct3(insn) {
	case 0b000: // LB
		if b := m.Resolve(addr, 1); b != nil {
			m.regs[rd] = int32(int8(b[0]))
		}
	case 0b001: // LH
		if b := m.Resolve(addr, 2); b != nil {
			m.regs[rd] = int32(int16(cpuEndian.Uint16(b)))
		}
	case 0b010: // LW
		if b := m.Resolve(addr, 4); b != nil {
			m.regs[rd] = int32(cpuEndian.Uint32(b))
		}
	case 0b100: // LBU
		if b := m.Resolve(addr, 1); b != nil {
			m.regs[rd] = int32(b[0])
		}
	case 0b101: // LHU
		if b := m.Resolve(addr, 2); b != nil {
			m.regs[rd] = int32(cpuEndian.Uint16(b))
		}
	}
}

func (m *Machine) execStore(insn uint32) {
	addr := uint32(m.regs[Rs1(insn)] + ImmS(insn))
	val := uint32(m.regs[Rs2(insn)])

	var size int
	switch Funct3(insn) {
	case 0b000: // SB
		size = 1
	case 0b001: // SH
		size = 2
	case 0b010: // SW
		size = 4
	default:
		return
	}
	b := m.Resolve(addr, size)
	if b == nil {
		return
	}
	for i := range b {
		b[i] = byte(val >> (8 * i))
	}
}

func (m *Machine) execBranch(insn uint32) {
	a := m.regs[Rs1(insn)]
	b := m.regs[Rs2(insn)]

	var taken bool
	switch Funct3(insn) {
	case 0b000: // BEQ
		taken = a == b
	case 0b001: // BNE
		taken = a != b
	case 0b100: // BLT
		taken = a < b
	case 0b101: // BGE
		taken = a >= b
	case 0b110: // BLTU
		taken = uint32(a) < uint32(b)
	case 0b111: // BGEU
		taken = uint32(a) >= uint32(b)
	}
	if taken {
		m.pc += uint32(ImmSB(insn))
		m.status |= StatusBR
	}
}

func (m *Machine) execJal(insn uint32) {
	target := m.pc + uint32(ImmUJ(insn))
	m.setReg(Rd(insn), int32(m.pc+4))
	m.pc = target
	m.status |= StatusJAL
}

// execJalr does not clear bit 0 of the target; all guest code is 4-byte
// aligned.
func (m *Machine) execJalr(insn uint32) {
	target := uint32(m.regs[Rs1(insn)] + ImmI(insn))
	m.setReg(Rd(insn), int32(m.pc+4))
	m.pc = target
	m.status |= StatusJALR
	if insn == retInsn {
		m.status |= StatusRET
	}
}

// isBitManip reports whether an OP or OP-IMM word uses a funct7 that the
// base and M extensions leave unassigned.
func isBitManip(insn uint32) bool {
	f3, f7 := Funct3(insn), Funct7(insn)
	if Opcode(insn) == OpImm {
		switch f3 {
		case 0b001:
			return f7 != 0
		case 0b101:
			return f7 != 0 && f7 != 0x20
		}
		return false
	}
	switch f7 {
	case 0x00, 0x01:
		return false
	case 0x20:
		return f3 != 0b000 && f3 != 0b101
	}
	return true
}

func (m *Machine) execBitManip(insn uint32) {
	if m.hooks.BitManip != nil {
		m.hooks.BitManip.ExecBitManip(m, insn)
	}
}

func (m *Machine) execOpImm(insn uint32) {
	if isBitManip(insn) {
		m.execBitManip(insn)
		return
	}
	rd := Rd(insn)
	if rd == 0 {
		return
	}
	src := m.regs[Rs1(insn)]
	imm := ImmI(insn)
	shamt := uint32(imm) & 0x1f

	switch Funct3(insn) {
	case 0b000: // ADDI
		m.regs[rd] = src + imm
	case 0b001: // SLLI
		m.regs[rd] = src << shamt
	case 0b010: // SLTI
		m.regs[rd] = b2i(src < imm)
	case 0b011: // SLTIU
		m.regs[rd] = b2i(uint32(src) < uint32(imm))
	case 0b100: // XORI
		m.regs[rd] = src ^ imm
	case 0b101:
		if Funct7(insn) == 0x20 { // SRAI
			m.regs[rd] = src >> shamt
		} else { // SRLI
			m.regs[rd] = int32(uint32(src) >> shamt)
		}
	case 0b110: // ORI
		m.regs[rd] = src | imm
	case 0b111: // ANDI
		m.regs[rd] = src & imm
	}
}

func (m *Machine) execOp(insn uint32) {
	if isBitManip(insn) {
		m.execBitManip(insn)
		return
	}
	rd := Rd(insn)
	if rd == 0 {
		return
	}
	a := m.regs[Rs1(insn)]
	b := m.regs[Rs2(insn)]
	alt := Funct7(insn) == 0x20
	shamt := uint32(b) & 0x1f

	switch Funct3(insn) {
	case 0b000:
		if alt { // SUB
			m.regs[rd] = a - b
		} else { // ADD
			m.regs[rd] = a + b
		}
	case 0b001: // SLL
		m.regs[rd] = a << shamt
	case 0b010: // SLT
		m.regs[rd] = b2i(a < b)
	case 0b011: // SLTU
		m.regs[rd] = b2i(uint32(a) < uint32(b))
	case 0b100: // XOR
		m.regs[rd] = a ^ b
	case 0b101:
		if alt { // SRA
			m.regs[rd] = a >> shamt
		} else { // SRL
			m.regs[rd] = int32(uint32(a) >> shamt)
		}
	case 0b110: // OR
		m.regs[rd] = a | b
	case 0b111: // AND
		m.regs[rd] = a & b
	}
}

func (m *Machine) execSystem(insn uint32) {
	if Funct3(insn) != 0 {
		m.log.Debug("csr access ignored", "pc", hex32(m.pc), "insn", hex32(insn))
		return
	}
	switch ImmI(insn) {
	case 0: // ECALL
		if m.hooks.Env != nil {
			m.hooks.Env.Ecall(m)
		}
	case 1: // EBREAK
		if m.hooks.Break != nil {
			m.hooks.Break.Ebreak(m)
		}
	}
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
