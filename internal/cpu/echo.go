package cpu

import (
	"fmt"
	"strings"
)

// EchoConfig controls how instructions are rendered.
type EchoConfig struct {
	// ABINames prints a0, sp, fa1 instead of x10, x2, f11.
	ABINames bool
	// PseudoMnemonics prints nop, li, mv, ret, j, fmv.s, fneg.s and fabs.s
	// where the encoding allows.
	PseudoMnemonics bool
}

const invalidText = "<invalid>"

var (
	loadNames   = [8]string{0: "lb", 1: "lh", 2: "lw", 4: "lbu", 5: "lhu"}
	storeNames  = [8]string{0: "sb", 1: "sh", 2: "sw"}
	branchNames = [8]string{0: "beq", 1: "bne", 4: "blt", 5: "bge", 6: "bltu", 7: "bgeu"}
	opImmNames  = [8]string{"addi", "slli", "slti", "sltiu", "xori", "srli", "ori", "andi"}
	opNames     = [8]string{"add", "sll", "slt", "sltu", "xor", "srl", "or", "and"}
	mulDivNames = [8]string{"mul", "mulh", "mulhsu", "mulhu", "div", "divu", "rem", "remu"}
	fusedNames  = [4]string{"fmadd", "fmsub", "fnmsub", "fnmadd"}
	fpArith     = [4]string{"fadd", "fsub", "fmul", "fdiv"}
)

type disasm struct {
	pc   uint32
	insn uint32
	cfg  EchoConfig
}

func (d disasm) x(n uint32) string { return RegName(n, d.cfg.ABINames) }
func (d disasm) f(n uint32) string { return FRegName(n, d.cfg.ABINames) }

func (d disasm) mem(base uint32, imm int32) string {
	return fmt.Sprintf("%d(%s)", imm, d.x(base))
}

func (d disasm) target(off int32) string {
	return fmt.Sprintf("0x%X", d.pc+uint32(off))
}

func format(mnemonic string, operands ...string) string {
	if len(operands) == 0 {
		return mnemonic
	}
	return fmt.Sprintf("%-7s %s", mnemonic, strings.Join(operands, ", "))
}

// Disasm renders insn, located at pc, as "mnemonic operands". Branch and
// jump targets are printed as absolute addresses.
func Disasm(pc, insn uint32, cfg EchoConfig) string {
	if !Is32Bit(insn) {
		return invalidText
	}
	d := disasm{pc: pc, insn: insn, cfg: cfg}
	rd, rs1, rs2 := Rd(insn), Rs1(insn), Rs2(insn)
	f3 := Funct3(insn)
	pseudo := cfg.PseudoMnemonics

	switch Opcode(insn) {
	case OpLoad:
		if loadNames[f3] == "" {
			return invalidText
		}
		return format(loadNames[f3], d.x(rd), d.mem(rs1, ImmI(insn)))
	case OpStore:
		if storeNames[f3] == "" {
			return invalidText
		}
		return format(storeNames[f3], d.x(rs2), d.mem(rs1, ImmS(insn)))
	case OpBranch:
		if branchNames[f3] == "" {
			return invalidText
		}
		return format(branchNames[f3], d.x(rs1), d.x(rs2), d.target(ImmSB(insn)))
	case OpJal:
		if pseudo && rd == 0 {
			return format("j", d.target(ImmUJ(insn)))
		}
		return format("jal", d.x(rd), d.target(ImmUJ(insn)))
	case OpJalr:
		if pseudo && insn == retInsn {
			return "ret"
		}
		return format("jalr", d.x(rd), d.mem(rs1, ImmI(insn)))
	case OpImm:
		return d.opImm()
	case OpReg:
		if Funct7(insn) == 1 {
			return format(mulDivNames[f3], d.x(rd), d.x(rs1), d.x(rs2))
		}
		if isBitManip(insn) {
			return "<bitmanip>"
		}
		name := opNames[f3]
		if Funct7(insn) == 0x20 {
			name = "sub"
			if f3 == 0b101 {
				name = "sra"
			}
		}
		return format(name, d.x(rd), d.x(rs1), d.x(rs2))
	case OpLui:
		return format("lui", d.x(rd), fmt.Sprintf("0x%X", ImmU(insn)))
	case OpAuipc:
		return format("auipc", d.x(rd), fmt.Sprintf("0x%X", ImmU(insn)))
	case OpSystem:
		if f3 != 0 {
			return "<csr>"
		}
		switch ImmI(insn) {
		case 0:
			return "ecall"
		case 1:
			return "ebreak"
		}
		return invalidText
	case OpMiscMem:
		return "fence"
	case OpAMO:
		return "<atomic>"
	case OpLoadFP:
		switch f3 {
		case 0b010:
			return format("flw", d.f(rd), d.mem(rs1, ImmI(insn)))
		case 0b011:
			return format("fld", d.f(rd), d.mem(rs1, ImmI(insn)))
		}
		return invalidText
	case OpStoreFP:
		switch f3 {
		case 0b010:
			return format("fsw", d.f(rs2), d.mem(rs1, ImmS(insn)))
		case 0b011:
			return format("fsd", d.f(rs2), d.mem(rs1, ImmS(insn)))
		}
		return invalidText
	case OpMadd, OpMsub, OpNmsub, OpNmadd:
		suffix, ok := precSuffix(insn)
		if !ok {
			return invalidText
		}
		return format(fusedNames[OpGroup(insn)]+suffix, d.f(rd), d.f(rs1), d.f(rs2), d.f(Rs3(insn)))
	case OpFP:
		return d.opFP()
	}
	return invalidText
}

func precSuffix(insn uint32) (string, bool) {
	switch precision(insn) {
	case precSingle:
		return ".s", true
	case precDouble:
		return ".d", true
	}
	return "", false
}

func (d disasm) opImm() string {
	insn := d.insn
	if isBitManip(insn) {
		return "<bitmanip>"
	}
	rd, rs1, f3 := Rd(insn), Rs1(insn), Funct3(insn)
	imm := ImmI(insn)

	switch f3 {
	case 0b000:
		if d.cfg.PseudoMnemonics {
			switch {
			case rd == 0 && rs1 == 0 && imm == 0:
				return "nop"
			case rs1 == 0:
				return format("li", d.x(rd), fmt.Sprint(imm))
			case imm == 0:
				return format("mv", d.x(rd), d.x(rs1))
			}
		}
	case 0b001, 0b101:
		name := opImmNames[f3]
		if f3 == 0b101 && Funct7(insn) == 0x20 {
			name = "srai"
		}
		return format(name, d.x(rd), d.x(rs1), fmt.Sprint(uint32(imm)&0x1f))
	}
	return format(opImmNames[f3], d.x(rd), d.x(rs1), fmt.Sprint(imm))
}

func (d disasm) opFP() string {
	insn := d.insn
	rd, rs1, rs2, f3 := Rd(insn), Rs1(insn), Rs2(insn), Funct3(insn)
	funct5 := insn >> 27

	if precision(insn) != precSingle {
		if precision(insn) == precDouble && funct5 < 4 {
			return format(fpArith[funct5]+".d", d.f(rd), d.f(rs1), d.f(rs2))
		}
		return invalidText
	}

	fff := func(name string) string { return format(name, d.f(rd), d.f(rs1), d.f(rs2)) }
	ff := func(name string) string { return format(name, d.f(rd), d.f(rs1)) }
	xff := func(name string) string { return format(name, d.x(rd), d.f(rs1), d.f(rs2)) }
	xf := func(name string) string { return format(name, d.x(rd), d.f(rs1)) }
	fx := func(name string) string { return format(name, d.f(rd), d.x(rs1)) }

	pseudo := d.cfg.PseudoMnemonics && rs1 == rs2
	switch funct5 {
	case 0x00, 0x01, 0x02, 0x03:
		return fff(fpArith[funct5] + ".s")
	case 0x04:
		switch f3 {
		case 0b000:
			if pseudo {
				return ff("fmv.s")
			}
			return fff("fsgnj.s")
		case 0b001:
			if pseudo {
				return ff("fneg.s")
			}
			return fff("fsgnjn.s")
		case 0b010:
			if pseudo {
				return ff("fabs.s")
			}
			return fff("fsgnjx.s")
		}
	case 0x05:
		switch f3 {
		case 0b000:
			return fff("fmin.s")
		case 0b001:
			return fff("fmax.s")
		}
	case 0x08:
		return ff("fcvt.s.d")
	case 0x0B:
		return ff("fsqrt.s")
	case 0x14:
		switch f3 {
		case 0b000:
			return xff("fle.s")
		case 0b001:
			return xff("flt.s")
		case 0b010:
			return xff("feq.s")
		}
	case 0x18:
		if rs2 == 0 {
			return xf("fcvt.w.s")
		}
		return xf("fcvt.wu.s")
	case 0x1A:
		if rs2 == 0 {
			return fx("fcvt.s.w")
		}
		return fx("fcvt.s.wu")
	case 0x1C:
		if f3 == 0 {
			return xf("fmv.x.w")
		}
		return xf("fclass.s")
	case 0x1E:
		return fx("fmv.w.x")
	}
	return invalidText
}
