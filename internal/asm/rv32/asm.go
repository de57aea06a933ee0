// Package rv32 assembles RV32G guest code from asm fragments.
package rv32

import (
	"github.com/tinyrange/minion/internal/asm"
)

const (
	X0 asm.Variable = iota
	X1
	X2
	X3
	X4
	X5
	X6
	X7
	X8
	X9
	X10
	X11
	X12
	X13
	X14
	X15
	X16
	X17
	X18
	X19
	X20
	X21
	X22
	X23
	X24
	X25
	X26
	X27
	X28
	X29
	X30
	X31
)

// ABI names for the integer registers.
const (
	Zero = X0
	RA   = X1
	SP   = X2
	GP   = X3
	TP   = X4
	T0   = X5
	T1   = X6
	T2   = X7
	S0   = X8
	S1   = X9
	A0   = X10
	A1   = X11
	A2   = X12
	A3   = X13
	A4   = X14
	A5   = X15
	A6   = X16
	A7   = X17
	S2   = X18
	S3   = X19
	S4   = X20
	S5   = X21
	S6   = X22
	S7   = X23
	S8   = X24
	S9   = X25
	S10  = X26
	S11  = X27
	T3   = X28
	T4   = X29
	T5   = X30
	T6   = X31
)

// Float registers share the 0..31 numbering with the integer file; the
// instruction decides which file an operand refers to.
const (
	F0 asm.Variable = iota
	F1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
	F13
	F14
	F15
	F16
	F17
	F18
	F19
	F20
	F21
	F22
	F23
	F24
	F25
	F26
	F27
	F28
	F29
	F30
	F31
)

const (
	FT0  = F0
	FT1  = F1
	FT2  = F2
	FT3  = F3
	FS0  = F8
	FS1  = F9
	FA0  = F10
	FA1  = F11
	FA2  = F12
	FA3  = F13
	FS2  = F18
	FT8  = F28
	FT11 = F31
)

type rType struct {
	op, f3, f7   uint32
	rd, rs1, rs2 asm.Variable
}

type r4Type struct {
	op, fmt, rm       uint32
	rd, rs1, rs2, rs3 asm.Variable
}

type iType struct {
	op, f3  uint32
	rd, rs1 asm.Variable
	imm     int32
}

type sType struct {
	op, f3   uint32
	rs1, rs2 asm.Variable
	imm      int32
}

type uType struct {
	op  uint32
	rd  asm.Variable
	imm int32
}

type branch struct {
	f3       uint32
	rs1, rs2 asm.Variable
	target   asm.Label
}

type jump struct {
	rd     asm.Variable
	target asm.Label
}

type loadAddress struct {
	rd     asm.Variable
	target asm.Label
}

type loadImmediate struct {
	rd    asm.Variable
	value int32
}

type word uint32

func (r rType) Emit(ctx asm.Context) error {
	if err := checkRegs(r.rd, r.rs1, r.rs2); err != nil {
		return err
	}
	emitInsn(ctx, encodeR(r.f7, uint32(r.rs2), uint32(r.rs1), r.f3, uint32(r.rd), r.op))
	return nil
}

func (r r4Type) Emit(ctx asm.Context) error {
	if err := checkRegs(r.rd, r.rs1, r.rs2, r.rs3); err != nil {
		return err
	}
	emitInsn(ctx, encodeR4(uint32(r.rs3), r.fmt, uint32(r.rs2), uint32(r.rs1), r.rm, uint32(r.rd), r.op))
	return nil
}

func (i iType) Emit(ctx asm.Context) error {
	if err := checkRegs(i.rd, i.rs1); err != nil {
		return err
	}
	insn, err := encodeI(i.imm, uint32(i.rs1), i.f3, uint32(i.rd), i.op)
	if err != nil {
		return err
	}
	emitInsn(ctx, insn)
	return nil
}

func (s sType) Emit(ctx asm.Context) error {
	if err := checkRegs(s.rs1, s.rs2); err != nil {
		return err
	}
	insn, err := encodeS(s.imm, uint32(s.rs1), uint32(s.rs2), s.f3, s.op)
	if err != nil {
		return err
	}
	emitInsn(ctx, insn)
	return nil
}

func (u uType) Emit(ctx asm.Context) error {
	if err := checkReg(u.rd); err != nil {
		return err
	}
	insn, err := encodeU(u.imm, uint32(u.rd), u.op)
	if err != nil {
		return err
	}
	emitInsn(ctx, insn)
	return nil
}

func (b branch) Emit(ctx asm.Context) error {
	if err := checkRegs(b.rs1, b.rs2); err != nil {
		return err
	}
	ctx.AddFixup(b.target, 4, func(at, target int) ([]byte, error) {
		insn, err := encodeB(int32(target-at), uint32(b.rs1), uint32(b.rs2), b.f3)
		if err != nil {
			return nil, err
		}
		return insnBytes(insn), nil
	})
	return nil
}

func (j jump) Emit(ctx asm.Context) error {
	if err := checkReg(j.rd); err != nil {
		return err
	}
	ctx.AddFixup(j.target, 4, func(at, target int) ([]byte, error) {
		insn, err := encodeJ(int32(target-at), uint32(j.rd))
		if err != nil {
			return nil, err
		}
		return insnBytes(insn), nil
	})
	return nil
}

func (l loadAddress) Emit(ctx asm.Context) error {
	if err := checkReg(l.rd); err != nil {
		return err
	}
	ctx.AddFixup(l.target, 8, func(at, target int) ([]byte, error) {
		hi, lo := splitHiLo(int64(target - at))
		auipc, err := encodeU(hi, uint32(l.rd), opAuipc)
		if err != nil {
			return nil, err
		}
		addi, err := encodeI(lo, uint32(l.rd), 0, uint32(l.rd), opImm)
		if err != nil {
			return nil, err
		}
		return append(insnBytes(auipc), insnBytes(addi)...), nil
	})
	return nil
}

func (l loadImmediate) Emit(ctx asm.Context) error {
	if l.value >= -2048 && l.value <= 2047 {
		return iType{op: opImm, rd: l.rd, rs1: X0, imm: l.value}.Emit(ctx)
	}
	hi, lo := splitHiLo(int64(l.value))
	if err := (uType{op: opLui, rd: l.rd, imm: hi}).Emit(ctx); err != nil {
		return err
	}
	if lo == 0 {
		return nil
	}
	return iType{op: opImm, rd: l.rd, rs1: l.rd, imm: lo}.Emit(ctx)
}

func (w word) Emit(ctx asm.Context) error {
	emitInsn(ctx, uint32(w))
	return nil
}

// Word emits a raw 32-bit little-endian value. It is also used to place
// arbitrary instruction encodings.
func Word(v uint32) asm.Fragment { return word(v) }

func Lui(rd asm.Variable, imm20 int32) asm.Fragment {
	return uType{op: opLui, rd: rd, imm: imm20}
}

func Auipc(rd asm.Variable, imm20 int32) asm.Fragment {
	return uType{op: opAuipc, rd: rd, imm: imm20}
}

func Jal(rd asm.Variable, target asm.Label) asm.Fragment {
	return jump{rd: rd, target: target}
}

func Jalr(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opJalr, rd: rd, rs1: rs1, imm: imm}
}

func Beq(rs1, rs2 asm.Variable, target asm.Label) asm.Fragment {
	return branch{f3: 0, rs1: rs1, rs2: rs2, target: target}
}

func Bne(rs1, rs2 asm.Variable, target asm.Label) asm.Fragment {
	return branch{f3: 1, rs1: rs1, rs2: rs2, target: target}
}

func Blt(rs1, rs2 asm.Variable, target asm.Label) asm.Fragment {
	return branch{f3: 4, rs1: rs1, rs2: rs2, target: target}
}

func Bge(rs1, rs2 asm.Variable, target asm.Label) asm.Fragment {
	return branch{f3: 5, rs1: rs1, rs2: rs2, target: target}
}

func Bltu(rs1, rs2 asm.Variable, target asm.Label) asm.Fragment {
	return branch{f3: 6, rs1: rs1, rs2: rs2, target: target}
}

func Bgeu(rs1, rs2 asm.Variable, target asm.Label) asm.Fragment {
	return branch{f3: 7, rs1: rs1, rs2: rs2, target: target}
}

// Loads take the destination first and the base register second, as in
// "lw rd, imm(rs1)".

func Lb(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opLoad, f3: 0, rd: rd, rs1: rs1, imm: imm}
}

func Lh(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opLoad, f3: 1, rd: rd, rs1: rs1, imm: imm}
}

func Lw(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opLoad, f3: 2, rd: rd, rs1: rs1, imm: imm}
}

func Lbu(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opLoad, f3: 4, rd: rd, rs1: rs1, imm: imm}
}

func Lhu(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opLoad, f3: 5, rd: rd, rs1: rs1, imm: imm}
}

// Stores take the source first and the base register second, as in
// "sw rs2, imm(rs1)".

func Sb(rs2, rs1 asm.Variable, imm int32) asm.Fragment {
	return sType{op: opStore, f3: 0, rs1: rs1, rs2: rs2, imm: imm}
}

func Sh(rs2, rs1 asm.Variable, imm int32) asm.Fragment {
	return sType{op: opStore, f3: 1, rs1: rs1, rs2: rs2, imm: imm}
}

func Sw(rs2, rs1 asm.Variable, imm int32) asm.Fragment {
	return sType{op: opStore, f3: 2, rs1: rs1, rs2: rs2, imm: imm}
}

func Addi(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opImm, f3: 0, rd: rd, rs1: rs1, imm: imm}
}

func Slti(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opImm, f3: 2, rd: rd, rs1: rs1, imm: imm}
}

func Sltiu(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opImm, f3: 3, rd: rd, rs1: rs1, imm: imm}
}

func Xori(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opImm, f3: 4, rd: rd, rs1: rs1, imm: imm}
}

func Ori(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opImm, f3: 6, rd: rd, rs1: rs1, imm: imm}
}

func Andi(rd, rs1 asm.Variable, imm int32) asm.Fragment {
	return iType{op: opImm, f3: 7, rd: rd, rs1: rs1, imm: imm}
}

func Slli(rd, rs1 asm.Variable, shamt uint32) asm.Fragment {
	return iType{op: opImm, f3: 1, rd: rd, rs1: rs1, imm: int32(shamt & 0x1f)}
}

func Srli(rd, rs1 asm.Variable, shamt uint32) asm.Fragment {
	return iType{op: opImm, f3: 5, rd: rd, rs1: rs1, imm: int32(shamt & 0x1f)}
}

func Srai(rd, rs1 asm.Variable, shamt uint32) asm.Fragment {
	return iType{op: opImm, f3: 5, rd: rd, rs1: rs1, imm: 0x400 | int32(shamt&0x1f)}
}

func Add(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 0, rd: rd, rs1: rs1, rs2: rs2}
}

func Sub(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 0, f7: 0x20, rd: rd, rs1: rs1, rs2: rs2}
}

func Sll(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 1, rd: rd, rs1: rs1, rs2: rs2}
}

func Slt(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 2, rd: rd, rs1: rs1, rs2: rs2}
}

func Sltu(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 3, rd: rd, rs1: rs1, rs2: rs2}
}

func Xor(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 4, rd: rd, rs1: rs1, rs2: rs2}
}

func Srl(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 5, rd: rd, rs1: rs1, rs2: rs2}
}

func Sra(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 5, f7: 0x20, rd: rd, rs1: rs1, rs2: rs2}
}

func Or(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 6, rd: rd, rs1: rs1, rs2: rs2}
}

func And(rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: 7, rd: rd, rs1: rs1, rs2: rs2}
}

func Fence() asm.Fragment  { return word(0x0ff0000f) }
func Ecall() asm.Fragment  { return word(0x00000073) }
func Ebreak() asm.Fragment { return word(0x00100073) }

func mext(f3 uint32, rd, rs1, rs2 asm.Variable) asm.Fragment {
	return rType{op: opReg, f3: f3, f7: 1, rd: rd, rs1: rs1, rs2: rs2}
}

func Mul(rd, rs1, rs2 asm.Variable) asm.Fragment    { return mext(0, rd, rs1, rs2) }
func Mulh(rd, rs1, rs2 asm.Variable) asm.Fragment   { return mext(1, rd, rs1, rs2) }
func Mulhsu(rd, rs1, rs2 asm.Variable) asm.Fragment { return mext(2, rd, rs1, rs2) }
func Mulhu(rd, rs1, rs2 asm.Variable) asm.Fragment  { return mext(3, rd, rs1, rs2) }
func Div(rd, rs1, rs2 asm.Variable) asm.Fragment    { return mext(4, rd, rs1, rs2) }
func Divu(rd, rs1, rs2 asm.Variable) asm.Fragment   { return mext(5, rd, rs1, rs2) }
func Rem(rd, rs1, rs2 asm.Variable) asm.Fragment    { return mext(6, rd, rs1, rs2) }
func Remu(rd, rs1, rs2 asm.Variable) asm.Fragment   { return mext(7, rd, rs1, rs2) }

// Pseudo-instructions.

func Nop() asm.Fragment { return Addi(X0, X0, 0) }

// Li loads a 32-bit constant with ADDI, or LUI followed by ADDI when the
// value does not fit in 12 bits.
func Li(rd asm.Variable, value int32) asm.Fragment {
	return loadImmediate{rd: rd, value: value}
}

func Mv(rd, rs asm.Variable) asm.Fragment { return Addi(rd, rs, 0) }

func Neg(rd, rs asm.Variable) asm.Fragment { return Sub(rd, X0, rs) }

func J(target asm.Label) asm.Fragment { return Jal(X0, target) }

func Call(target asm.Label) asm.Fragment { return Jal(RA, target) }

func Ret() asm.Fragment { return Jalr(X0, RA, 0) }

func Beqz(rs asm.Variable, target asm.Label) asm.Fragment { return Beq(rs, X0, target) }

func Bnez(rs asm.Variable, target asm.Label) asm.Fragment { return Bne(rs, X0, target) }

// La loads the address of target with AUIPC and ADDI.
func La(rd asm.Variable, target asm.Label) asm.Fragment {
	return loadAddress{rd: rd, target: target}
}
