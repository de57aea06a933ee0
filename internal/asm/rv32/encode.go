package rv32

import (
	"encoding/binary"
	"fmt"

	"github.com/tinyrange/minion/internal/asm"
)

const (
	opLoad    = 0x03
	opLoadFP  = 0x07
	opMiscMem = 0x0F
	opImm     = 0x13
	opAuipc   = 0x17
	opStore   = 0x23
	opStoreFP = 0x27
	opAMO     = 0x2F
	opReg     = 0x33
	opLui     = 0x37
	opMadd    = 0x43
	opMsub    = 0x47
	opNmsub   = 0x4B
	opNmadd   = 0x4F
	opFP      = 0x53
	opBranch  = 0x63
	opJalr    = 0x67
	opJal     = 0x6F
	opSystem  = 0x73
)

// Float formats carried in the low two bits of funct7 and R4 words.
const (
	fmtS = 0
	fmtD = 1
)

// Default dynamic rounding mode used for arithmetic words.
const rmDyn = 7

func emitInsn(ctx asm.Context, insn uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], insn)
	ctx.EmitBytes(buf[:])
}

func insnBytes(insn uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], insn)
	return buf[:]
}

func checkReg(r asm.Variable) error {
	if r < 0 || r > 31 {
		return fmt.Errorf("rv32: register %d out of range", int(r))
	}
	return nil
}

func checkRegs(regs ...asm.Variable) error {
	for _, r := range regs {
		if err := checkReg(r); err != nil {
			return err
		}
	}
	return nil
}

func encodeR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return (funct7 << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode
}

func encodeR4(rs3, format, rs2, rs1, rm, rd, opcode uint32) uint32 {
	return (rs3 << 27) | (format << 25) | (rs2 << 20) | (rs1 << 15) | (rm << 12) | (rd << 7) | opcode
}

func encodeI(imm int32, rs1 uint32, funct3 uint32, rd uint32, opcode uint32) (uint32, error) {
	if imm < -2048 || imm > 2047 {
		return 0, fmt.Errorf("rv32: immediate %d out of range for I-type", imm)
	}
	uimm := uint32(imm) & 0xfff
	return (uimm << 20) | (rs1 << 15) | (funct3 << 12) | (rd << 7) | opcode, nil
}

func encodeS(imm int32, rs1 uint32, rs2 uint32, funct3 uint32, opcode uint32) (uint32, error) {
	if imm < -2048 || imm > 2047 {
		return 0, fmt.Errorf("rv32: immediate %d out of range for S-type", imm)
	}
	uimm := uint32(imm) & 0xfff
	immHi := (uimm >> 5) & 0x7f
	immLo := uimm & 0x1f

	return (immHi << 25) | (rs2 << 20) | (rs1 << 15) | (funct3 << 12) | (immLo << 7) | opcode, nil
}

func encodeB(imm int32, rs1 uint32, rs2 uint32, funct3 uint32) (uint32, error) {
	if imm < -4096 || imm > 4095 || imm&1 != 0 {
		return 0, fmt.Errorf("rv32: branch offset %d out of range for B-type", imm)
	}
	u := uint32(imm)
	return ((u>>12)&1)<<31 | ((u>>5)&0x3f)<<25 | (rs2 << 20) | (rs1 << 15) |
		(funct3 << 12) | ((u>>1)&0xf)<<8 | ((u>>11)&1)<<7 | opBranch, nil
}

func encodeU(imm int32, rd uint32, opcode uint32) (uint32, error) {
	if imm < -(1<<19) || imm > (1<<20)-1 {
		return 0, fmt.Errorf("rv32: immediate %d out of range for U-type", imm)
	}
	uimm := uint32(imm) & 0xfffff
	return (uimm << 12) | (rd << 7) | opcode, nil
}

func encodeJ(imm int32, rd uint32) (uint32, error) {
	if imm < -(1<<20) || imm >= (1<<20) || imm&1 != 0 {
		return 0, fmt.Errorf("rv32: jump offset %d out of range for J-type", imm)
	}
	u := uint32(imm)
	return ((u>>20)&1)<<31 | ((u>>1)&0x3ff)<<21 | ((u>>11)&1)<<20 |
		((u>>12)&0xff)<<12 | (rd << 7) | opJal, nil
}

// splitHiLo splits v into a LUI/AUIPC upper part and a signed 12-bit low part
// such that hi<<12 + lo == v modulo 2^32.
func splitHiLo(v int64) (hi int32, lo int32) {
	h := ((v + 0x800) >> 12) & 0xfffff
	l := v - ((v + 0x800) >> 12 << 12)
	if h >= 1<<19 {
		h -= 1 << 20
	}
	return int32(h), int32(l)
}
