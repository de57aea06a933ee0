package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinyrange/minion/internal/asm"
	"github.com/tinyrange/minion/internal/asm/rv32"
)

func TestFields(t *testing.T) {
	// add a0, a1, a2
	insn := uint32(0x00c58533)
	assert.Equal(t, uint32(0x33), Opcode(insn))
	assert.Equal(t, uint32(10), Rd(insn))
	assert.Equal(t, uint32(11), Rs1(insn))
	assert.Equal(t, uint32(12), Rs2(insn))
	assert.Equal(t, uint32(0), Funct3(insn))
	assert.Equal(t, uint32(0), Funct7(insn))
	assert.Equal(t, uint32(4), OpGroup(insn))
	assert.Equal(t, uint32(1), OpClass(insn))
	assert.True(t, Is32Bit(insn))

	// fmadd.s ft0, ft1, ft2, ft3
	fma := encode(t, rv32.FmaddS(rv32.FT0, rv32.FT1, rv32.FT2, rv32.FT3))
	assert.Equal(t, uint32(3), Rs3(fma))

	assert.False(t, Is32Bit(0x00000001), "compressed quadrant")
	assert.False(t, Is32Bit(0x0000001f), "48-bit prefix")
	assert.False(t, Is32Bit(0))
}

func TestImmediates(t *testing.T) {
	for _, imm := range []int32{0, 1, -1, 5, -5, 2047, -2048, 0x7f0, -0x555} {
		assert.Equal(t, imm, ImmI(encode(t, rv32.Addi(rv32.A0, rv32.A0, imm))), "I %d", imm)
		assert.Equal(t, imm, ImmS(encode(t, rv32.Sw(rv32.A0, rv32.SP, imm))), "S %d", imm)
	}
	for _, imm := range []int32{0, 1, 0x12345, 0xfffff, 0x80000} {
		assert.Equal(t, uint32(imm), ImmU(encode(t, rv32.Lui(rv32.A0, imm))), "U %#x", imm)
	}
}

func TestBranchAndJumpImmediates(t *testing.T) {
	for _, off := range []int{4, 8, -4, -8, 2044, -2048, 4092, -4096} {
		frag := branchAt(off, rv32.Beq(rv32.A0, rv32.A1, "target"))
		prog := rv32.MustEmit(frag)
		at, _ := prog.Label("insn")
		insn := leWord(prog.Bytes()[at:])
		assert.Equal(t, int32(off), ImmSB(insn), "B %d", off)
	}
	for _, off := range []int{4, -4, 0x7fffc, -0x80000, 2048, -2050} {
		frag := branchAt(off, rv32.Jal(rv32.RA, "target"))
		prog := rv32.MustEmit(frag)
		at, _ := prog.Label("insn")
		insn := leWord(prog.Bytes()[at:])
		assert.Equal(t, int32(off), ImmUJ(insn), "J %d", off)
	}
}

// branchAt places frag so that its target label lies off bytes away.
func branchAt(off int, frag asm.Fragment) asm.Fragment {
	if off > 0 {
		return asm.Group{
			asm.MarkLabel("insn"),
			frag,
			asm.Bytes(make([]byte, off-4)),
			asm.MarkLabel("target"),
		}
	}
	return asm.Group{
		asm.MarkLabel("target"),
		asm.Bytes(make([]byte, -off)),
		asm.MarkLabel("insn"),
		frag,
	}
}

func leWord(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
