package cpu

// Instruction field extraction. Every function is total over uint32.

func Opcode(insn uint32) uint32 { return insn & 0x7f }

// OpGroup returns bits [4:2] of the opcode.
func OpGroup(insn uint32) uint32 { return (insn >> 2) & 7 }

// OpClass returns bits [6:5] of the opcode.
func OpClass(insn uint32) uint32 { return (insn >> 5) & 3 }

// Is32Bit reports whether insn is a standard 32-bit encoding.
func Is32Bit(insn uint32) bool { return insn&3 == 3 && OpGroup(insn) != 7 }

func Rd(insn uint32) uint32     { return (insn >> 7) & 0x1f }
func Rs1(insn uint32) uint32    { return (insn >> 15) & 0x1f }
func Rs2(insn uint32) uint32    { return (insn >> 20) & 0x1f }
func Rs3(insn uint32) uint32    { return (insn >> 27) & 0x1f }
func Funct3(insn uint32) uint32 { return (insn >> 12) & 7 }
func Funct7(insn uint32) uint32 { return (insn >> 25) & 0x7f }

func ImmI(insn uint32) int32 { return int32(insn) >> 20 }

func ImmS(insn uint32) int32 {
	return int32((insn>>7)&0x1f) | (int32(insn)>>20)&^0x1f
}

// ImmU returns the upper immediate unshifted; callers shift it left by 12.
func ImmU(insn uint32) uint32 { return insn >> 12 }

func ImmUJ(insn uint32) int32 {
	v := (insn>>11)&(1<<20) |
		(insn>>20)&(0x3ff<<1) |
		(insn>>9)&(1<<11) |
		insn&(0xff<<12)
	return int32(v<<11) >> 11
}

func ImmSB(insn uint32) int32 {
	v := (insn>>19)&(1<<12) |
		(insn>>20)&(0x3f<<5) |
		(insn>>7)&(0xf<<1) |
		(insn&(1<<7))<<4
	return int32(v<<19) >> 19
}
