package cpu

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/arch/riscv64/riscv64asm"

	"github.com/tinyrange/minion/internal/asm"
	"github.com/tinyrange/minion/internal/asm/rv32"
)

func TestDisasm(t *testing.T) {
	abi := EchoConfig{ABINames: true, PseudoMnemonics: true}
	raw := EchoConfig{}

	for _, tc := range []struct {
		frag asm.Fragment
		cfg  EchoConfig
		want string
	}{
		{rv32.Nop(), abi, "nop"},
		{rv32.Nop(), raw, "addi    x0, x0, 0"},
		{rv32.Li(rv32.A0, 42), abi, "li      a0, 42"},
		{rv32.Li(rv32.A0, -1), raw, "addi    x10, x0, -1"},
		{rv32.Mv(rv32.S1, rv32.A5), abi, "mv      s1, a5"},
		{rv32.Ret(), abi, "ret"},
		{rv32.Ret(), raw, "jalr    x0, 0(x1)"},
		{rv32.Lw(rv32.A0, rv32.SP, -4), abi, "lw      a0, -4(sp)"},
		{rv32.Sb(rv32.T1, rv32.GP, 12), abi, "sb      t1, 12(gp)"},
		{rv32.Sub(rv32.A0, rv32.A1, rv32.A2), abi, "sub     a0, a1, a2"},
		{rv32.Sra(rv32.A0, rv32.A1, rv32.A2), abi, "sra     a0, a1, a2"},
		{rv32.Srai(rv32.T0, rv32.T0, 3), abi, "srai    t0, t0, 3"},
		{rv32.Remu(rv32.A0, rv32.A0, rv32.A1), abi, "remu    a0, a0, a1"},
		{rv32.Lui(rv32.A0, 0x12345), abi, "lui     a0, 0x12345"},
		{rv32.Ecall(), abi, "ecall"},
		{rv32.Ebreak(), abi, "ebreak"},
		{rv32.Fence(), abi, "fence"},
		{rv32.FaddS(rv32.FA0, rv32.FA1, rv32.FA2), abi, "fadd.s  fa0, fa1, fa2"},
		{rv32.FaddS(rv32.FA0, rv32.FA1, rv32.FA2), raw, "fadd.s  f10, f11, f12"},
		{rv32.FnegS(rv32.FA0, rv32.FA1), abi, "fneg.s  fa0, fa1"},
		{rv32.FnegS(rv32.FA0, rv32.FA1), raw, "fsgnjn.s f10, f11, f11"},
		{rv32.FabsS(rv32.FT0, rv32.FT1), abi, "fabs.s  ft0, ft1"},
		{rv32.FmvS(rv32.FS0, rv32.FS1), abi, "fmv.s   fs0, fs1"},
		{rv32.FcvtWS(rv32.A0, rv32.FA0), abi, "fcvt.w.s a0, fa0"},
		{rv32.FclassS(rv32.A0, rv32.FA0), abi, "fclass.s a0, fa0"},
		{rv32.Flw(rv32.FA0, rv32.SP, 8), abi, "flw     fa0, 8(sp)"},
		{rv32.Fsd(rv32.FA0, rv32.SP, 8), abi, "fsd     fa0, 8(sp)"},
		{rv32.FmaddS(rv32.FA0, rv32.FA1, rv32.FA2, rv32.FA3), abi, "fmadd.s fa0, fa1, fa2, fa3"},
		{rv32.FaddD(rv32.FA0, rv32.FA1, rv32.FA2), abi, "fadd.d  fa0, fa1, fa2"},
		{rv32.Word(0x0000202f), abi, "<atomic>"},
		{rv32.Word(0x60051513), abi, "<bitmanip>"},
		{rv32.Word(0x30002573), abi, "<csr>"},
		{rv32.Word(0x00000001), abi, "<invalid>"},
		{rv32.Word(0x0000005b), abi, "<invalid>"},
	} {
		assert.Equal(t, tc.want, Disasm(0x1000, encode(t, tc.frag), tc.cfg))
	}
}

func TestDisasmTargets(t *testing.T) {
	cfg := EchoConfig{ABINames: true, PseudoMnemonics: true}

	prog := rv32.MustEmit(branchAt(-8, rv32.Bne(rv32.A0, rv32.Zero, "target")))
	at, _ := prog.Label("insn")
	insn := leWord(prog.Bytes()[at:])
	assert.Equal(t, "bne     a0, zero, 0xFF8", Disasm(0x1000, insn, cfg))

	prog = rv32.MustEmit(branchAt(16, rv32.J("target")))
	insn = leWord(prog.Bytes())
	assert.Equal(t, "j       0x2010", Disasm(0x2000, insn, cfg))

	prog = rv32.MustEmit(branchAt(16, rv32.Call("target")))
	insn = leWord(prog.Bytes())
	assert.Equal(t, "jal     ra, 0x2010", Disasm(0x2000, insn, cfg))
}

// TestDisasmMatchesReferenceDecoder checks base mnemonics against the
// x/arch RISC-V decoder, which shares the 32-bit encodings with RV64.
func TestDisasmMatchesReferenceDecoder(t *testing.T) {
	frags := []asm.Fragment{
		rv32.Lb(rv32.A0, rv32.A1, 1), rv32.Lh(rv32.A0, rv32.A1, 2), rv32.Lw(rv32.A0, rv32.A1, 4),
		rv32.Lbu(rv32.A0, rv32.A1, 1), rv32.Lhu(rv32.A0, rv32.A1, 2),
		rv32.Sb(rv32.A0, rv32.A1, 1), rv32.Sh(rv32.A0, rv32.A1, 2), rv32.Sw(rv32.A0, rv32.A1, 4),
		rv32.Addi(rv32.A0, rv32.A1, 5), rv32.Slti(rv32.A0, rv32.A1, 5), rv32.Sltiu(rv32.A0, rv32.A1, 5),
		rv32.Xori(rv32.A0, rv32.A1, 5), rv32.Ori(rv32.A0, rv32.A1, 5), rv32.Andi(rv32.A0, rv32.A1, 5),
		rv32.Slli(rv32.A0, rv32.A1, 3), rv32.Srli(rv32.A0, rv32.A1, 3), rv32.Srai(rv32.A0, rv32.A1, 3),
		rv32.Add(rv32.A0, rv32.A1, rv32.A2), rv32.Sub(rv32.A0, rv32.A1, rv32.A2),
		rv32.Sll(rv32.A0, rv32.A1, rv32.A2), rv32.Slt(rv32.A0, rv32.A1, rv32.A2),
		rv32.Sltu(rv32.A0, rv32.A1, rv32.A2), rv32.Xor(rv32.A0, rv32.A1, rv32.A2),
		rv32.Srl(rv32.A0, rv32.A1, rv32.A2), rv32.Sra(rv32.A0, rv32.A1, rv32.A2),
		rv32.Or(rv32.A0, rv32.A1, rv32.A2), rv32.And(rv32.A0, rv32.A1, rv32.A2),
		rv32.Mul(rv32.A0, rv32.A1, rv32.A2), rv32.Mulh(rv32.A0, rv32.A1, rv32.A2),
		rv32.Mulhsu(rv32.A0, rv32.A1, rv32.A2), rv32.Mulhu(rv32.A0, rv32.A1, rv32.A2),
		rv32.Div(rv32.A0, rv32.A1, rv32.A2), rv32.Divu(rv32.A0, rv32.A1, rv32.A2),
		rv32.Rem(rv32.A0, rv32.A1, rv32.A2), rv32.Remu(rv32.A0, rv32.A1, rv32.A2),
		rv32.Lui(rv32.A0, 1), rv32.Auipc(rv32.A0, 1), rv32.Jalr(rv32.RA, rv32.A0, 4),
		rv32.Ecall(), rv32.Ebreak(),
		rv32.Flw(rv32.FA0, rv32.A1, 4), rv32.Fld(rv32.FA0, rv32.A1, 8),
		rv32.Fsw(rv32.FA0, rv32.A1, 4), rv32.Fsd(rv32.FA0, rv32.A1, 8),
		rv32.FaddS(rv32.FA0, rv32.FA1, rv32.FA2), rv32.FsubS(rv32.FA0, rv32.FA1, rv32.FA2),
		rv32.FmulS(rv32.FA0, rv32.FA1, rv32.FA2), rv32.FdivS(rv32.FA0, rv32.FA1, rv32.FA2),
		rv32.FsqrtS(rv32.FA0, rv32.FA1),
		rv32.FsgnjS(rv32.FA0, rv32.FA1, rv32.FA2), rv32.FsgnjnS(rv32.FA0, rv32.FA1, rv32.FA2),
		rv32.FsgnjxS(rv32.FA0, rv32.FA1, rv32.FA2),
		rv32.FminS(rv32.FA0, rv32.FA1, rv32.FA2), rv32.FmaxS(rv32.FA0, rv32.FA1, rv32.FA2),
		rv32.FleS(rv32.A0, rv32.FA1, rv32.FA2), rv32.FltS(rv32.A0, rv32.FA1, rv32.FA2),
		rv32.FeqS(rv32.A0, rv32.FA1, rv32.FA2),
		rv32.FcvtWS(rv32.A0, rv32.FA1), rv32.FcvtWUS(rv32.A0, rv32.FA1),
		rv32.FcvtSW(rv32.FA0, rv32.A1), rv32.FcvtSWU(rv32.FA0, rv32.A1),
		rv32.FcvtSD(rv32.FA0, rv32.FA1),
		rv32.FmvXW(rv32.A0, rv32.FA1), rv32.FclassS(rv32.A0, rv32.FA1), rv32.FmvWX(rv32.FA0, rv32.A1),
		rv32.FmaddS(rv32.FA0, rv32.FA1, rv32.FA2, rv32.FA3), rv32.FmsubS(rv32.FA0, rv32.FA1, rv32.FA2, rv32.FA3),
		rv32.FnmsubS(rv32.FA0, rv32.FA1, rv32.FA2, rv32.FA3), rv32.FnmaddS(rv32.FA0, rv32.FA1, rv32.FA2, rv32.FA3),
		rv32.FaddD(rv32.FA0, rv32.FA1, rv32.FA2),
	}

	for _, frag := range frags {
		insn := encode(t, frag)
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], insn)

		ref, err := riscv64asm.Decode(buf[:])
		require.NoError(t, err, "%08x", insn)
		want := strings.ReplaceAll(strings.ToLower(ref.Op.String()), "_", ".")

		got := strings.Fields(Disasm(0, insn, EchoConfig{}))[0]
		assert.Equal(t, want, got, "%08x", insn)
	}
}
