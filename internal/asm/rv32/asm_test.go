package rv32

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/minion/internal/asm"
)

func words(t *testing.T, frag asm.Fragment) []uint32 {
	t.Helper()
	prog, err := EmitProgram(frag)
	require.NoError(t, err)
	code := prog.Bytes()
	require.Zero(t, len(code)%4)
	out := make([]uint32, len(code)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(code[i*4:])
	}
	return out
}

func TestEncodings(t *testing.T) {
	tests := []struct {
		name string
		frag asm.Fragment
		want uint32
	}{
		{"addi a0,a0,1", Addi(A0, A0, 1), 0x00150513},
		{"ret", Ret(), 0x00008067},
		{"lui a0,0x12345", Lui(A0, 0x12345), 0x12345537},
		{"add a0,a1,a2", Add(A0, A1, A2), 0x00c58533},
		{"sub a0,a1,a2", Sub(A0, A1, A2), 0x40c58533},
		{"sw a1,4(sp)", Sw(A1, SP, 4), 0x00b12223},
		{"lw a0,8(sp)", Lw(A0, SP, 8), 0x00812503},
		{"mul a0,a0,a1", Mul(A0, A0, A1), 0x02b50533},
		{"srai a0,a0,3", Srai(A0, A0, 3), 0x40355513},
		{"fadd.s fa0,fa0,fa1", FaddS(FA0, FA0, FA1), 0x00b57553},
		{"ecall", Ecall(), 0x00000073},
		{"ebreak", Ebreak(), 0x00100073},
		{"nop", Nop(), 0x00000013},
		{"li a0,-1", Li(A0, -1), 0xfff00513},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := words(t, tt.frag)
			require.Len(t, got, 1)
			assert.Equalf(t, tt.want, got[0], "got %08x want %08x", got[0], tt.want)
		})
	}
}

func TestLiWide(t *testing.T) {
	assert.Equal(t, []uint32{0x12345537, 0x67850513}, words(t, Li(A0, 0x12345678)))
	assert.Equal(t, []uint32{0x00001537, 0x80050513}, words(t, Li(A0, 0x800)))
	assert.Equal(t, []uint32{0x12345537}, words(t, Li(A0, 0x12345000)))
}

func TestBranchFixups(t *testing.T) {
	got := words(t, asm.Group{
		asm.MarkLabel("top"),
		Addi(A0, A0, -1),
		Bnez(A0, "top"),
	})
	assert.Equal(t, uint32(0xfe051ee3), got[1])

	got = words(t, asm.Group{
		J("end"),
		Nop(),
		asm.MarkLabel("end"),
	})
	assert.Equal(t, uint32(0x0080006f), got[0])
}

func TestLoadAddress(t *testing.T) {
	got := words(t, asm.Group{
		La(A0, "data"),
		Ret(),
		asm.MarkLabel("data"),
		Word(0xdeadbeef),
	})
	assert.Equal(t, []uint32{0x00000517, 0x00c50513, 0x00008067, 0xdeadbeef}, got)
}

func TestEmitErrors(t *testing.T) {
	_, err := EmitProgram(J("nowhere"))
	require.ErrorContains(t, err, "undefined label")

	_, err = EmitProgram(asm.Group{asm.MarkLabel("a"), asm.MarkLabel("a")})
	require.ErrorContains(t, err, "already defined")

	_, err = EmitProgram(Addi(A0, A0, 5000))
	require.ErrorContains(t, err, "out of range")

	_, err = EmitProgram(Add(A0, 40, A1))
	require.Error(t, err)

	_, err = EmitProgram(nil)
	require.Error(t, err)
}

func TestLink(t *testing.T) {
	bin, err := Link(Layout{CodeOrg: 0x1000, GP: 0x1800},
		Func("first", Li(A0, 7), Ret()),
		Func("msg", asm.String("hi")),
		Func("second", Call("first"), Ret()),
	)
	require.NoError(t, err)

	require.Len(t, bin.Funcs, 3)
	assert.Equal(t, "first", bin.Funcs[0].Name)
	assert.Equal(t, uint32(0x1000), bin.Funcs[0].Addr)
	assert.Equal(t, uint32(8), bin.Funcs[0].Size)
	assert.Equal(t, uint32(0x1008), bin.Funcs[1].Addr)
	assert.Equal(t, uint32(4), bin.Funcs[1].Size)
	assert.Equal(t, uint32(0x100c), bin.Funcs[2].Addr)
	assert.Equal(t, uint32(0x1800), bin.GP)
	assert.Len(t, bin.Code, 20)

	// jal ra, -12
	call := binary.LittleEndian.Uint32(bin.Code[12:])
	assert.Equal(t, uint32(0xff5ff0ef), call)

	_, err = Link(Layout{}, Func("x", Ret()), Func("x", Ret()))
	require.ErrorContains(t, err, "duplicate")
}
