package cpu

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyrange/minion/internal/asm"
	"github.com/tinyrange/minion/internal/asm/rv32"
)

func TestRunStepLimit(t *testing.T) {
	m := newTestMachine(t,
		asm.MarkLabel("spin"),
		rv32.J("spin"),
	)
	err := m.Run(context.Background(), 0, 50)
	require.ErrorIs(t, err, ErrStepLimit)
	assert.Equal(t, uint64(50), m.InstrsExecuted())
}

func TestRunCancelled(t *testing.T) {
	m := newTestMachine(t,
		asm.MarkLabel("spin"),
		rv32.J("spin"),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, m.Run(ctx, 0, -1), context.Canceled)
}

func TestRunFault(t *testing.T) {
	m := newTestMachine(t,
		rv32.Addi(rv32.A0, rv32.Zero, 1),
		rv32.Word(0x00000001),
		rv32.Ret(),
	)
	err := m.Run(context.Background(), 0, 100)
	require.ErrorIs(t, err, ErrFault)
	assert.Contains(t, err.Error(), "00001004")
	assert.True(t, m.Faulted())
}

func TestCall(t *testing.T) {
	bin := link(t,
		rv32.Func("double",
			rv32.Add(rv32.A0, rv32.A0, rv32.A0),
			rv32.Ret(),
		),
		rv32.Func("quad",
			rv32.Addi(rv32.SP, rv32.SP, -16),
			rv32.Sw(rv32.RA, rv32.SP, 12),
			rv32.Call("double"),
			rv32.Call("double"),
			rv32.Lw(rv32.RA, rv32.SP, 12),
			rv32.Addi(rv32.SP, rv32.SP, 16),
			rv32.Ret(),
		),
	)
	m, err := New(bin, WithLogger(nil))
	require.NoError(t, err)

	m.SetA0(5)
	require.NoError(t, m.Call(context.Background(), "quad", 0, 0))
	assert.Equal(t, int32(20), m.A0())
	assert.Equal(t, NativePC, m.PC())
	assert.Equal(t, uint32(testCodeOrg), m.SP())

	// The stack pointer is reset on every call.
	m.SetRegU(regSP, 0x800)
	m.SetA0(3)
	require.NoError(t, m.CallIdx(context.Background(), 0, 0, 0))
	assert.Equal(t, int32(6), m.A0())
	assert.Equal(t, uint32(testCodeOrg), m.SP())

	require.ErrorIs(t, m.Call(context.Background(), "missing", 0, 0), ErrNoFunc)
	require.ErrorIs(t, m.CallIdx(context.Background(), 7, 0, 0), ErrNoFunc)
}

func TestCallWithEcho(t *testing.T) {
	bin := link(t, rv32.Func("inc",
		rv32.Addi(rv32.A0, rv32.A0, 1),
		rv32.Ret(),
	))
	var out bytes.Buffer
	m, err := New(bin, WithLogger(nil), WithEcho(&out))
	require.NoError(t, err)

	require.NoError(t, m.Call(context.Background(), "inc", ModeEcho, 0))
	assert.Equal(t, int32(1), m.A0())
	assert.Equal(t,
		"00001000: 00150513  addi    a0, a0, 1\n"+
			"00001004: 00008067  ret\n",
		out.String())
}

func TestSymbols(t *testing.T) {
	bin := link(t,
		rv32.Func("one", rv32.Ret()),
		rv32.Func("three", rv32.Nop(), rv32.Nop(), rv32.Ret()),
	)
	m, err := New(bin, WithLogger(nil))
	require.NoError(t, err)

	require.Len(t, m.Funcs(), 2)
	assert.Equal(t, 1, m.FindFunc("three"))
	assert.Equal(t, -1, m.FindFunc("Three"))
	assert.Equal(t, 1, m.FuncInstrCount(0))
	assert.Equal(t, 3, m.FuncInstrCount(1))
	assert.Zero(t, m.FuncInstrCount(2))
	assert.Zero(t, m.FuncInstrCount(-1))

	m.SetPC(0x1234)
	assert.False(t, m.SetPCToFuncIdx(2))
	assert.Equal(t, uint32(0x1234), m.PC(), "unchanged on a bad index")
	assert.True(t, m.SetPCToFunc("three"))
	assert.Equal(t, uint32(testCodeOrg+4), m.PC())
}

func TestFetchPCInstr(t *testing.T) {
	m := newTestMachine(t, rv32.Addi(rv32.A0, rv32.A0, 1), rv32.Ret())

	assert.True(t, m.ValidPC())
	assert.Equal(t, uint32(0x00150513), m.FetchPCInstr())

	m.SetPC(testCodeOrg + 4)
	assert.Equal(t, uint32(0x00008067), m.FetchPCInstr())

	m.SetPC(testCodeOrg + 8)
	assert.Zero(t, m.FetchPCInstr(), "past the image")

	m.SetPC(testCodeOrg - 4)
	assert.False(t, m.ValidPC())
	assert.Zero(t, m.FetchPCInstr())
}

func TestTrace(t *testing.T) {
	bin := link(t, rv32.Func("main",
		rv32.Li(rv32.A0, 7),
		rv32.Ret(),
	))
	var trace bytes.Buffer
	m, err := New(bin, WithLogger(nil), WithTrace(&trace, true))
	require.NoError(t, err)
	require.NoError(t, m.Call(context.Background(), "main", 0, 0))

	out := trace.String()
	assert.Equal(t, 2, strings.Count(out, "----------------"))
	assert.Contains(t, out, "a0: 00000007")
	assert.Contains(t, out, " --- fregs ---")
	assert.Contains(t, out, "pc: D00D0000")
}
