package cpu

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tinyrange/minion/internal/asm"
	"github.com/tinyrange/minion/internal/asm/rv32"
	"github.com/tinyrange/minion/internal/loader"
)

const testCodeOrg = 0x1000

func link(t *testing.T, funcs ...rv32.Function) *loader.Binary {
	t.Helper()
	bin, err := rv32.Link(rv32.Layout{CodeOrg: testCodeOrg, GP: testCodeOrg + 0x800}, funcs...)
	require.NoError(t, err)
	return bin
}

// newTestMachine links body as function "main" and points the program
// counter at it.
func newTestMachine(t *testing.T, body ...asm.Fragment) *Machine {
	t.Helper()
	m, err := New(link(t, rv32.Func("main", body...)), WithLogger(nil))
	require.NoError(t, err)
	require.True(t, m.SetPCToFunc("main"))
	return m
}

func runMain(t *testing.T, body ...asm.Fragment) *Machine {
	t.Helper()
	m := newTestMachine(t, body...)
	require.NoError(t, m.Run(context.Background(), 0, 10000))
	return m
}

// encode returns the single instruction word produced by frag, or the word
// at label "insn" when frag defines one.
func encode(t *testing.T, frag asm.Fragment) uint32 {
	t.Helper()
	prog, err := rv32.EmitProgram(frag)
	require.NoError(t, err)
	code := prog.Bytes()
	if at, ok := prog.Label("insn"); ok {
		return binary.LittleEndian.Uint32(code[at:])
	}
	require.Len(t, code, 4)
	return binary.LittleEndian.Uint32(code)
}
