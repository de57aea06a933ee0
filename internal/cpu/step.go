package cpu

import (
	"context"
	"fmt"
)

// DefaultStepLimit bounds Run when the caller passes a limit of 0.
const DefaultStepLimit = 100000

// runBatch is how many steps Run takes between context checks.
const runBatch = 1024

// Step fetches the instruction at the program counter and executes it.
// ModeExec is always added to mode.
func (m *Machine) Step(mode Mode) Status {
	return m.Exec(m.FetchPCInstr(), mode|ModeExec)
}

// Run steps the machine until control returns to NativePC. It returns
// ErrFault when an instruction faults, ErrStepLimit after limit steps, or
// the context's error if ctx is cancelled. A limit of 0 uses
// DefaultStepLimit; a negative limit removes the bound.
func (m *Machine) Run(ctx context.Context, mode Mode, limit int) error {
	if limit == 0 {
		limit = DefaultStepLimit
	}
	for n := 0; ; n++ {
		if n%runBatch == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if limit > 0 && n >= limit {
			m.log.Error("reached execution limit", "limit", limit, "pc", hex32(m.pc))
			return ErrStepLimit
		}

		if m.trace != nil {
			fmt.Fprintf(m.trace, "\n ---------------- %d\n", n)
		}
		status := m.Step(mode)
		if m.trace != nil {
			m.DumpRegs(m.trace)
			if m.traceFregs {
				fmt.Fprintln(m.trace, " --- fregs ---")
				m.DumpFregsS(m.trace)
			}
		}

		if m.fault {
			return fmt.Errorf("%w at pc %08X", ErrFault, m.pc)
		}
		if status.Has(StatusNative) {
			return nil
		}
	}
}

// Call runs the function called name with a fresh return address and stack
// pointer. Argument registers must be set beforehand; results are read
// from them afterwards.
func (m *Machine) Call(ctx context.Context, name string, mode Mode, limit int) error {
	idx := m.FindFunc(name)
	if idx < 0 {
		return fmt.Errorf("%w: %q", ErrNoFunc, name)
	}
	return m.CallIdx(ctx, idx, mode, limit)
}

// CallIdx is Call for a symbol table index.
func (m *Machine) CallIdx(ctx context.Context, idx int, mode Mode, limit int) error {
	if !m.SetPCToFuncIdx(idx) {
		return fmt.Errorf("%w: index %d", ErrNoFunc, idx)
	}
	m.SetRegU(regRA, NativePC)
	m.SetRegU(regSP, m.codeOrg)
	return m.Run(ctx, mode, limit)
}
