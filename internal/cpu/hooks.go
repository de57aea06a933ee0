package cpu

// EnvCaller handles ECALL. The hook reads its arguments from the machine's
// registers and writes results back the same way.
type EnvCaller interface {
	Ecall(m *Machine)
}

// Breaker handles EBREAK.
type Breaker interface {
	Ebreak(m *Machine)
}

// AtomicExtension executes words from the A extension (opcode 0x2F).
type AtomicExtension interface {
	ExecAtomic(m *Machine, insn uint32)
}

// BitManipExtension executes register-register and register-immediate ALU
// words whose funct7 is not used by the base or M extension.
type BitManipExtension interface {
	ExecBitManip(m *Machine, insn uint32)
}

// Hooks collects the optional extension points. A nil hook makes the
// matching instruction a no-op.
type Hooks struct {
	Env      EnvCaller
	Break    Breaker
	Atomic   AtomicExtension
	BitManip BitManipExtension
}

type EnvCallerFunc func(m *Machine)

func (f EnvCallerFunc) Ecall(m *Machine) { f(m) }

type BreakerFunc func(m *Machine)

func (f BreakerFunc) Ebreak(m *Machine) { f(m) }

type AtomicFunc func(m *Machine, insn uint32)

func (f AtomicFunc) ExecAtomic(m *Machine, insn uint32) { f(m, insn) }

type BitManipFunc func(m *Machine, insn uint32)

func (f BitManipFunc) ExecBitManip(m *Machine, insn uint32) { f(m, insn) }

// SetHooks replaces the installed hooks.
func (m *Machine) SetHooks(h Hooks) { m.hooks = h }
