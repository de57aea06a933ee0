// Package cpu interprets RV32G guest code one instruction at a time.
//
// A Machine borrows the code image and symbol table of a loaded binary and
// owns a private stack plus sixteen windows through which guest code can
// reach host buffers. Control returns to the host when the guest jumps to
// NativePC, which is where the return address register points on entry.
package cpu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tinyrange/minion/internal/loader"
)

const (
	// NativePC is the sentinel return address meaning "back to the host".
	NativePC uint32 = 0xD00D0000

	MapTag     uint32 = 0xDA000000
	MapTagMask uint32 = 0xFF000000
	MapSlots          = 16
	MaxMapSize        = 0x10000
)

// Mode selects what Exec does with an instruction.
type Mode uint32

const (
	ModeExec Mode = 1 << iota
	ModeEcho
)

// Status reports control flow taken by the last instruction.
type Status uint32

const (
	StatusJAL    Status = 1
	StatusJALR   Status = 2
	StatusRET    Status = 4
	StatusBR     Status = 8
	StatusNative Status = 1 << 31
)

func (s Status) Has(bit Status) bool { return s&bit != 0 }

var (
	ErrBadCodeOrg = errors.New("cpu: code origin must be above 4")
	ErrNotMapped  = errors.New("cpu: address is not a mapped window")
	ErrFault      = errors.New("cpu: instruction fault")
	ErrStepLimit  = errors.New("cpu: step limit reached")
	ErrNoFunc     = errors.New("cpu: function not found")
)

type memSlot struct {
	buf    []byte
	active bool
}

// Machine is one guest execution context. It is not safe for concurrent
// use; independent machines may run on separate goroutines.
type Machine struct {
	regs  [32]int32
	fregs [32]uint64
	pc    uint32

	status         Status
	fault          bool
	instrsExecuted uint64

	codeOrg uint32
	code    []byte
	stack   []byte
	funcs   []loader.Func
	slots   [MapSlots]memSlot

	log     *slog.Logger
	echo    io.Writer
	echoCfg EchoConfig
	hooks   Hooks

	trace      io.Writer
	traceFregs bool
}

// New prepares a machine for bin. The code image and symbols are shared
// with bin, so guest stores into the image are visible through it. The
// stack spans guest addresses [0, CodeOrg).
func New(bin *loader.Binary, opts ...Option) (*Machine, error) {
	if bin == nil {
		return nil, fmt.Errorf("cpu: nil binary")
	}
	if bin.CodeOrg <= 4 {
		return nil, fmt.Errorf("%w: got %#x", ErrBadCodeOrg, bin.CodeOrg)
	}

	cfg := parseOptions(opts)

	m := &Machine{
		codeOrg: bin.CodeOrg,
		code:    bin.Code,
		stack:   make([]byte, bin.CodeOrg),
		funcs:   bin.Funcs,
		log:     cfg.logger,
		echo:    cfg.echo,
		echoCfg: cfg.echoConfig,
		hooks:   cfg.hooks,

		trace:      cfg.trace,
		traceFregs: cfg.traceFregs,
	}
	m.SetRegU(regRA, NativePC)
	m.SetRegU(regSP, bin.CodeOrg)
	m.SetRegU(regGP, bin.GP)
	return m, nil
}

// Release drops the machine's buffers and unmaps every window. The machine
// must not be used afterwards.
func (m *Machine) Release() {
	for i := range m.slots {
		m.slots[i] = memSlot{}
	}
	m.stack = nil
	m.code = nil
	m.funcs = nil
}

func (m *Machine) PC() uint32           { return m.pc }
func (m *Machine) SetPC(pc uint32)      { m.pc = pc }
func (m *Machine) CodeOrg() uint32      { return m.codeOrg }
func (m *Machine) Status() Status       { return m.status }
func (m *Machine) Faulted() bool        { return m.fault }
func (m *Machine) Logger() *slog.Logger { return m.log }

// InstrsExecuted counts instructions executed since the machine was created.
func (m *Machine) InstrsExecuted() uint64 { return m.instrsExecuted }

// ClearFault resets the sticky fault flag.
func (m *Machine) ClearFault() { m.fault = false }

// Stack exposes the guest stack buffer.
func (m *Machine) Stack() []byte { return m.stack }

// Code exposes the borrowed code image.
func (m *Machine) Code() []byte { return m.code }

func (m *Machine) raiseFault(msg string, args ...any) {
	m.fault = true
	m.status = StatusNative
	m.log.Error(msg, append([]any{"pc", hex32(m.pc)}, args...)...)
}

func hex32(v uint32) string { return fmt.Sprintf("%08X", v) }
