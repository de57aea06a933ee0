// Package minion runs RV32G guest functions one instruction at a time. A
// Machine holds the register file, a small stack, the loaded code image and
// a handful of windows through which host memory is shared with the guest.
package minion

import (
	"io"
	"log/slog"

	"github.com/tinyrange/minion/internal/cpu"
	"github.com/tinyrange/minion/internal/ecall"
	"github.com/tinyrange/minion/internal/guest"
	"github.com/tinyrange/minion/internal/loader"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from internal/cpu and internal/loader
// -----------------------------------------------------------------------------

// Machine is one guest execution context.
type Machine = cpu.Machine

// Option configures a Machine.
type Option = cpu.Option

// Mode selects whether Exec executes, echoes, or both.
type Mode = cpu.Mode

// Status reports control flow taken by the last executed instruction.
type Status = cpu.Status

// EchoConfig controls how echoed instructions are printed.
type EchoConfig = cpu.EchoConfig

// Hooks receives ecall, ebreak and extension instructions.
type Hooks = cpu.Hooks

// Binary is a loaded image.
type Binary = loader.Binary

// LoadOption configures Load, Read and FromMemory.
type LoadOption = loader.Option

// Func is one entry of an image's symbol table.
type Func = loader.Func

// Env answers the host calls made with ecall.
type Env = ecall.Handler

// Exec modes.
const (
	ModeExec = cpu.ModeExec
	ModeEcho = cpu.ModeEcho
)

// Status bits.
const (
	StatusJAL    = cpu.StatusJAL
	StatusJALR   = cpu.StatusJALR
	StatusRET    = cpu.StatusRET
	StatusBR     = cpu.StatusBR
	StatusNative = cpu.StatusNative
)

// Address space constants.
const (
	NativePC   = cpu.NativePC
	MapTag     = cpu.MapTag
	MapSlots   = cpu.MapSlots
	MaxMapSize = cpu.MaxMapSize
)

// Common sentinel errors.
var (
	ErrBadCodeOrg = cpu.ErrBadCodeOrg
	ErrNotMapped  = cpu.ErrNotMapped
	ErrFault      = cpu.ErrFault
	ErrStepLimit  = cpu.ErrStepLimit
	ErrNoFunc     = cpu.ErrNoFunc
	ErrBadMagic   = loader.ErrBadMagic
)

// -----------------------------------------------------------------------------
// Images
// -----------------------------------------------------------------------------

// Load reads an image from path.
func Load(path string, opts ...LoadOption) (*Binary, error) { return loader.Load(path, opts...) }

// Read parses an image from rs.
func Read(rs io.ReadSeeker, opts ...LoadOption) (*Binary, error) { return loader.Read(rs, opts...) }

// FromMemory parses an image held in data.
func FromMemory(data []byte, opts ...LoadOption) (*Binary, error) {
	return loader.FromMemory(data, opts...)
}

// WithLoadLogger routes loader warnings to l. A nil logger silences them.
func WithLoadLogger(l *slog.Logger) LoadOption { return loader.WithLogger(l) }

// SampleImage assembles the built-in sample image.
func SampleImage() (*Binary, error) { return guest.Build() }

// -----------------------------------------------------------------------------
// Machines
// -----------------------------------------------------------------------------

// New creates a Machine for bin.
func New(bin *Binary, opts ...Option) (*Machine, error) { return cpu.New(bin, opts...) }

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option { return cpu.WithLogger(l) }

// WithEcho sets where echoed instructions are written.
func WithEcho(w io.Writer) Option { return cpu.WithEcho(w) }

// WithEchoConfig sets the echo formatting options.
func WithEchoConfig(cfg EchoConfig) Option { return cpu.WithEchoConfig(cfg) }

// WithHooks installs ecall, ebreak and extension handlers.
func WithHooks(h Hooks) Option { return cpu.WithHooks(h) }

// WithTrace dumps registers to w after every executed instruction.
func WithTrace(w io.Writer, fregs bool) Option { return cpu.WithTrace(w, fregs) }

// WithEnv routes ecall to a host call handler writing to out.
func WithEnv(out io.Writer, log *slog.Logger) Option {
	return cpu.WithHooks(cpu.Hooks{Env: ecall.New(out, log)})
}

// MapSlice shares s with the guest and returns its window address, or 0
// when no window is free or s is too large.
func MapSlice[T any](m *Machine, s []T) uint32 { return cpu.MapSlice(m, s) }

// Disasm formats insn at pc the way echo mode prints it.
func Disasm(pc, insn uint32, cfg EchoConfig) string { return cpu.Disasm(pc, insn, cfg) }
