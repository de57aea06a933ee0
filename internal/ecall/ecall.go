// Package ecall implements a small environment-call protocol for guest
// code: console output, host environment queries and a few math
// functions. The call code is taken from a7 and arguments from a0 and fa0.
package ecall

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/tinyrange/minion/internal/cpu"
)

// Call codes, passed in a7.
const (
	OutStr = iota
	OutInt
	OutHex
	OutPtr
	OutF32
	EnvInfo
	StrLen
	Math
)

// Math functions, stored in the first word of the argument block.
const (
	MathNop = iota
	MathSin
	MathCos
	MathPow
)

var codeNames = [...]string{
	OutStr:  "outstr",
	OutInt:  "outint",
	OutHex:  "outhex",
	OutPtr:  "outptr",
	OutF32:  "outf32",
	EnvInfo: "envinfo",
	StrLen:  "strlen",
	Math:    "math",
}

// CodeName returns the name of call code c.
func CodeName(c int32) string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("ecall(%d)", c)
	}
	return codeNames[c]
}

const (
	regA7 = 17

	// DefaultMaxString bounds the strings read by OutStr and StrLen.
	DefaultMaxString = 4096

	envInfoSize  = 4
	mathArgsSize = 16
)

var le = binary.LittleEndian

// Handler is a cpu.EnvCaller.
type Handler struct {
	out       io.Writer
	log       *slog.Logger
	maxString int
	calls     [Math + 1]uint64
}

var _ cpu.EnvCaller = (*Handler)(nil)

// New returns a handler writing guest output to out. A nil logger uses the
// machine's logger.
func New(out io.Writer, log *slog.Logger) *Handler {
	if out == nil {
		out = io.Discard
	}
	return &Handler{out: out, log: log, maxString: DefaultMaxString}
}

// SetMaxString changes the longest string OutStr and StrLen will read.
func (h *Handler) SetMaxString(n int) { h.maxString = n }

// Calls returns how many times code c was handled.
func (h *Handler) Calls(c int) uint64 {
	if c < 0 || c >= len(h.calls) {
		return 0
	}
	return h.calls[c]
}

func (h *Handler) logger(m *cpu.Machine) *slog.Logger {
	if h.log != nil {
		return h.log
	}
	return m.Logger()
}

func (h *Handler) Ecall(m *cpu.Machine) {
	code := m.Reg(regA7)
	log := h.logger(m)
	a0 := uint32(m.A0())

	switch code {
	case OutStr:
		s, ok := m.CString(a0, h.maxString)
		if !ok {
			log.Warn("ecall: unterminated string", "addr", fmt.Sprintf("%08X", a0), "read", len(s))
		}
		io.WriteString(h.out, s)
	case OutInt:
		fmt.Fprintf(h.out, "%d", m.A0())
	case OutHex:
		fmt.Fprintf(h.out, "%X", a0)
	case OutPtr:
		fmt.Fprintf(h.out, "0x%08X", a0)
	case OutF32:
		fmt.Fprintf(h.out, "%f", m.FA0S())
	case EnvInfo:
		b := m.Resolve(a0, envInfoSize)
		if b == nil {
			log.Warn("ecall: bad ENV_INFO pointer", "addr", fmt.Sprintf("%08X", a0))
			return
		}
		le.PutUint32(b, m.CodeOrg())
	case StrLen:
		s, _ := m.CString(a0, h.maxString)
		m.SetA0(int32(len(s)))
	case Math:
		b := m.Resolve(a0, mathArgsSize)
		if b == nil {
			log.Warn("ecall: bad EMATH_ARGS pointer", "addr", fmt.Sprintf("%08X", a0))
			return
		}
		h.evalMath(log, b)
	default:
		log.Warn("ecall: unknown code", "code", code, "pc", fmt.Sprintf("%08X", m.PC()))
		return
	}
	h.calls[code]++
}

// evalMath evaluates an EMATH_ARGS block: int32 func, float32 x, y, res.
func (h *Handler) evalMath(log *slog.Logger, b []byte) {
	fn := int32(le.Uint32(b[0:]))
	x := float64(math.Float32frombits(le.Uint32(b[4:])))
	y := float64(math.Float32frombits(le.Uint32(b[8:])))

	var res float64
	switch fn {
	case MathNop:
		return
	case MathSin:
		res = math.Sin(x)
	case MathCos:
		res = math.Cos(x)
	case MathPow:
		res = math.Pow(x, y)
	default:
		log.Warn("ecall: unknown math function", "func", fn)
		return
	}
	le.PutUint32(b[12:], math.Float32bits(float32(res)))
}
