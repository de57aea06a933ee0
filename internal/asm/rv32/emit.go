package rv32

import (
	"fmt"

	"github.com/tinyrange/minion/internal/asm"
)

type fixup struct {
	at      int
	size    int
	label   asm.Label
	resolve func(at, target int) ([]byte, error)
}

type emitter struct {
	code   []byte
	labels map[asm.Label]int
	fixups []fixup
}

// EmitBytes implements asm.Context.
func (e *emitter) EmitBytes(data []byte) {
	e.code = append(e.code, data...)
}

// Offset implements asm.Context.
func (e *emitter) Offset() int { return len(e.code) }

// GetLabel implements asm.Context.
func (e *emitter) GetLabel(label asm.Label) (int, bool) {
	if e.labels == nil {
		return 0, false
	}
	offset, ok := e.labels[label]
	return offset, ok
}

// SetLabel implements asm.Context.
func (e *emitter) SetLabel(label asm.Label) {
	if e.labels == nil {
		e.labels = make(map[asm.Label]int)
	}
	e.labels[label] = len(e.code)
}

// AddFixup implements asm.Context.
func (e *emitter) AddFixup(label asm.Label, size int, resolve func(at, target int) ([]byte, error)) {
	e.fixups = append(e.fixups, fixup{at: len(e.code), size: size, label: label, resolve: resolve})
	e.code = append(e.code, make([]byte, size)...)
}

func (e *emitter) patch() error {
	for _, f := range e.fixups {
		target, ok := e.labels[f.label]
		if !ok {
			return fmt.Errorf("rv32: undefined label %q", f.label)
		}
		data, err := f.resolve(f.at, target)
		if err != nil {
			return fmt.Errorf("rv32: label %q: %w", f.label, err)
		}
		if len(data) != f.size {
			return fmt.Errorf("rv32: fixup for %q produced %d bytes, want %d", f.label, len(data), f.size)
		}
		copy(e.code[f.at:], data)
	}
	return nil
}

// EmitProgram lowers the provided fragment into an asm.Program, resolving
// every label reference.
func EmitProgram(frag asm.Fragment) (asm.Program, error) {
	if frag == nil {
		return asm.Program{}, fmt.Errorf("rv32: fragment must be non-nil")
	}

	em := &emitter{
		code:   make([]byte, 0, 256),
		labels: make(map[asm.Label]int),
	}

	if err := frag.Emit(em); err != nil {
		return asm.Program{}, err
	}
	if err := em.patch(); err != nil {
		return asm.Program{}, err
	}

	return asm.NewProgram(em.code, em.labels), nil
}

// MustEmit is EmitProgram for fragments known to be valid.
func MustEmit(frag asm.Fragment) asm.Program {
	prog, err := EmitProgram(frag)
	if err != nil {
		panic(err)
	}
	return prog
}
