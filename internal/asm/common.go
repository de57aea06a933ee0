package asm

import (
	"fmt"
	"sort"
)

// Variable names an architectural register. Its meaning is defined by the
// target package.
type Variable int

type Label string

type Context interface {
	EmitBytes(data []byte)
	Offset() int

	GetLabel(label Label) (int, bool)
	SetLabel(label Label)

	// AddFixup reserves size bytes at the current offset. Once every label
	// is known, resolve is called with the offset of the reservation and
	// the offset of label and must return exactly size bytes.
	AddFixup(label Label, size int, resolve func(at, target int) ([]byte, error))
}

type Fragment interface {
	Emit(ctx Context) error
}

type Group []Fragment

var (
	_ Fragment = Group{}
)

func (g Group) Emit(ctx Context) error {
	for _, frag := range g {
		if err := frag.Emit(ctx); err != nil {
			return err
		}
	}
	return nil
}

type labelDef struct {
	label Label
}

func MarkLabel(label Label) Fragment {
	return &labelDef{label: label}
}

func (l *labelDef) Emit(ctx Context) error {
	if _, exists := ctx.GetLabel(l.label); exists {
		return fmt.Errorf("label %q already defined", l.label)
	}
	ctx.SetLabel(l.label)
	return nil
}

type rawBytes []byte

// Bytes emits data verbatim.
func Bytes(data []byte) Fragment {
	return rawBytes(append([]byte(nil), data...))
}

// String emits s followed by a NUL byte.
func String(s string) Fragment {
	return rawBytes(append([]byte(s), 0))
}

func (b rawBytes) Emit(ctx Context) error {
	ctx.EmitBytes(b)
	return nil
}

type align int

// Align pads with zero bytes until the offset is a multiple of n.
func Align(n int) Fragment { return align(n) }

func (a align) Emit(ctx Context) error {
	if a <= 0 || a&(a-1) != 0 {
		return fmt.Errorf("align %d is not a power of two", int(a))
	}
	if pad := (int(a) - ctx.Offset()%int(a)) % int(a); pad > 0 {
		ctx.EmitBytes(make([]byte, pad))
	}
	return nil
}

type Program struct {
	code   []byte
	labels map[Label]int
}

func NewProgram(code []byte, labels map[Label]int) Program {
	cp := make(map[Label]int, len(labels))
	for k, v := range labels {
		cp[k] = v
	}
	return Program{code: append([]byte(nil), code...), labels: cp}
}

func (p Program) Bytes() []byte {
	return append([]byte(nil), p.code...)
}

func (p Program) Len() int { return len(p.code) }

// Label returns the byte offset of label within the program.
func (p Program) Label(label Label) (int, bool) {
	off, ok := p.labels[label]
	return off, ok
}

// Labels returns every label sorted by offset, then by name.
func (p Program) Labels() []Label {
	out := make([]Label, 0, len(p.labels))
	for l := range p.labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, oj := p.labels[out[i]], p.labels[out[j]]
		if oi != oj {
			return oi < oj
		}
		return out[i] < out[j]
	})
	return out
}
