package rv32

import (
	"fmt"

	"github.com/tinyrange/minion/internal/asm"
	"github.com/tinyrange/minion/internal/loader"
)

// Function is a named, symbol-table visible piece of code. Its label is the
// function name, so other functions can Call it.
type Function struct {
	Name string
	Body asm.Fragment
}

func Func(name string, body ...asm.Fragment) Function {
	return Function{Name: name, Body: asm.Group(body)}
}

// Layout places the linked image in the guest address space. DataOrg,
// SDataOrg and GP are recorded in the header as given.
type Layout struct {
	CodeOrg  uint32
	DataOrg  uint32
	SDataOrg uint32
	GP       uint32
}

func endLabel(name string) asm.Label { return asm.Label(name + ".end") }

// Link assembles funcs back to back at layout.CodeOrg and returns the image
// with one symbol per function. Data placed inside a function body counts
// towards that function's size.
func Link(layout Layout, funcs ...Function) (*loader.Binary, error) {
	group := make(asm.Group, 0, len(funcs)*3)
	seen := make(map[string]bool, len(funcs))
	for _, fn := range funcs {
		if fn.Name == "" {
			return nil, fmt.Errorf("rv32: function without a name")
		}
		if seen[fn.Name] {
			return nil, fmt.Errorf("rv32: duplicate function %q", fn.Name)
		}
		seen[fn.Name] = true
		group = append(group,
			asm.MarkLabel(asm.Label(fn.Name)),
			fn.Body,
			asm.Align(4),
			asm.MarkLabel(endLabel(fn.Name)),
		)
	}

	prog, err := EmitProgram(group)
	if err != nil {
		return nil, err
	}

	bin := &loader.Binary{
		Version:  loader.CurrentVersion,
		CodeOrg:  layout.CodeOrg,
		DataOrg:  layout.DataOrg,
		SDataOrg: layout.SDataOrg,
		GP:       layout.GP,
		Code:     prog.Bytes(),
	}
	for _, fn := range funcs {
		start, _ := prog.Label(asm.Label(fn.Name))
		end, _ := prog.Label(endLabel(fn.Name))
		bin.Funcs = append(bin.Funcs, loader.Func{
			Name: fn.Name,
			Addr: layout.CodeOrg + uint32(start),
			Size: uint32(end - start),
		})
	}
	return bin, nil
}
