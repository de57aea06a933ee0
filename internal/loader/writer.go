package loader

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Encode writes b in the MINION image format.
func (b *Binary) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)

	version := b.Version
	if version == 0 {
		version = CurrentVersion
	}
	fmt.Fprintf(bw, "%s%d\n", Magic, version)
	fmt.Fprintf(bw, "$code %X\n", b.CodeOrg)
	fmt.Fprintf(bw, "$data %X\n", b.DataOrg)
	fmt.Fprintf(bw, "$sdata %X\n", b.SDataOrg)
	fmt.Fprintf(bw, "$gp %X\n", b.GP)
	fmt.Fprintf(bw, "$bin %d\n", len(b.Code))
	bw.Write(b.Code)
	fmt.Fprintf(bw, "$funcs %d\n", len(b.Funcs))
	for _, fn := range b.Funcs {
		if fn.Name == "" || strings.ContainsAny(fn.Name, " \t\r\n") {
			return fmt.Errorf("loader: invalid function name %q", fn.Name)
		}
		fmt.Fprintf(bw, "%X %d %s\n", fn.Addr, fn.Size, fn.Name)
	}

	return bw.Flush()
}

const infoNameWidth = 28

// Info writes a human readable summary of the image header and symbol
// table.
func (b *Binary) Info(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "ver: %d\n", b.Version)
	fmt.Fprintf(bw, "code: %X\n", b.CodeOrg)
	fmt.Fprintf(bw, "data: %X\n", b.DataOrg)
	fmt.Fprintf(bw, "sdata: %X\n", b.SDataOrg)
	fmt.Fprintf(bw, "gp: %X\n", b.GP)
	fmt.Fprintf(bw, "nfuncs: %d\n", len(b.Funcs))
	fmt.Fprintf(bw, "binSize: %d (0x%X)\n", len(b.Code), len(b.Code))

	for i, fn := range b.Funcs {
		name := ansi.Truncate(fn.Name, infoNameWidth, "…")
		pad := infoNameWidth - ansi.StringWidth(name)
		if pad < 0 {
			pad = 0
		}
		fmt.Fprintf(bw, "  #%-3d %s%s @ %08X  %5d bytes  %4d instrs\n",
			i, name, strings.Repeat(" ", pad), fn.Addr, fn.Size, fn.InstrCount())
	}

	return bw.Flush()
}
