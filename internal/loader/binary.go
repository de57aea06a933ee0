// Package loader reads and writes MINION binary images.
//
// An image is a short text header, the raw code bytes, and a symbol table:
//
//	MINION1
//	$code 10000
//	$data 10400
//	$sdata 10400
//	$gp 10C00
//	$bin 1280
//	<1280 raw bytes>$funcs 2
//	10000 96 fib
//	10060 12 peek32
package loader

import (
	"errors"
)

const (
	Magic          = "MINION"
	CurrentVersion = 1
)

var (
	ErrBadMagic = errors.New("loader: not a MINION image")
)

// Func is one entry of the symbol table.
type Func struct {
	Name string
	Addr uint32
	Size uint32
}

// InstrCount returns the number of 32-bit words covered by the function.
func (f Func) InstrCount() int { return int(f.Size >> 2) }

// Binary is a loaded image. Code is placed at CodeOrg in the guest address
// space.
type Binary struct {
	Version  int
	CodeOrg  uint32
	DataOrg  uint32
	SDataOrg uint32
	GP       uint32
	Code     []byte
	Funcs    []Func
}

// FindFunc returns the index of the function called name, or -1.
func (b *Binary) FindFunc(name string) int {
	if b == nil {
		return -1
	}
	for i, fn := range b.Funcs {
		if fn.Name == name {
			return i
		}
	}
	return -1
}

// CodeEnd returns the first guest address past the code image.
func (b *Binary) CodeEnd() uint32 {
	return b.CodeOrg + uint32(len(b.Code))
}
