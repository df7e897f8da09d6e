package crax

import (
	"fmt"
)

// Image represents the address layout of a loaded binary.
type Image interface {
	// Symbol returns the address of the named symbol.
	Symbol(name string) (uint64, bool)

	// GOT returns the address of the named GOT entry.
	GOT(name string) (uint64, bool)

	// BSS returns the start address of the .bss section.
	BSS() uint64

	// Base returns the load address of the image.
	Base() uint64

	// VarPrefix returns the variable name used when labeling expressions.
	VarPrefix() string
}

// NewSymExpr returns an expression for the address of a symbol in img,
// e.g. "elf_base + elf.sym['read']".
func NewSymExpr(img Image, name string) (*BaseOffsetExpr, error) {
	addr, ok := img.Symbol(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}
	prefix := img.VarPrefix()
	return newImageExpr(img, addr, fmt.Sprintf("%s.sym['%s']", prefix, name)), nil
}

// NewGOTExpr returns an expression for the address of a GOT entry in img,
// e.g. "elf_base + elf.got['puts']".
func NewGOTExpr(img Image, name string) (*BaseOffsetExpr, error) {
	addr, ok := img.GOT(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGOTEntryNotFound, name)
	}
	prefix := img.VarPrefix()
	return newImageExpr(img, addr, fmt.Sprintf("%s.got['%s']", prefix, name)), nil
}

// NewBSSExpr returns an expression for the start of the .bss section in img.
func NewBSSExpr(img Image) *BaseOffsetExpr {
	return newImageExpr(img, img.BSS(), img.VarPrefix()+".bss()")
}

// NewVarExpr returns an expression for an unlabeled offset from the image
// base. It renders the offset numerically, e.g. "elf_base + 0x4010".
func NewVarExpr(img Image, offset uint64) *BaseOffsetExpr {
	return newImageExpr(img, offset, "")
}

func newImageExpr(img Image, offset uint64, label string) *BaseOffsetExpr {
	return NewBaseOffsetExpr(
		NewConstantExpr64(img.Base()),
		NewConstantExpr64(offset),
		img.VarPrefix()+"_base",
		label,
	)
}
