// Package elfsym reads symbol, GOT & BSS addresses from ELF binaries.
package elfsym

import (
	"debug/elf"
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/crax"
	"github.com/benbjohnson/immutable"
)

// DefaultVarPrefix is the default variable name used for labels.
const DefaultVarPrefix = "elf"

// Ensure file implements interface.
var _ crax.Image = (*File)(nil)

// File represents the address tables of an ELF binary.
//
// Tables are populated once when the file is loaded and are read-only after.
type File struct {
	symbols *immutable.SortedMap // name -> address
	got     *immutable.SortedMap // name -> GOT slot address
	bss     uint64

	// Address the image is assumed to be loaded at.
	LoadBase uint64

	// Variable name used when labeling expressions.
	Prefix string
}

// Open reads the ELF binary at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	file, err := NewFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return file, nil
}

// NewFile reads an ELF binary from r.
func NewFile(r io.ReaderAt) (*File, error) {
	ef, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	defer ef.Close()

	file := &File{
		symbols: immutable.NewSortedMap(&stringComparer{}),
		got:     immutable.NewSortedMap(&stringComparer{}),
		Prefix:  DefaultVarPrefix,
	}

	// Collect defined symbols. Static symbols replace dynamic ones.
	for _, fn := range []func() ([]elf.Symbol, error){ef.DynamicSymbols, ef.Symbols} {
		syms, err := fn()
		if err == elf.ErrNoSymbols {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("read symbols: %w", err)
		}
		for _, sym := range syms {
			if sym.Name != "" && sym.Section != elf.SHN_UNDEF {
				file.symbols = file.symbols.Set(sym.Name, sym.Value)
			}
		}
	}

	if sec := ef.Section(".bss"); sec != nil && sec.Type == elf.SHT_NOBITS {
		file.bss = sec.Addr
	}

	// Index the GOT sections by name and then each imported symbol by the
	// address of its GOT slot.
	for _, name := range []string{".got", ".got.plt"} {
		if sec := ef.Section(name); sec != nil {
			file.got = file.got.Set(name, sec.Addr)
		}
	}
	slots, err := readGOTSlots(ef)
	if err != nil {
		return nil, fmt.Errorf("read got relocations: %w", err)
	}
	for _, slot := range slots {
		file.got = file.got.Set(slot.name, slot.addr)
	}

	return file, nil
}

// Symbol returns the address of the named symbol.
func (f *File) Symbol(name string) (uint64, bool) {
	return lookup(f.symbols, name)
}

// GOT returns the address of a GOT section or of an imported function's slot.
func (f *File) GOT(name string) (uint64, bool) {
	return lookup(f.got, name)
}

// BSS returns the start address of the .bss section. Returns zero if the
// binary has no .bss section.
func (f *File) BSS() uint64 { return f.bss }

// Base returns the load address of the image.
func (f *File) Base() uint64 { return f.LoadBase }

// VarPrefix returns the variable name used for labels.
func (f *File) VarPrefix() string { return f.Prefix }

// Symbols returns all named symbols, sorted by name.
func (f *File) Symbols() []Entry { return entries(f.symbols) }

// GOTEntries returns all GOT entries, sorted by name.
func (f *File) GOTEntries() []Entry { return entries(f.got) }

// Entry represents a named address.
type Entry struct {
	Name string
	Addr uint64
}

func lookup(m *immutable.SortedMap, name string) (uint64, bool) {
	v, ok := m.Get(name)
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

func entries(m *immutable.SortedMap) []Entry {
	a := make([]Entry, 0, m.Len())
	for itr := m.Iterator(); !itr.Done(); {
		k, v := itr.Next()
		a = append(a, Entry{Name: k.(string), Addr: v.(uint64)})
	}
	return a
}

type gotSlot struct {
	name string
	addr uint64
}

// readGOTSlots returns the GOT slot of every dynamic symbol referenced by a
// GLOB_DAT relocation in .rela.dyn/.rel.dyn or by any relocation in
// .rela.plt/.rel.plt. Jump slots are returned last so they replace data slots
// of the same name.
func readGOTSlots(ef *elf.File) ([]gotSlot, error) {
	dynsyms, err := ef.DynamicSymbols()
	if err == elf.ErrNoSymbols {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	var slots []gotSlot
	for _, tbl := range []struct {
		names   []string
		globDat bool // only GLOB_DAT entries
	}{
		{names: []string{".rela.dyn", ".rel.dyn"}, globDat: true},
		{names: []string{".rela.plt", ".rel.plt"}},
	} {
		sec := findSection(ef, tbl.names...)
		if sec == nil {
			continue
		}

		relocs, err := readRelocs(ef, sec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sec.Name, err)
		}
		for _, r := range relocs {
			// Dynamic symbols exclude the null symbol at index zero.
			if r.sym == 0 || int(r.sym) > len(dynsyms) {
				continue
			} else if tbl.globDat && !isGlobDat(ef.Machine, r.typ) {
				continue
			}
			if name := dynsyms[r.sym-1].Name; name != "" {
				slots = append(slots, gotSlot{name: name, addr: r.off})
			}
		}
	}
	return slots, nil
}

func findSection(ef *elf.File, names ...string) *elf.Section {
	for _, name := range names {
		if sec := ef.Section(name); sec != nil {
			return sec
		}
	}
	return nil
}

// reloc is a relocation entry decoded from any ELF class.
type reloc struct {
	off uint64
	sym uint32
	typ uint32
}

// readRelocs decodes a SHT_REL or SHT_RELA section. Addends are ignored.
func readRelocs(ef *elf.File, sec *elf.Section) ([]reloc, error) {
	data, err := sec.Data()
	if err != nil {
		return nil, err
	}

	var a []reloc
	bo := ef.ByteOrder
	switch ef.Class {
	case elf.ELFCLASS64:
		sz := 16
		if sec.Type == elf.SHT_RELA {
			sz = 24
		}
		for ; len(data) >= sz; data = data[sz:] {
			info := bo.Uint64(data[8:16])
			a = append(a, reloc{off: bo.Uint64(data[0:8]), sym: elf.R_SYM64(info), typ: elf.R_TYPE64(info)})
		}
	case elf.ELFCLASS32:
		sz := 8
		if sec.Type == elf.SHT_RELA {
			sz = 12
		}
		for ; len(data) >= sz; data = data[sz:] {
			info := bo.Uint32(data[4:8])
			a = append(a, reloc{off: uint64(bo.Uint32(data[0:4])), sym: elf.R_SYM32(info), typ: elf.R_TYPE32(info)})
		}
	default:
		return nil, fmt.Errorf("unsupported class: %s", ef.Class)
	}
	return a, nil
}

// isGlobDat returns true if typ is the machine's GLOB_DAT relocation type.
func isGlobDat(m elf.Machine, typ uint32) bool {
	switch m {
	case elf.EM_X86_64:
		return elf.R_X86_64(typ) == elf.R_X86_64_GLOB_DAT
	case elf.EM_386:
		return elf.R_386(typ) == elf.R_386_GLOB_DAT
	case elf.EM_AARCH64:
		return elf.R_AARCH64(typ) == elf.R_AARCH64_GLOB_DAT
	case elf.EM_ARM:
		return elf.R_ARM(typ) == elf.R_ARM_GLOB_DAT
	case elf.EM_PPC64:
		return elf.R_PPC64(typ) == elf.R_PPC64_GLOB_DAT
	default:
		return false
	}
}

// stringComparer compares two strings. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	if i, j := a.(string), b.(string); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
