// Package elftest builds small in-memory ELF binaries for tests.
package elftest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Section describes a section for Build.
type Section struct {
	Name    string
	Type    elf.SectionType
	Addr    uint64
	Size    uint64 // used for SHT_NOBITS only
	Link    uint32
	Entsize uint64
	Data    []byte
}

// Reloc describes a relocation entry for MustBuildRelocs.
type Reloc struct {
	Off  uint64
	Sym  uint32
	Type uint32
}

// MustBuildELF returns a little-endian x86-64 shared object with a static and
// dynamic symbol table, GLOB_DAT & jump slot relocations, a .got, a .got.plt
// and a .bss section.
//
//	symbols: main=0x1149 read=0x1060 stdin=0x4040
//	got:     .got=0x3fe0 .got.plt=0x4000 free=0x3ff0 puts=0x4018 read=0x4020
//	bss:     0x4040
func MustBuildELF(tb testing.TB) []byte {
	tb.Helper()

	const class = elf.ELFCLASS64
	symtab, strtab := MustBuildSymbols(tb, class, []elf.Symbol{
		{Name: "main", Value: 0x1149, Section: 1},
		{Name: "read", Value: 0x1060, Section: 1},
		{Name: "stdin", Value: 0x4040, Section: 8},
	})
	dynsym, dynstr := MustBuildSymbols(tb, class, []elf.Symbol{
		{Name: "puts", Section: elf.SHN_UNDEF},
		{Name: "read", Value: 0x1000, Section: 1},
		{Name: "free", Section: elf.SHN_UNDEF},
	})

	return MustBuild(tb, class, elf.EM_X86_64, []Section{
		{Name: ".text", Type: elf.SHT_PROGBITS, Addr: 0x1000, Data: make([]byte, 0x200)},
		{Name: ".symtab", Type: elf.SHT_SYMTAB, Link: 3, Entsize: elf.Sym64Size, Data: symtab},
		{Name: ".strtab", Type: elf.SHT_STRTAB, Data: strtab},
		{Name: ".dynsym", Type: elf.SHT_DYNSYM, Link: 5, Entsize: elf.Sym64Size, Data: dynsym},
		{Name: ".dynstr", Type: elf.SHT_STRTAB, Data: dynstr},
		{Name: ".rela.dyn", Type: elf.SHT_RELA, Link: 4, Entsize: 24, Data: MustBuildRelocs(tb, class, true, []Reloc{
			{Off: 0x3fe8, Type: uint32(elf.R_X86_64_RELATIVE)},
			{Off: 0x3ff0, Sym: 3, Type: uint32(elf.R_X86_64_GLOB_DAT)},
			{Off: 0x3ff8, Sym: 1, Type: uint32(elf.R_X86_64_GLOB_DAT)},
			{Off: 0x3fe0, Sym: 2, Type: uint32(elf.R_X86_64_64)},
		})},
		{Name: ".rela.plt", Type: elf.SHT_RELA, Link: 4, Entsize: 24, Data: MustBuildRelocs(tb, class, true, []Reloc{
			{Off: 0x4018, Sym: 1, Type: uint32(elf.R_X86_64_JMP_SLOT)},
			{Off: 0x4020, Sym: 2, Type: uint32(elf.R_X86_64_JMP_SLOT)},
		})},
		{Name: ".bss", Type: elf.SHT_NOBITS, Addr: 0x4040, Size: 0x20},
		{Name: ".got", Type: elf.SHT_PROGBITS, Addr: 0x3fe0, Data: make([]byte, 0x20)},
		{Name: ".got.plt", Type: elf.SHT_PROGBITS, Addr: 0x4000, Data: make([]byte, 0x28)},
	})
}

// MustWriteELF writes data to a temporary file and returns its path.
func MustWriteELF(tb testing.TB, data []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "a.out")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatal(err)
	}
	return path
}

// MustBuildSymbols encodes a symbol table and its string table.
// The leading null symbol is added automatically.
func MustBuildSymbols(tb testing.TB, class elf.Class, syms []elf.Symbol) (symtab, strtab []byte) {
	tb.Helper()

	var symBuf bytes.Buffer
	strBuf := bytes.NewBuffer([]byte{0})
	mustWrite(tb, &symBuf, newSym(class, 0, elf.Symbol{}))
	for _, sym := range syms {
		name := uint32(strBuf.Len())
		strBuf.WriteString(sym.Name)
		strBuf.WriteByte(0)
		mustWrite(tb, &symBuf, newSym(class, name, sym))
	}
	return symBuf.Bytes(), strBuf.Bytes()
}

func newSym(class elf.Class, name uint32, sym elf.Symbol) interface{} {
	var info byte
	if sym.Name != "" {
		info = elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC)
	}
	if class == elf.ELFCLASS32 {
		return &elf.Sym32{Name: name, Info: info, Shndx: uint16(sym.Section), Value: uint32(sym.Value)}
	}
	return &elf.Sym64{Name: name, Info: info, Shndx: uint16(sym.Section), Value: sym.Value}
}

// MustBuildRelocs encodes a SHT_REL or, if rela is set, a SHT_RELA section.
func MustBuildRelocs(tb testing.TB, class elf.Class, rela bool, relocs []Reloc) []byte {
	tb.Helper()

	var buf bytes.Buffer
	for _, r := range relocs {
		switch {
		case class == elf.ELFCLASS64 && rela:
			mustWrite(tb, &buf, &elf.Rela64{Off: r.Off, Info: elf.R_INFO(r.Sym, r.Type)})
		case class == elf.ELFCLASS64:
			mustWrite(tb, &buf, &elf.Rel64{Off: r.Off, Info: elf.R_INFO(r.Sym, r.Type)})
		case rela:
			mustWrite(tb, &buf, &elf.Rela32{Off: uint32(r.Off), Info: elf.R_INFO32(r.Sym, r.Type)})
		default:
			mustWrite(tb, &buf, &elf.Rel32{Off: uint32(r.Off), Info: elf.R_INFO32(r.Sym, r.Type)})
		}
	}
	return buf.Bytes()
}

// MustBuild lays out a little-endian ELF file containing sections, followed
// by a generated .shstrtab and the section header table. Section indexes
// start at 1.
func MustBuild(tb testing.TB, class elf.Class, machine elf.Machine, sections []Section) []byte {
	tb.Helper()

	// Append section name table.
	shstrtab := bytes.NewBuffer([]byte{0})
	names := make([]uint32, len(sections)+1)
	for i, sec := range sections {
		names[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(sec.Name)
		shstrtab.WriteByte(0)
	}
	names[len(sections)] = uint32(shstrtab.Len())
	shstrtab.WriteString(".shstrtab")
	shstrtab.WriteByte(0)
	sections = append(sections, Section{Name: ".shstrtab", Type: elf.SHT_STRTAB, Data: shstrtab.Bytes()})

	ehsize, shentsize := 64, 64
	if class == elf.ELFCLASS32 {
		ehsize, shentsize = 52, 40
	}

	// Write section data after the file header.
	body := bytes.NewBuffer(make([]byte, ehsize))
	headers := []elf.Section64{{}}
	for i, sec := range sections {
		hdr := elf.Section64{
			Name:      names[i],
			Type:      uint32(sec.Type),
			Addr:      sec.Addr,
			Off:       uint64(body.Len()),
			Link:      sec.Link,
			Addralign: 1,
			Entsize:   sec.Entsize,
		}
		if sec.Type == elf.SHT_NOBITS {
			hdr.Size = sec.Size
		} else {
			hdr.Size = uint64(len(sec.Data))
			body.Write(sec.Data)
		}
		headers = append(headers, hdr)
	}
	for body.Len()%8 != 0 {
		body.WriteByte(0)
	}
	shoff := uint64(body.Len())
	for i := range headers {
		mustWrite(tb, body, sectionHeader(class, &headers[i]))
	}

	// Overwrite the reserved space with the file header.
	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(class)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	var hdr bytes.Buffer
	if class == elf.ELFCLASS32 {
		mustWrite(tb, &hdr, &elf.Header32{
			Ident:     ident,
			Type:      uint16(elf.ET_DYN),
			Machine:   uint16(machine),
			Version:   uint32(elf.EV_CURRENT),
			Shoff:     uint32(shoff),
			Ehsize:    uint16(ehsize),
			Shentsize: uint16(shentsize),
			Shnum:     uint16(len(headers)),
			Shstrndx:  uint16(len(headers) - 1),
		})
	} else {
		mustWrite(tb, &hdr, &elf.Header64{
			Ident:     ident,
			Type:      uint16(elf.ET_DYN),
			Machine:   uint16(machine),
			Version:   uint32(elf.EV_CURRENT),
			Shoff:     shoff,
			Ehsize:    uint16(ehsize),
			Shentsize: uint16(shentsize),
			Shnum:     uint16(len(headers)),
			Shstrndx:  uint16(len(headers) - 1),
		})
	}

	buf := body.Bytes()
	copy(buf, hdr.Bytes())
	return buf
}

func sectionHeader(class elf.Class, h *elf.Section64) interface{} {
	if class == elf.ELFCLASS64 {
		return h
	}
	return &elf.Section32{
		Name:      h.Name,
		Type:      h.Type,
		Flags:     uint32(h.Flags),
		Addr:      uint32(h.Addr),
		Off:       uint32(h.Off),
		Size:      uint32(h.Size),
		Link:      h.Link,
		Info:      h.Info,
		Addralign: uint32(h.Addralign),
		Entsize:   uint32(h.Entsize),
	}
}

func mustWrite(tb testing.TB, buf *bytes.Buffer, v interface{}) {
	tb.Helper()
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		tb.Fatal(err)
	}
}
