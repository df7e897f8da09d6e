package parser_test

import (
	"errors"
	"testing"

	"github.com/benbjohnson/crax"
	"github.com/benbjohnson/crax/parser"
	"github.com/google/go-cmp/cmp"
)

// Image is a static crax.Image used for testing.
type Image struct{}

func (Image) Symbol(name string) (uint64, bool) {
	if name == "read" {
		return 0x1060, true
	}
	return 0, false
}

func (Image) GOT(name string) (uint64, bool) {
	if name == "puts" || name == ".got.plt" {
		return 0x4018, true
	}
	return 0, false
}

func (Image) BSS() uint64       { return 0x4040 }
func (Image) Base() uint64      { return 0x400000 }
func (Image) VarPrefix() string { return "elf" }

func mustParse(t *testing.T, img crax.Image, input string) []crax.Expr {
	t.Helper()
	p, err := parser.New()
	if err != nil {
		t.Fatal(err)
	}
	p.Image = img
	exprs, err := p.Parse(input)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	return exprs
}

func mustParseErr(t *testing.T, img crax.Image, input string) error {
	t.Helper()
	p, err := parser.New()
	if err != nil {
		t.Fatal(err)
	}
	p.Image = img
	if _, err = p.Parse(input); err == nil {
		t.Fatalf("expected error for %q", input)
	}
	return err
}

func renderAll(exprs []crax.Expr) []string {
	a := make([]string, len(exprs))
	for i := range exprs {
		a[i] = exprs[i].String()
	}
	return a
}

func TestParser_Parse(t *testing.T) {
	t.Run("Image", func(t *testing.T) {
		exprs := mustParse(t, Image{}, `sym(read), got(puts), bss(), var(0x4010), got(.got.plt)`)
		if diff := cmp.Diff([]string{
			"elf_base + elf.sym['read']",
			"elf_base + elf.got['puts']",
			"elf_base + elf.bss()",
			"elf_base + 0x4010",
			"elf_base + elf.got['.got.plt']",
		}, renderAll(exprs)); diff != "" {
			t.Fatal(diff)
		}
		if v, ok := crax.Value(exprs[0]); !ok || v != 0x401060 {
			t.Fatalf("unexpected value: <%#x,%v>", v, ok)
		}
	})

	t.Run("QuotedName", func(t *testing.T) {
		exprs := mustParse(t, Image{}, `sym("read")`)
		if s := exprs[0].String(); s != "elf_base + elf.sym['read']" {
			t.Fatalf("unexpected string: %s", s)
		}
	})

	t.Run("Constant", func(t *testing.T) {
		exprs := mustParse(t, nil, `0x1060, 42`)
		if diff := cmp.Diff([]crax.Expr{
			crax.NewConstantExpr64(0x1060),
			crax.NewConstantExpr64(42),
		}, exprs); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Add", func(t *testing.T) {
		exprs := mustParse(t, nil, `0x400000 + 0x1060`)
		if diff := cmp.Diff([]crax.Expr{
			crax.NewAddExpr(crax.NewConstantExpr64(0x400000), crax.NewConstantExpr64(0x1060)),
		}, exprs); diff != "" {
			t.Fatal(diff)
		} else if v, ok := crax.Value(exprs[0]); !ok || v != 0x401060 {
			t.Fatalf("unexpected value: <%#x,%v>", v, ok)
		}
	})

	t.Run("Bytes", func(t *testing.T) {
		exprs := mustParse(t, nil, `"Hello!\n", "/bin/sh\x00", ""`)
		if diff := cmp.Diff([]string{
			`b'\x48\x65\x6c\x6c\x6f\x21\x0a'`,
			`b'\x2f\x62\x69\x6e\x2f\x73\x68\x00'`,
			`b''`,
		}, renderAll(exprs)); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("Meta", func(t *testing.T) {
		exprs := mustParse(t, nil, `meta("stage=1")`)
		if p, ok := crax.As[*crax.PlaceholderExpr[string]](exprs[0]); !ok {
			t.Fatalf("unexpected expression: %s", exprs[0])
		} else if v := p.UserData(); v != "stage=1" {
			t.Fatalf("unexpected user data: %s", v)
		}
	})
}

func TestParser_Parse_Error(t *testing.T) {
	t.Run("ErrNoImage", func(t *testing.T) {
		for _, input := range []string{`sym(read)`, `got(puts)`, `bss()`, `var(16)`} {
			if err := mustParseErr(t, nil, input); !errors.Is(err, parser.ErrNoImage) {
				t.Fatalf("unexpected error for %q: %v", input, err)
			}
		}
	})
	t.Run("ErrSymbolNotFound", func(t *testing.T) {
		if err := mustParseErr(t, Image{}, `sym(system)`); !errors.Is(err, crax.ErrSymbolNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("ErrGOTEntryNotFound", func(t *testing.T) {
		if err := mustParseErr(t, Image{}, `got(system)`); !errors.Is(err, crax.ErrGOTEntryNotFound) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("NonConstantOperand", func(t *testing.T) {
		if err := mustParseErr(t, Image{}, `sym(read) + 0x10`); err.Error() != "left operand of '+' must be a constant: elf_base + elf.sym['read']" {
			t.Fatalf("unexpected error: %s", err)
		}
		if err := mustParseErr(t, nil, `0x10 + "AAAA"`); err.Error() != `right operand of '+' must be a constant: b'\x41\x41\x41\x41'` {
			t.Fatalf("unexpected error: %s", err)
		}
	})
	t.Run("UnknownFunction", func(t *testing.T) {
		if err := mustParseErr(t, nil, `libc()`); err.Error() != "unknown function: libc()" {
			t.Fatalf("unexpected error: %s", err)
		}
	})
	t.Run("ArgCount", func(t *testing.T) {
		if err := mustParseErr(t, Image{}, `bss(1)`); err.Error() != "bss(): expected 0 argument(s), got 1" {
			t.Fatalf("unexpected error: %s", err)
		}
	})
	t.Run("ArgType", func(t *testing.T) {
		if err := mustParseErr(t, Image{}, `var(read)`); err.Error() != "var(): expected integer" {
			t.Fatalf("unexpected error: %s", err)
		}
		if err := mustParseErr(t, Image{}, `sym(16)`); err.Error() != "sym(): expected name, got 16" {
			t.Fatalf("unexpected error: %s", err)
		}
	})
	t.Run("IntOverflow", func(t *testing.T) {
		mustParseErr(t, nil, `0x10000000000000000`)
	})
	t.Run("Syntax", func(t *testing.T) {
		mustParseErr(t, nil, `sym(read`)
		mustParseErr(t, nil, `1 + + 2`)
		mustParseErr(t, nil, ``)
	})
}
