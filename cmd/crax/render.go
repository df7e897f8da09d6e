package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/benbjohnson/crax"
	"github.com/benbjohnson/crax/elfsym"
	"github.com/benbjohnson/crax/parser"
	"github.com/davecgh/go-spew/spew"
)

// RenderCommand represents a command for rendering payload descriptions.
type RenderCommand struct {
	Stdout io.Writer
}

// NewRenderCommand returns a new instance of RenderCommand.
func NewRenderCommand() *RenderCommand {
	return &RenderCommand{Stdout: os.Stdout}
}

// Run executes the "render" subcommand.
func (cmd *RenderCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("crax-render", flag.ContinueOnError)
	path := fs.String("elf", "", "ELF binary")
	base := fs.String("base", "0", "load address")
	prefix := fs.String("prefix", elfsym.DefaultVarPrefix, "variable prefix")
	verbose := fs.Bool("v", false, "verbose")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("payload required")
	}

	log.SetFlags(0)
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	loadBase, err := strconv.ParseUint(*base, 0, 64)
	if err != nil {
		return fmt.Errorf("invalid base: %s", *base)
	}

	p, err := parser.New()
	if err != nil {
		return err
	}

	if *path != "" {
		f, err := elfsym.Open(*path)
		if err != nil {
			return err
		}
		f.LoadBase, f.Prefix = loadBase, *prefix
		p.Image = f
		log.Printf("loaded %s: base=0x%x bss=0x%x", *path, f.LoadBase, f.BSS())
	}

	exprs, err := p.Parse(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}

	for _, expr := range exprs {
		log.Print(spew.Sdump(expr))
		if v, ok := crax.Value(expr); ok {
			fmt.Fprintf(cmd.Stdout, "%s\t0x%x\n", expr, v)
		} else {
			fmt.Fprintln(cmd.Stdout, expr)
		}
	}
	return nil
}

func (cmd *RenderCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: crax render [arguments] payload

Renders each comma-separated item of payload, followed by its value for
numeric items.

Arguments:

	-elf path
	    Resolve sym(), got(), bss() & var() against an ELF binary.
	-base addr
	    Load address of the binary. Defaults to 0.
	-prefix name
	    Variable name used in labels. Defaults to "elf".
	-v
	    Enable verbose logging.
`[1:])
}
