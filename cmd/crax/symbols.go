package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/crax/elfsym"
)

// SymbolsCommand represents a command for listing addresses of an ELF binary.
type SymbolsCommand struct {
	Stdout io.Writer
}

// NewSymbolsCommand returns a new instance of SymbolsCommand.
func NewSymbolsCommand() *SymbolsCommand {
	return &SymbolsCommand{Stdout: os.Stdout}
}

// Run executes the "symbols" subcommand.
func (cmd *SymbolsCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("crax-symbols", flag.ContinueOnError)
	got := fs.Bool("got", false, "list GOT entries")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() == 0 {
		return fmt.Errorf("path required")
	} else if fs.NArg() > 1 {
		return fmt.Errorf("too many paths specified")
	}

	f, err := elfsym.Open(fs.Arg(0))
	if err != nil {
		return err
	}

	entries := f.Symbols()
	if *got {
		entries = f.GOTEntries()
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.Stdout, "%016x %s\n", e.Addr, e.Name)
	}
	return nil
}

func (cmd *SymbolsCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: crax symbols [arguments] path

Arguments:

	-got
	    List GOT entries instead of symbols.
`[1:])
}
