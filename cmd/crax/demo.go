package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/benbjohnson/crax"
	"github.com/davecgh/go-spew/spew"
)

// DemoCommand represents a command for building one expression of each kind.
type DemoCommand struct {
	Stdout io.Writer
}

// NewDemoCommand returns a new instance of DemoCommand.
func NewDemoCommand() *DemoCommand {
	return &DemoCommand{Stdout: os.Stdout}
}

// Run executes the "demo" subcommand.
func (cmd *DemoCommand) Run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("crax-demo", flag.ContinueOnError)
	verbose := fs.Bool("v", false, "verbose")
	fs.Usage = cmd.usage
	if err := fs.Parse(args); err != nil {
		return err
	} else if fs.NArg() != 0 {
		return fmt.Errorf("too many arguments")
	}

	log.SetFlags(0)
	if !*verbose {
		log.SetOutput(io.Discard)
	}

	a := crax.NewConstantExpr64(0x400000)
	b := crax.NewConstantExpr64(0x1060)

	// Sum of two constants.
	var sum crax.Expr = crax.NewAddExpr(a, b)
	log.Print(spew.Sdump(sum))
	if v, ok := crax.Value(sum); ok {
		fmt.Fprintf(cmd.Stdout, "[AddExpr] Base + Offset = 0x%x\n", v)
	}

	// Symbol-relative address with an explicit offset label.
	var boe crax.Expr = crax.NewBaseOffsetExpr(a, b, "target_base", "elf.sym['read']")
	log.Print(spew.Sdump(boe))
	if e, ok := crax.As[*crax.BaseOffsetExpr](boe); ok {
		fmt.Fprintf(cmd.Stdout, "[BaseOffsetExpr] %s\n", e)
	}

	// Raw payload.
	var bve crax.Expr = crax.NewByteVectorExpr([]byte("Hello"))
	log.Print(spew.Sdump(bve))
	if e, ok := crax.As[*crax.ByteVectorExpr](bve); ok {
		fmt.Fprintf(cmd.Stdout, "[ByteVectorExpr] %s\n", e)
	}

	// Opaque metadata.
	var pe crax.Expr = crax.NewPlaceholderExpr("Exploit metadata here")
	log.Print(spew.Sdump(pe))
	if e, ok := crax.As[*crax.PlaceholderExpr[string]](pe); ok {
		fmt.Fprintf(cmd.Stdout, "[PlaceholderExpr] %s\n", e.UserData())
	}

	// Deferred action.
	var le crax.Expr = crax.NewLambdaExpr(func() {
		fmt.Fprintln(cmd.Stdout, "[LambdaExpr] Running custom exploit action!")
	})
	if e, ok := crax.As[*crax.LambdaExpr](le); ok {
		e.Invoke()
	}

	return nil
}

func (cmd *DemoCommand) usage() {
	fmt.Fprintln(os.Stderr, `
usage: crax demo [arguments]

Arguments:

	-v
	    Enable verbose logging.
`[1:])
}
