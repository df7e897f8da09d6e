package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err == flag.ErrHelp {
		os.Exit(1)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	var cmd string
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "", "-h", "--help", "help":
		usage()
		return flag.ErrHelp
	case "demo":
		return NewDemoCommand().Run(ctx, args)
	case "render":
		return NewRenderCommand().Run(ctx, args)
	case "symbols":
		return NewSymbolsCommand().Run(ctx, args)
	default:
		return fmt.Errorf(`crax %s: unknown command`, cmd)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `
Crax is a tool for describing exploit payloads symbolically.

Usage:

	crax <command> [arguments]

The commands are:

	demo        build and render one expression of each kind
	render      render a payload description
	symbols     list symbol or GOT addresses of an ELF binary
	help        this screen
`[1:])
}
