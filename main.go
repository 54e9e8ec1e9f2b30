package main

import (
	"fmt"
	"os"

	"github.com/alexflint/go-arg"

	"github.com/clipd/clipd/internal/cli"
)

func main() {
	var args cli.Args
	arg.MustParse(&args)

	// No subcommand: open the interactive picker.
	if args.Copy == nil && args.Paste == nil && args.Pick == nil &&
		args.List == nil && args.Clear == nil && args.Stats == nil &&
		args.Daemon == nil && args.Serve == nil && args.Recover == nil &&
		args.Config == nil {
		args.Pick = &cli.PickCmd{}
	}

	handler, err := cli.New(&args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := handler.Execute(&args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
