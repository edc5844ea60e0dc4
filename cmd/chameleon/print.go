package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/dekarrin/chameleon/internal/chameleon/derivation"
)

func runPrint(args []string) int {
	fs := pflag.NewFlagSet("print", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}

	inputs := fs.Args()
	if len(inputs) != 1 {
		pterm.Error.Println("print requires exactly one derivation file")
		return ExitUsageError
	}

	data, err := os.ReadFile(inputs[0])
	if err != nil {
		printFatal(err)
		return ExitIOError
	}

	d, err := derivation.Decode(data)
	if err != nil {
		printFatal(err)
		return ExitCompileError
	}

	if _, err := os.Stdout.Write(d.Bytes); err != nil {
		printFatal(err)
		return ExitIOError
	}
	return ExitSuccess
}
