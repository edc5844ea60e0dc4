package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/dekarrin/chameleon"
)

func runJoin(args []string) int {
	fs := pflag.NewFlagSet("join", pflag.ContinueOnError)
	entrypoint := fs.String("entrypoint", "", "non-terminal generation starts from")
	output := fs.String("output", "", "path to write the merged grammar file to (required)")
	cfgPath := fs.String("config", "", "path to chameleon.toml (defaults to ./chameleon.toml)")

	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}

	grammars := fs.Args()
	if len(grammars) == 0 {
		pterm.Error.Println("join requires at least one grammar file")
		return ExitUsageError
	}
	if *output == "" {
		pterm.Error.Println("join requires --output")
		return ExitUsageError
	}

	cfg := loadConfigOrWarn(*cfgPath)
	if *entrypoint == "" {
		*entrypoint = cfg.Entrypoint
	}
	*output = resolveOutput(*output, cfg)

	merged, err := chameleon.JoinFiles(grammars, *entrypoint)
	if err != nil {
		printFatal(err)
		return ExitCompileError
	}

	if err := os.WriteFile(*output, []byte(merged), 0644); err != nil {
		printFatal(err)
		return ExitIOError
	}

	pterm.Success.Println("wrote " + *output)
	return ExitSuccess
}
