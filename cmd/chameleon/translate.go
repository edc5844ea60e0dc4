package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/dekarrin/chameleon"
	"github.com/dekarrin/chameleon/internal/chameleon/codegen"
)

func runTranslate(args []string) int {
	fs := pflag.NewFlagSet("translate", pflag.ContinueOnError)
	entrypoint := fs.String("entrypoint", "", "non-terminal generation starts from")
	output := fs.String("output", "", "path to write the generated C source to (required)")
	baby := fs.Bool("baby", false, "emit only the generator, with no walk parameter and no mutator")
	prefix := fs.StringP("prefix", "p", "", "symbol prefix for emitted C declarations")
	verbose := fs.BoolP("verbose", "v", false, "print progress to stderr")
	cfgPath := fs.String("config", "", "path to chameleon.toml (defaults to ./chameleon.toml)")
	explicitPrefix := false

	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}
	explicitPrefix = fs.Changed("prefix")

	grammars := fs.Args()
	if len(grammars) == 0 {
		pterm.Error.Println("translate requires at least one grammar file")
		return ExitUsageError
	}
	if *output == "" {
		pterm.Error.Println("translate requires --output")
		return ExitUsageError
	}

	cfg := loadConfigOrWarn(*cfgPath)
	if *entrypoint == "" {
		*entrypoint = cfg.Entrypoint
	}
	if !explicitPrefix && cfg.Prefix != "" {
		*prefix = cfg.Prefix
		explicitPrefix = true
	}
	if !fs.Changed("baby") {
		*baby = cfg.Baby
	}
	*output = resolveOutput(*output, cfg)

	if *verbose {
		pterm.Info.Println(fmt.Sprintf("compiling %s", strings.Join(grammars, ", ")))
	}

	result, err := chameleon.CompileFiles(grammars, chameleon.Options{
		Entrypoint: *entrypoint,
		Prefix:     *prefix,
		Baby:       *baby,
	})
	if err != nil {
		printFatal(err)
		return ExitCompileError
	}

	for _, name := range result.Unreachable {
		pterm.Warning.Println(fmt.Sprintf("non-terminal %q is unreachable from the entrypoint", name))
	}

	if err := os.WriteFile(*output, []byte(result.Source), 0644); err != nil {
		printFatal(err)
		return ExitIOError
	}
	if *verbose {
		pterm.Info.Println(fmt.Sprintf("wrote %s", *output))
	}

	if explicitPrefix {
		headerPath := *output + ".h"
		if err := os.WriteFile(headerPath, []byte(result.Header), 0644); err != nil {
			printFatal(err)
			return ExitIOError
		}
		if *verbose {
			pterm.Info.Println(fmt.Sprintf("wrote %s", headerPath))
		}
	}

	usedPrefix := *prefix
	if usedPrefix == "" {
		usedPrefix = codegen.DefaultPrefix
	}
	pterm.Success.Println(fmt.Sprintf("translated %d grammar file(s) to %s (prefix %q)", len(grammars), *output, usedPrefix))
	return ExitSuccess
}
