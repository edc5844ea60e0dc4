package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dekarrin/rosed"
	"github.com/pterm/pterm"
	"github.com/spf13/pflag"

	"github.com/dekarrin/chameleon"
	"github.com/dekarrin/chameleon/internal/chameleon/config"
)

const diagnosticWidth = 80

func runCheck(args []string) int {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	entrypoint := fs.String("entrypoint", "", "non-terminal generation starts from (defaults to \"root\" or chameleon.toml)")
	cfgPath := fs.String("config", "", "path to chameleon.toml (defaults to ./chameleon.toml)")

	if err := fs.Parse(args); err != nil {
		return ExitUsageError
	}

	grammars := fs.Args()
	if len(grammars) == 0 {
		pterm.Error.Println("check requires at least one grammar file")
		return ExitUsageError
	}

	cfg := loadConfigOrWarn(*cfgPath)
	if *entrypoint == "" {
		*entrypoint = cfg.Entrypoint
	}

	unreachable, err := chameleon.CheckFiles(grammars, *entrypoint)
	if err != nil {
		printFatal(err)
		return ExitCompileError
	}

	for _, name := range unreachable {
		pterm.Warning.Println(fmt.Sprintf("non-terminal %q is unreachable from the entrypoint", name))
	}

	pterm.Success.Println("grammar is valid")
	return ExitSuccess
}

func loadConfigOrWarn(path string) config.Config {
	var cfg config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		pterm.Warning.Println(fmt.Sprintf("ignoring %s: %s", config.FileName, err.Error()))
		return config.Config{}
	}
	return cfg
}

// resolveOutput joins a relative --output path against the manifest's
// out_dir default; an absolute path or an empty out_dir passes through
// unchanged.
func resolveOutput(output string, cfg config.Config) string {
	if cfg.OutDir == "" || filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(cfg.OutDir, output)
}

func printFatal(err error) {
	wrapped := rosed.Edit(err.Error()).Wrap(diagnosticWidth).String()
	fmt.Fprintln(os.Stderr, wrapped)
}
