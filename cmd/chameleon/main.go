/*
Chameleon compiles grammar files into C generator/mutator routines a fuzzing
harness loads over a small FFI surface.

Usage:

	chameleon check [--entrypoint NAME] GRAMMAR...
	chameleon translate [--entrypoint NAME] --output FILE [--baby] [--prefix PREFIX] [--verbose] GRAMMAR...
	chameleon join [--entrypoint NAME] --output FILE GRAMMAR...
	chameleon print INPUT

check tokenizes, assembles, and validates one or more grammar files, warning
on any non-terminal unreachable from the entrypoint.

translate runs the full pipeline and writes FILE as C source implementing
the generator (and, unless --baby is given, the mutator). If a prefix is
given, by --prefix or by chameleon.toml, FILE.h is also written declaring
the exported symbols.

join merges multiple grammar files into one canonical grammar file written
to FILE, resolving cross-file non-terminal references in the process.

print decodes a persisted derivation file and streams its recorded output
bytes to stdout.

A chameleon.toml file in the current directory (or named with --config) may
supply defaults for --entrypoint, --prefix, and translate/join's --output
directory; explicit flags always override it.
*/
package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
)

// Exit codes returned to the shell.
const (
	ExitSuccess = iota
	ExitUsageError
	ExitCompileError
	ExitIOError
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		printTopLevelUsage()
		return ExitUsageError
	}

	sub, rest := args[0], args[1:]

	var code int
	switch sub {
	case "check":
		code = runCheck(rest)
	case "translate":
		code = runTranslate(rest)
	case "join":
		code = runJoin(rest)
	case "print":
		code = runPrint(rest)
	case "-h", "--help", "help":
		printTopLevelUsage()
		return ExitSuccess
	default:
		pterm.Error.Println(fmt.Sprintf("unknown subcommand %q", sub))
		printTopLevelUsage()
		return ExitUsageError
	}

	return code
}

func printTopLevelUsage() {
	fmt.Fprintln(os.Stderr, "usage: chameleon <check|translate|join|print> [flags] ...")
	fmt.Fprintln(os.Stderr, "run 'chameleon <subcommand> --help' for subcommand flags")
}
