// Package chameleon drives the full grammar-to-generator pipeline: tokenize,
// post-process, assemble a context-free grammar, normalize it toward
// Greibach normal form, lower it to a numeric intermediate representation,
// and render the C source implementing the emitted generator/mutator pair.
//
// This is the same staged-pipeline role internal/ictiobus plays for
// tunascript's lex/parse/translate stack, collapsed to the one front-to-back
// Compile entry point chameleon's CLI subcommands need.
package chameleon

import (
	"github.com/dekarrin/chameleon/internal/chameleon/codegen"
	"github.com/dekarrin/chameleon/internal/chameleon/grammar"
	"github.com/dekarrin/chameleon/internal/chameleon/translator"
)

// Options controls one Compile run.
type Options struct {
	// Entrypoint names the non-terminal generation starts from. Empty
	// defaults to grammar.DefaultEntrypoint ("root").
	Entrypoint string

	// Prefix is prepended to every emitted C symbol name. Empty defaults to
	// codegen.DefaultPrefix ("chameleon").
	Prefix string

	// Baby, when true, emits only the generator (no walk parameter, no
	// mutator).
	Baby bool
}

// Result is everything one Compile run produces.
type Result struct {
	// Header is the rendered prefix.h declaring the exported FFI symbols.
	Header string

	// Source is the rendered prefix.c implementing them.
	Source string

	// Grammar is the fully-interned numeric form the source was rendered
	// from, retained for callers that want to inspect it directly rather
	// than just the rendered C.
	Grammar *translator.Grammar

	// Unreachable lists non-terminal names pruned because nothing reaches
	// them from the entrypoint. Not an error: callers surface it as a
	// warning.
	Unreachable []string
}

// CompileFiles loads and merges one or more grammar files from disk and
// runs them through the full pipeline.
func CompileFiles(paths []string, opts Options) (*Result, error) {
	b := grammar.NewBuilder()
	for _, path := range paths {
		if err := b.LoadFile(path); err != nil {
			return nil, err
		}
	}
	return compile(b, opts)
}

// CompileSource runs a single in-memory grammar source through the full
// pipeline, bypassing the filesystem.
func CompileSource(name, src string, opts Options) (*Result, error) {
	b := grammar.NewBuilder()
	if err := b.LoadSource(name, src); err != nil {
		return nil, err
	}
	return compile(b, opts)
}

func compile(b *grammar.Builder, opts Options) (*Result, error) {
	cfg, err := b.Build(opts.Entrypoint)
	if err != nil {
		return nil, err
	}

	if err := grammar.Normalize(cfg, true); err != nil {
		return nil, err
	}

	g := translator.NewConverter().Convert(cfg)

	codegenOpts := codegen.Options{Prefix: opts.Prefix, Baby: opts.Baby}

	header, err := codegen.RenderHeader(codegenOpts)
	if err != nil {
		return nil, err
	}

	source, err := codegen.RenderSource(g, codegenOpts)
	if err != nil {
		return nil, err
	}

	return &Result{
		Header:      header,
		Source:      source,
		Grammar:     g,
		Unreachable: cfg.SortedUnusedNonterminals(),
	}, nil
}

// CheckFiles runs the pipeline through normalization only, without rendering any
// C output. Used by the check CLI subcommand to validate a grammar without
// writing files.
func CheckFiles(paths []string, entrypoint string) (unreachable []string, err error) {
	b := grammar.NewBuilder()
	for _, path := range paths {
		if err := b.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg, err := b.Build(entrypoint)
	if err != nil {
		return nil, err
	}

	if err := grammar.Normalize(cfg, true); err != nil {
		return nil, err
	}

	return cfg.SortedUnusedNonterminals(), nil
}

// JoinFiles merges one or more grammar files into a single canonical
// grammar source, resolving cross-file non-terminal references in the
// process. Unlike CompileFiles/CheckFiles, it does not normalize: join
// hands off a grammar still shaped the way the author wrote it, for a
// later check or translate to operate on.
func JoinFiles(paths []string, entrypoint string) (string, error) {
	b := grammar.NewBuilder()
	for _, path := range paths {
		if err := b.LoadFile(path); err != nil {
			return "", err
		}
	}

	cfg, err := b.Build(entrypoint)
	if err != nil {
		return "", err
	}

	return grammar.Print(cfg), nil
}
