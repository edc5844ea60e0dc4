package grammar

import (
	"os"
	"sort"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
	"github.com/dekarrin/chameleon/internal/chameleon/lex"
	"github.com/dekarrin/chameleon/internal/chameleon/post"
)

// DefaultEntrypoint is the conventional reserved rule name used when no
// explicit entrypoint is given to Builder.Build.
const DefaultEntrypoint = "root"

// Builder accumulates tokenized, post-processed rule definitions from one or
// more grammar files and assembles them into a single ContextFreeGrammar.
type Builder struct {
	tokensByFile map[string][]lex.Token
	order        []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{tokensByFile: make(map[string][]lex.Token)}
}

// LoadFile reads and tokenizes the grammar file at path, running it through
// the token post-processor. Loading the same path twice is a no-op.
func (b *Builder) LoadFile(path string) error {
	if _, ok := b.tokensByFile[path]; ok {
		return nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return diag.WrapIO("reading grammar file "+path, err)
	}

	tokens, err := lex.New(path, string(content)).Tokenize()
	if err != nil {
		return err
	}

	b.tokensByFile[path] = post.Process(tokens)
	b.order = append(b.order, path)
	return nil
}

// LoadSource tokenizes src directly under the given logical name, bypassing
// the filesystem. Used by tests and by chameleon.CompileSource for in-memory
// grammar text.
func (b *Builder) LoadSource(name, src string) error {
	if _, ok := b.tokensByFile[name]; ok {
		return nil
	}

	tokens, err := lex.New(name, src).Tokenize()
	if err != nil {
		return err
	}

	b.tokensByFile[name] = post.Process(tokens)
	b.order = append(b.order, name)
	return nil
}

// Build assembles every loaded file's tokens into one ContextFreeGrammar.
// entrypoint, if empty, defaults to DefaultEntrypoint. Returns a
// diag.StructuralError if any non-terminal reference is dangling or the
// entrypoint has no defining rule.
func (b *Builder) Build(entrypoint string) (*ContextFreeGrammar, error) {
	if entrypoint == "" {
		entrypoint = DefaultEntrypoint
	}

	var rules []ProductionRule
	defined := make(map[string]bool)

	// Process files in load order so output is deterministic across runs.
	names := make([]string, len(b.order))
	copy(names, b.order)

	for _, name := range names {
		tokens := b.tokensByFile[name]
		start := 0
		for i, tok := range tokens {
			switch tok.Kind {
			case lex.StartRule:
				start = i
			case lex.EndRule:
				rule := convertRule(tokens[start:i])
				defined[string(rule.LHS)] = true
				rules = append(rules, rule)
			}
		}
	}

	resolved, err := resolveReferences(rules, defined)
	if err != nil {
		return nil, err
	}

	if !defined[entrypoint] {
		return nil, diag.StructuralError{Kind: diag.MissingEntrypoint, Nonterm: entrypoint}
	}

	return &ContextFreeGrammar{
		entrypoint: NonTerminal(entrypoint),
		rules:      resolved,
	}, nil
}

// resolveReferences rewrites each NonTerminal symbol's raw token-carried
// name into the name it actually binds to: a namespace-relative reference
// prefers "DefNamespace::Name" when such a rule is defined, falling back to
// the bare name; a Global reference always binds to the bare name. Reports
// InvalidNonterminalReference for any name that still fails to resolve.
func resolveReferences(rules []ProductionRule, defined map[string]bool) ([]ProductionRule, error) {
	out := make([]ProductionRule, len(rules))
	copy(out, rules)

	for ri := range out {
		for si, sym := range out[ri].RHS {
			if sym.Kind != NonTerminalSymbol {
				continue
			}

			resolved, ok := resolveOne(sym, defined)
			if !ok {
				return nil, diag.StructuralError{
					Kind:    diag.InvalidNonterminalReference,
					Nonterm: string(sym.NT),
				}
			}
			out[ri].RHS[si].NT = resolved
		}
	}

	return out, nil
}

func resolveOne(sym Symbol, defined map[string]bool) (NonTerminal, bool) {
	name := string(sym.NT)
	if !sym.global() {
		if ns := sym.defNamespace(); ns != "" {
			qualified := ns + "::" + name
			if defined[qualified] {
				return NonTerminal(qualified), true
			}
		}
	}
	if defined[name] {
		return NonTerminal(name), true
	}
	return "", false
}

// convertRule turns one StartRule..EndRule token span into a ProductionRule.
func convertRule(tokens []lex.Token) ProductionRule {
	lhs := NonTerminal(tokens[0].Name)
	var rhs []Symbol

	i := 1
	for i < len(tokens) {
		tok := tokens[i]
		switch tok.Kind {
		case lex.NonTerminal:
			rhs = append(rhs, symbolFromRef(tok))
		case lex.ByteString:
			rhs = append(rhs, BytesSym(tok.Bytes))
		case lex.StartNumberset:
			start := i
			for tokens[i].Kind != lex.EndNumberset {
				i++
			}
			rhs = append(rhs, TerminalSym(Terminal{Kind: NumbersetTerminal, Set: convertNumberset(tokens[start : i+1])}))
		}
		i++
	}

	return ProductionRule{LHS: lhs, RHS: rhs}
}

// symbolFromRef builds a Symbol carrying the token's raw namespace metadata
// until resolveReferences consumes it and rewrites NT to the bound name.
func symbolFromRef(tok lex.Token) Symbol {
	return Symbol{
		Kind: NonTerminalSymbol,
		NT:   NonTerminal(tok.Name),
		meta: &refMeta{global: tok.Global, defNamespace: tok.DefNamespace},
	}
}

func convertNumberset(tokens []lex.Token) Numberset {
	typ := tokens[0].NumType
	var ranges []NumberRange
	for _, tok := range tokens[1 : len(tokens)-1] {
		if tok.Kind != lex.NumberRange {
			continue
		}
		ranges = append(ranges, NumberRange{Low: tok.Low, High: tok.High})
	}
	return Numberset{Type: typ, Ranges: ranges}
}

// sortedNames is a small helper used by diagnostics that want deterministic
// iteration order over a name set.
func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
