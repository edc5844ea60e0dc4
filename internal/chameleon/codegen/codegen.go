// Package codegen renders the C generator/mutator pair the rest of the
// pipeline produces an interned translator.Grammar for. Two artifacts are
// possible: a header declaring the three (or two, in baby mode) exported
// symbols, and the C source implementing them.
package codegen

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
	"github.com/dekarrin/chameleon/internal/chameleon/translator"
)

// DefaultPrefix is used when Options.Prefix is empty, matching the
// original's chameleon::DEFAULT_PREFIX.
const DefaultPrefix = "chameleon"

//go:embed templates/header.tmpl
var headerTmplSrc string

//go:embed templates/source.tmpl
var sourceTmplSrc string

var headerTmpl = template.Must(template.New("header").Parse(headerTmplSrc))
var sourceTmpl = template.Must(template.New("source").Parse(sourceTmplSrc))

// Options controls emission.
type Options struct {
	// Prefix is prepended (with an underscore) to every exported symbol
	// name. Defaults to DefaultPrefix when empty.
	Prefix string

	// Baby, when true, emits only the generator: generate(uint8_t*, size_t)
	// with no walk parameter and no mutator.
	Baby bool
}

func (o Options) prefix() string {
	if o.Prefix == "" {
		return DefaultPrefix
	}
	return o.Prefix
}

// typeInfo describes one of the eight numberset element types for the
// always-emitted family of chameleon_pick_* helpers.
type typeInfo struct {
	Suffix string
	CType  string
	UType  string
}

var allTypes = []typeInfo{
	{"u8", "uint8_t", "uint8_t"},
	{"i8", "int8_t", "uint8_t"},
	{"u16", "uint16_t", "uint16_t"},
	{"i16", "int16_t", "uint16_t"},
	{"u32", "uint32_t", "uint32_t"},
	{"i32", "int32_t", "uint32_t"},
	{"u64", "uint64_t", "uint64_t"},
	{"i64", "int64_t", "uint64_t"},
}

func typeSuffix(t translator.NumbersetType) string {
	switch t {
	case translator.U8:
		return "u8"
	case translator.I8:
		return "i8"
	case translator.U16:
		return "u16"
	case translator.I16:
		return "i16"
	case translator.U32:
		return "u32"
	case translator.I32:
		return "i32"
	case translator.U64:
		return "u64"
	case translator.I64:
		return "i64"
	}
	return "u8"
}

type numbersetData struct {
	ID       int
	CType    string
	TypeSuf  string
	LoList   string
	HiList   string
	NumItems int
}

type terminalData struct {
	ID       int
	ByteList string
	Len      int
}

type altData struct {
	IsNumberset bool
	TermID      int // terminal id (bytes) or numberset id
	Rest        []int
}

type rulesetData struct {
	NonTermID int
	Alts      []altData
}

type templateData struct {
	Prefix     string
	Entrypoint int
	Types      []typeInfo
	Numbersets []numbersetData
	Terminals  []terminalData
	Rulesets   []rulesetData
}

func hexByteList(b []byte) string {
	if len(b) == 0 {
		// A zero-size array isn't portable C; pad with an unused byte and
		// rely on the separately-tracked length, never this array's size.
		return "0"
	}
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("0x%02x", c)
	}
	return strings.Join(parts, ", ")
}

func buildData(g *translator.Grammar, opts Options) templateData {
	data := templateData{
		Prefix:     opts.prefix(),
		Entrypoint: g.Entrypoint,
		Types:      allTypes,
	}

	nsIDs := make([]int, 0, len(g.Numbersets))
	for id := range g.Numbersets {
		nsIDs = append(nsIDs, id)
	}
	sort.Ints(nsIDs)
	for _, id := range nsIDs {
		ns := g.Numbersets[id]
		lo := make([]string, len(ns.Set))
		hi := make([]string, len(ns.Set))
		ctype := ns.Type.CType()
		for i, r := range ns.Set {
			lo[i] = fmt.Sprintf("(%s)0x%xULL", ctype, r.Start)
			hi[i] = fmt.Sprintf("(%s)0x%xULL", ctype, r.End)
		}
		data.Numbersets = append(data.Numbersets, numbersetData{
			ID:       id,
			CType:    ctype,
			TypeSuf:  typeSuffix(ns.Type),
			LoList:   strings.Join(lo, ", "),
			HiList:   strings.Join(hi, ", "),
			NumItems: len(ns.Set),
		})
	}

	termIDs := make([]int, 0, len(g.Terminals))
	for id := range g.Terminals {
		termIDs = append(termIDs, id)
	}
	sort.Ints(termIDs)
	for _, id := range termIDs {
		b := g.Terminals[id]
		data.Terminals = append(data.Terminals, terminalData{
			ID:       id,
			ByteList: hexByteList(b),
			Len:      len(b),
		})
	}

	byID := make(map[int]*rulesetData, len(g.Rules))
	for _, rs := range g.Rules {
		rd := &rulesetData{NonTermID: rs.NonTermID}
		for _, rule := range rs.Rules {
			// Normalize() guarantees IsInGNF() by the time the translator
			// runs: rule[0] is always a Terminal, rule[1:] all NonTerminal.
			first := rule[0]
			alt := altData{}
			if first.Term.Kind == translator.NumbersetTerminal {
				alt.IsNumberset = true
			}
			alt.TermID = first.Term.ID
			for _, sym := range rule[1:] {
				alt.Rest = append(alt.Rest, sym.NonTermID)
			}
			rd.Alts = append(rd.Alts, alt)
		}
		byID[rs.NonTermID] = rd
	}

	// g.Nonterminals is dense over [0, len) by construction (Converter
	// assigns an id to every referenced name, whether or not it's ever
	// processed as a rule's lhs), so it's the authoritative upper bound —
	// byID alone could under-count if somehow no rule targeted the last id.
	for id := 0; id < len(g.Nonterminals); id++ {
		if rd, ok := byID[id]; ok {
			data.Rulesets = append(data.Rulesets, *rd)
		} else {
			data.Rulesets = append(data.Rulesets, rulesetData{NonTermID: id})
		}
	}

	return data
}

// RenderHeader renders prefix.h declaring the exported FFI symbols for the
// given mode.
func RenderHeader(opts Options) (string, error) {
	data := struct {
		Prefix string
		Baby   bool
	}{Prefix: opts.prefix(), Baby: opts.Baby}

	var buf bytes.Buffer
	if err := headerTmpl.Execute(&buf, data); err != nil {
		return "", diag.WrapTemplate("rendering header", err)
	}
	return buf.String(), nil
}

// RenderSource renders prefix.c implementing the generator (and, unless
// opts.Baby, the mutator) for g.
func RenderSource(g *translator.Grammar, opts Options) (string, error) {
	data := buildData(g, opts)

	name := "full"
	if opts.Baby {
		name = "baby"
	}

	var buf bytes.Buffer
	if err := sourceTmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", diag.WrapTemplate("rendering source", err)
	}
	return buf.String(), nil
}
