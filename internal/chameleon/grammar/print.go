package grammar

import (
	"fmt"
	"strconv"
	"strings"
)

// escapeTable inverts the tokenizer's scanEscape table for the bytes that
// have a shorter named escape than \xHH.
var escapeTable = map[byte]string{
	'\\': `\\`,
	'"':  `\"`,
	'\r': `\r`,
	'\n': `\n`,
	'\t': `\t`,
	0:    `\0`,
	7:    `\a`,
	8:    `\b`,
	11:   `\v`,
	12:   `\f`,
}

func escapeByte(b byte) string {
	if esc, ok := escapeTable[b]; ok {
		return esc
	}
	if b >= 0x20 && b < 0x7f {
		return string(rune(b))
	}
	return fmt.Sprintf(`\x%02x`, b)
}

func quoteBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		sb.WriteString(escapeByte(c))
	}
	sb.WriteByte('"')
	return sb.String()
}

func printNumberset(ns Numberset) string {
	// Bounds are raw width-bit patterns; signed types print as signed
	// decimals so the tokenizer accepts them again.
	format := func(v uint64) string {
		if ns.Type.Signed() {
			shift := 64 - ns.Type.BitWidth()
			return strconv.FormatInt(int64(v<<shift)>>shift, 10)
		}
		return strconv.FormatUint(v, 10)
	}

	var sb strings.Builder
	sb.WriteString(ns.Type.String())
	sb.WriteByte('{')
	for i, r := range ns.Ranges {
		if i > 0 {
			sb.WriteString(", ")
		}
		if r.Low == r.High {
			sb.WriteString(format(r.Low))
		} else {
			sb.WriteString(format(r.Low))
			sb.WriteString("..")
			sb.WriteString(format(r.High))
		}
	}
	sb.WriteByte('}')
	return sb.String()
}

func printSymbol(sym Symbol) string {
	switch sym.Kind {
	case NonTerminalSymbol:
		return "<" + string(sym.NT) + ">"
	case TerminalSymbol:
		switch sym.Term.Kind {
		case BytesTerminal:
			return quoteBytes(sym.Term.Bytes)
		case NumbersetTerminal:
			return printNumberset(sym.Term.Set)
		}
	}
	return ""
}

// Print renders g back to canonical chameleon grammar source: one line per
// rule, in rule order. Rules sharing an lhs print as separate lines rather
// than a single alternation group — the post-processor desugars `||` into
// independent rules long before a ContextFreeGrammar exists, so there is
// never a group left to reconstruct by the time Print runs.
func Print(g *ContextFreeGrammar) string {
	var sb strings.Builder
	for _, r := range g.rules {
		sb.WriteString("<")
		sb.WriteString(string(r.LHS))
		sb.WriteString("> =>")
		for _, sym := range r.RHS {
			sb.WriteByte(' ')
			sb.WriteString(printSymbol(sym))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
