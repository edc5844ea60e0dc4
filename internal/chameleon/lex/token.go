// Package lex scans chameleon grammar source text into a flat token stream.
// The scanner is hand-written rather than regex-table driven: nested
// comments and nested groups make the grammar syntax non-regular at the
// points that matter.
package lex

import (
	"fmt"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
)

// Kind identifies which member of the token alphabet a Token is.
type Kind int

const (
	StartRule Kind = iota
	EndRule
	NonTerminal
	ByteString
	StartGroup
	EndGroup
	Or
	StartNumberset
	EndNumberset
	NumberRange
)

func (k Kind) String() string {
	switch k {
	case StartRule:
		return "StartRule"
	case EndRule:
		return "EndRule"
	case NonTerminal:
		return "NonTerminal"
	case ByteString:
		return "ByteString"
	case StartGroup:
		return "StartGroup"
	case EndGroup:
		return "EndGroup"
	case Or:
		return "Or"
	case StartNumberset:
		return "StartNumberset"
	case EndNumberset:
		return "EndNumberset"
	case NumberRange:
		return "NumberRange"
	}
	return "UNKNOWN"
}

// NumberType is one of the eight integer widths a numberset may be typed as.
type NumberType int

const (
	U8 NumberType = iota
	I8
	U16
	I16
	U32
	I32
	U64
	I64
)

// BitWidth returns the bit width of the type (8, 16, 32, or 64).
func (nt NumberType) BitWidth() int {
	switch nt {
	case U8, I8:
		return 8
	case U16, I16:
		return 16
	case U32, I32:
		return 32
	case U64, I64:
		return 64
	}
	return 0
}

// Signed reports whether the type is a signed integer type.
func (nt NumberType) Signed() bool {
	switch nt {
	case I8, I16, I32, I64:
		return true
	}
	return false
}

// HexDigits returns how many hex digits a literal of this type's width must
// have (2/4/8/16 for 8/16/32/64-bit types).
func (nt NumberType) HexDigits() int {
	return nt.BitWidth() / 4
}

func (nt NumberType) String() string {
	switch nt {
	case U8:
		return "u8"
	case I8:
		return "i8"
	case U16:
		return "u16"
	case I16:
		return "i16"
	case U32:
		return "u32"
	case I32:
		return "i32"
	case U64:
		return "u64"
	case I64:
		return "i64"
	}
	return "?"
}

// ParseNumberType maps a bare type keyword to a NumberType.
func ParseNumberType(name string) (NumberType, bool) {
	switch name {
	case "u8":
		return U8, true
	case "i8":
		return I8, true
	case "u16":
		return U16, true
	case "i16":
		return I16, true
	case "u32":
		return U32, true
	case "i32":
		return I32, true
	case "u64":
		return U64, true
	case "i64":
		return I64, true
	}
	return 0, false
}

// Token is a single lexeme produced by the tokenizer. Not every field is
// meaningful for every Kind; see the comment on each field.
type Token struct {
	Kind Kind
	Pos  diag.Position

	// Name holds the rule name for StartRule, and the referenced name for
	// NonTerminal.
	Name string

	// Global is set on NonTerminal tokens whose reference used a leading
	// "::" to opt out of namespace-relative resolution.
	Global bool

	// DefNamespace is the namespace active at the point a NonTerminal
	// reference occurs (i.e. the namespace of the enclosing rule's own
	// definition), used to resolve namespace-relative references.
	DefNamespace string

	// Bytes holds the decoded literal content of a ByteString token.
	Bytes []byte

	// NumType holds the declared type of a StartNumberset token.
	NumType NumberType

	// Low and High hold the bounds of a NumberRange token, stored as raw
	// 64-bit patterns (already reinterpreted for negative decimal literals
	// at the declared width; sign normalization proper happens in the
	// post-processor).
	Low, High uint64
}

func (t Token) String() string {
	switch t.Kind {
	case StartRule:
		return fmt.Sprintf("StartRule(%s)", t.Name)
	case NonTerminal:
		return fmt.Sprintf("NonTerminal(%s)", t.Name)
	case ByteString:
		return fmt.Sprintf("ByteString(%q)", t.Bytes)
	case StartNumberset:
		return fmt.Sprintf("StartNumberset(%s)", t.NumType)
	case NumberRange:
		return fmt.Sprintf("NumberRange(%d,%d)", t.Low, t.High)
	default:
		return t.Kind.String()
	}
}
