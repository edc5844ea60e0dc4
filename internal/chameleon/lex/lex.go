package lex

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dekarrin/chameleon/internal/chameleon/diag"
	"github.com/dekarrin/chameleon/internal/chameleon/sourceview"
)

// Tokenizer scans one grammar file's source text into a token stream. A
// Tokenizer is single-use: construct one with New per file.
type Tokenizer struct {
	file string
	sv   *sourceview.SourceView
	pos  int

	namespace string
	tokens    []Token
}

// New constructs a Tokenizer over src, identified as file for diagnostics.
func New(file, src string) *Tokenizer {
	return &Tokenizer{
		file: file,
		sv:   sourceview.New(src),
	}
}

// Tokenize scans the whole source and returns its token stream, or the
// first lexical error encountered.
func (t *Tokenizer) Tokenize() ([]Token, error) {
	for {
		if err := t.skipInsignificant(); err != nil {
			return nil, err
		}
		if t.atEnd() {
			return t.tokens, nil
		}

		if err := t.scanTopLevel(); err != nil {
			return nil, err
		}
	}
}

func (t *Tokenizer) atEnd() bool {
	return t.pos >= t.sv.Len()
}

func (t *Tokenizer) peek() (rune, bool) {
	return t.sv.RuneAt(t.pos)
}

func (t *Tokenizer) peekAt(offset int) (rune, bool) {
	return t.sv.RuneAt(t.pos + offset)
}

func (t *Tokenizer) advance() {
	t.pos++
}

func (t *Tokenizer) position() diag.Position {
	line, col := t.sv.LineCol(t.pos)
	return diag.Position{File: t.file, Line: line, Column: col}
}

func (t *Tokenizer) errorf(kind diag.LexKind, reason string) error {
	return diag.NewLexError(kind, t.position(), reason)
}

// skipInsignificant skips runs of whitespace (including newlines) and
// nested comments. Comments may appear anywhere whitespace is legal.
func (t *Tokenizer) skipInsignificant() error {
	for {
		r, ok := t.peek()
		if !ok {
			return nil
		}
		if unicode.IsSpace(r) {
			t.advance()
			continue
		}
		if r == '/' {
			if n, ok := t.peekAt(1); ok && n == '*' {
				if err := t.skipComment(); err != nil {
					return err
				}
				continue
			}
		}
		return nil
	}
}

// skipComment consumes a "/* ... */" comment, which may nest.
func (t *Tokenizer) skipComment() error {
	depth := 0

	for {
		r, ok := t.peek()
		if !ok {
			return t.errorf(diag.UnclosedComment, "reached end of file inside comment")
		}

		if r == '/' {
			if n, ok := t.peekAt(1); ok && n == '*' {
				depth++
				t.advance()
				t.advance()
				continue
			}
		}
		if r == '*' {
			if n, ok := t.peekAt(1); ok && n == '/' {
				depth--
				t.advance()
				t.advance()
				if depth == 0 {
					return nil
				}
				continue
			}
		}

		t.advance()
	}
}

// scanTopLevel recognizes one rule definition or meta-directive at the top
// level (outside any rule body).
func (t *Tokenizer) scanTopLevel() error {
	r, _ := t.peek()

	switch {
	case r == '<':
		return t.scanRule()
	case isIdentStart(r):
		word := t.peekWord()
		switch word {
		case "namespace":
			return t.scanNamespaceDirective()
		case "clear":
			return t.scanClearDirective()
		default:
			return t.errorf(diag.MissingRule, "expected a rule definition or directive, found '"+word+"'")
		}
	default:
		return t.errorf(diag.MissingRule, "expected a rule definition or directive")
	}
}

// peekWord returns the identifier starting at the current position without
// consuming it.
func (t *Tokenizer) peekWord() string {
	var b strings.Builder
	i := 0
	for {
		r, ok := t.peekAt(i)
		if !ok || !isIdentPart(r) {
			break
		}
		b.WriteRune(r)
		i++
	}
	return b.String()
}

func (t *Tokenizer) scanIdent() (string, error) {
	r, ok := t.peek()
	if !ok || !isIdentStart(r) {
		return "", t.errorf(diag.InvalidNonTerminal, "expected an identifier")
	}
	var b strings.Builder
	for {
		r, ok := t.peek()
		if !ok || !isIdentPart(r) {
			break
		}
		b.WriteRune(r)
		t.advance()
	}
	return b.String(), nil
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

func (t *Tokenizer) expectRune(r rune) bool {
	got, ok := t.peek()
	if !ok || got != r {
		return false
	}
	t.advance()
	return true
}

// skipLineSpace skips horizontal whitespace only, stopping at a newline.
func (t *Tokenizer) skipLineSpace() {
	for {
		r, ok := t.peek()
		if !ok || r == '\n' || !unicode.IsSpace(r) {
			return
		}
		t.advance()
	}
}

// scanNamespaceDirective handles "namespace NAME".
func (t *Tokenizer) scanNamespaceDirective() error {
	for i := 0; i < len("namespace"); i++ {
		t.advance()
	}
	t.skipLineSpace()

	name, err := t.scanIdent()
	if err != nil {
		return t.errorf(diag.InvalidNamespace, "expected a namespace name")
	}
	if name == "" {
		return t.errorf(diag.InvalidNamespace, "namespace name must not be empty")
	}

	t.namespace = name
	return nil
}

// scanClearDirective handles "clear namespace".
func (t *Tokenizer) scanClearDirective() error {
	for i := 0; i < len("clear"); i++ {
		t.advance()
	}
	t.skipLineSpace()

	word := t.peekWord()
	if word != "namespace" {
		return t.errorf(diag.InvalidClear, "expected 'clear namespace'")
	}
	for i := 0; i < len("namespace"); i++ {
		t.advance()
	}

	t.namespace = ""
	return nil
}

// scanRule handles one "<Name> => RHS" rule definition, including its
// embedded elements, terminating at the rule's newline or EOF.
func (t *Tokenizer) scanRule() error {
	startPos := t.position()
	t.advance() // consume '<'

	name, err := t.scanIdent()
	if err != nil {
		return t.errorf(diag.InvalidNonTerminal, "expected a rule name")
	}
	if !t.expectRune('>') {
		return t.errorf(diag.InvalidNonTerminal, "unterminated rule name, expected '>'")
	}

	t.skipLineSpace()
	if !t.expectRune('=') || !t.expectRune('>') {
		return t.errorf(diag.MissingSeparator, "expected '=>' after rule name")
	}
	t.skipLineSpace()

	if r, ok := t.peek(); !ok || r == '\n' {
		return t.errorf(diag.MissingRhs, "rule has no right-hand side")
	}

	qualified := name
	if t.namespace != "" {
		qualified = t.namespace + "::" + name
	}

	t.tokens = append(t.tokens, Token{Kind: StartRule, Pos: startPos, Name: qualified})

	groupDepth := 0
	for {
		r, ok := t.peek()
		if !ok || r == '\n' {
			if groupDepth > 0 {
				return t.errorf(diag.InvalidGroup, "unclosed group at end of rule")
			}
			t.tokens = append(t.tokens, Token{Kind: EndRule, Pos: t.position()})
			return nil
		}

		if unicode.IsSpace(r) {
			t.advance()
			continue
		}
		if r == '/' {
			if n, ok := t.peekAt(1); ok && n == '*' {
				if err := t.skipComment(); err != nil {
					return err
				}
				continue
			}
		}

		if err := t.scanElement(&groupDepth); err != nil {
			return err
		}
	}
}

// scanElement scans one RHS element: a non-terminal reference, a string
// literal, a group delimiter, an alternation bar, or a numberset.
func (t *Tokenizer) scanElement(groupDepth *int) error {
	r, _ := t.peek()

	switch {
	case r == '<':
		return t.scanNonTerminalRef()
	case r == '"':
		return t.scanString()
	case r == '(':
		t.tokens = append(t.tokens, Token{Kind: StartGroup, Pos: t.position()})
		t.advance()
		*groupDepth++
		return nil
	case r == ')':
		if len(t.tokens) > 0 && t.tokens[len(t.tokens)-1].Kind == StartGroup {
			return t.errorf(diag.InvalidGroup, "empty group")
		}
		if *groupDepth == 0 {
			return t.errorf(diag.InvalidGroup, "unmatched ')'")
		}
		t.tokens = append(t.tokens, Token{Kind: EndGroup, Pos: t.position()})
		t.advance()
		*groupDepth--
		return nil
	case r == '|':
		if n, ok := t.peekAt(1); ok && n == '|' {
			if *groupDepth == 0 {
				return t.errorf(diag.OrError, "'||' may only appear inside a group")
			}
			t.tokens = append(t.tokens, Token{Kind: Or, Pos: t.position()})
			t.advance()
			t.advance()
			return nil
		}
		return t.errorf(diag.UnexpectedElement, "unexpected '|'")
	case isIdentStart(r):
		return t.scanNumberset()
	default:
		return t.errorf(diag.UnexpectedElement, "unexpected character '"+string(r)+"'")
	}
}

func (t *Tokenizer) scanNonTerminalRef() error {
	pos := t.position()
	t.advance() // consume '<'

	global := false
	if a, ok := t.peek(); ok && a == ':' {
		if b, ok := t.peekAt(1); ok && b == ':' {
			global = true
			t.advance()
			t.advance()
		}
	}

	name, err := t.scanIdent()
	if err != nil {
		return t.errorf(diag.InvalidNonTerminal, "expected a non-terminal name")
	}
	if !t.expectRune('>') {
		return t.errorf(diag.InvalidNonTerminal, "unterminated non-terminal reference, expected '>'")
	}

	t.tokens = append(t.tokens, Token{
		Kind:         NonTerminal,
		Pos:          pos,
		Name:         name,
		Global:       global,
		DefNamespace: t.namespace,
	})
	return nil
}

func (t *Tokenizer) scanString() error {
	pos := t.position()
	t.advance() // consume opening quote

	var content []byte

	for {
		r, ok := t.peek()
		if !ok || r == '\n' {
			return t.errorf(diag.InvalidString, "unterminated string literal")
		}
		if r == '"' {
			t.advance()
			t.tokens = append(t.tokens, Token{Kind: ByteString, Pos: pos, Bytes: content})
			return nil
		}
		if r == '\\' {
			t.advance()
			b, err := t.scanEscape()
			if err != nil {
				return err
			}
			content = append(content, b...)
			continue
		}

		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], r)
		content = append(content, buf[:n]...)
		t.advance()
	}
}

func (t *Tokenizer) scanEscape() ([]byte, error) {
	r, ok := t.peek()
	if !ok {
		return nil, t.errorf(diag.InvalidString, "unterminated escape sequence")
	}

	switch r {
	case '\\':
		t.advance()
		return []byte{'\\'}, nil
	case 'r':
		t.advance()
		return []byte{'\r'}, nil
	case 'n':
		t.advance()
		return []byte{'\n'}, nil
	case 't':
		t.advance()
		return []byte{'\t'}, nil
	case '0':
		t.advance()
		return []byte{0}, nil
	case 'a':
		t.advance()
		return []byte{7}, nil
	case 'b':
		t.advance()
		return []byte{8}, nil
	case 'v':
		t.advance()
		return []byte{11}, nil
	case 'f':
		t.advance()
		return []byte{12}, nil
	case '"':
		t.advance()
		return []byte{'"'}, nil
	case 'x':
		t.advance()
		hi, ok1 := t.peek()
		if !ok1 || !isHexDigit(hi) {
			return nil, t.errorf(diag.InvalidString, "expected two hex digits after \\x")
		}
		t.advance()
		lo, ok2 := t.peek()
		if !ok2 || !isHexDigit(lo) {
			return nil, t.errorf(diag.InvalidString, "expected two hex digits after \\x")
		}
		t.advance()
		v, _ := strconv.ParseUint(string([]rune{hi, lo}), 16, 8)
		return []byte{byte(v)}, nil
	default:
		return nil, t.errorf(diag.InvalidString, "unknown escape sequence '\\"+string(r)+"'")
	}
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// scanNumberset handles "<type>{ ranges }" where type is one of the eight
// declared integer width keywords.
func (t *Tokenizer) scanNumberset() error {
	pos := t.position()
	word, err := t.scanIdent()
	if err != nil {
		return err
	}

	numType, ok := ParseNumberType(word)
	if !ok {
		return t.errorf(diag.UnexpectedElement, "unknown identifier '"+word+"'")
	}
	if !t.expectRune('{') {
		return t.errorf(diag.InvalidNumberset, "expected '{' after numberset type")
	}

	t.tokens = append(t.tokens, Token{Kind: StartNumberset, Pos: pos, NumType: numType})

	count := 0
	for {
		t.skipNumbersetSpace()

		if r, ok := t.peek(); ok && r == '}' {
			t.advance()
			break
		}

		low, err := t.scanNumber(numType)
		if err != nil {
			return err
		}

		high := low
		t.skipNumbersetSpace()
		if a, ok := t.peek(); ok && a == '.' {
			if b, ok := t.peekAt(1); ok && b == '.' {
				t.advance()
				t.advance()
				t.skipNumbersetSpace()
				high, err = t.scanNumber(numType)
				if err != nil {
					return err
				}
			}
		}

		t.tokens = append(t.tokens, Token{Kind: NumberRange, Pos: pos, Low: low, High: high})
		count++

		t.skipNumbersetSpace()
		r, ok := t.peek()
		if !ok {
			return t.errorf(diag.InvalidNumberset, "unterminated numberset")
		}
		if r == ',' {
			t.advance()
			continue
		}
		if r == '}' {
			t.advance()
			break
		}
		return t.errorf(diag.InvalidNumberset, "expected ',' or '}' in numberset")
	}

	if count == 0 {
		return t.errorf(diag.InvalidNumberset, "numberset must have at least one range")
	}

	t.tokens = append(t.tokens, Token{Kind: EndNumberset, Pos: t.position()})
	return nil
}

func (t *Tokenizer) skipNumbersetSpace() {
	for {
		r, ok := t.peek()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		t.advance()
	}
}

// scanNumber parses one decimal or hex integer literal, bit-cast to the raw
// 64-bit pattern appropriate for typ's width.
func (t *Tokenizer) scanNumber(typ NumberType) (uint64, error) {
	negative := false
	if r, ok := t.peek(); ok && r == '-' {
		if !typ.Signed() {
			return 0, t.errorf(diag.InvalidNumber, "negative literal in unsigned numberset")
		}
		negative = true
		t.advance()
	}

	if a, ok := t.peek(); ok && a == '0' {
		if b, ok := t.peekAt(1); ok && (b == 'x' || b == 'X') {
			return t.scanHexNumber(typ, negative)
		}
	}

	return t.scanDecimalNumber(typ, negative)
}

func (t *Tokenizer) scanHexNumber(typ NumberType, negative bool) (uint64, error) {
	t.advance() // '0'
	t.advance() // 'x'

	var digits strings.Builder
	for {
		r, ok := t.peek()
		if !ok || !isHexDigit(r) {
			break
		}
		digits.WriteRune(r)
		t.advance()
	}

	s := digits.String()
	if len(s) == 0 {
		return 0, t.errorf(diag.InvalidNumber, "expected hex digits after '0x'")
	}
	if len(s) != typ.HexDigits() {
		return 0, t.errorf(diag.InvalidNumber, "hex literal width does not match declared type "+typ.String())
	}

	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, t.errorf(diag.InvalidNumber, "malformed hex literal")
	}
	if negative {
		return negateToWidth(v, typ.BitWidth()), nil
	}
	return v, nil
}

func (t *Tokenizer) scanDecimalNumber(typ NumberType, negative bool) (uint64, error) {
	var digits strings.Builder
	for {
		r, ok := t.peek()
		if !ok || !unicode.IsDigit(r) {
			break
		}
		digits.WriteRune(r)
		t.advance()
	}

	s := digits.String()
	if len(s) == 0 {
		return 0, t.errorf(diag.InvalidNumber, "expected a decimal number")
	}

	mag, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, t.errorf(diag.InvalidNumber, "decimal literal out of range")
	}

	width := typ.BitWidth()
	if negative {
		if width < 64 && mag > uint64(1)<<(width-1) {
			return 0, t.errorf(diag.InvalidNumber, "magnitude too large for type "+typ.String())
		}
		return negateToWidth(mag, width), nil
	}

	if typ.Signed() {
		if width < 64 && mag > uint64(1)<<(width-1)-1 {
			return 0, t.errorf(diag.InvalidNumber, "decimal literal too large for type "+typ.String())
		}
	} else {
		if width < 64 && mag >= uint64(1)<<width {
			return 0, t.errorf(diag.InvalidNumber, "decimal literal too large for type "+typ.String())
		}
	}
	return mag, nil
}

// negateToWidth computes the width-bit two's complement encoding of -mag.
func negateToWidth(mag uint64, width int) uint64 {
	if width >= 64 {
		return uint64(-int64(mag))
	}
	mask := uint64(1)<<width - 1
	return (^mag + 1) & mask
}
