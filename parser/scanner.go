// Package parser turns raw SystemVerilog source text into the ast package's
// tree shape. It does not implement the full SystemVerilog grammar: it is a
// structural scanner that tracks brace/paren/begin-end nesting depth well
// enough to find declaration headers, instantiations, scope-resolution
// usages, and macro/timeunit directives, and to hand every identifier a
// precise byte span. Anything inside an expression or statement body that
// isn't one of those constructs is skipped over, not parsed.
package parser

import (
	"unicode"
	"unicode/utf8"
)

// scanner walks preprocessed source bytes rune by rune, tracking the
// nesting constructs the structural pass needs. It is intentionally much
// smaller than a real lexer: SystemVerilog's expression grammar is never
// represented, only the token boundaries the indexer cares about.
type scanner struct {
	src  []byte
	pos  int
	mark int
}

func newScanner(src []byte) *scanner {
	return &scanner{src: src}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() rune {
	if s.eof() {
		return 0
	}
	r, _ := utf8.DecodeRune(s.src[s.pos:])
	return r
}

func (s *scanner) peekAt(off int) rune {
	p := s.pos + off
	if p >= len(s.src) {
		return 0
	}
	r, _ := utf8.DecodeRune(s.src[p:])
	return r
}

func (s *scanner) advance() rune {
	if s.eof() {
		return 0
	}
	r, sz := utf8.DecodeRune(s.src[s.pos:])
	s.pos += sz
	return r
}

func (s *scanner) setMark() { s.mark = s.pos }

// skipTrivia advances past whitespace and comments (// and /* */). Macro
// directives (` ` `) are left to the caller: the preprocessor has already
// handled conditionals and includes, but keeps `define lines (so
// --keep_defines can preserve them verbatim) and pass-through directives
// such as `timescale.
func (s *scanner) skipTrivia() {
	for !s.eof() {
		switch {
		case isSpace(s.peek()):
			s.advance()
		case s.peek() == '/' && s.peekAt(1) == '/':
			for !s.eof() && s.peek() != '\n' {
				s.advance()
			}
		case s.peek() == '/' && s.peekAt(1) == '*':
			s.advance()
			s.advance()
			for !s.eof() && !(s.peek() == '*' && s.peekAt(1) == '/') {
				s.advance()
			}
			if !s.eof() {
				s.advance()
				s.advance()
			}
		default:
			return
		}
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n' || r == '\v' || r == '\f'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentCont(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// scanIdent scans a simple or escaped identifier starting at the current
// position, which must already satisfy isIdentStart or be a `\` escape
// marker. It returns the identifier text and whether one was found. For an
// escaped identifier the text excludes the escape marker while the span
// [start, end) includes it; the single terminating whitespace rune is
// consumed but lies outside the span.
func (s *scanner) scanIdent() (text string, start, end int, escaped bool, ok bool) {
	start = s.pos
	if s.peek() == '\\' {
		escaped = true
		s.advance()
		nameStart := s.pos
		for !s.eof() && !isSpace(s.peek()) {
			s.advance()
		}
		text = string(s.src[nameStart:s.pos])
		end = s.pos
		// consume exactly the one terminating whitespace rune, per the
		// SystemVerilog escaped-identifier rule, so callers see a
		// span that doesn't eat the next token's lead-in space twice.
		if !s.eof() && isSpace(s.peek()) {
			s.advance()
		}
		return text, start, end, true, true
	}
	if !isIdentStart(s.peek()) {
		return "", 0, 0, false, false
	}
	for !s.eof() && isIdentCont(s.peek()) {
		s.advance()
	}
	end = s.pos
	return string(s.src[start:end]), start, end, false, true
}

// peekKeyword reports whether the upcoming identifier-shaped token equals
// kw exactly (not a prefix), without consuming input on a mismatch.
func (s *scanner) peekKeyword(kw string) bool {
	save := s.pos
	text, _, _, escaped, ok := s.scanIdent()
	s.pos = save
	return ok && !escaped && text == kw
}

// consumeKeyword consumes the upcoming identifier if it equals kw.
func (s *scanner) consumeKeyword(kw string) bool {
	save := s.pos
	text, _, _, escaped, ok := s.scanIdent()
	if ok && !escaped && text == kw {
		return true
	}
	s.pos = save
	return false
}
