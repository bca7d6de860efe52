package java

import (
	"unicode"
	"unicode/utf16"
)

// tokenKind classifies a lexical token. Comments and whitespace never
// become tokens.
type tokenKind uint8

const (
	tokIdent tokenKind = iota
	tokString
	tokChar
	tokNumber
	tokPunct
)

// token is a lexical token with its zero-based source position. col
// counts UTF-16 code units, the unit LSP clients use for characters.
type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

// is reports whether t is the punctuation or identifier s.
func (t token) is(s string) bool {
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == s
}

// stringValue returns the unquoted value of a string literal token.
func (t token) stringValue() string {
	if t.kind != tokString {
		return ""
	}
	s := t.text
	if len(s) >= 6 && s[:3] == `"""` {
		return s[3 : len(s)-3]
	}
	if len(s) >= 2 {
		return unescape(s[1 : len(s)-1])
	}
	return ""
}

// tokenize splits Java source into tokens. Block comments ("/* */"),
// line comments ("//") and whitespace are dropped wherever they appear,
// including between every pair of tokens. Unterminated comments and
// literals run to the end of input rather than failing.
func tokenize(src string) []token {
	tokens := make([]token, 0, len(src)/4)

	line, col := 0, 0
	i := 0

	// advance moves i forward by n bytes keeping line/col in sync.
	advance := func(n int) {
		for k := 0; k < n && i < len(src); k++ {
			switch b := src[i]; {
			case b == '\n':
				line++
				col = 0
			case b < 0x80:
				col++
			case b >= 0xF0:
				// four byte sequences are surrogate pairs
				col += 2
			case b >= 0xC0:
				col++
			}
			i++
		}
	}

	for i < len(src) {
		c := src[i]

		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f':
			advance(1)

		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := indexFrom(src, "*/", i+2)
			if end < 0 {
				advance(len(src) - i)
			} else {
				advance(end + 2 - i)
			}

		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			end := indexByteFrom(src, '\n', i)
			if end < 0 {
				advance(len(src) - i)
			} else {
				advance(end - i)
			}

		case c == '"':
			startLine, startCol, start := line, col, i
			if i+2 < len(src) && src[i+1] == '"' && src[i+2] == '"' {
				end := indexFrom(src, `"""`, i+3)
				if end < 0 {
					advance(len(src) - i)
				} else {
					advance(end + 3 - i)
				}
			} else {
				advance(1)
				for i < len(src) && src[i] != '"' && src[i] != '\n' {
					if src[i] == '\\' {
						advance(1)
					}
					advance(1)
				}
				advance(1) // closing quote
			}
			tokens = append(tokens, token{kind: tokString, text: src[start:i], line: startLine, col: startCol})

		case c == '\'':
			startLine, startCol, start := line, col, i
			advance(1)
			for i < len(src) && src[i] != '\'' && src[i] != '\n' {
				if src[i] == '\\' {
					advance(1)
				}
				advance(1)
			}
			advance(1)
			tokens = append(tokens, token{kind: tokChar, text: src[start:i], line: startLine, col: startCol})

		case isIdentStart(rune(c)) || c >= 0x80:
			startLine, startCol, start := line, col, i
			for i < len(src) && (isIdentPart(rune(src[i])) || src[i] >= 0x80) {
				advance(1)
			}
			tokens = append(tokens, token{kind: tokIdent, text: src[start:i], line: startLine, col: startCol})

		case c >= '0' && c <= '9':
			startLine, startCol, start := line, col, i
			for i < len(src) && (isIdentPart(rune(src[i])) || src[i] == '.') {
				advance(1)
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[start:i], line: startLine, col: startCol})

		default:
			tokens = append(tokens, token{kind: tokPunct, text: src[i : i+1], line: line, col: col})
			advance(1)
		}
	}

	return tokens
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += max(utf16.RuneLen(r), 1)
	}
	return n
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func indexFrom(s, sub string, from int) int {
	for j := from; j+len(sub) <= len(s); j++ {
		if s[j:j+len(sub)] == sub {
			return j
		}
	}
	return -1
}

func indexByteFrom(s string, b byte, from int) int {
	for j := from; j < len(s); j++ {
		if s[j] == b {
			return j
		}
	}
	return -1
}

// unescape resolves the common Java escape sequences in a string body.
func unescape(s string) string {
	if indexByteFrom(s, '\\', 0) < 0 {
		return s
	}

	out := make([]byte, 0, len(s))
	for j := 0; j < len(s); j++ {
		if s[j] != '\\' || j+1 >= len(s) {
			out = append(out, s[j])
			continue
		}
		j++
		switch s[j] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		default:
			out = append(out, s[j])
		}
	}
	return string(out)
}
