// Package htmlx answers at-cursor questions about HTML template text: which
// attribute value the cursor is in, which element it is on, and what a
// fragment of markup reads like as plain text.
package htmlx

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Attribute is an attribute value under the cursor.
type Attribute struct {
	// Name is the lowercased attribute name.
	Name string
	// Value is the unescaped attribute value.
	Value string
	// Written is the raw part of the value before the cursor.
	Written string
	// Start and End are the 0-based columns of the value in the line,
	// quotes excluded; End is exclusive.
	Start, End int
}

// DefaultRouteAttributes are the attributes whose values are request URLs.
var DefaultRouteAttributes = []string{"action", "hx-get", "hx-post", "hx-put", "hx-patch", "hx-delete"}

// CanCompleteRoute reports whether the attribute takes a route URL.
// A nil allowed list means DefaultRouteAttributes.
func (a Attribute) CanCompleteRoute(allowed []string) bool {
	if allowed == nil {
		allowed = DefaultRouteAttributes
	}
	return slices.Contains(allowed, a.Name)
}

// inlinePrefix wraps a single line so that bare attribute fragments such
// as hx-get="/" are read as attributes of a tag.
const inlinePrefix = "<button "

// AttributeAt returns the attribute value containing the cursor at column
// char of line. The line may hold whole tags or only a fragment of one; it
// is read as "<button LINE></button>". The cursor may sit anywhere from the
// first character of the value to just before the closing quote.
func AttributeAt(line string, char int) (Attribute, bool) {
	if char < 0 || char > len(line) {
		return Attribute{}, false
	}
	src := inlinePrefix + line + "></button>"
	cursor := char + len(inlinePrefix)

	for _, span := range attributeSpans(src) {
		if !span.hasValue || cursor < span.valueStart || cursor > span.valueEnd {
			continue
		}
		raw := src[span.valueStart:span.valueEnd]
		return Attribute{
			Name:    span.name,
			Value:   html.UnescapeString(raw),
			Written: src[span.valueStart:cursor],
			Start:   span.valueStart - len(inlinePrefix),
			End:     span.valueEnd - len(inlinePrefix),
		}, true
	}
	return Attribute{}, false
}

// attrSpan is an attribute with the byte offsets of its value in the source.
type attrSpan struct {
	name                 string
	hasValue             bool
	valueStart, valueEnd int
}

// attributeSpans returns the attributes of every start tag in src.
// Tag boundaries come from the tokenizer; value offsets are read from
// each tag's raw text.
func attributeSpans(src string) []attrSpan {
	var spans []attrSpan
	z := html.NewTokenizer(strings.NewReader(src))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// A tag left open at the end of the input, e.g. an unclosed quote.
			if rest := src[offset:]; len(rest) > 1 && rest[0] == '<' && isLetter(rest[1]) {
				spans = append(spans, lexTagAttributes(rest, offset)...)
			}
			return spans
		}
		raw := string(z.Raw())
		start := offset
		offset += len(raw)

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		spans = append(spans, lexTagAttributes(raw, start)...)
	}
}

// lexTagAttributes lexes the attributes of a raw start tag, following the
// tokenizer's attribute rules: names end at whitespace, '/', '=' or '>',
// values are quoted or run to whitespace or '>'.
func lexTagAttributes(raw string, base int) []attrSpan {
	var spans []attrSpan

	i := 1 // skip '<'
	for i < len(raw) && !isSpace(raw[i]) && raw[i] != '/' && raw[i] != '>' {
		i++
	}

	for i < len(raw) {
		for i < len(raw) && (isSpace(raw[i]) || raw[i] == '/') {
			i++
		}
		if i >= len(raw) || raw[i] == '>' {
			return spans
		}

		nameStart := i
		i++ // a leading '=' belongs to the name
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '/' && raw[i] != '=' && raw[i] != '>' {
			i++
		}
		span := attrSpan{name: strings.ToLower(raw[nameStart:i])}

		j := i
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}
		if j >= len(raw) || raw[j] != '=' {
			spans = append(spans, span)
			continue
		}
		j++
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}

		span.hasValue = true
		if j < len(raw) && (raw[j] == '"' || raw[j] == '\'') {
			quote := raw[j]
			end := strings.IndexByte(raw[j+1:], quote)
			if end < 0 {
				end = len(raw) - j - 1
			}
			span.valueStart = base + j + 1
			span.valueEnd = base + j + 1 + end
			i = j + 1 + end + 1
		} else {
			k := j
			for k < len(raw) && !isSpace(raw[k]) && raw[k] != '>' {
				k++
			}
			span.valueStart = base + j
			span.valueEnd = base + k
			i = k
		}
		spans = append(spans, span)
	}
	return spans
}

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
