package htmlx

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/net/html"
)

// Point is a 0-based line and byte column in a document.
type Point struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Element is an HTML element with its extent in the document.
type Element struct {
	Tag string
	ID  string
	// Start and End are byte offsets; End is exclusive and includes the
	// end tag when there is one.
	Start, End int
	// StartPoint and EndPoint are Start and End as line and column.
	StartPoint, EndPoint Point
}

// Text returns the markup of e in content.
func (e Element) Text(content string) string {
	return content[e.Start:e.End]
}

// ExtractionKind names a refactoring available on an element.
type ExtractionKind string

const (
	// AddFragment wraps the element in a {#fragment} section.
	AddFragment ExtractionKind = "AddFragment"
	// ExtractAsFile moves the element to a new template and includes it.
	ExtractAsFile ExtractionKind = "ExtractAsFile"
	// ExtractAsFragment moves the element to a non-rendered fragment and
	// includes it in place.
	ExtractAsFragment ExtractionKind = "ExtractAsFragment"
)

// ParseExtractionKind parses the name of an extraction kind.
func ParseExtractionKind(s string) (ExtractionKind, bool) {
	switch k := ExtractionKind(s); k {
	case AddFragment, ExtractAsFile, ExtractAsFragment:
		return k, true
	}
	return "", false
}

// CheckExtract lists the extractions available at p: AddFragment on any
// element, ExtractAsFile and ExtractAsFragment only when the element has an
// id, since the id names the result.
func CheckExtract(content string, p Point) []ExtractionKind {
	el, ok := ElementAt(content, p)
	if !ok {
		return nil
	}
	kinds := []ExtractionKind{AddFragment}
	if el.ID != "" {
		kinds = append(kinds, ExtractAsFile, ExtractAsFragment)
	}
	return kinds
}

// ElementAt returns the innermost element whose extent contains p.
func ElementAt(content string, p Point) (Element, bool) {
	off := Offset(content, p)

	var best Element
	found := false
	for _, el := range Elements(content) {
		if off < el.Start || off >= el.End {
			continue
		}
		if !found || el.End-el.Start < best.End-best.Start {
			best, found = el, true
		}
	}
	return best, found
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// Elements returns every element of content in start tag order.
//
// End tags close the nearest open element of the same name; elements left
// open inside it end where its end tag starts. Elements never closed run to
// the end of content. Stray end tags are ignored.
func Elements(content string) []Element {
	var out []Element
	var stack []Element

	z := html.NewTokenizer(strings.NewReader(content))
	offset := 0
loop:
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			el := Element{Tag: string(name), Start: start}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "id" && el.ID == "" {
					el.ID = string(val)
				}
			}
			if tt == html.SelfClosingTagToken || voidElements[el.Tag] {
				el.End = offset
				out = append(out, el)
				continue loop
			}
			stack = append(stack, el)

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i].Tag != tag {
					continue
				}
				for j := len(stack) - 1; j > i; j-- {
					stack[j].End = start
					out = append(out, stack[j])
				}
				stack[i].End = offset
				out = append(out, stack[i])
				stack = stack[:i]
				break
			}
		}
	}

	for i := len(stack) - 1; i >= 0; i-- {
		stack[i].End = len(content)
		out = append(out, stack[i])
	}

	lines := lineStarts(content)
	for i := range out {
		out[i].StartPoint = pointAt(lines, out[i].Start)
		out[i].EndPoint = pointAt(lines, out[i].End)
	}

	// out is in close order; restore document order
	slices.SortStableFunc(out, func(a, b Element) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return out
}

// Offset converts p to a byte offset in content, clamped to the line.
func Offset(content string, p Point) int {
	off := 0
	for range p.Line {
		nl := strings.IndexByte(content[off:], '\n')
		if nl < 0 {
			return len(content)
		}
		off += nl + 1
	}
	end := strings.IndexByte(content[off:], '\n')
	if end < 0 {
		end = len(content) - off
	}
	return off + max(0, min(p.Col, end))
}

// PointAt converts a byte offset in content to a Point.
func PointAt(content string, offset int) Point {
	return pointAt(lineStarts(content), offset)
}

func lineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func pointAt(starts []int, offset int) Point {
	line, found := slices.BinarySearch(starts, offset)
	if !found {
		line--
	}
	return Point{Line: line, Col: offset - starts[line]}
}
