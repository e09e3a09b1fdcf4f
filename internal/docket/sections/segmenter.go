// Package sections splits a normalized docket into named sections.
package sections

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/lines"
)

// SpanKind classifies one input line.
type SpanKind int

const (
	SpanPreamble SpanKind = iota
	SpanHeader
	SpanBody
	SpanDropped
	SpanBlank
)

func (k SpanKind) String() string {
	switch k {
	case SpanPreamble:
		return "preamble"
	case SpanHeader:
		return "header"
	case SpanBody:
		return "body"
	case SpanDropped:
		return "dropped"
	case SpanBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Span records what happened to one input line.
type Span struct {
	Line    int
	Kind    SpanKind
	Section string
}

// Section is a canonical section and its body lines in document order.
type Section struct {
	Name   string
	Header string
	Lines  []lines.Line
}

// Result is the output of one segmentation.
type Result struct {
	Sections map[string]*Section
	Order    []string
	Spans    []Span
	Notes    []*derrors.ExtractionError
}

// Get returns a section by canonical name.
func (r *Result) Get(name string) (*Section, bool) {
	s, ok := r.Sections[name]
	return s, ok
}

// Count returns the number of spans of kind k.
func (r *Result) Count(k SpanKind) int {
	n := 0
	for _, s := range r.Spans {
		if s.Kind == k {
			n++
		}
	}
	return n
}

var headerPattern = regexp.MustCompile(`^\s*[A-Z \t/\-]{4,}\s*$`)

// HeaderText returns the normalized header carried by l, or "" when l is
// not a header line.
func HeaderText(l lines.Line) string {
	raw := l.Raw()
	if !headerPattern.MatchString(raw) {
		return ""
	}
	visible := 0
	for _, r := range raw {
		if !unicode.IsSpace(r) {
			visible++
		}
	}
	if visible < 4 {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}

// ScanHeaders lists every header-shaped line, for dialect detection.
func ScanHeaders(doc lines.Document) []string {
	var out []string
	for _, l := range doc.Lines {
		if h := HeaderText(l); h != "" {
			out = append(out, h)
		}
	}
	return out
}

// Segmenter applies one dialect's segmentation rules.
type Segmenter struct {
	rules    *dialect.Segmentation
	standard map[string]bool
	ignored  map[string]bool
}

// New returns a segmenter for rules.
func New(rules *dialect.Segmentation) *Segmenter {
	s := &Segmenter{
		rules:    rules,
		standard: make(map[string]bool, len(rules.Standard)),
		ignored:  make(map[string]bool, len(rules.FalsePositives)),
	}
	for _, h := range rules.Standard {
		s.standard[h] = true
	}
	for _, h := range rules.FalsePositives {
		s.ignored[h] = true
	}
	return s
}

func (s *Segmenter) canonical(h string) string {
	for _, c := range s.rules.Canonical {
		if strings.Contains(h, c.Contains) {
			return c.Name
		}
	}
	return h
}

// continuation reports whether header h, the ordinal-th header line of the
// document, folds into the last substantive section.
func (s *Segmenter) continuation(h string, ordinal int, last string) (dialect.Continuation, bool) {
	for _, c := range s.rules.Continuations {
		if !c.Matches(h) || ordinal < c.MinIndex || last == "" {
			continue
		}
		if c.After != "" && !strings.Contains(last, c.After) {
			continue
		}
		return c, true
	}
	return dialect.Continuation{}, false
}

type cursor struct {
	current   string
	last      string
	furniture bool
	strip     int
	headers   int
}

// Split segments doc. Every input line lands in exactly one span.
func (s *Segmenter) Split(doc lines.Document) *Result {
	res := &Result{
		Sections: make(map[string]*Section),
		Spans:    make([]Span, 0, len(doc.Lines)),
	}
	var c cursor

	for _, l := range doc.Lines {
		span := Span{Line: l.Number}
		h := HeaderText(l)
		if h != "" && s.ignored[h] {
			h = ""
		}
		ordinal := c.headers
		if h != "" {
			c.headers++
		}

		switch {
		case h != "" && s.rules.IsPageHeader(h):
			span.Kind = SpanDropped
			c.furniture = true
			c.strip = 0

		case h != "":
			if cont, ok := s.continuation(h, ordinal, c.last); ok {
				span.Kind = SpanDropped
				span.Section = c.last
				c.current, c.furniture, c.strip = c.last, false, cont.Strip
				break
			}
			name := s.canonical(h)
			if s.rules.ChargesHeader != "" && c.current == s.rules.ChargesHeader && !c.furniture && !s.standard[name] {
				span.Kind = SpanBody
				span.Section = c.current
				res.Sections[c.current].Lines = append(res.Sections[c.current].Lines, l)
				break
			}
			span.Kind = SpanHeader
			span.Section = name
			c.current, c.last, c.furniture, c.strip = name, name, false, 0
			if _, ok := res.Sections[name]; !ok {
				res.Sections[name] = &Section{Name: name, Header: h, Lines: []lines.Line{}}
				res.Order = append(res.Order, name)
			}

		case l.IsBlank():
			span.Kind = SpanBlank
			span.Section = c.current

		case c.strip > 0:
			c.strip--
			span.Kind = SpanDropped
			span.Section = c.current

		case c.furniture:
			span.Kind = SpanDropped

		case c.current == "":
			span.Kind = SpanPreamble

		default:
			span.Kind = SpanBody
			span.Section = c.current
			res.Sections[c.current].Lines = append(res.Sections[c.current].Lines, l)
		}
		res.Spans = append(res.Spans, span)
	}

	if len(res.Sections) == 0 {
		res.Notes = append(res.Notes, derrors.Structural("no section headers found in %d lines", len(doc.Lines)))
	}
	return res
}
