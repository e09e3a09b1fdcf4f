// Package lines turns layout-preserving page text into an ordered sequence
// of lines that column-based extractors can slice by character offset.
package lines

import (
	"strings"
	"unicode"
)

// Line is one line of layout text. Raw and Lower have the same number of
// runes so an offset found in one is valid in the other.
type Line struct {
	Number int
	raw    []rune
	lower  []rune
}

// Document is an ordered sequence of lines.
type Document struct {
	Lines []Line
}

// Normalize splits text into lines. Inner whitespace is never collapsed.
func Normalize(text string) Document {
	if text == "" {
		return Document{Lines: []Line{}}
	}
	parts := strings.Split(text, "\n")
	out := make([]Line, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSuffix(p, "\r")
		l := New(p)
		l.Number = i + 1
		out = append(out, l)
	}
	return Document{Lines: out}
}

// New builds a Line from s.
func New(s string) Line {
	raw := []rune(s)
	lower := make([]rune, len(raw))
	for i, r := range raw {
		lower[i] = unicode.ToLower(r)
	}
	return Line{raw: raw, lower: lower}
}

// FromStrings builds lines numbered from 1.
func FromStrings(ss []string) []Line {
	out := make([]Line, len(ss))
	for i, s := range ss {
		out[i] = New(s)
		out[i].Number = i + 1
	}
	return out
}

// Raw returns the line as it was extracted.
func (l Line) Raw() string { return string(l.raw) }

// Lower returns the lower-cased line.
func (l Line) Lower() string { return string(l.lower) }

// Len returns the line length in runes.
func (l Line) Len() int { return len(l.raw) }

// IsBlank reports whether the line holds only whitespace.
func (l Line) IsBlank() bool {
	for _, r := range l.raw {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// Trimmed returns a copy without leading and trailing whitespace. Offsets
// into the copy are relative to its first non-space character.
func (l Line) Trimmed() Line {
	start, end := 0, len(l.raw)
	for start < end && unicode.IsSpace(l.raw[start]) {
		start++
	}
	for end > start && unicode.IsSpace(l.raw[end-1]) {
		end--
	}
	return Line{Number: l.Number, raw: l.raw[start:end], lower: l.lower[start:end]}
}

// Slice returns raw runes [from, to), clamped to the line. A to of 0 or less
// means end of line. The result is not trimmed.
func (l Line) Slice(from, to int) string {
	return string(clamp(l.raw, from, to))
}

// Field returns Slice(from, to) with surrounding whitespace removed.
func (l Line) Field(from, to int) string {
	return strings.TrimSpace(l.Slice(from, to))
}

// LowerField is Field on the lower-cased copy.
func (l Line) LowerField(from, to int) string {
	return strings.TrimSpace(string(clamp(l.lower, from, to)))
}

// Sub returns the Line covering runes [from, to).
func (l Line) Sub(from, to int) Line {
	return Line{Number: l.Number, raw: clamp(l.raw, from, to), lower: clamp(l.lower, from, to)}
}

// Contains reports whether the lower-cased line contains phrase, which must
// already be lower case.
func (l Line) Contains(phrase string) bool {
	return strings.Contains(string(l.lower), phrase)
}

// ContainsAny reports whether any phrase is contained in the line.
func (l Line) ContainsAny(phrases []string) bool {
	lower := string(l.lower)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Index returns the rune offset of phrase in the lower-cased line, or -1.
func (l Line) Index(phrase string) int {
	lower := string(l.lower)
	b := strings.Index(lower, phrase)
	if b < 0 {
		return -1
	}
	return len([]rune(lower[:b]))
}

// After returns the raw text after the first occurrence of the lower-case
// label, or false when the label is absent.
func (l Line) After(label string) (string, bool) {
	i := l.Index(label)
	if i < 0 {
		return "", false
	}
	return string(l.raw[i+len([]rune(label)):]), true
}

func clamp(r []rune, from, to int) []rune {
	if to <= 0 || to > len(r) {
		to = len(r)
	}
	if from < 0 {
		from = 0
	}
	if from >= to {
		return nil
	}
	return r[from:to]
}

// NonBlank filters out blank lines.
func NonBlank(in []Line) []Line {
	out := make([]Line, 0, len(in))
	for _, l := range in {
		if !l.IsBlank() {
			out = append(out, l)
		}
	}
	return out
}

// Text joins the raw lines with newlines.
func Text(in []Line) string {
	ss := make([]string, len(in))
	for i, l := range in {
		ss[i] = l.Raw()
	}
	return strings.Join(ss, "\n")
}
