// Package fields turns the body lines of one section into structured values
// using the rules of a dialect.
package fields

import (
	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/lines"
)

// Context carries the state of one section extraction.
type Context struct {
	Section     string
	Options     derrors.Options
	Boilerplate []string

	anomalies []*derrors.ExtractionError
}

// NewContext returns a context for section.
func NewContext(section string, opts derrors.Options, boilerplate []string) *Context {
	return &Context{Section: section, Options: opts, Boilerplate: boilerplate}
}

// Anomaly records a tolerated irregularity at line l.
func (c *Context) Anomaly(l lines.Line, format string, args ...any) {
	c.anomalies = append(c.anomalies, derrors.Anomaly(c.Section, format, args...).WithLine(l.Number, l.Raw()))
}

// Anomalies returns the irregularities seen so far.
func (c *Context) Anomalies() []*derrors.ExtractionError {
	return c.anomalies
}

// Err returns nil in lenient mode. In strict mode the first anomaly is
// returned as a field extraction error.
func (c *Context) Err() error {
	if !c.Options.StrictMode || len(c.anomalies) == 0 {
		return nil
	}
	return c.anomalies[0].Promote()
}

// Skipped reports whether l is page boilerplate or matches one of the extra
// phrase lists.
func (c *Context) Skipped(l lines.Line, extra ...[]string) bool {
	if l.ContainsAny(c.Boilerplate) {
		return true
	}
	for _, phrases := range extra {
		if l.ContainsAny(phrases) {
			return true
		}
	}
	return false
}

// filter drops blank, boilerplate and skipped lines.
func (c *Context) filter(in []lines.Line, extra ...[]string) []lines.Line {
	out := make([]lines.Line, 0, len(in))
	for _, l := range in {
		if l.IsBlank() || c.Skipped(l, extra...) {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (c *Context) missing(e *dialect.Extractor, what string) error {
	return derrors.Field(c.Section, "extractor for %s has no %s rules", e.Section, what)
}

// Note records a tolerated irregularity that has no single source line.
func (c *Context) Note(format string, args ...any) {
	c.anomalies = append(c.anomalies, derrors.Anomaly(c.Section, format, args...))
}
