// Package summary parses court summary reports: one person and every case
// filed against them, grouped by case status.
package summary

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/fields"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

// Section is the name anomalies and errors of a summary are filed under.
const Section = "COURT SUMMARY"

// Parser modes.
const (
	ModeCommonPleas = "common_pleas"
	ModeMagisterial = "magisterial"
)

var datePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

// Parse extracts a court summary. A document without a person block is a
// FatalDocumentError; anomalies follow ctx's strictness.
func Parse(ctx *fields.Context, d *dialect.Dialect, doc lines.Document) (*record.CourtSummary, error) {
	if d.Summary == nil {
		return nil, fmt.Errorf("dialect %s has no summary rules", d.Name)
	}
	out := &record.CourtSummary{
		Dialect: d.Name,
		Cases:   map[string][]*record.SummaryCase{},
	}

	var err error
	switch d.Summary.Mode {
	case ModeCommonPleas:
		err = parseCommonPleas(ctx, d.Summary, doc.Lines, out)
	case ModeMagisterial:
		err = parseMagisterial(ctx, d.Summary, doc.Lines, out)
	default:
		return nil, fmt.Errorf("unknown summary mode %q", d.Summary.Mode)
	}
	if err != nil {
		return out, err
	}
	if err := ctx.Err(); err != nil {
		xe, _ := derrors.AsExtraction(err)
		out.Errors = append(out.Errors, record.SectionErr{Section: Section, Type: xe.Type, Message: xe.Message})
	}
	return out, nil
}

func noPerson() error {
	return derrors.Fatal(nil, "court summary has no person block").WithSection(Section)
}

// labeled splits a line holding several "label: value" pairs. Each value
// runs to the next label present on the line. Labels must be lower case.
func labeled(l lines.Line, labels ...string) map[string]string {
	type hit struct {
		label string
		at    int
	}
	hits := make([]hit, 0, len(labels))
	for _, lb := range labels {
		if i := l.Index(lb); i >= 0 {
			hits = append(hits, hit{lb, i})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	out := make(map[string]string, len(hits))
	for i, h := range hits {
		end := 0
		if i+1 < len(hits) {
			end = hits[i+1].at
		}
		out[h.label] = l.Field(h.at+len([]rune(h.label)), end)
	}
	return out
}

// before returns the trimmed original text in front of label.
func before(l lines.Line, label string) string {
	i := l.Index(label)
	if i < 0 {
		return ""
	}
	return l.Field(0, i)
}

func trimmedLower(l lines.Line) string {
	return strings.TrimSpace(l.Lower())
}

// person reads the identity block at the top of the report.
func person(ctx *fields.Context, block []lines.Line) record.Person {
	p := record.Person{Aliases: []string{}}
	for i, l := range block {
		switch {
		case l.Contains("dob:"):
			p.Name = before(l, "dob:")
			v := labeled(l, "dob:", "sex:")
			p.DOB, p.Sex = v["dob:"], v["sex:"]
		case l.Contains("eyes:"):
			p.HomeLocation = before(l, "eyes:")
			p.Eyes = labeled(l, "eyes:")["eyes:"]
		case l.Contains("hair:"):
			p.Hair = labeled(l, "hair:")["hair:"]
			addAlias(&p, before(l, "hair:"))
		case l.Contains("race:"):
			p.Race = labeled(l, "race:")["race:"]
			addAlias(&p, before(l, "race:"))
		case l.Contains("aliases:"):
			for _, a := range strings.Split(labeled(l, "aliases:")["aliases:"], ",") {
				addAlias(&p, a)
			}
		case i == 0:
			p.Name = strings.TrimSpace(l.Raw())
		case i == 1 && p.HomeLocation == "":
			p.HomeLocation = strings.TrimSpace(l.Raw())
		default:
			addAlias(&p, l.Raw())
		}
	}
	if p.Name == "" && len(block) > 0 {
		ctx.Anomaly(block[0], "person block has no name")
	}
	return p
}

func addAlias(p *record.Person, a string) {
	if a = strings.TrimSpace(a); a != "" {
		p.Aliases = append(p.Aliases, a)
	}
}
