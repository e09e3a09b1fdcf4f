// Package assemble runs every extractor bound by a dialect and collects the
// results into one case record.
package assemble

import (
	"fmt"
	"sort"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/fields"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
	"github.com/a3tai/docket-extract/internal/docket/sections"
)

// Result is the assembled record plus everything that went wrong.
type Result struct {
	Record    *record.CaseRecord
	Succeeded bool
	Fatal     *derrors.ExtractionError
	Errors    *derrors.ErrorCollection
}

// Assembler builds case records for one dialect.
type Assembler struct {
	dialect *dialect.Dialect
	opts    derrors.Options
	keys    []string
}

// New returns an assembler for d.
func New(d *dialect.Dialect, opts derrors.Options) *Assembler {
	keys := make([]string, 0, len(d.Extractors))
	for k := range d.Extractors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &Assembler{dialect: d, opts: opts, keys: keys}
}

// Assemble extracts every section present in seg. A failing section is
// recorded and its siblings still run. The record succeeds only when the
// identity section was found and extracted cleanly.
func (a *Assembler) Assemble(seg *sections.Result, filePath string) *Result {
	res := &Result{
		Record: &record.CaseRecord{Dialect: a.dialect.Name},
		Errors: derrors.NewErrorCollection(filePath),
	}
	for _, n := range seg.Notes {
		res.Errors.Add(n)
	}

	identityOK := false
	for _, key := range a.keys {
		e := a.dialect.Extractors[key]
		sec, ok := seg.Get(e.Section)
		if !ok {
			continue
		}

		ctx := fields.NewContext(sec.Name, a.opts, a.dialect.Boilerplate)
		v, err := a.run(ctx, key, e, sec.Lines)
		if err == nil {
			err = assign(res.Record, key, v)
		}
		for _, w := range ctx.Anomalies() {
			res.Errors.Add(w)
		}
		if err != nil {
			xe := asField(sec.Name, err)
			res.Errors.Add(xe)
			res.Record.ExtractionErrors = append(res.Record.ExtractionErrors, record.SectionErr{
				Section: sec.Name,
				Type:    xe.Type,
				Message: xe.Message,
			})
			continue
		}
		if key == a.dialect.Identity {
			identityOK = true
		}
	}

	if id, ok := a.dialect.Extractors[a.dialect.Identity]; ok {
		if _, found := seg.Get(id.Section); !found {
			res.Fatal = derrors.Fatal(nil, "identity section %s not found", id.Section).WithFile(filePath)
			res.Errors.Add(res.Fatal)
		}
	}
	res.Succeeded = res.Fatal == nil && identityOK
	return res
}

func (a *Assembler) run(ctx *fields.Context, key string, e *dialect.Extractor, in []lines.Line) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, derrors.Field(ctx.Section, "extractor %s panicked: %v", key, rec)
		}
	}()
	return fields.Extract(ctx, key, e, in)
}

func asField(section string, err error) *derrors.ExtractionError {
	if xe, ok := derrors.AsExtraction(err); ok {
		if xe.Section == "" {
			xe.Section = section
		}
		return xe
	}
	return derrors.Field(section, "%v", err)
}

func assign(rec *record.CaseRecord, key string, v any) error {
	switch x := v.(type) {
	case record.Fields:
		switch key {
		case "defendant_info":
			rec.DefendantInfo = x
		case "case_info":
			rec.CaseInfo = x
		case "status_info":
			rec.StatusInfo = x
		case "case_financial_info":
			rec.CaseFinancialInfo = x
		case "payment_plan_summary":
			rec.PaymentPlan = x
		default:
			return mismatch(key, v)
		}
	case []record.Row:
		switch key {
		case "calendar_events":
			rec.CalendarEvents = x
		case "case_participants":
			rec.CaseParticipants = x
		case "docket_entries":
			rec.DocketEntries = x
		case "confinement":
			rec.Confinement = x
		case "related_cases":
			rec.RelatedCases = x
		default:
			return mismatch(key, v)
		}
	case []record.Charge:
		rec.Charges = x
	case *record.Sentencing:
		rec.Sentencing = x
	case []*record.Attorney:
		rec.AttorneyInfo = x
	case *record.Bail:
		rec.Bail = x
	default:
		return mismatch(key, v)
	}
	return nil
}

func mismatch(key string, v any) error {
	return fmt.Errorf("extractor %s produced %T, which has no place in the record", key, v)
}
