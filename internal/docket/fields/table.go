package fields

import (
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

// tableState is the cursor of one fixed-width table.
type tableState struct {
	t        *dialect.Table
	rows     []record.Row
	active   bool
	category string
}

func newTableState(t *dialect.Table) *tableState {
	return &tableState{t: t, rows: []record.Row{}, active: t.Activate == nil}
}

func (s *tableState) last() record.Row {
	if len(s.rows) == 0 {
		return nil
	}
	return s.rows[len(s.rows)-1]
}

// feed offers l to the table and reports whether the table consumed it.
func (s *tableState) feed(ctx *Context, l lines.Line) bool {
	t := s.t
	if l.ContainsAny(t.Skip) {
		return true
	}
	if t.Activate != nil && t.Activate.Matches(l, t.View(l)) {
		s.active = true
		s.category = strings.TrimSpace(l.Raw())
		return true
	}
	if !s.active {
		return false
	}

	if s.label(ctx, l) {
		return true
	}

	switch t.Classify(l) {
	case dialect.RowStart:
		row := record.Row(t.Row(l))
		if t.Category != "" {
			row[t.Category] = s.category
		}
		s.rows = append(s.rows, row)
		return true
	case dialect.RowOverflow:
		row := s.last()
		if row == nil {
			ctx.Anomaly(l, "continuation line before the first row")
			return true
		}
		t.Extend(row, l)
		return true
	}
	return false
}

// label appends a labelled value to the latest row.
func (s *tableState) label(ctx *Context, l lines.Line) bool {
	t := s.t
	for _, r := range t.Labels {
		if !r.Matches(l) {
			continue
		}
		row := s.last()
		if row == nil {
			ctx.Anomaly(l, "label %q before the first row", r.Label)
			return true
		}
		row[r.Field] = dialect.Join(row[r.Field], labelValue(l, r), t.Separator())
		return true
	}
	return false
}

// Rows runs the extractor's table over the section body.
func Rows(ctx *Context, e *dialect.Extractor, in []lines.Line) ([]record.Row, error) {
	if e.Table == nil {
		return nil, ctx.missing(e, "table")
	}
	st := newTableState(e.Table)
	for _, l := range ctx.filter(in, e.Skip) {
		st.feed(ctx, l)
	}
	return st.rows, ctx.Err()
}
