package fields

import (
	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/lines"
)

// Extract runs the engine that matches the shape of e. The result is one of
// record.Fields, []record.Row, []record.Charge, *record.Bail,
// []*record.Attorney or *record.Sentencing.
func Extract(ctx *Context, key string, e *dialect.Extractor, in []lines.Line) (any, error) {
	switch {
	case e.Sentencing != nil:
		return Sentencing(ctx, e, in)
	case e.Attorneys != nil:
		return Attorneys(ctx, e, in)
	case key == "charges":
		return Charges(ctx, e, in)
	case key == "bail":
		return Bail(ctx, e, in)
	case e.Table != nil:
		return Rows(ctx, e, in)
	}
	return Fields(ctx, e, in)
}
