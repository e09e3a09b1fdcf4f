package fields

import (
	"strconv"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

// Charges extracts the CHARGES table. A row whose description wrapped onto
// the next line keeps the wrapped text.
func Charges(ctx *Context, e *dialect.Extractor, in []lines.Line) ([]record.Charge, error) {
	rows, err := Rows(ctx, e, in)
	if err != nil {
		return nil, err
	}
	out := make([]record.Charge, 0, len(rows))
	prev := 0
	for _, r := range rows {
		c := record.Charge{
			SequenceNo:     r["sequence_no"],
			OrigSequenceNo: r["orig_sequence_no"],
			Grade:          r["grade"],
			Statute:        r["statute"],
			Description:    r["description"],
			OffenseDate:    r["offense_date"],
			TrackingNumber: r["tracking_number"],
			Disposition:    r["disposition"],
		}
		if n, err := strconv.Atoi(c.SequenceNo); err == nil {
			if n < prev {
				ctx.Note("charge sequence %d follows %d", n, prev)
			}
			prev = n
		}
		out = append(out, c)
	}
	return out, ctx.Err()
}
