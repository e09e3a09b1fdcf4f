package fields

import (
	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

// Bail extracts the bail action, surety and depositor blocks.
func Bail(ctx *Context, e *dialect.Extractor, in []lines.Line) (*record.Bail, error) {
	f, err := Fields(ctx, e, in)
	if err != nil {
		return nil, err
	}
	b := &record.Bail{
		NebbiaStatus: f.String("nebbia_status"),
		Actions:      []*record.BailAction{},
		Sureties:     []*record.Surety{},
		Depositors:   []*record.Depositor{},
	}
	for _, r := range f.Rows("actions") {
		b.Actions = append(b.Actions, &record.BailAction{
			BailAction:       r["bail_action"],
			Date:             r["date"],
			BailType:         r["bail_type"],
			OriginatingCourt: r["originating_court"],
			Percentage:       r["percentage"],
			Amount:           r["amount"],
			Reason:           r["reason"],
		})
	}
	for _, r := range f.Rows("sureties") {
		b.Sureties = append(b.Sureties, &record.Surety{
			Type:           r["type"],
			Name:           r["name"],
			PostingStatus:  r["posting_status"],
			PostingDate:    r["posting_date"],
			SecurityType:   r["security_type"],
			SecurityAmount: r["security_amount"],
		})
	}
	for _, r := range f.Rows("depositors") {
		b.Depositors = append(b.Depositors, &record.Depositor{Name: r["name"], Amount: r["amount"]})
	}
	return b, nil
}
