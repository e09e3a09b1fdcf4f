package fields

import (
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

type attorneyMachine struct {
	ctx       *Context
	a         *dialect.AttorneyLayout
	side      string
	out       []*record.Attorney
	cur       *record.Attorney
	field     string
	inAddress bool
	prev      string
}

func (m *attorneyMachine) label(h lines.Line) *dialect.AttorneyLabel {
	for i := range m.a.Labels {
		lb := &m.a.Labels[i]
		if len(lb.Sides) > 0 && !contains(lb.Sides, m.side) {
			continue
		}
		if h.Contains(lb.Label) {
			return lb
		}
	}
	return nil
}

func (m *attorneyMachine) title(l lines.Line) string {
	for _, t := range m.a.Titles {
		if strings.EqualFold(t, m.prev) {
			return t
		}
	}
	m.ctx.Anomaly(l, "unknown attorney title %q", m.prev)
	return ""
}

func (m *attorneyMachine) open(l lines.Line) *record.Attorney {
	m.cur = &record.Attorney{Side: m.side}
	if m.a.TypeFromLine {
		m.cur.Type = m.title(l)
	}
	m.out = append(m.out, m.cur)
	return m.cur
}

func (m *attorneyMachine) feed(raw, h lines.Line) {
	text := strings.TrimSpace(h.Raw())
	defer func() { m.prev = text }()

	if lb := m.label(h); lb != nil {
		v, _ := h.After(lb.Label)
		v = strings.TrimSpace(v)
		at := m.cur
		if lb.Field == "name" || at == nil {
			at = m.open(raw)
		}
		setAttorney(at, lb.Field, v, false)
		m.field = lb.Field
		m.inAddress = lb.Field == "address" && v != "" && !m.a.AddressEnds(v)
		return
	}
	// Skip phrases apply to continuation text only.
	if m.cur == nil || h.ContainsAny(m.a.Skip) || h.ContainsAny(m.a.SideSkip[m.side]) {
		return
	}
	switch m.a.Continuation {
	case "all":
		if m.field != "" {
			setAttorney(m.cur, m.field, text, true)
		}
	case "address":
		if m.inAddress {
			setAttorney(m.cur, "address", text, true)
			m.inAddress = !m.a.AddressEnds(text)
		}
	}
}

func setAttorney(a *record.Attorney, field, v string, extend bool) {
	var p *string
	switch field {
	case "name":
		p = &a.Name
	case "supreme_court_no":
		p = &a.SupremeCourtNo
	case "phone":
		p = &a.Phone
	case "address":
		p = &a.Address
	case "rep_status":
		p = &a.RepStatus
	case "representing":
		p = &a.Representing
	case "counsel_status":
		p = &a.CounselStatus
	case "type":
		p = &a.Type
	default:
		return
	}
	if extend {
		*p = dialect.Join(*p, v, "|")
		return
	}
	*p = v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Attorneys reads the side-by-side attorney blocks. Each side is parsed as
// its own column, left side first.
func Attorneys(ctx *Context, e *dialect.Extractor, in []lines.Line) ([]*record.Attorney, error) {
	a := e.Attorneys
	if a == nil {
		return nil, ctx.missing(e, "attorney")
	}
	kept := ctx.filter(in, e.Skip)
	out := []*record.Attorney{}
	for i, side := range a.Sides {
		m := &attorneyMachine{ctx: ctx, a: a, side: side}
		for _, l := range kept {
			h := l.Sub(0, a.Split)
			if i > 0 {
				h = l.Sub(a.Split, 0)
			}
			if h.IsBlank() {
				continue
			}
			m.feed(l, h)
		}
		out = append(out, m.out...)
	}
	return out, ctx.Err()
}
