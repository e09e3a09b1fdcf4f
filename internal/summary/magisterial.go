package summary

import (
	"regexp"
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/fields"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

var programType = regexp.MustCompile(`program\s+type`)

// unknownStatus groups cases listed before any status heading.
const unknownStatus = "unknown"

type mjParser struct {
	ctx         *fields.Context
	rules       *dialect.SummaryRules
	out         *record.CourtSummary
	court       string
	status      string
	statewide   bool
	cur         *record.SummaryCase
	punishments bool
}

func parseMagisterial(ctx *fields.Context, rules *dialect.SummaryRules, in []lines.Line, out *record.CourtSummary) error {
	start := -1
	for i, l := range in {
		if l.Contains("dob:") {
			start = i
			break
		}
	}
	if start < 0 {
		// Organizations have no date of birth.
		for i, l := range in {
			if !l.IsBlank() && !rules.IsBanner(l.Lower()) {
				start = i
				break
			}
		}
	}
	end := len(in)
	for i := max(start, 0); i < len(in); i++ {
		if in[i].Contains("court:") {
			end = i
			break
		}
	}
	if start < 0 || start >= end {
		return noPerson()
	}
	out.Person = person(ctx, lines.NonBlank(in[start:end]))

	p := &mjParser{ctx: ctx, rules: rules, out: out}
	for _, l := range in[end:] {
		p.feed(l)
	}
	return nil
}

func (p *mjParser) endsPunishments(l lines.Line, t string) bool {
	return l.ContainsAny([]string{"processing status:", "court:", "county:", "statewide", "otn:"}) ||
		p.rules.IsCounty(t) || p.rules.IsStatus(t)
}

func (p *mjParser) feed(l lines.Line) {
	t := trimmedLower(l)
	if p.punishments {
		if !p.endsPunishments(l, t) {
			if t != "" && !p.rules.IsBoilerplate(l.Lower()) {
				p.punishment(l)
			}
			return
		}
		p.punishments = false
	}

	switch {
	case t == "":
	case l.Contains("court:"):
		p.court = labeled(l, "court:")["court:"]
	case l.Contains("county:"):
		p.court = labeled(l, "county:")["county:"]
	case p.rules.IsCounty(t):
		p.court = strings.TrimSpace(l.Raw())
	case p.rules.IsStatus(t):
		p.status = t
	case t == "statewide":
		// Statewide cases close the report; the flag stays on.
		p.statewide = true
	case l.Contains("processing status:") || l.Contains("otn:"):
		p.openCase(l)
	case l.Contains("arrest date:"):
		if p.needCase(l) {
			v := columns(l, p.rules.ArrestLine)
			p.cur.ArrestDate = afterLabel(v["arrest_date"], "arrest date:")
			p.cur.CaseLocation = v["case_location"]
			p.cur.DispEventDate = afterLabel(v["disp_event_date"], "disp. event date:")
		}
	case l.Contains("last action:"):
		if p.needCase(l) {
			v := labeled(l, "last action:", "last action date:")
			p.cur.LastAction, p.cur.LastActionDate = v["last action:"], v["last action date:"]
		}
	case l.Contains("next action:"):
		if p.needCase(l) {
			v := labeled(l, "next action:", "next action date:")
			p.cur.NextAction, p.cur.NextActionDate = v["next action:"], v["next action date:"]
		}
	case l.Contains("bail type:"):
		if p.needCase(l) {
			v := labeled(l, "bail type:", "bail amount:", "bail status:")
			p.cur.BailType, p.cur.BailAmount, p.cur.BailStatus = v["bail type:"], v["bail amount:"], v["bail status:"]
		}
	case l.Contains("§"):
		if p.needCase(l) {
			v := columns(l, p.rules.Charge)
			p.cur.Sequences = append(p.cur.Sequences, &record.SummarySequence{
				Statute:     v["statute"],
				Grade:       v["grade"],
				Description: v["description"],
				Disposition: v["disposition"],
				Counts:      v["counts"],
				Sentences:   []*record.SummarySentence{},
			})
		}
	case programType.MatchString(t):
		p.punishments = p.needCase(l)
	}
}

func (p *mjParser) needCase(l lines.Line) bool {
	if p.cur == nil {
		p.ctx.Anomaly(l, "case detail outside any case")
		return false
	}
	return true
}

func (p *mjParser) openCase(l lines.Line) {
	status := p.status
	if status == "" {
		status = unknownStatus
	}
	c := &record.SummaryCase{
		County:      p.court,
		Status:      status,
		Statewide:   p.statewide,
		Sequences:   []*record.SummarySequence{},
		Punishments: []*record.SummarySentence{},
	}
	otn := "otn:"
	if l.Contains("otn/lotn:") {
		otn = "otn/lotn:"
	}
	if l.Contains("processing status:") {
		c.DocketNumber = before(l, "processing status:")
		c.ProcStatus = labeled(l, "processing status:", otn)["processing status:"]
	} else {
		c.DocketNumber = before(l, otn)
	}
	v := labeled(l, otn)[otn]
	if otn == "otn/lotn:" {
		c.OTNLOTN = v
	} else {
		c.OTN = v
	}
	p.cur = c
	p.out.Cases[status] = append(p.out.Cases[status], c)
}

// punishment reads one row of the program table. A row whose only filled
// column is the length or the type continues the previous punishment.
func (p *mjParser) punishment(l lines.Line) {
	v := columns(l, p.rules.Punishment)
	s := &record.SummarySentence{Type: v["type"], Date: v["date"], Length: v["length"], Period: v["period"]}
	if n := len(p.cur.Punishments); n > 0 && s.Date == "" && s.Period == "" {
		last := p.cur.Punishments[n-1]
		switch {
		case s.Type == "" && s.Length != "":
			last.Length = dialect.Join(last.Length, s.Length, " ")
			return
		case s.Length == "" && s.Type != "":
			last.Type = dialect.Join(last.Type, s.Type, " ")
			return
		}
	}
	p.cur.Punishments = append(p.cur.Punishments, s)
}

func afterLabel(v, label string) string {
	if i := strings.Index(strings.ToLower(v), label); i >= 0 {
		return strings.TrimSpace(v[i+len(label):])
	}
	return strings.TrimSpace(v)
}
