package summary

import (
	"regexp"
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/fields"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

var tokenGap = regexp.MustCompile(`\s{3,}`)

var detailLabels = []string{"arrest dt:", "disp date:", "def atty:", "last action:", "next action:"}

type cpParser struct {
	ctx    *fields.Context
	rules  *dialect.SummaryRules
	out    *record.CourtSummary
	status string
	county string
	cur    *record.SummaryCase
	seq    *record.SummarySequence
}

func parseCommonPleas(ctx *fields.Context, rules *dialect.SummaryRules, in []lines.Line, out *record.CourtSummary) error {
	start := -1
	for i, l := range in {
		if l.Contains("dob:") {
			start = i
			break
		}
	}
	if start < 0 {
		return noPerson()
	}
	end := len(in)
	for i := start; i < len(in); i++ {
		if rules.IsStatus(trimmedLower(in[i])) {
			end = i
			break
		}
	}
	out.Person = person(ctx, lines.NonBlank(in[start:end]))

	p := &cpParser{ctx: ctx, rules: rules, out: out}
	for i := end; i < len(in); i++ {
		var prev lines.Line
		if i > 0 {
			prev = in[i-1]
		}
		p.feed(in[i], prev)
	}
	return nil
}

func (p *cpParser) feed(l, prev lines.Line) {
	t := trimmedLower(l)
	switch {
	case t == "":
	case p.rules.IsStatus(t):
		p.status, p.county, p.cur, p.seq = t, "", nil, nil
		if _, ok := p.out.Cases[t]; !ok {
			p.out.Cases[t] = []*record.SummaryCase{}
		}
	case p.rules.IsCounty(t):
		p.county, p.cur, p.seq = t, nil, nil
	case l.Contains("proc status:"):
		docket := before(l, "proc status:")
		if prev.Contains("continued") && p.cur != nil && strings.EqualFold(docket, p.cur.DocketNumber) {
			return
		}
		p.openCase(l, docket)
	case l.Contains("§"):
		p.sequence(l)
	case l.ContainsAny(detailLabels):
		p.caseLine(l)
	case p.isSentence(l):
		p.sentence(l)
	}
}

func (p *cpParser) openCase(l lines.Line, docket string) {
	v := labeled(l, "proc status:", "dc no:", "otn:")
	p.cur = &record.SummaryCase{
		County:       p.county,
		DocketNumber: docket,
		Status:       p.status,
		ProcStatus:   v["proc status:"],
		DCNo:         v["dc no:"],
		OTN:          v["otn:"],
		Sequences:    []*record.SummarySequence{},
	}
	p.seq = nil
	p.out.Cases[p.status] = append(p.out.Cases[p.status], p.cur)
}

// caseLine fills the per-case detail lines that follow the docket line.
func (p *cpParser) caseLine(l lines.Line) {
	c := p.cur
	if c == nil {
		p.ctx.Anomaly(l, "case detail outside any case")
		return
	}
	switch {
	case l.Contains("arrest dt:"):
		v := labeled(l, "arrest dt:", "disp date:", "disp judge:", "trial dt:", "legacy no:")
		c.ArrestDate, c.TrialDate, c.LegacyNo = v["arrest dt:"], v["trial dt:"], v["legacy no:"]
		c.DispositionDate, c.DispositionJudge = v["disp date:"], v["disp judge:"]
	case l.Contains("disp date:"):
		v := labeled(l, "disp date:", "disp judge:")
		c.DispositionDate, c.DispositionJudge = v["disp date:"], v["disp judge:"]
	case l.Contains("def atty:"):
		c.DefenseAttorney = labeled(l, "def atty:")["def atty:"]
	case l.Contains("last action:"):
		v := labeled(l, "last action:", "last action date:", "last action room:")
		c.LastAction, c.LastActionDate, c.LastActionRoom = v["last action:"], v["last action date:"], v["last action room:"]
	case l.Contains("next action:"):
		v := labeled(l, "next action:", "next action date:", "next action room:")
		c.NextAction, c.NextActionDate, c.NextActionRoom = v["next action:"], v["next action date:"], v["next action room:"]
	}
}

func (p *cpParser) fixed() bool {
	return len(p.rules.Sequence) > 0
}

func (p *cpParser) isSentence(l lines.Line) bool {
	if l.Contains("min:") || l.Contains("max:") {
		return true
	}
	return p.fixed() && datePattern.MatchString(l.Raw())
}

func (p *cpParser) sequence(l lines.Line) {
	if p.cur == nil {
		p.ctx.Anomaly(l, "sequence outside any case")
		return
	}
	s := &record.SummarySequence{Sentences: []*record.SummarySentence{}}
	if p.fixed() {
		v := columns(l.Trimmed(), p.rules.Sequence)
		s.Sequence, s.Statute, s.Grade = v["sequence"], v["statute"], v["grade"]
		s.Description, s.Disposition = v["description"], v["disposition"]
	} else {
		p.classifySequence(l, s)
	}
	p.cur.Sequences = append(p.cur.Sequences, s)
	p.seq = s
}

// classifySequence sorts the gap-separated tokens of a compact sequence
// line by shape. Two tokens of the same kind are an anomaly.
func (p *cpParser) classifySequence(l lines.Line, s *record.SummarySequence) {
	tokens := tokenGap.Split(strings.TrimSpace(l.Raw()), -1)
	seen := map[string]bool{}
	set := func(kind, tok string, dst *string) {
		if seen[kind] {
			p.ctx.Anomaly(l, "sequence line has a second %s token %q", kind, tok)
			return
		}
		seen[kind] = true
		*dst = tok
	}
	for _, tok := range tokens {
		switch {
		case p.rules.Tokens.IsSequence(tok):
			set("sequence", tok, &s.Sequence)
		case strings.Contains(tok, "§"):
			set("statute", tok, &s.Statute)
		case p.rules.Tokens.IsGrade(tok):
			set("grade", tok, &s.Grade)
		case p.rules.IsDisposition(tok):
			set("disposition", tok, &s.Disposition)
		default:
			set("description", tok, &s.Description)
		}
	}
}

func (p *cpParser) sentence(l lines.Line) {
	if p.seq == nil {
		p.ctx.Anomaly(l, "sentence outside any sequence")
		return
	}
	s := &record.SummarySentence{}
	if p.fixed() {
		v := columns(l.Trimmed(), p.rules.Sentence)
		s.Date, s.Type, s.Period, s.Length = v["date"], v["type"], v["period"], v["length"]
	} else {
		seen := map[string]bool{}
		for _, tok := range tokenGap.Split(strings.TrimSpace(l.Raw()), -1) {
			kind, dst := "type", &s.Type
			lower := strings.ToLower(tok)
			switch {
			case datePattern.MatchString(tok):
				kind, dst = "date", &s.Date
			case strings.Contains(lower, "min") || strings.Contains(lower, "max"):
				kind, dst = "length", &s.Length
			case p.rules.IsPeriod(tok):
				kind, dst = "period", &s.Period
			}
			if seen[kind] {
				p.ctx.Anomaly(l, "sentence line has a second %s token %q", kind, tok)
				continue
			}
			seen[kind] = true
			*dst = tok
		}
	}
	p.seq.Sentences = append(p.seq.Sentences, s)
}

func columns(l lines.Line, cols []dialect.Column) map[string]string {
	out := make(map[string]string, len(cols))
	for _, c := range cols {
		out[c.Name] = l.Field(c.From, c.To)
	}
	return out
}
