package fields

import (
	"regexp"
	"sort"
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

var (
	exactDate      = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	presencePhrase = regexp.MustCompile(`(?i)defendant.*present`)
	sequencePrefix = regexp.MustCompile(`^(\d+)\s*/\s*`)
)

type lineKind int

const (
	kindText lineKind = iota
	kindDisposition
	kindCharge
	kindJudge
	kindPunishment
	kindTerminal
	kindLinked
	kindMin
	kindMax
)

// treeParser builds the disposition tree. Missing parents are synthesized
// so a node never floats without one.
type treeParser struct {
	ctx      *Context
	r        *dialect.SentencingRules
	out      *record.Sentencing
	keywords []string
	names    []string

	disp *record.Disposition
	off  *record.Offense
	sent *record.Sentence
	pun  *record.Punishment

	inPunishment bool
	linked       bool
	pending      string
}

func newTreeParser(ctx *Context, r *dialect.SentencingRules) *treeParser {
	return &treeParser{
		ctx:      ctx,
		r:        r,
		out:      &record.Sentencing{Dispositions: []*record.Disposition{}},
		keywords: byLength(r.Disposition.Keywords),
		names:    byLength(r.Punishment.Names),
	}
}

func byLength(in []string) []string {
	out := append([]string(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func (p *treeParser) keywordMode() bool {
	return p.r.Disposition.Mode == "keyword"
}

func (p *treeParser) isDisposition(l lines.Line) bool {
	d := &p.r.Disposition
	lower := strings.TrimSpace(l.Lower())
	if p.keywordMode() {
		return p.keyword(lower) != ""
	}
	view := l.Trimmed()
	return exactDate.MatchString(view.Field(d.DateColumn.From, d.DateColumn.To)) && !d.Excluded(lower)
}

func (p *treeParser) keyword(lower string) string {
	for _, k := range p.keywords {
		if strings.HasPrefix(lower, strings.ToLower(k)) {
			return k
		}
	}
	return ""
}

func (p *treeParser) isPunishment(l lines.Line) bool {
	pr := &p.r.Punishment
	if len(p.names) > 0 {
		return p.punishmentName(l.Raw()) != ""
	}
	lower := strings.TrimSpace(l.Lower())
	if !pr.HasDuration(lower) {
		return false
	}
	return dialect.DatePattern.MatchString(lower) || pr.IsKeyword(l.Trimmed().LowerField(pr.Type.From, pr.Type.To))
}

func (p *treeParser) punishmentName(raw string) string {
	for _, n := range p.names {
		if strings.Contains(raw, n) {
			return n
		}
	}
	return ""
}

func (p *treeParser) classify(l lines.Line) lineKind {
	lower := strings.TrimSpace(l.Lower())
	switch {
	case p.isDisposition(l):
		return kindDisposition
	case p.r.Charge.Matches(l):
		return kindCharge
	case p.r.Judge.Matches(l):
		return kindJudge
	case p.isPunishment(l):
		return kindPunishment
	case l.ContainsAny(p.r.Terminal):
		return kindTerminal
	case p.r.Linked != "" && strings.Contains(lower, p.r.Linked):
		return kindLinked
	case p.inPunishment && p.r.Min != "" && strings.Contains(lower, p.r.Min):
		return kindMin
	case p.inPunishment && p.r.Max != "" && strings.Contains(lower, p.r.Max):
		return kindMax
	}
	return kindText
}

func (p *treeParser) disposition() *record.Disposition {
	if p.disp == nil {
		p.disp = &record.Disposition{Synthesized: true, Offenses: []*record.Offense{}}
		p.out.Dispositions = append(p.out.Dispositions, p.disp)
	}
	return p.disp
}

func (p *treeParser) offense() *record.Offense {
	if p.off == nil {
		d := p.disposition()
		p.off = &record.Offense{Synthesized: true, Sentences: []*record.Sentence{}}
		d.Offenses = append(d.Offenses, p.off)
	}
	return p.off
}

func (p *treeParser) sentence() *record.Sentence {
	if p.sent == nil {
		o := p.offense()
		p.sent = &record.Sentence{Synthesized: true, Punishments: []*record.Punishment{}}
		o.Sentences = append(o.Sentences, p.sent)
	}
	return p.sent
}

func (p *treeParser) punishment(pun *record.Punishment) {
	s := p.sentence()
	s.Punishments = append(s.Punishments, pun)
	p.pun, p.inPunishment = pun, true
}

func presence(d *dialect.DispositionRule, lower string) *bool {
	var v bool
	switch {
	case d.Absent != "" && strings.Contains(lower, d.Absent):
	case d.Present != "" && strings.Contains(lower, d.Present):
		v = true
	default:
		return nil
	}
	return &v
}

func (p *treeParser) openDisposition(l lines.Line) {
	d := &p.r.Disposition
	text := strings.TrimSpace(l.Raw())
	n := &record.Disposition{Offenses: []*record.Offense{}}
	if p.keywordMode() {
		lower := strings.ToLower(text)
		n.Disposition = p.keyword(lower)
		n.DefendantPresent = presence(d, lower)
		if loc := dialect.DatePattern.FindStringIndex(text); loc != nil {
			n.CaseEvent = strings.TrimSpace(text[:loc[0]])
			n.DispositionDate = text[loc[0]:loc[1]]
		} else {
			n.CaseEvent = text
		}
		for _, f := range d.Final {
			if strings.Contains(lower, f.Contains) {
				n.FinalDisposition = f.Name
				break
			}
		}
	} else {
		row := columns(l.Trimmed(), d.Columns)
		n.CaseEvent = row["case_event"]
		n.DispositionDate = row["disposition_date"]
		n.FinalDisposition = row["final_disposition"]
		n.Disposition = strings.TrimSpace(presencePhrase.ReplaceAllString(p.pending, ""))
		n.DefendantPresent = presence(d, strings.ToLower(p.pending))
	}
	p.pending = ""
	p.out.Dispositions = append(p.out.Dispositions, n)
	p.disp, p.off, p.sent, p.pun, p.inPunishment = n, nil, nil, nil, false
}

func (p *treeParser) openCharge(l lines.Line) {
	c := &p.r.Charge
	o := &record.Offense{Sentences: []*record.Sentence{}}
	if len(c.Columns) > 0 {
		row := columns(l.Trimmed(), c.Columns)
		o.Description = row["description"]
		o.Disposition = row["disposition"]
		o.Grade = row["grade"]
		o.Section = row["section"]
		if m := sequencePrefix.FindStringSubmatch(o.Description); m != nil {
			o.Sequence, o.Description = m[1], o.Description[len(m[0]):]
		}
	} else {
		p.tokenCharge(o, strings.TrimSpace(l.Raw()))
	}
	d := p.disposition()
	d.Offenses = append(d.Offenses, o)
	p.off, p.sent, p.pun, p.inPunishment = o, nil, nil, false
}

// tokenCharge parses "seq / description [event] grade statute".
func (p *treeParser) tokenCharge(o *record.Offense, text string) {
	seq, rest, _ := strings.Cut(text, "/")
	o.Sequence = strings.TrimSpace(seq)
	parts := strings.Fields(rest)

	event := ""
	lower := strings.ToLower(rest)
	for _, k := range p.keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			event = k
			break
		}
	}
	grade := -1
	for i, t := range parts {
		if p.r.Charge.IsGrade(t) {
			grade = i
			break
		}
	}

	switch {
	case grade > 0 && event != "":
		i := strings.Index(lower, strings.ToLower(event))
		o.Description = strings.TrimSpace(rest[:i])
		o.Disposition = event
		o.Grade = parts[grade]
		o.Section = strings.Join(parts[grade+1:], " ")
	case grade > 0:
		o.Description = strings.Join(parts[:grade], " ")
		o.Grade = parts[grade]
		o.Section = strings.Join(parts[grade+1:], " ")
	default:
		o.Description = strings.Join(parts, " ")
		o.Disposition = event
	}
}

func (p *treeParser) openSentence(l lines.Line) {
	j := &p.r.Judge
	s := &record.Sentence{Punishments: []*record.Punishment{}}
	if len(j.Columns) > 0 {
		row := columns(l.Trimmed(), j.Columns)
		s.Judge, s.Date, s.CreditForTimeServed = row["judge"], row["date"], row["credit_for_time_served"]
	} else {
		text := strings.TrimSpace(l.Raw())
		if loc := dialect.DatePattern.FindStringIndex(text); loc != nil {
			s.Judge = strings.TrimSpace(text[:loc[0]])
			s.Date = text[loc[0]:loc[1]]
			s.CreditForTimeServed = strings.TrimSpace(text[loc[1]:])
		} else {
			s.Judge = text
		}
	}
	o := p.offense()
	o.Sentences = append(o.Sentences, s)
	p.sent, p.pun, p.inPunishment = s, nil, false
}

func (p *treeParser) openPunishment(l lines.Line) {
	pr := &p.r.Punishment
	pun := &record.Punishment{}
	if len(p.names) > 0 {
		raw := l.Raw()
		pun.Type = p.punishmentName(raw)
		pun.Length = pr.LengthOf(raw)
		pun.StartDate = dialect.DatePattern.FindString(raw)
	} else {
		view := l.Trimmed()
		pun.Type = view.Field(pr.Type.From, pr.Type.To)
		pun.StartDate = view.Field(pr.Start.From, pr.Start.To)
		amount := view.Field(pr.Amount.From, pr.Amount.To)
		lower := strings.ToLower(amount)
		switch {
		case p.r.Min != "" && strings.Contains(lower, p.r.Min):
			pun.Min = amount
		case p.r.Max != "" && strings.Contains(lower, p.r.Max):
			pun.Max = amount
		default:
			pun.Length = amount
		}
	}
	p.punishment(pun)
}

func (p *treeParser) text(l lines.Line) {
	text := strings.TrimSpace(l.Raw())
	condition := p.r.Conditions == nil || p.r.Conditions.Matches(l, l)
	switch {
	case p.inPunishment && p.pun != nil && condition:
		p.pun.Conditions = dialect.Join(p.pun.Conditions, text, "|")
	case p.sent != nil:
		p.sent.Notes = dialect.Join(p.sent.Notes, text, "|")
	case p.off != nil:
		p.wrapCharge(text)
	default:
		p.ctx.Anomaly(l, "sentencing text outside any charge")
	}
}

// wrapCharge extends the open offense. A wrapped charge line that still
// lacks its grade carries the grade and statute after the description.
func (p *treeParser) wrapCharge(text string) {
	o := p.off
	parts := strings.Fields(text)
	if o.Grade == "" {
		for i, t := range parts {
			if i > 0 && p.r.Charge.IsGrade(t) {
				o.Description = dialect.Join(o.Description, strings.Join(parts[:i], " "), " ")
				o.Grade = t
				o.Section = strings.Join(parts[i+1:], " ")
				return
			}
		}
	}
	o.Description = dialect.Join(o.Description, text, " ")
}

func (p *treeParser) link(l lines.Line) {
	text := strings.TrimSpace(l.Raw())
	ls := p.out.LinkedSentences
	switch {
	case p.r.LinkStarts(strings.ToLower(text)):
		p.out.LinkedSentences = append(ls, text)
	case len(ls) > 0:
		ls[len(ls)-1] += "|" + text
	default:
		p.ctx.Anomaly(l, "linked sentence text before the first link")
	}
}

func (p *treeParser) run(in []lines.Line) {
	for i, l := range in {
		if p.linked {
			p.link(l)
			continue
		}
		kind := p.classify(l)
		switch kind {
		case kindDisposition:
			p.openDisposition(l)
		case kindCharge:
			p.openCharge(l)
		case kindJudge:
			p.openSentence(l)
		case kindPunishment:
			p.openPunishment(l)
		case kindTerminal:
			p.punishment(&record.Punishment{Type: strings.TrimSpace(l.Raw())})
		case kindLinked:
			p.linked, p.inPunishment = true, false
		case kindMin:
			p.pun.Min = strings.TrimSpace(l.Raw())
		case kindMax:
			p.pun.Max = strings.TrimSpace(l.Raw())
		default:
			if !p.keywordMode() && i+1 < len(in) && p.isDisposition(in[i+1]) {
				p.pending = l.Raw()
				continue
			}
			p.text(l)
		}
	}
}

func columns(view lines.Line, cols []dialect.Column) record.Row {
	row := make(record.Row, len(cols))
	for _, c := range cols {
		row[c.Name] = view.Field(c.From, c.To)
	}
	return row
}

// Sentencing extracts the disposition tree of a sentencing section.
func Sentencing(ctx *Context, e *dialect.Extractor, in []lines.Line) (*record.Sentencing, error) {
	r := e.Sentencing
	if r == nil {
		return nil, ctx.missing(e, "sentencing")
	}
	kept := ctx.filter(in, e.Skip, r.Skip)
	if r.Mode == "blocks" {
		return sentencingBlocks(ctx, r, kept)
	}
	p := newTreeParser(ctx, r)
	p.run(kept)
	return p.out, ctx.Err()
}

// sentencingBlocks reads the case, offense and penalty tables of the
// magisterial layout. Offenses hang off the latest case disposition.
func sentencingBlocks(ctx *Context, r *dialect.SentencingRules, in []lines.Line) (*record.Sentencing, error) {
	out := &record.Sentencing{Dispositions: []*record.Disposition{}}
	set := newBlockSet(r.Blocks)
	var disp *record.Disposition
	type owned struct {
		d   *record.Disposition
		row int
	}
	var offenses []owned

	for _, l := range in {
		if r.ConditionLabel != "" {
			if v, ok := l.After(r.ConditionLabel); ok {
				out.ConditionText = dialect.Join(out.ConditionText, strings.TrimSpace(v), " ")
				continue
			}
		}
		name, opened := set.feed(ctx, l)
		if !opened {
			continue
		}
		switch name {
		case "case":
			rows := set.table("case").rows
			row := rows[len(rows)-1]
			disp = &record.Disposition{
				Disposition:      row["case_event"],
				DispositionDate:  row["disposition_date"],
				DefendantPresent: yesNo(row["defendant_present"]),
				Offenses:         []*record.Offense{},
			}
			out.Dispositions = append(out.Dispositions, disp)
		case "offense":
			if disp == nil {
				disp = &record.Disposition{Synthesized: true, Offenses: []*record.Offense{}}
				out.Dispositions = append(out.Dispositions, disp)
			}
			offenses = append(offenses, owned{d: disp, row: len(set.table("offense").rows) - 1})
		}
	}

	if t := set.table("offense"); t != nil {
		for _, o := range offenses {
			row := t.rows[o.row]
			o.d.Offenses = append(o.d.Offenses, &record.Offense{
				Sequence:    row["sequence"],
				Description: row["description"],
				Disposition: row["disposition"],
				Grade:       row["grade"],
				Section:     row["section"],
				Sentences:   []*record.Sentence{},
			})
		}
	}
	if t := set.table("penalty"); t != nil {
		out.Penalties = t.rows
	}
	return out, ctx.Err()
}

func yesNo(v string) *bool {
	var b bool
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true", "present":
		b = true
	case "no", "n", "false", "not present", "absent":
	default:
		return nil
	}
	return &b
}
