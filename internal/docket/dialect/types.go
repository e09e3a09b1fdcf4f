package dialect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/lines"
)

// Kind separates docket sheets from court summaries.
type Kind string

const (
	KindDocket  Kind = "docket"
	KindSummary Kind = "summary"
)

// Dialect is one docket layout: the rules that split it into sections and
// the column tables each section extractor slices with.
type Dialect struct {
	Name         string                `yaml:"name"`
	Description  string                `yaml:"description"`
	Kind         Kind                  `yaml:"kind"`
	Extends      string                `yaml:"extends"`
	Detect       Detect                `yaml:"detect"`
	Segmentation Segmentation          `yaml:"segmentation"`
	Boilerplate  []string              `yaml:"boilerplate"`
	Identity     string                `yaml:"identity"`
	Extractors   map[string]*Extractor `yaml:"extractors"`
	Summary      *SummaryRules         `yaml:"summary"`
}

// Detect lists the signals that select a dialect.
type Detect struct {
	FileNames []string `yaml:"file_names"`
	Headers   []string `yaml:"headers"`
	Text      []string `yaml:"text"`
	Priority  int      `yaml:"priority"`
}

// Segmentation configures the section segmenter.
type Segmentation struct {
	FalsePositives []string       `yaml:"false_positives"`
	Canonical      []Canonical    `yaml:"canonical"`
	Standard       []string       `yaml:"standard_headers"`
	ChargesHeader  string         `yaml:"charges_header"`
	PageHeaders    []string       `yaml:"page_headers"`
	Continuations  []Continuation `yaml:"continuations"`

	pageHeaders []*regexp.Regexp
}

// IsPageHeader reports whether a header line is repeated page furniture
// whose body is boilerplate.
func (s *Segmentation) IsPageHeader(header string) bool {
	for _, re := range s.pageHeaders {
		if re.MatchString(header) {
			return true
		}
	}
	return false
}

func (s *Segmentation) compile() error {
	s.pageHeaders = nil
	for _, p := range s.PageHeaders {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("invalid page header %q: %w", p, err)
		}
		s.pageHeaders = append(s.pageHeaders, re)
	}
	return nil
}

// Canonical collapses header spellings containing Contains into Name.
type Canonical struct {
	Contains string `yaml:"contains"`
	Name     string `yaml:"name"`
}

// Continuation is a page-break marker folded into the last substantive
// header. MinIndex counts header lines, page headers included: a marker
// preceded by fewer headers is a real header.
type Continuation struct {
	Marker   string `yaml:"marker"`
	Exact    bool   `yaml:"exact"`
	After    string `yaml:"after"`
	Strip    int    `yaml:"strip"`
	MinIndex int    `yaml:"min_index"`
}

// Matches reports whether header is this continuation marker.
func (c Continuation) Matches(header string) bool {
	if c.Exact {
		return header == c.Marker
	}
	return strings.Contains(header, c.Marker)
}

// Extractor binds one record key to its section and rules.
type Extractor struct {
	Section    string           `yaml:"section"`
	Skip       []string         `yaml:"skip"`
	Labels     []*LabelRule     `yaml:"labels"`
	Table      *Table           `yaml:"table"`
	Blocks     []*Block         `yaml:"blocks"`
	Attorneys  *AttorneyLayout  `yaml:"attorneys"`
	Sentencing *SentencingRules `yaml:"sentencing"`
}

// Column is a named character range. To of 0 means end of line.
type Column struct {
	Name string `yaml:"name"`
	From int    `yaml:"from"`
	To   int    `yaml:"to"`
}

// Match is a conjunction of line conditions. Patterns are tested against
// the trimmed lower-cased line; spans against the table's view of the line.
type Match struct {
	Pattern    string   `yaml:"pattern"`
	NotPattern string   `yaml:"not_pattern"`
	Contains   []string `yaml:"contains"`
	Not        []string `yaml:"not"`
	Filled     []Column `yaml:"filled"`
	Blank      []Column `yaml:"blank"`

	re    *regexp.Regexp
	notRe *regexp.Regexp
}

// Matches evaluates the conditions against line l and its sliced view.
func (m *Match) Matches(l, view lines.Line) bool {
	if m == nil {
		return true
	}
	text := strings.TrimSpace(l.Lower())
	if m.re != nil && !m.re.MatchString(text) {
		return false
	}
	if m.notRe != nil && m.notRe.MatchString(text) {
		return false
	}
	if len(m.Contains) > 0 && !l.ContainsAny(m.Contains) {
		return false
	}
	if l.ContainsAny(m.Not) {
		return false
	}
	for _, c := range m.Filled {
		if view.Field(c.From, c.To) == "" {
			return false
		}
	}
	for _, c := range m.Blank {
		if view.Field(c.From, c.To) != "" {
			return false
		}
	}
	return true
}

func (m *Match) compile() error {
	if m == nil {
		return nil
	}
	var err error
	if m.re, err = compileOptional(m.Pattern); err != nil {
		return err
	}
	m.notRe, err = compileOptional(m.NotPattern)
	return err
}

// Overflow says how a continuation line is merged into the previous row.
type Overflow struct {
	When      *Match   `yaml:"when"`
	Otherwise bool     `yaml:"otherwise"`
	Append    []Column `yaml:"append"`
	AppendAll bool     `yaml:"append_all"`
	WholeLine string   `yaml:"whole_line"`
}

// Table is a fixed-width table. Rows start a record when Start matches;
// overflow lines extend the previous record.
type Table struct {
	Trim     bool         `yaml:"trim"`
	Columns  []Column     `yaml:"columns"`
	Capture  string       `yaml:"capture"`
	Start    *Match       `yaml:"start"`
	Overflow *Overflow    `yaml:"overflow"`
	Activate *Match       `yaml:"activate"`
	Category string       `yaml:"category"`
	Skip     []string     `yaml:"skip"`
	Join     string       `yaml:"join"`
	Labels   []*LabelRule `yaml:"labels"`

	capture *regexp.Regexp
}

// RowKind classifies a table line.
type RowKind int

const (
	RowDrop RowKind = iota
	RowStart
	RowOverflow
)

// View returns the line as the table slices it.
func (t *Table) View(l lines.Line) lines.Line {
	if t.Trim {
		return l.Trimmed()
	}
	return l
}

// Classify decides whether l starts a row, continues one, or is ignored.
func (t *Table) Classify(l lines.Line) RowKind {
	view := t.View(l)
	if t.Overflow != nil && t.Overflow.When != nil && t.Overflow.When.Matches(l, view) {
		return RowOverflow
	}
	if t.capture != nil {
		if t.capture.MatchString(strings.TrimSpace(l.Raw())) {
			return RowStart
		}
	} else if t.Start.Matches(l, view) {
		return RowStart
	}
	if t.Overflow != nil && t.Overflow.Otherwise {
		return RowOverflow
	}
	return RowDrop
}

// Row builds a record from a starting line.
func (t *Table) Row(l lines.Line) map[string]string {
	row := make(map[string]string, len(t.Columns))
	if t.capture != nil {
		m := t.capture.FindStringSubmatch(strings.TrimSpace(l.Raw()))
		for i, name := range t.capture.SubexpNames() {
			if name != "" && i < len(m) {
				row[name] = strings.TrimSpace(m[i])
			}
		}
		return row
	}
	view := t.View(l)
	for _, c := range t.Columns {
		row[c.Name] = view.Field(c.From, c.To)
	}
	return row
}

// Extend merges an overflow line into row.
func (t *Table) Extend(row map[string]string, l lines.Line) {
	o := t.Overflow
	if o == nil {
		return
	}
	view := t.View(l)
	sep := t.Separator()
	if o.AppendAll {
		for _, c := range t.Columns {
			row[c.Name] = Join(row[c.Name], view.Field(c.From, c.To), sep)
		}
	}
	for _, c := range o.Append {
		row[c.Name] = Join(row[c.Name], view.Field(c.From, c.To), sep)
	}
	if o.WholeLine != "" {
		row[o.WholeLine] = Join(row[o.WholeLine], strings.TrimSpace(l.Raw()), sep)
	}
}

// Separator returns the continuation join string.
func (t *Table) Separator() string {
	if t.Join == "" {
		return " "
	}
	return t.Join
}

// Join appends piece to base with sep, ignoring empty pieces.
func Join(base, piece, sep string) string {
	if piece == "" {
		return base
	}
	if base == "" {
		return piece
	}
	return base + sep + piece
}

func (t *Table) compile() error {
	var err error
	if t.capture, err = compileOptional(t.Capture); err != nil {
		return err
	}
	if t.Capture == "" && len(t.Columns) == 0 {
		return fmt.Errorf("table needs columns or a capture pattern")
	}
	for _, m := range []*Match{t.Start, t.Activate} {
		if err := m.compile(); err != nil {
			return err
		}
	}
	if t.Overflow != nil {
		if err := t.Overflow.When.compile(); err != nil {
			return err
		}
	}
	return compileLabels(t.Labels)
}

// LabelRule captures the value that follows a label token.
type LabelRule struct {
	Field        string      `yaml:"field"`
	Label        string      `yaml:"label"`
	AtStart      bool        `yaml:"at_start"`
	Until        []string    `yaml:"until"`
	Required     bool        `yaml:"required"`
	Split        string      `yaml:"split"`
	Continue     []string    `yaml:"continue_until"`
	ContinueSpan *Column     `yaml:"continue_span"`
	Table        *Table      `yaml:"table"`
	Next         []NextValue `yaml:"next"`

	split *regexp.Regexp
}

// NextValue reads a value from a line following the label line.
type NextValue struct {
	Field  string   `yaml:"field"`
	Split  string   `yaml:"split"`
	Unless []string `yaml:"unless"`

	split *regexp.Regexp
}

// Matches reports whether l carries the label.
func (r *LabelRule) Matches(l lines.Line) bool {
	if r.AtStart {
		return strings.HasPrefix(strings.TrimSpace(l.Lower()), r.Label)
	}
	return l.Contains(r.Label)
}

// Continues reports whether the rule collects the lines after its label.
func (r *LabelRule) Continues() bool {
	return len(r.Continue) > 0 || r.Table != nil
}

// SplitValue splits v into trimmed non-empty items when the rule is a list.
func (r *LabelRule) SplitValue(v string) (any, bool) {
	if r.split == nil {
		return v, false
	}
	return splitTrim(r.split, v), true
}

// SplitValue splits v into trimmed non-empty items.
func (n *NextValue) SplitValue(v string) []string {
	if n.split == nil {
		return splitTrim(whitespace, v)
	}
	return splitTrim(n.split, v)
}

var whitespace = regexp.MustCompile(`\s+`)

func splitTrim(re *regexp.Regexp, v string) []string {
	out := make([]string, 0)
	for _, p := range re.Split(v, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func compileLabels(rules []*LabelRule) error {
	for _, r := range rules {
		if r.Field == "" || r.Label == "" {
			return fmt.Errorf("label rule needs field and label")
		}
		var err error
		if r.split, err = compileOptional(r.Split); err != nil {
			return err
		}
		for i := range r.Next {
			if r.Next[i].split, err = compileOptional(r.Next[i].Split); err != nil {
				return err
			}
		}
		if r.Table != nil {
			if err := r.Table.compile(); err != nil {
				return fmt.Errorf("label %s: %w", r.Field, err)
			}
		}
	}
	return nil
}

// Block is one sub-table of a section, switched on by a header line.
type Block struct {
	Name     string        `yaml:"name"`
	Triggers []string      `yaml:"triggers"`
	Tables   []*NamedTable `yaml:"tables"`
}

// NamedTable is a table whose rows are stored under Name.
type NamedTable struct {
	Name string `yaml:"name"`
	Table `yaml:",inline"`
}

// Triggered reports whether l is this block's header line.
func (b *Block) Triggered(l lines.Line) bool {
	return l.ContainsAny(b.Triggers)
}

// AttorneyLayout configures the two-column attorney parser.
type AttorneyLayout struct {
	Split        int                 `yaml:"split"`
	Sides        []string            `yaml:"sides"`
	Labels       []AttorneyLabel     `yaml:"labels"`
	Continuation string              `yaml:"continuation"`
	AddressEnd   string              `yaml:"address_end"`
	TypeFromLine bool                `yaml:"type_from_previous_line"`
	Titles       []string            `yaml:"titles"`
	Skip         []string            `yaml:"skip"`
	SideSkip     map[string][]string `yaml:"side_skip"`

	addressEnd *regexp.Regexp
}

// AttorneyLabel maps a label token to an Attorney field.
type AttorneyLabel struct {
	Field string   `yaml:"field"`
	Label string   `yaml:"label"`
	Sides []string `yaml:"sides"`
}

// AddressEnds reports whether s is the last line of an address block.
func (a *AttorneyLayout) AddressEnds(s string) bool {
	return a.addressEnd != nil && a.addressEnd.MatchString(s)
}

// SentencingRules configures the disposition tree parser.
type SentencingRules struct {
	Mode           string          `yaml:"mode"`
	Skip           []string        `yaml:"skip"`
	Disposition    DispositionRule `yaml:"disposition"`
	Charge         ChargeRule      `yaml:"charge"`
	Judge          JudgeRule       `yaml:"judge"`
	Punishment     PunishmentRule  `yaml:"punishment"`
	Terminal       []string        `yaml:"terminal"`
	Linked         string          `yaml:"linked"`
	LinkStart      string          `yaml:"link_start"`
	Min            string          `yaml:"min"`
	Max            string          `yaml:"max"`
	ConditionLabel string          `yaml:"condition_label"`
	Conditions     *Match          `yaml:"conditions"`
	Blocks         []*Block        `yaml:"blocks"`

	linkStart *regexp.Regexp
}

// LinkStarts reports whether text opens a linked sentence entry.
func (s *SentencingRules) LinkStarts(text string) bool {
	return s.linkStart != nil && s.linkStart.MatchString(text)
}

// DispositionRule detects a disposition event line.
type DispositionRule struct {
	Mode       string      `yaml:"mode"`
	DateColumn Column      `yaml:"date_column"`
	Columns    []Column    `yaml:"columns"`
	Keywords   []string    `yaml:"keywords"`
	Exclude    string      `yaml:"exclude"`
	Reject     []string    `yaml:"reject"`
	Present    string      `yaml:"present"`
	Absent     string      `yaml:"absent"`
	Final      []Canonical `yaml:"final"`

	exclude *regexp.Regexp
}

// Excluded reports whether the exclusion pattern matches text.
func (d *DispositionRule) Excluded(text string) bool {
	return d.exclude != nil && d.exclude.MatchString(text)
}

// ChargeRule detects an offense line under a disposition.
type ChargeRule struct {
	Markers []string `yaml:"markers"`
	Pattern string   `yaml:"pattern"`
	Columns []Column `yaml:"columns"`
	Grade   string   `yaml:"grade"`

	re    *regexp.Regexp
	grade *regexp.Regexp
}

// Matches reports whether the line opens an offense.
func (c *ChargeRule) Matches(l lines.Line) bool {
	if l.ContainsAny(c.Markers) {
		return true
	}
	return c.re != nil && c.re.MatchString(strings.TrimSpace(l.Raw()))
}

// IsGrade reports whether token is an offense grade.
func (c *ChargeRule) IsGrade(token string) bool {
	return c.grade != nil && c.grade.MatchString(token)
}

// JudgeRule detects a sentence line. Dated rules also need a date on the
// line.
type JudgeRule struct {
	Pattern       string   `yaml:"pattern"`
	CaseSensitive bool     `yaml:"case_sensitive"`
	Dated         bool     `yaml:"dated"`
	Columns       []Column `yaml:"columns"`

	re *regexp.Regexp
}

// Matches reports whether the text starts with a judge name.
func (j *JudgeRule) Matches(l lines.Line) bool {
	if j.re == nil {
		return false
	}
	if j.Dated && !DatePattern.MatchString(l.Raw()) {
		return false
	}
	if j.CaseSensitive {
		return j.re.MatchString(strings.TrimSpace(l.Raw()))
	}
	return j.re.MatchString(strings.TrimSpace(l.Lower()))
}

// DatePattern matches a docket date.
var DatePattern = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)

// PunishmentRule detects a punishment line.
type PunishmentRule struct {
	Duration string   `yaml:"duration"`
	Keywords string   `yaml:"keywords"`
	Names    []string `yaml:"names"`
	Length   string   `yaml:"length"`
	Type     Column   `yaml:"type"`
	Amount   Column   `yaml:"amount"`
	Start    Column   `yaml:"start"`

	duration *regexp.Regexp
	keywords *regexp.Regexp
	length   *regexp.Regexp
}

// HasDuration reports whether lower-cased text mentions a duration unit.
func (p *PunishmentRule) HasDuration(text string) bool {
	return p.duration != nil && p.duration.MatchString(text)
}

// IsKeyword reports whether the punishment type column is a known program.
func (p *PunishmentRule) IsKeyword(text string) bool {
	return p.keywords != nil && p.keywords.MatchString(text)
}

// LengthOf returns the first length expression in text.
func (p *PunishmentRule) LengthOf(text string) string {
	if p.length == nil {
		return ""
	}
	return p.length.FindString(text)
}

func (s *SentencingRules) compile() error {
	var err error
	if s.linkStart, err = compileOptional(s.LinkStart); err != nil {
		return err
	}
	if s.Disposition.exclude, err = compileOptional(s.Disposition.Exclude); err != nil {
		return err
	}
	if s.Charge.re, err = compileOptional(s.Charge.Pattern); err != nil {
		return err
	}
	if s.Charge.grade, err = compileOptional(s.Charge.Grade); err != nil {
		return err
	}
	if s.Judge.re, err = compileOptional(s.Judge.Pattern); err != nil {
		return err
	}
	p := &s.Punishment
	if p.duration, err = compileOptional(p.Duration); err != nil {
		return err
	}
	if p.keywords, err = compileOptional(p.Keywords); err != nil {
		return err
	}
	if p.length, err = compileOptional(p.Length); err != nil {
		return err
	}
	if err := s.Conditions.compile(); err != nil {
		return err
	}
	return compileBlocks(s.Blocks)
}

func compileBlocks(blocks []*Block) error {
	for _, b := range blocks {
		for _, t := range b.Tables {
			if err := t.compile(); err != nil {
				return fmt.Errorf("block %s table %s: %w", b.Name, t.Name, err)
			}
		}
	}
	return nil
}

// SummaryRules configures the court summary parser.
type SummaryRules struct {
	Mode         string        `yaml:"mode"`
	Statuses     []string      `yaml:"statuses"`
	Counties     []string      `yaml:"counties"`
	Sequence     []Column      `yaml:"sequence"`
	Sentence     []Column      `yaml:"sentence"`
	Dispositions string        `yaml:"dispositions"`
	Periods      string        `yaml:"periods"`
	Charge       []Column      `yaml:"charge"`
	Punishment   []Column      `yaml:"punishment"`
	ArrestLine   []Column      `yaml:"arrest_line"`
	Banner       []string      `yaml:"banner"`
	Boilerplate  []string      `yaml:"boilerplate"`
	Tokens       TokenPatterns `yaml:"tokens"`

	dispositions *regexp.Regexp
	periods      *regexp.Regexp
	boilerplate  []*regexp.Regexp
	banner       []*regexp.Regexp
}

// TokenPatterns classifies tokens of a compact sequence line.
type TokenPatterns struct {
	Sequence string `yaml:"sequence"`
	Grade    string `yaml:"grade"`

	sequence *regexp.Regexp
	grade    *regexp.Regexp
}

// IsSequence reports whether tok is a sequence number.
func (t *TokenPatterns) IsSequence(tok string) bool {
	return t.sequence != nil && t.sequence.MatchString(tok)
}

// IsGrade reports whether tok is an offense grade.
func (t *TokenPatterns) IsGrade(tok string) bool {
	return t.grade != nil && t.grade.MatchString(tok)
}

// IsStatus reports whether the trimmed lower-cased line is a case status
// group heading.
func (s *SummaryRules) IsStatus(text string) bool {
	for _, st := range s.Statuses {
		if text == st {
			return true
		}
	}
	return false
}

// IsCounty reports whether the trimmed lower-cased line names a county.
func (s *SummaryRules) IsCounty(text string) bool {
	for _, c := range s.Counties {
		if text == c {
			return true
		}
	}
	return false
}

// IsDisposition reports whether tok names a disposition.
func (s *SummaryRules) IsDisposition(tok string) bool {
	return s.dispositions != nil && s.dispositions.MatchString(strings.ToLower(tok))
}

// IsPeriod reports whether tok is a program period.
func (s *SummaryRules) IsPeriod(tok string) bool {
	return s.periods != nil && s.periods.MatchString(strings.ToLower(tok))
}

// IsBoilerplate reports whether a lower-cased line is page footer text.
func (s *SummaryRules) IsBoilerplate(text string) bool {
	return anyMatch(s.boilerplate, text)
}

// IsBanner reports whether a lower-cased line is the report banner.
func (s *SummaryRules) IsBanner(text string) bool {
	return anyMatch(s.banner, text)
}

func anyMatch(res []*regexp.Regexp, text string) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (s *SummaryRules) compile() error {
	var err error
	if s.dispositions, err = compileOptional(s.Dispositions); err != nil {
		return err
	}
	if s.periods, err = compileOptional(s.Periods); err != nil {
		return err
	}
	if s.boilerplate, err = compileAll(s.Boilerplate); err != nil {
		return err
	}
	if s.banner, err = compileAll(s.Banner); err != nil {
		return err
	}
	if s.Tokens.sequence, err = compileOptional(s.Tokens.Sequence); err != nil {
		return err
	}
	s.Tokens.grade, err = compileOptional(s.Tokens.Grade)
	return err
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := compileOptional(p)
		if err != nil {
			return nil, err
		}
		if re != nil {
			out = append(out, re)
		}
	}
	return out, nil
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}
