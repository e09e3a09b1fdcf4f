// Package record defines the structured output of docket extraction.
//
// Every top-level section of a CaseRecord is optional. A nil value marshals
// to JSON null and means the section was absent from the document; an
// extractor that ran on a present section always returns a non-nil value.
package record

import (
	"bytes"
	"encoding/json"

	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
)

// Row is one fixed-width table row keyed by column name.
type Row map[string]string

// Fields holds label-captured values. Values are string, []string or []Row.
type Fields map[string]any

// String returns the string value of key, or "".
func (f Fields) String(key string) string {
	if v, ok := f[key].(string); ok {
		return v
	}
	return ""
}

// Strings returns the list value of key.
func (f Fields) Strings(key string) []string {
	if v, ok := f[key].([]string); ok {
		return v
	}
	return nil
}

// Rows returns the table value of key.
func (f Fields) Rows(key string) []Row {
	if v, ok := f[key].([]Row); ok {
		return v
	}
	return nil
}

// Charge is one row of a CHARGES section.
type Charge struct {
	SequenceNo     string `json:"sequence_no"`
	OrigSequenceNo string `json:"orig_sequence_no,omitempty"`
	Grade          string `json:"grade"`
	Statute        string `json:"statute"`
	Description    string `json:"description"`
	OffenseDate    string `json:"offense_date"`
	TrackingNumber string `json:"tracking_number,omitempty"`
	Disposition    string `json:"disposition,omitempty"`
}

// Sentencing is the disposition tree of a case plus the blocks that hang
// off it without a parent node.
type Sentencing struct {
	Dispositions    []*Disposition `json:"dispositions"`
	LinkedSentences []string       `json:"linked_sentences,omitempty"`
	Penalties       []Row          `json:"penalties,omitempty"`
	ConditionText   string         `json:"condition_text,omitempty"`
}

// Disposition is a disposition event and the offenses it resolved.
type Disposition struct {
	CaseEvent        string     `json:"case_event"`
	DispositionDate  string     `json:"disposition_date"`
	FinalDisposition string     `json:"final_disposition"`
	Disposition      string     `json:"disposition"`
	DefendantPresent *bool      `json:"defendant_present"`
	Synthesized      bool       `json:"synthesized,omitempty"`
	Offenses         []*Offense `json:"offenses"`
}

// Offense is one charge as it appears under a disposition.
type Offense struct {
	Sequence    string      `json:"sequence"`
	Description string      `json:"description"`
	Disposition string      `json:"disposition"`
	Grade       string      `json:"grade"`
	Section     string      `json:"section"`
	Synthesized bool        `json:"synthesized,omitempty"`
	Sentences   []*Sentence `json:"sentences"`
}

// Sentence is a sentencing order for one offense.
type Sentence struct {
	Judge               string        `json:"judge"`
	Date                string        `json:"date"`
	CreditForTimeServed string        `json:"credit_for_time_served"`
	Notes               string        `json:"notes,omitempty"`
	Synthesized         bool          `json:"synthesized,omitempty"`
	Punishments         []*Punishment `json:"punishments"`
}

// Punishment is one penalty or diversion program of a sentence.
type Punishment struct {
	Type       string `json:"type"`
	StartDate  string `json:"start_date"`
	Length     string `json:"length,omitempty"`
	Min        string `json:"min,omitempty"`
	Max        string `json:"max,omitempty"`
	Conditions string `json:"conditions,omitempty"`
}

// Bail holds the bail/surety/depositor blocks of a BAIL section.
type Bail struct {
	NebbiaStatus string        `json:"nebbia_status,omitempty"`
	Actions      []*BailAction `json:"actions"`
	Sureties     []*Surety     `json:"sureties"`
	Depositors   []*Depositor  `json:"depositors"`
}

// BailAction is one row of the bail action table.
type BailAction struct {
	BailAction       string `json:"bail_action"`
	Date             string `json:"date"`
	BailType         string `json:"bail_type"`
	OriginatingCourt string `json:"originating_court,omitempty"`
	Percentage       string `json:"percentage,omitempty"`
	Amount           string `json:"amount"`
	Reason           string `json:"reason,omitempty"`
}

// Surety is one row of the surety table.
type Surety struct {
	Type           string `json:"type"`
	Name           string `json:"name"`
	PostingStatus  string `json:"posting_status"`
	PostingDate    string `json:"posting_date"`
	SecurityType   string `json:"security_type"`
	SecurityAmount string `json:"security_amount"`
}

// Depositor is one row of the bail depositor table.
type Depositor struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Attorney is one attorney block of an ATTORNEY INFORMATION section.
type Attorney struct {
	Side           string `json:"side"`
	Type           string `json:"type,omitempty"`
	Name           string `json:"name"`
	SupremeCourtNo string `json:"supreme_court_no,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	RepStatus      string `json:"rep_status,omitempty"`
	Representing   string `json:"representing,omitempty"`
	CounselStatus  string `json:"counsel_status,omitempty"`
}

// CaseRecord aggregates every section of one docket sheet.
type CaseRecord struct {
	Dialect           string       `json:"dialect"`
	DefendantInfo     Fields       `json:"defendant_info"`
	CaseInfo          Fields       `json:"case_info"`
	StatusInfo        Fields       `json:"status_info"`
	CalendarEvents    []Row        `json:"calendar_events"`
	CaseParticipants  []Row        `json:"case_participants"`
	Charges           []Charge     `json:"charges"`
	Sentencing        *Sentencing  `json:"sentencing"`
	AttorneyInfo      []*Attorney  `json:"attorney_info"`
	DocketEntries     []Row        `json:"docket_entries"`
	Bail              *Bail        `json:"bail"`
	Confinement       []Row        `json:"confinement"`
	CaseFinancialInfo Fields       `json:"case_financial_info"`
	PaymentPlan       Fields       `json:"payment_plan_summary"`
	RelatedCases      []Row        `json:"related_cases"`
	ExtractionErrors  []SectionErr `json:"extraction_errors,omitempty"`
}

// SectionErr is a section-scoped extraction failure kept in the record.
type SectionErr struct {
	Section string            `json:"section"`
	Type    derrors.ErrorType `json:"type"`
	Message string            `json:"message"`
}

// Outcome is the per-document result persisted by batch runs.
type Outcome struct {
	FileName      string        `json:"file_name"`
	Dialect       string        `json:"dialect"`
	Succeeded     bool          `json:"succeeded"`
	Record        *CaseRecord   `json:"record"`
	Summary       *CourtSummary `json:"summary,omitempty"`
	FailureReason *string       `json:"failure_reason"`
	Warnings      int           `json:"warnings,omitempty"`
}

// Failed builds an unsuccessful outcome.
func Failed(fileName string, err error) Outcome {
	reason := err.Error()
	return Outcome{FileName: fileName, FailureReason: &reason}
}

// Document returns the value written to the per-document JSON file.
func (o Outcome) Document() any {
	if o.Summary != nil {
		return o.Summary
	}
	return o.Record
}

// MarshalIndent renders v with four-space indentation and no HTML escaping.
func MarshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
