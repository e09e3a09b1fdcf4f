package record

// CourtSummary is the record extracted from a court summary report, which
// lists every case of one person grouped by case status.
type CourtSummary struct {
	Dialect string                    `json:"dialect"`
	Person  Person                    `json:"person_of_interest"`
	Cases   map[string][]*SummaryCase `json:"cases"`
	Errors  []SectionErr              `json:"extraction_errors,omitempty"`
}

// Person is the header block of a court summary.
type Person struct {
	Name         string   `json:"name"`
	DOB          string   `json:"dob"`
	Sex          string   `json:"sex,omitempty"`
	Eyes         string   `json:"eyes,omitempty"`
	Hair         string   `json:"hair,omitempty"`
	Race         string   `json:"race,omitempty"`
	HomeLocation string   `json:"home_location,omitempty"`
	Aliases      []string `json:"aliases"`
}

// SummaryCase is one case entry of a court summary.
type SummaryCase struct {
	County           string             `json:"county,omitempty"`
	DocketNumber     string             `json:"docket_number"`
	Status           string             `json:"status,omitempty"`
	ProcStatus       string             `json:"proc_status,omitempty"`
	DCNo             string             `json:"dc_no,omitempty"`
	OTN              string             `json:"otn,omitempty"`
	OTNLOTN          string             `json:"otn_lotn,omitempty"`
	ArrestDate       string             `json:"arrest_date,omitempty"`
	CaseLocation     string             `json:"case_location,omitempty"`
	DispEventDate    string             `json:"disp_event_date,omitempty"`
	TrialDate        string             `json:"trial_date,omitempty"`
	LegacyNo         string             `json:"legacy_no,omitempty"`
	DispositionDate  string             `json:"disposition_date,omitempty"`
	DispositionJudge string             `json:"disposition_judge,omitempty"`
	DefenseAttorney  string             `json:"defense_attorney,omitempty"`
	LastAction       string             `json:"last_action,omitempty"`
	LastActionDate   string             `json:"last_action_date,omitempty"`
	LastActionRoom   string             `json:"last_action_room,omitempty"`
	NextAction       string             `json:"next_action,omitempty"`
	NextActionDate   string             `json:"next_action_date,omitempty"`
	NextActionRoom   string             `json:"next_action_room,omitempty"`
	BailType         string             `json:"bail_type,omitempty"`
	BailAmount       string             `json:"bail_amount,omitempty"`
	BailStatus       string             `json:"bail_status,omitempty"`
	Statewide        bool               `json:"statewide,omitempty"`
	Sequences        []*SummarySequence `json:"sequences"`
	Punishments      []*SummarySentence `json:"punishments,omitempty"`
}

// SummarySequence is one charge line of a summary case.
type SummarySequence struct {
	Sequence    string             `json:"sequence,omitempty"`
	Statute     string             `json:"statute"`
	Grade       string             `json:"grade"`
	Description string             `json:"description"`
	Disposition string             `json:"disposition"`
	Counts      string             `json:"counts,omitempty"`
	Sentences   []*SummarySentence `json:"sentences"`
}

// SummarySentence is one sentence or punishment line.
type SummarySentence struct {
	Date   string `json:"date,omitempty"`
	Type   string `json:"type"`
	Length string `json:"length,omitempty"`
	Period string `json:"period,omitempty"`
}
