package summary

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/fields"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

// at lays text out at rune columns: at(0, "a", 10, "b").
func at(parts ...any) string {
	var b []rune
	for i := 0; i+1 < len(parts); i += 2 {
		col := parts[i].(int)
		for len(b) < col {
			b = append(b, ' ')
		}
		b = append(b, []rune(parts[i+1].(string))...)
	}
	return string(b)
}

func parse(t *testing.T, name string, strict bool, text ...string) (*record.CourtSummary, *fields.Context, error) {
	t.Helper()
	d, ok := dialect.MustRegistry().Get(name)
	require.True(t, ok, name)
	ctx := fields.NewContext(Section, derrors.Options{StrictMode: strict}, nil)
	out, err := Parse(ctx, d, lines.Normalize(strings.Join(text, "\n")))
	return out, ctx, err
}

var cpPerson = []string{
	"Court Summary",
	"Doe, Jane            DOB: 01/01/1980      Sex: Female",
	"Norristown, PA       Eyes: Brown",
	"                     Hair: Black",
	"Doe, J.              Race: White",
	"Jane Smith",
}

func TestCommonPleasCompact(t *testing.T) {
	text := append(append([]string{}, cpPerson...),
		"Closed",
		"Montgomery",
		"CP-46-CR-0001234-2019     Proc Status: Completed     DC No: 2019-1     OTN: T 123456-1",
		"Arrest Dt: 01/01/2019     Disp Date: 06/01/2019     Disp Judge: Smith, John",
		"Def Atty: Roe, Richard",
		"1     18 § 3921 §§ A     M1     Theft By Unlaw Taking     Guilty Plea",
		"06/01/2019     Probation     Max: 2 Years     Other",
		"Inactive",
		"Montgomery",
		"CP-46-CR-0000999-2020     Proc Status: Awaiting Trial     DC No:      OTN: T 999999-9",
		"Arrest Dt: 02/02/2020     Trial Dt: 03/03/2021     Legacy No:",
		"Last Action: Status     Last Action Date: 04/04/2021     Last Action Room: 4A",
		"Next Action: Trial     Next Action Date: 05/05/2021     Next Action Room: 4B",
		"Inactive (Continued)",
		"CP-46-CR-0000999-2020     Proc Status: Awaiting Trial     DC No:      OTN: T 999999-9",
		"2     18 § 2701 §§ A     M2     Simple Assault",
	)
	cs, ctx, err := parse(t, "cp_summary", false, text...)
	require.NoError(t, err)
	assert.Empty(t, ctx.Anomalies())

	assert.Equal(t, record.Person{
		Name:         "Doe, Jane",
		DOB:          "01/01/1980",
		Sex:          "Female",
		Eyes:         "Brown",
		Hair:         "Black",
		Race:         "White",
		HomeLocation: "Norristown, PA",
		Aliases:      []string{"Doe, J.", "Jane Smith"},
	}, cs.Person)

	require.Len(t, cs.Cases["closed"], 1)
	closed := cs.Cases["closed"][0]
	assert.Equal(t, "montgomery", closed.County)
	assert.Equal(t, "CP-46-CR-0001234-2019", closed.DocketNumber)
	assert.Equal(t, "Completed", closed.ProcStatus)
	assert.Equal(t, "2019-1", closed.DCNo)
	assert.Equal(t, "T 123456-1", closed.OTN)
	assert.Equal(t, "01/01/2019", closed.ArrestDate)
	assert.Equal(t, "06/01/2019", closed.DispositionDate)
	assert.Equal(t, "Smith, John", closed.DispositionJudge)
	assert.Equal(t, "Roe, Richard", closed.DefenseAttorney)
	require.Len(t, closed.Sequences, 1)
	assert.Equal(t, &record.SummarySequence{
		Sequence:    "1",
		Statute:     "18 § 3921 §§ A",
		Grade:       "M1",
		Description: "Theft By Unlaw Taking",
		Disposition: "Guilty Plea",
		Sentences: []*record.SummarySentence{
			{Date: "06/01/2019", Type: "Probation", Length: "Max: 2 Years", Period: "Other"},
		},
	}, closed.Sequences[0])

	require.Len(t, cs.Cases["inactive"], 1, "continued docket line is not a new case")
	inactive := cs.Cases["inactive"][0]
	assert.Equal(t, "", inactive.DCNo)
	assert.Equal(t, "03/03/2021", inactive.TrialDate)
	assert.Equal(t, "", inactive.LegacyNo)
	assert.Equal(t, "Status", inactive.LastAction)
	assert.Equal(t, "04/04/2021", inactive.LastActionDate)
	assert.Equal(t, "4B", inactive.NextActionRoom)
	require.Len(t, inactive.Sequences, 1)
	assert.Equal(t, "Simple Assault", inactive.Sequences[0].Description)
	assert.Empty(t, inactive.Sequences[0].Disposition)
}

func TestCommonPleasTokenAnomaly(t *testing.T) {
	text := append(append([]string{}, cpPerson...),
		"Active",
		"CP-46-CR-0000001-2021     Proc Status: Awaiting Trial     DC No: 1     OTN: T 1",
		"3     18 § 1     M1     F3     Something",
	)
	cs, ctx, err := parse(t, "cp_summary", false, text...)
	require.NoError(t, err)
	require.Len(t, ctx.Anomalies(), 1)
	assert.Contains(t, ctx.Anomalies()[0].Message, "grade")
	assert.Empty(t, cs.Errors)
	assert.Equal(t, "M1", cs.Cases["active"][0].Sequences[0].Grade, "first token of a kind wins")

	cs, _, err = parse(t, "cp_summary", true, text...)
	require.NoError(t, err)
	require.Len(t, cs.Errors, 1)
	assert.Equal(t, derrors.ErrorTypeFieldExtraction, cs.Errors[0].Type)
}

func TestCommonPleasFullLayout(t *testing.T) {
	text := append(append([]string{}, cpPerson...),
		"Adjudicated",
		"Bucks",
		"CP-09-CR-0000042-2017     Proc Status: Closed     DC No: 7     OTN: T 42",
		at(0, "1", 11, "18 § 3921 §§ A", 48, "M1", 54, "Theft By Unlaw Taking", 95, "Guilty"),
		at(0, "06/01/2017", 17, "Confinement", 43, "Other", 74, "Min of 1 Year"),
	)
	cs, _, err := parse(t, "cp_summary_full", false, text...)
	require.NoError(t, err)
	require.Len(t, cs.Cases["adjudicated"], 1)
	c := cs.Cases["adjudicated"][0]
	assert.Equal(t, "bucks", c.County)
	require.Len(t, c.Sequences, 1)
	seq := c.Sequences[0]
	assert.Equal(t, "1", seq.Sequence)
	assert.Equal(t, "18 § 3921 §§ A", seq.Statute)
	assert.Equal(t, "M1", seq.Grade)
	assert.Equal(t, "Theft By Unlaw Taking", seq.Description)
	assert.Equal(t, "Guilty", seq.Disposition)
	assert.Equal(t, []*record.SummarySentence{
		{Date: "06/01/2017", Type: "Confinement", Period: "Other", Length: "Min of 1 Year"},
	}, seq.Sentences)
}

func TestCommonPleasStraySentence(t *testing.T) {
	text := append(append([]string{}, cpPerson...),
		"Closed",
		"06/01/2019     Probation     Max: 2 Years     Other",
	)
	_, ctx, err := parse(t, "cp_summary", false, text...)
	require.NoError(t, err)
	require.Len(t, ctx.Anomalies(), 1)
	assert.Contains(t, ctx.Anomalies()[0].Message, "outside any sequence")
}

func TestMagisterial(t *testing.T) {
	cs, ctx, err := parse(t, "mj_summary", false,
		"Magisterial District Court",
		"Public Court Summary",
		"Doe, Jane        DOB: 01/01/1980     Sex: F",
		"Lansdale, PA     Eyes: Blue",
		"                 Hair: Brown",
		"                 Race: White",
		"Aliases: Jane Q. Doe, J. Doe",
		"Court: MDJ-38-1-01",
		"Closed",
		"MJ-38101-CR-0000123-2018     Processing Status: Completed     OTN/LOTN: T 123456-1",
		at(0, "Arrest Date: 01/01/2018", 42, "Lansdale Borough", 88, "Disp. Event Date: 02/02/2018"),
		"Last Action: Preliminary Hearing     Last Action Date: 02/02/2018",
		"Bail Type: Unsecured     Bail Amount: $1,000.00     Bail Status: Set",
		at(0, "18 § 3921 §§ A", 31, "M1", 42, "Theft", 88, "Held for Court", 130, "1"),
		"Program Type                    Sentence Date          Sentence Length",
		at(0, "Probation", 55, "02/02/2018", 88, "12 Months", 137, "Other"),
		at(88, "consecutive"),
		"Statewide",
		"MJ-38101-CR-0000200-2019     OTN: T 200000-2",
	)
	require.NoError(t, err)
	assert.Empty(t, ctx.Anomalies())

	assert.Equal(t, "Doe, Jane", cs.Person.Name)
	assert.Equal(t, "F", cs.Person.Sex)
	assert.Equal(t, "Lansdale, PA", cs.Person.HomeLocation)
	assert.Equal(t, []string{"Jane Q. Doe", "J. Doe"}, cs.Person.Aliases)

	require.Len(t, cs.Cases["closed"], 2)
	first := cs.Cases["closed"][0]
	assert.Equal(t, "MDJ-38-1-01", first.County)
	assert.Equal(t, "MJ-38101-CR-0000123-2018", first.DocketNumber)
	assert.Equal(t, "Completed", first.ProcStatus)
	assert.Equal(t, "T 123456-1", first.OTNLOTN)
	assert.Equal(t, "01/01/2018", first.ArrestDate)
	assert.Equal(t, "Lansdale Borough", first.CaseLocation)
	assert.Equal(t, "02/02/2018", first.DispEventDate)
	assert.Equal(t, "Preliminary Hearing", first.LastAction)
	assert.Equal(t, "$1,000.00", first.BailAmount)
	assert.Equal(t, "Set", first.BailStatus)
	assert.False(t, first.Statewide)
	assert.Equal(t, []*record.SummarySequence{{
		Statute: "18 § 3921 §§ A", Grade: "M1", Description: "Theft",
		Disposition: "Held for Court", Counts: "1", Sentences: []*record.SummarySentence{},
	}}, first.Sequences)
	assert.Equal(t, []*record.SummarySentence{
		{Type: "Probation", Date: "02/02/2018", Length: "12 Months consecutive", Period: "Other"},
	}, first.Punishments)

	second := cs.Cases["closed"][1]
	assert.True(t, second.Statewide)
	assert.Equal(t, "MJ-38101-CR-0000200-2019", second.DocketNumber)
	assert.Equal(t, "T 200000-2", second.OTN)
}

func TestMagisterialOrganization(t *testing.T) {
	cs, _, err := parse(t, "mj_summary", false,
		"Magisterial District Court",
		"Public Court Summary",
		"Acme Towing LLC",
		"Lansdale, PA",
		"Court: MDJ-38-1-01",
	)
	require.NoError(t, err)
	assert.Equal(t, "Acme Towing LLC", cs.Person.Name)
	assert.Equal(t, "Lansdale, PA", cs.Person.HomeLocation)
	assert.Empty(t, cs.Cases)
}

func TestNoPerson(t *testing.T) {
	for _, name := range []string{"cp_summary", "mj_summary"} {
		t.Run(name, func(t *testing.T) {
			_, _, err := parse(t, name, false, "Magisterial District Court", "Public Court Summary")
			require.Error(t, err)
			assert.True(t, derrors.IsFatal(err))
		})
	}
}

func TestLabeled(t *testing.T) {
	l := lines.New("Last Action: Status   Last Action Date: 04/04/2021   Last Action Room:")
	v := labeled(l, "last action:", "last action date:", "last action room:")
	assert.Equal(t, map[string]string{
		"last action:":      "Status",
		"last action date:": "04/04/2021",
		"last action room:": "",
	}, v)
	assert.Empty(t, labeled(l, "otn:"))
}
