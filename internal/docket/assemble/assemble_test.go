package assemble

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
	"github.com/a3tai/docket-extract/internal/docket/sections"
)

func assemble(t *testing.T, name string, strict bool, text ...string) *Result {
	t.Helper()
	d, ok := dialect.MustRegistry().Get(name)
	require.True(t, ok)
	seg := sections.New(&d.Segmentation).Split(lines.Normalize(strings.Join(text, "\n")))
	return New(d, derrors.Options{StrictMode: strict}).Assemble(seg, "test.pdf")
}

var participants = []string{
	"CASE PARTICIPANTS",
	"Participant Type                             Name",
	"Defendant                                    Doe, Jane",
}

func TestAssemblePartialFailure(t *testing.T) {
	text := append([]string{
		"Docket Number: CP-46-CR-0001234-2019",
		"CASE INFORMATION",
		"Judge Assigned: Smith, John",
		"DEFENDANT INFORMATION",
		"Date Of Birth: 01/01/1980     City/State/Zip: Norristown, PA 19401",
	}, participants...)
	res := assemble(t, "cp", false, text...)

	assert.True(t, res.Succeeded)
	assert.Nil(t, res.Fatal)
	rec := res.Record
	assert.Equal(t, "cp", rec.Dialect)
	assert.Nil(t, rec.CaseInfo, "failed section stays null")
	assert.Equal(t, "01/01/1980", rec.DefendantInfo.String("dob"))
	assert.Equal(t, "Norristown, PA 19401", rec.DefendantInfo.String("address"))
	assert.Equal(t, []record.Row{{"participant_type": "Defendant", "name": "Doe, Jane"}}, rec.CaseParticipants)
	assert.Nil(t, rec.Charges, "absent section stays null")

	require.Len(t, rec.ExtractionErrors, 1)
	assert.Equal(t, "CASE INFORMATION", rec.ExtractionErrors[0].Section)
	assert.Equal(t, derrors.ErrorTypeFieldExtraction, rec.ExtractionErrors[0].Type)
	assert.Len(t, res.Errors.BySection("CASE INFORMATION"), 1)
}

func TestAssembleIdentityFailure(t *testing.T) {
	res := assemble(t, "cp", false,
		"DEFENDANT INFORMATION",
		"City/State/Zip: Norristown, PA 19401",
	)
	assert.False(t, res.Succeeded, "identity section extracted with an error")
	assert.Nil(t, res.Fatal)
	require.Len(t, res.Record.ExtractionErrors, 1)
	assert.Equal(t, "DEFENDANT INFORMATION", res.Record.ExtractionErrors[0].Section)
}

func TestAssembleMissingIdentity(t *testing.T) {
	res := assemble(t, "cp", false, participants...)
	assert.False(t, res.Succeeded)
	require.NotNil(t, res.Fatal)
	assert.Equal(t, derrors.ErrorTypeFatalDocument, res.Fatal.Type)
	assert.True(t, res.Errors.HasFatalErrors())
	assert.Len(t, res.Record.CaseParticipants, 1, "siblings still extracted")
}

func TestAssembleNoHeaders(t *testing.T) {
	res := assemble(t, "cp", false, "nothing that looks like a docket")
	assert.False(t, res.Succeeded)
	require.NotNil(t, res.Fatal)
	_, warnings := res.Errors.Count()
	assert.Equal(t, 1, warnings, "structural note from the segmenter")
}

func TestAssembleStrictAnomaly(t *testing.T) {
	text := []string{
		"DEFENDANT INFORMATION",
		"Date Of Birth: 01/01/1980",
		"CALENDAR EVENTS",
		"Event Type                           Start Date",
		"stray note before any event",
	}
	lenient := assemble(t, "cp", false, text...)
	assert.True(t, lenient.Succeeded)
	assert.Empty(t, lenient.Record.ExtractionErrors)
	assert.NotNil(t, lenient.Record.CalendarEvents)
	_, warnings := lenient.Errors.Count()
	assert.Equal(t, 1, warnings)

	strict := assemble(t, "cp", true, text...)
	assert.True(t, strict.Succeeded, "identity section is unaffected")
	require.Len(t, strict.Record.ExtractionErrors, 1)
	assert.Equal(t, "CALENDAR EVENTS", strict.Record.ExtractionErrors[0].Section)
	assert.Nil(t, strict.Record.CalendarEvents)
}

func TestAssembleIdempotent(t *testing.T) {
	text := append([]string{
		"CASE INFORMATION",
		"Judge Assigned: Smith, John",
		"DEFENDANT INFORMATION",
		"Date Of Birth: 01/01/1980",
	}, participants...)
	first, err := json.Marshal(assemble(t, "cp", false, text...).Record)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(assemble(t, "cp", false, text...).Record)
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(again))
	}
}

func TestAssignMismatch(t *testing.T) {
	rec := &record.CaseRecord{}
	require.Error(t, assign(rec, "charges_typo", record.Fields{}))
	require.Error(t, assign(rec, "calendar_events", 42))
	require.NoError(t, assign(rec, "calendar_events", []record.Row{}))
	assert.NotNil(t, rec.CalendarEvents)
}
