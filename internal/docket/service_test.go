package docket

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

const cpDocket = `COURT OF COMMON PLEAS OF MONTGOMERY COUNTY
Docket Number: CP-46-CR-0001234-2019
CASE INFORMATION
Judge Assigned: Smith, John
OTN: T 123456-1
DEFENDANT INFORMATION
Date Of Birth: 01/01/1980     City/State/Zip: Norristown, PA 19401
CONFINEMENT INFORMATION
RELATED CASES`

func newService(t *testing.T, ex fakeExtractor, opts Options) *Service {
	t.Helper()
	svc, err := NewService(dialect.MustRegistry(), ex, opts)
	require.NoError(t, err)
	return svc
}

func TestNewServiceUnknownDialect(t *testing.T) {
	_, err := NewService(dialect.MustRegistry(), nil, Options{Dialect: "nope"})
	require.Error(t, err)
	_, err = NewService(nil, nil, Options{})
	require.Error(t, err)
}

func TestParseText(t *testing.T) {
	svc := newService(t, fakeExtractor{}, Options{})
	out := svc.ParseText("doe_cp_1.pdf", cpDocket)

	assert.True(t, out.Succeeded)
	assert.Equal(t, "cp", out.Dialect)
	assert.Nil(t, out.FailureReason)
	require.NotNil(t, out.Record)
	assert.Equal(t, "T 123456-1", out.Record.CaseInfo.String("otn"))
	assert.Equal(t, "01/01/1980", out.Record.DefendantInfo.String("dob"))
}

func TestParseTextForcedDialect(t *testing.T) {
	svc := newService(t, fakeExtractor{}, Options{Dialect: "mj"})
	out := svc.ParseText("doe_cp_1.pdf", cpDocket)
	assert.Equal(t, "mj", out.Dialect)
	assert.False(t, out.Succeeded, "mj requires a defendant name")
	require.NotNil(t, out.FailureReason)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("pdf goes through the extractor", func(t *testing.T) {
		svc := newService(t, fakeExtractor{text: cpDocket}, Options{})
		out := svc.ParseFile(context.Background(), filepath.Join(dir, "doe.pdf"))
		assert.True(t, out.Succeeded)
		assert.Equal(t, "doe.pdf", out.FileName)
	})

	t.Run("text files are read directly", func(t *testing.T) {
		path := filepath.Join(dir, "doe.txt")
		require.NoError(t, os.WriteFile(path, []byte(cpDocket), 0o644))
		svc := newService(t, fakeExtractor{err: errors.New("must not be called")}, Options{})
		out := svc.ParseFile(context.Background(), path)
		assert.True(t, out.Succeeded)
	})

	t.Run("extractor failure is fatal", func(t *testing.T) {
		svc := newService(t, fakeExtractor{err: errors.New("corrupt xref")}, Options{})
		out := svc.ParseFile(context.Background(), filepath.Join(dir, "bad.pdf"))
		assert.False(t, out.Succeeded)
		require.NotNil(t, out.FailureReason)
		assert.Contains(t, *out.FailureReason, "FATAL_DOCUMENT")
		assert.Contains(t, *out.FailureReason, "corrupt xref")
		assert.Nil(t, out.Record)
	})
}

func TestTextWithoutExtractor(t *testing.T) {
	svc, err := NewService(dialect.MustRegistry(), nil, Options{})
	require.NoError(t, err)
	_, err = svc.Text(context.Background(), "x.pdf")
	assert.True(t, derrors.IsFatal(err))
}

func TestParseSummary(t *testing.T) {
	text := strings.Join([]string{
		"Court Summary",
		"Doe, Jane            DOB: 01/01/1980      Sex: Female",
		"Norristown, PA       Eyes: Brown",
		"                     Hair: Black",
		"                     Race: White",
		"Closed",
		"Montgomery",
		"CP-46-CR-0001234-2019     Proc Status: Completed     DC No: 1     OTN: T 1",
	}, "\n")
	svc := newService(t, fakeExtractor{}, Options{})
	out := svc.ParseText("doe.pdf", text)
	assert.True(t, out.Succeeded)
	assert.Equal(t, "cp_summary", out.Dialect)
	require.NotNil(t, out.Summary)
	assert.Nil(t, out.Record)
	assert.Equal(t, "Doe, Jane", out.Summary.Person.Name)
	assert.Same(t, out.Summary, out.Document())
}

func TestSectionsText(t *testing.T) {
	svc := newService(t, fakeExtractor{}, Options{})
	rep := svc.SectionsText("doe_cp.pdf", cpDocket)
	assert.Equal(t, "cp", rep.Dialect)
	names := make([]string, len(rep.Sections))
	for i, s := range rep.Sections {
		names[i] = s.Name
	}
	assert.Equal(t, []string{"CASE INFORMATION", "DEFENDANT INFORMATION", "CONFINEMENT INFORMATION", "RELATED CASES"}, names)
	assert.Equal(t, []string{"Judge Assigned: Smith, John", "OTN: T 123456-1"}, rep.Sections[0].Lines)
}
