package lines

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	doc := Normalize("CHARGES\r\n  1   §  Theft  \n\n")
	require.Len(t, doc.Lines, 4)
	assert.Equal(t, "CHARGES", doc.Lines[0].Raw())
	assert.Equal(t, "  1   §  Theft  ", doc.Lines[1].Raw(), "inner and outer whitespace kept")
	assert.Equal(t, 2, doc.Lines[1].Number)
	assert.True(t, doc.Lines[2].IsBlank())

	assert.Empty(t, Normalize("").Lines)
}

func TestSliceCountsRunes(t *testing.T) {
	l := New("18 § 3921   Theft By Unlaw")
	assert.Equal(t, "18 § 3921", l.Field(0, 9))
	assert.Equal(t, "Theft By Unlaw", l.Field(9, 0))
	assert.Equal(t, "", l.Field(40, 50), "out of range is empty")
	assert.Equal(t, "theft by unlaw", l.LowerField(9, 0))
}

func TestTrimmedOffsets(t *testing.T) {
	l := New("    Judge Assigned:  Smith, John   ")
	tr := l.Trimmed()
	assert.Equal(t, "Judge Assigned:  Smith, John", tr.Raw())
	assert.Equal(t, "judge", tr.LowerField(0, 5))
}

func TestLabels(t *testing.T) {
	l := New("Date Of Birth: 01/02/1980   City/State/Zip: Norristown, PA 19401")
	assert.True(t, l.Contains("date of birth:"))
	assert.True(t, l.ContainsAny([]string{"nope", "city/state/zip:"}))
	assert.False(t, l.ContainsAny([]string{""}))

	v, ok := l.After("date of birth:")
	require.True(t, ok)
	assert.Equal(t, " 01/02/1980   City/State/Zip: Norristown, PA 19401", v)

	_, ok = l.After("race:")
	assert.False(t, ok)
	assert.Equal(t, 0, l.Index("date"))
}

func TestNonBlankAndText(t *testing.T) {
	ls := FromStrings([]string{"a", "  ", "b"})
	nb := NonBlank(ls)
	require.Len(t, nb, 2)
	assert.Equal(t, 3, nb[1].Number)
	assert.Equal(t, "a\n  \nb", Text(ls))
}
