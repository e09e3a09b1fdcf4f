package fields

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/lines"
)

// at lays text out at rune columns: at(0, "a", 10, "b").
func at(parts ...any) string {
	var b []rune
	for i := 0; i+1 < len(parts); i += 2 {
		col := parts[i].(int)
		for len(b) < col {
			b = append(b, ' ')
		}
		if len(b) > col {
			b = append(b, ' ')
		}
		b = append(b, []rune(parts[i+1].(string))...)
	}
	return string(b)
}

func setup(t *testing.T, name, key string, strict bool) (*Context, *dialect.Extractor) {
	t.Helper()
	d, ok := dialect.MustRegistry().Get(name)
	require.True(t, ok, name)
	e, ok := d.Extractors[key]
	require.True(t, ok, key)
	return NewContext(e.Section, derrors.Options{StrictMode: strict}, d.Boilerplate), e
}

func body(ss ...string) []lines.Line {
	return lines.FromStrings(ss)
}
