package fields

import (
	"strings"
	"unicode/utf8"

	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

// labelValue returns the original-case text after the rule's label, cut at
// the earliest terminator.
func labelValue(l lines.Line, r *dialect.LabelRule) string {
	i := l.Index(r.Label)
	if i < 0 {
		return ""
	}
	rest := l.Sub(i+utf8.RuneCountInString(r.Label), 0)
	end := -1
	for _, u := range r.Until {
		if j := rest.Index(u); j >= 0 && (end < 0 || j < end) {
			end = j
		}
	}
	switch {
	case end == 0:
		return ""
	case end > 0:
		return rest.Field(0, end)
	}
	return strings.TrimSpace(rest.Raw())
}

func stopsContinuation(rules []*dialect.LabelRule, self *dialect.LabelRule, l lines.Line) bool {
	if l.ContainsAny(self.Continue) {
		return true
	}
	for _, r := range rules {
		if r.Matches(l) {
			return true
		}
	}
	return false
}

func continuationPiece(r *dialect.LabelRule, l lines.Line) string {
	if s := r.ContinueSpan; s != nil {
		return l.Field(s.From, s.To)
	}
	return strings.TrimSpace(l.Raw())
}

// Labels applies label rules to in. The first occurrence of each label
// wins. Lines consumed by a label, its continuation or its next-line values
// are removed from the returned rest.
func Labels(ctx *Context, rules []*dialect.LabelRule, in []lines.Line) (record.Fields, []lines.Line, error) {
	out := record.Fields{}
	nb := lines.NonBlank(in)
	consumed := make([]bool, len(nb))
	done := make([]bool, len(rules))

	for i := 0; i < len(nb); i++ {
		if consumed[i] {
			continue
		}
		l := nb[i]
		hit := false
		for k, r := range rules {
			if done[k] || !r.Matches(l) {
				continue
			}
			done[k], hit = true, true
			if _, taken := out[r.Field]; taken {
				continue
			}

			switch {
			case r.Table != nil:
				st := newTableState(r.Table)
				for j := i + 1; j < len(nb) && !stopsContinuation(rules, r, nb[j]); j++ {
					consumed[j] = true
					st.feed(ctx, nb[j])
				}
				out[r.Field] = st.rows

			case len(r.Next) > 0:
				for n := range r.Next {
					nv := &r.Next[n]
					j := i + 1 + n
					if j >= len(nb) || consumed[j] || nb[j].ContainsAny(nv.Unless) {
						continue
					}
					out[nv.Field] = nv.SplitValue(strings.TrimSpace(nb[j].Raw()))
					consumed[j] = true
				}

			default:
				pieces := []string{labelValue(l, r)}
				if len(r.Continue) > 0 {
					for j := i + 1; j < len(nb) && !stopsContinuation(rules, r, nb[j]); j++ {
						consumed[j] = true
						pieces = append(pieces, continuationPiece(r, nb[j]))
					}
				}
				out[r.Field] = joinPieces(r, pieces)
			}
		}
		if hit {
			consumed[i] = true
		}
	}

	for k, r := range rules {
		if r.Required && !done[k] {
			if _, ok := out[r.Field]; !ok {
				return out, nil, derrors.Field(ctx.Section, "required label %q not found", r.Label)
			}
		}
	}

	rest := make([]lines.Line, 0, len(nb))
	for i, l := range nb {
		if !consumed[i] {
			rest = append(rest, l)
		}
	}
	return out, rest, nil
}

func joinPieces(r *dialect.LabelRule, pieces []string) any {
	if _, isList := r.SplitValue(""); isList {
		list := make([]string, 0)
		for _, p := range pieces {
			v, _ := r.SplitValue(p)
			list = append(list, v.([]string)...)
		}
		return list
	}
	v := ""
	for _, p := range pieces {
		v = dialect.Join(v, p, " ")
	}
	return v
}
