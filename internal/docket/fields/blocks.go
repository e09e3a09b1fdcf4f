package fields

import (
	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
)

type blockState struct {
	b      *dialect.Block
	names  []string
	tables []*tableState
}

// blockSet routes lines to the sub-tables of the active block.
type blockSet struct {
	blocks []*blockState
	cur    *blockState
}

func newBlockSet(blocks []*dialect.Block) *blockSet {
	s := &blockSet{}
	for _, b := range blocks {
		bs := &blockState{b: b}
		for _, t := range b.Tables {
			bs.names = append(bs.names, t.Name)
			bs.tables = append(bs.tables, newTableState(&t.Table))
		}
		s.blocks = append(s.blocks, bs)
		if s.cur == nil && len(b.Triggers) == 0 {
			s.cur = bs
		}
	}
	return s
}

// feed consumes l. It returns the name of the table that took the line and
// whether the line opened a new row. A trigger line switches blocks and is
// offered only to the label rules of the block it activated.
func (s *blockSet) feed(ctx *Context, l lines.Line) (string, bool) {
	for _, bs := range s.blocks {
		if bs.b.Triggered(l) {
			s.cur = bs
			for i, ts := range bs.tables {
				if ts.active && ts.label(ctx, l) {
					return bs.names[i], false
				}
			}
			return "", false
		}
	}
	if s.cur == nil {
		return "", false
	}
	for i, ts := range s.cur.tables {
		n := len(ts.rows)
		if ts.feed(ctx, l) {
			return s.cur.names[i], len(ts.rows) > n
		}
	}
	return "", false
}

func (s *blockSet) table(name string) *tableState {
	for _, bs := range s.blocks {
		for i, n := range bs.names {
			if n == name {
				return bs.tables[i]
			}
		}
	}
	return nil
}

func (s *blockSet) store(out record.Fields) {
	for _, bs := range s.blocks {
		for i, n := range bs.names {
			out[n] = bs.tables[i].rows
		}
	}
}

// Fields runs the extractor's label rules, then its blocks over the lines
// the labels left.
func Fields(ctx *Context, e *dialect.Extractor, in []lines.Line) (record.Fields, error) {
	kept := ctx.filter(in, e.Skip)
	out, rest := record.Fields{}, kept
	if len(e.Labels) > 0 {
		var err error
		if out, rest, err = Labels(ctx, e.Labels, kept); err != nil {
			return out, err
		}
	}
	if len(e.Blocks) > 0 {
		set := newBlockSet(e.Blocks)
		for _, l := range rest {
			set.feed(ctx, l)
		}
		set.store(out)
	}
	return out, ctx.Err()
}
