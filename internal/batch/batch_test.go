package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/docket-extract/internal/docket/record"
)

type fakeParser struct {
	mu    sync.Mutex
	calls map[string]int
}

func (p *fakeParser) ParseFile(_ context.Context, path string) record.Outcome {
	name := filepath.Base(path)
	p.mu.Lock()
	if p.calls == nil {
		p.calls = map[string]int{}
	}
	p.calls[name]++
	p.mu.Unlock()

	switch {
	case strings.HasPrefix(name, "bad"):
		return record.Failed(name, errors.New("identity section DEFENDANT INFORMATION not found"))
	case strings.HasPrefix(name, "panic"):
		panic("column index out of range")
	}
	return record.Outcome{
		FileName:  name,
		Dialect:   "cp",
		Succeeded: true,
		Record:    &record.CaseRecord{Dialect: "cp", CaseInfo: record.Fields{"otn": "T 123456-7"}},
	}
}

func (p *fakeParser) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}

type fakeSaver struct {
	mu    sync.Mutex
	runs  map[string]int
	files []string
}

func (s *fakeSaver) Save(_ context.Context, runID string, o record.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		s.runs = map[string]int{}
	}
	s.runs[runID]++
	s.files = append(s.files, o.FileName)
	return nil
}

func inputs(names ...string) []Input {
	out := make([]Input, 0, len(names))
	for _, n := range names {
		out = append(out, Input{Path: filepath.Join("/docs", n), FileName: n})
	}
	return out
}

func TestLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.csv")

	l, err := OpenLedger(path)
	require.NoError(t, err)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	require.NoError(t, l.Record("a.pdf", false))
	require.NoError(t, l.Record("a.pdf", true))
	require.NoError(t, l.Record("b.pdf", false))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file_name,successfully_parsed,time_stamp\n"+
		"a.pdf,false,2024-03-01 09:30:00\n"+
		"a.pdf,true,2024-03-01 09:30:00\n"+
		"b.pdf,false,2024-03-01 09:30:00\n", string(data))

	reopened, err := OpenLedger(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.True(t, reopened.Succeeded("a.pdf"))
	assert.False(t, reopened.Succeeded("b.pdf"))
	assert.False(t, reopened.Succeeded("c.pdf"))

	require.NoError(t, reopened.Record("c.pdf", true))
	entries := reopened.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, LedgerEntry{FileName: "a.pdf", Attempts: 2, Succeeded: true, LastAttempt: "2024-03-01 09:30:00"}, entries[0])
	assert.Equal(t, 1, entries[1].Attempts)

	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "file_name,"), "header is written once")
}

func TestReadLedger(t *testing.T) {
	entries, err := ReadLedger(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	path := filepath.Join(t.TempDir(), "progress.csv")
	require.NoError(t, os.WriteFile(path, []byte("x.pdf,True,2024-01-01 00:00:00\n"), 0o644))
	entries, err = ReadLedger(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Succeeded)
}

func TestRunner(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "json")
	ledger, err := OpenLedger(filepath.Join(dir, "progress.csv"))
	require.NoError(t, err)
	defer ledger.Close()

	parser := &fakeParser{}
	saver := &fakeSaver{}
	r, err := NewRunner(parser, ledger, Options{OutputDir: out, Workers: 3, Store: saver})
	require.NoError(t, err)

	rep, err := r.Run(context.Background(), inputs("good1.pdf", "bad.pdf", "panic.pdf", "good2.txt"))
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 2, rep.Failed)
	assert.Len(t, rep.Failures, 2)
	assert.NotEmpty(t, rep.RunID)

	t.Run("json only for successes", func(t *testing.T) {
		files, err := os.ReadDir(out)
		require.NoError(t, err)
		var names []string
		for _, f := range files {
			names = append(names, f.Name())
		}
		assert.ElementsMatch(t, []string{"good1.json", "good2.json"}, names)

		data, err := os.ReadFile(filepath.Join(out, "good1.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "\n    \"case_info\": {\n        \"otn\": \"T 123456-7\"")
	})

	t.Run("panic isolated", func(t *testing.T) {
		var reason string
		for _, f := range rep.Failures {
			if f.FileName == "panic.pdf" {
				reason = f.Reason
			}
		}
		assert.Contains(t, reason, "column index out of range")
	})

	t.Run("store receives every outcome", func(t *testing.T) {
		assert.Equal(t, 4, saver.runs[rep.RunID])
	})

	t.Run("resume skips successes", func(t *testing.T) {
		again, err := r.Run(context.Background(), inputs("good1.pdf", "bad.pdf", "panic.pdf", "good2.txt"))
		require.NoError(t, err)
		assert.Equal(t, 2, again.Skipped)
		assert.Equal(t, 2, again.Failed)
		assert.NotEqual(t, rep.RunID, again.RunID)
		assert.Equal(t, 1, parser.count("good1.pdf"))
		assert.Equal(t, 2, parser.count("bad.pdf"))
	})

	entries := ledger.Entries()
	require.Len(t, entries, 4)
	for _, e := range entries {
		want := strings.HasPrefix(e.FileName, "good")
		assert.Equal(t, want, e.Succeeded, e.FileName)
	}
}

func TestRunnerForce(t *testing.T) {
	dir := t.TempDir()
	ledger, err := OpenLedger(filepath.Join(dir, "progress.csv"))
	require.NoError(t, err)
	defer ledger.Close()
	require.NoError(t, ledger.Record("good.pdf", true))

	parser := &fakeParser{}
	r, err := NewRunner(parser, ledger, Options{OutputDir: dir, Force: true})
	require.NoError(t, err)
	rep, err := r.Run(context.Background(), inputs("good.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Skipped)
	assert.Equal(t, 1, parser.count("good.pdf"))
}

func TestRunnerCancelled(t *testing.T) {
	dir := t.TempDir()
	ledger, err := OpenLedger(filepath.Join(dir, "progress.csv"))
	require.NoError(t, err)
	defer ledger.Close()

	parser := &fakeParser{}
	r, err := NewRunner(parser, ledger, Options{OutputDir: dir, Workers: 2})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := r.Run(ctx, inputs("good1.pdf", "good2.pdf"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rep.Succeeded)
	assert.Equal(t, 0, parser.count("good1.pdf"))
}

func TestNewRunnerValidation(t *testing.T) {
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "progress.csv"))
	require.NoError(t, err)
	defer ledger.Close()

	_, err = NewRunner(nil, ledger, Options{OutputDir: "out"})
	assert.Error(t, err)
	_, err = NewRunner(&fakeParser{}, nil, Options{OutputDir: "out"})
	assert.Error(t, err)
	_, err = NewRunner(&fakeParser{}, ledger, Options{})
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, size int) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
	}
	write("a.pdf", 10)
	write("b.TXT", 10)
	write("notes.doc", 10)
	write("sub/c.pdf", 10)
	write("big.pdf", 500)

	found, err := Discover(dir, 100)
	require.NoError(t, err)
	var names []string
	for _, in := range found {
		names = append(names, in.FileName)
	}
	assert.Equal(t, []string{"a.pdf", "b.TXT", "c.pdf"}, names)

	_, err = Discover(filepath.Join(dir, "missing"), 0)
	assert.Error(t, err)
}

func TestReadInputList(t *testing.T) {
	dir := t.TempDir()

	t.Run("file_name column", func(t *testing.T) {
		list := filepath.Join(dir, "list.csv")
		require.NoError(t, os.WriteFile(list, []byte("docket,file_name\n1,a.pdf\n2,b.pdf\n3,a.pdf\n4,\n"), 0o644))
		got, err := ReadInputList(list, dir)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, filepath.Join(dir, "a.pdf"), got[0].Path)
		assert.Equal(t, "b.pdf", got[1].FileName)
	})

	t.Run("missing column", func(t *testing.T) {
		list := filepath.Join(dir, "nocol.csv")
		require.NoError(t, os.WriteFile(list, []byte("name\na.pdf\n"), 0o644))
		_, err := ReadInputList(list, dir)
		assert.ErrorContains(t, err, "file_name")
	})

	t.Run("escaping path", func(t *testing.T) {
		list := filepath.Join(dir, "escape.csv")
		require.NoError(t, os.WriteFile(list, []byte("file_name\n../../etc/passwd\n"), 0o644))
		_, err := ReadInputList(list, dir)
		assert.ErrorContains(t, err, "outside")
	})
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "CP-51-CR-0001234-2019.json", OutputName("CP-51-CR-0001234-2019.pdf"))
	assert.Equal(t, "summary.json", OutputName("summary.txt"))
}
