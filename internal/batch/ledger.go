package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// TimeLayout is the ledger time_stamp format.
const TimeLayout = "2006-01-02 15:04:05"

var ledgerHeader = []string{"file_name", "successfully_parsed", "time_stamp"}

// LedgerEntry summarizes every attempt recorded for one file.
type LedgerEntry struct {
	FileName    string `json:"file_name"`
	Attempts    int    `json:"attempts"`
	Succeeded   bool   `json:"succeeded"`
	LastAttempt string `json:"last_attempt"`
}

// Ledger is the append-only CSV progress file. One row is written per
// attempt. A file counts as done once any of its rows succeeded.
type Ledger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	w       *csv.Writer
	entries map[string]*LedgerEntry
	now     func() time.Time
}

// OpenLedger reads the existing ledger at path, if any, and opens it for
// appending.
func OpenLedger(path string) (*Ledger, error) {
	l := &Ledger{path: path, entries: map[string]*LedgerEntry{}, now: time.Now}
	if err := l.load(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("cannot create ledger directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger %s: %w", path, err)
	}
	l.file = f
	l.w = csv.NewWriter(f)

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cannot stat ledger: %w", err)
	}
	if info.Size() == 0 {
		if err := l.write(ledgerHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return l, nil
}

// ReadLedger loads a ledger without opening it for writing.
func ReadLedger(path string) ([]LedgerEntry, error) {
	l := &Ledger{path: path, entries: map[string]*LedgerEntry{}}
	if err := l.load(); err != nil {
		return nil, err
	}
	return l.Entries(), nil
}

func (l *Ledger) load() error {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read ledger %s: %w", l.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("malformed ledger %s: %w", l.path, err)
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == ledgerHeader[0] {
				continue
			}
		}
		if len(row) < 2 || row[0] == "" {
			continue
		}
		ok, _ := strconv.ParseBool(row[1])
		stamp := ""
		if len(row) > 2 {
			stamp = row[2]
		}
		l.add(row[0], ok, stamp)
	}
}

func (l *Ledger) add(fileName string, ok bool, stamp string) {
	e := l.entries[fileName]
	if e == nil {
		e = &LedgerEntry{FileName: fileName}
		l.entries[fileName] = e
	}
	e.Attempts++
	e.Succeeded = e.Succeeded || ok
	e.LastAttempt = stamp
}

func (l *Ledger) write(row []string) error {
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("cannot write ledger: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("cannot write ledger: %w", err)
	}
	return nil
}

// Record appends one attempt.
func (l *Ledger) Record(fileName string, ok bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return errors.New("ledger is read-only")
	}
	stamp := l.now().Format(TimeLayout)
	if err := l.write([]string{fileName, strconv.FormatBool(ok), stamp}); err != nil {
		return err
	}
	l.add(fileName, ok, stamp)
	return nil
}

// Succeeded reports whether any attempt of fileName succeeded.
func (l *Ledger) Succeeded(fileName string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[fileName]
	return e != nil && e.Succeeded
}

// Entries returns one entry per file, sorted by name.
func (l *Ledger) Entries() []LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FileName < out[j].FileName })
	return out
}

// Close flushes and closes the ledger file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	l.w.Flush()
	err := l.file.Close()
	l.file, l.w = nil, nil
	return err
}
