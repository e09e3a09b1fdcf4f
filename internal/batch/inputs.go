package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a3tai/docket-extract/internal/pdf/security"
)

// Input is one document queued for parsing.
type Input struct {
	Path     string `json:"path"`
	FileName string `json:"file_name"`
	Size     int64  `json:"size"`
}

// IsDocket reports whether name has a parseable extension.
func IsDocket(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt":
		return true
	}
	return false
}

// Discover lists the docket files under dir, sorted by path. Files larger
// than maxFileSize are skipped when maxFileSize is positive.
func Discover(dir string, maxFileSize int64) ([]Input, error) {
	paths, err := security.NewPathValidator(dir)
	if err != nil {
		return nil, err
	}
	root := paths.Root()
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("directory does not exist: %s", dir)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	var out []Input
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Continue walking even if we encounter an error with a specific file
			return nil //nolint:nilerr // unreadable entries are skipped
		}
		if _, err := paths.Resolve(path); err != nil {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsDocket(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // vanished between listing and stat
		}
		if maxFileSize > 0 && info.Size() > maxFileSize {
			return nil
		}
		out = append(out, Input{Path: path, FileName: d.Name(), Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ReadInputList reads a CSV with a file_name column. Relative names are
// resolved against dir and must stay inside it.
func ReadInputList(listPath, dir string) ([]Input, error) {
	f, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open input list: %w", err)
	}
	defer f.Close()

	paths, err := security.NewPathValidator(dir)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("malformed input list: %w", err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(h) == "file_name" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("input list %s has no file_name column", listPath)
	}

	var out []Input
	seen := map[string]bool{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("malformed input list: %w", err)
		}
		if col >= len(row) {
			continue
		}
		name := strings.TrimSpace(row[col])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		path, err := paths.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Input{Path: path, FileName: filepath.Base(path)})
	}
}
