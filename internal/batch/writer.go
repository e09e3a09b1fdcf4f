package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/record"
)

// OutputName maps a document file name to its JSON file name.
func OutputName(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ".json"
}

// WriteDocument writes the outcome's document to dir/<name>.json. The file
// is written under a temporary name and renamed into place.
func WriteDocument(dir string, o record.Outcome) (string, error) {
	data, err := record.MarshalIndent(o.Document())
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", o.FileName, err)
	}

	target := filepath.Join(dir, OutputName(o.FileName))
	tmp, err := os.CreateTemp(dir, ".docket-*.json")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move output into place: %w", err)
	}
	return target, nil
}
