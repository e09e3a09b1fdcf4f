package errors

import (
	stderrors "errors"
	"fmt"
)

// Options configures how extractors treat irregular input.
type Options struct {
	// StrictMode turns anomalies (unknown attorney titles, orphan
	// continuation lines, token count mismatches) into field errors.
	StrictMode bool `json:"strict_mode"`
}

// DefaultOptions returns lenient options.
func DefaultOptions() Options {
	return Options{StrictMode: false}
}

// ErrorCollection manages the errors raised while extracting one document.
type ErrorCollection struct {
	Errors   []*ExtractionError `json:"errors"`
	Warnings []*ExtractionError `json:"warnings"`
	FilePath string             `json:"file_path,omitempty"`
}

// NewErrorCollection creates a new error collection
func NewErrorCollection(filePath string) *ErrorCollection {
	return &ErrorCollection{
		Errors:   make([]*ExtractionError, 0),
		Warnings: make([]*ExtractionError, 0),
		FilePath: filePath,
	}
}

// Add adds an error to the appropriate collection based on severity
func (ec *ErrorCollection) Add(err *ExtractionError) {
	if err == nil {
		return
	}
	if err.FilePath == "" && ec.FilePath != "" {
		err.FilePath = ec.FilePath
	}

	severity := err.GetSeverity()
	if severity == SeverityWarning || severity == SeverityInfo {
		ec.Warnings = append(ec.Warnings, err)
	} else {
		ec.Errors = append(ec.Errors, err)
	}
}

// HasFatalErrors returns true if any error aborts the document.
func (ec *ErrorCollection) HasFatalErrors() bool {
	for _, err := range ec.Errors {
		if err.IsFatal() {
			return true
		}
	}
	return false
}

// BySection returns the errors recorded against one section.
func (ec *ErrorCollection) BySection(section string) []*ExtractionError {
	out := make([]*ExtractionError, 0)
	for _, err := range ec.Errors {
		if err.Section == section {
			out = append(out, err)
		}
	}
	return out
}

// Count returns the total number of errors and warnings
func (ec *ErrorCollection) Count() (errors, warnings int) {
	return len(ec.Errors), len(ec.Warnings)
}

// Summary returns a text summary of all errors and warnings
func (ec *ErrorCollection) Summary() string {
	errorCount, warningCount := ec.Count()
	if errorCount == 0 && warningCount == 0 {
		return "No errors or warnings"
	}

	summary := fmt.Sprintf("Found %d error(s) and %d warning(s)", errorCount, warningCount)

	if ec.HasFatalErrors() {
		summary += " (including fatal errors)"
	}

	return summary
}

// AsExtraction reports whether err is or wraps an ExtractionError.
func AsExtraction(err error) (*ExtractionError, bool) {
	var e *ExtractionError
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsFatal reports whether err is a FatalDocumentError.
func IsFatal(err error) bool {
	e, ok := AsExtraction(err)
	return ok && e.IsFatal()
}
