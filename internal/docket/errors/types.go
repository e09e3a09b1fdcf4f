package errors

import (
	"fmt"
	"strings"
)

// ExtractionError describes a failure raised while turning docket text into
// a record. Section is the canonical section name the error belongs to, or
// empty for document-level errors.
type ExtractionError struct {
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Section     string    `json:"section,omitempty"`
	Line        int       `json:"line,omitempty"`
	Context     string    `json:"context,omitempty"`
	Recoverable bool      `json:"recoverable"`
	FilePath    string    `json:"-"`
	Cause       error     `json:"-"`
}

// ErrorType represents the categories of extraction errors
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeStructural: no recognizable headers, or a section is missing.
	ErrorTypeStructural
	// ErrorTypeFieldExtraction: an extractor could not match a line it owns.
	ErrorTypeFieldExtraction
	// ErrorTypeFatalDocument: unreadable PDF or no identity section.
	ErrorTypeFatalDocument
	// ErrorTypeAnomaly: tolerated irregularity, surfaced in lenient mode.
	ErrorTypeAnomaly
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Error implements the error interface
func (e *ExtractionError) Error() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(e.Type.String())
	b.WriteString("]")
	if e.Section != "" {
		fmt.Fprintf(&b, " %s:", e.Section)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Context != "" {
		fmt.Fprintf(&b, ": %q", e.Context)
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeStructural:
		return "STRUCTURAL"
	case ErrorTypeFieldExtraction:
		return "FIELD_EXTRACTION"
	case ErrorTypeFatalDocument:
		return "FATAL_DOCUMENT"
	case ErrorTypeAnomaly:
		return "ANOMALY"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the type by name in JSON output.
func (et ErrorType) MarshalText() ([]byte, error) {
	return []byte(et.String()), nil
}

// UnmarshalText parses a type name produced by MarshalText.
func (et *ErrorType) UnmarshalText(text []byte) error {
	switch string(text) {
	case "STRUCTURAL":
		*et = ErrorTypeStructural
	case "FIELD_EXTRACTION":
		*et = ErrorTypeFieldExtraction
	case "FATAL_DOCUMENT":
		*et = ErrorTypeFatalDocument
	case "ANOMALY":
		*et = ErrorTypeAnomaly
	default:
		*et = ErrorTypeUnknown
	}
	return nil
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeAnomaly:
		return SeverityInfo
	case ErrorTypeStructural:
		return SeverityWarning
	case ErrorTypeFieldExtraction:
		return SeverityError
	case ErrorTypeFatalDocument:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// IsRecoverable reports whether extraction of the rest of the document can
// continue after an error of this type.
func (et ErrorType) IsRecoverable() bool {
	return et != ErrorTypeFatalDocument
}

// New creates an ExtractionError of the given type.
func New(errorType ErrorType, message string) *ExtractionError {
	return &ExtractionError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
	}
}

// Structural creates a StructuralError.
func Structural(format string, args ...any) *ExtractionError {
	return New(ErrorTypeStructural, fmt.Sprintf(format, args...))
}

// Field creates a FieldExtractionError scoped to a section.
func Field(section, format string, args ...any) *ExtractionError {
	return New(ErrorTypeFieldExtraction, fmt.Sprintf(format, args...)).WithSection(section)
}

// Fatal creates a FatalDocumentError wrapping cause.
func Fatal(cause error, format string, args ...any) *ExtractionError {
	e := New(ErrorTypeFatalDocument, fmt.Sprintf(format, args...))
	e.Cause = cause
	return e
}

// Anomaly creates an informational note for a tolerated irregularity.
func Anomaly(section, format string, args ...any) *ExtractionError {
	return New(ErrorTypeAnomaly, fmt.Sprintf(format, args...)).WithSection(section)
}

// WithSection sets the section name.
func (e *ExtractionError) WithSection(section string) *ExtractionError {
	e.Section = section
	return e
}

// WithLine records the 1-based line number inside the section and the
// offending text.
func (e *ExtractionError) WithLine(line int, text string) *ExtractionError {
	e.Line = line
	e.Context = strings.TrimSpace(text)
	return e
}

// WithFile adds file path information.
func (e *ExtractionError) WithFile(filePath string) *ExtractionError {
	e.FilePath = filePath
	return e
}

// GetSeverity returns the severity of this specific error
func (e *ExtractionError) GetSeverity() ErrorSeverity {
	return e.Type.GetSeverity()
}

// IsFatal returns true if the error aborts the document.
func (e *ExtractionError) IsFatal() bool {
	return e.GetSeverity() == SeverityFatal
}

// Promote turns an anomaly into a FieldExtractionError. Strict mode calls it
// for every anomaly an extractor reports.
func (e *ExtractionError) Promote() *ExtractionError {
	if e.Type != ErrorTypeAnomaly {
		return e
	}
	p := *e
	p.Type = ErrorTypeFieldExtraction
	p.Recoverable = true
	return &p
}
