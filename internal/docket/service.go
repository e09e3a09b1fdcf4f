// Package docket turns court docket text into structured case records. The
// Service ties the pipeline together: text source, dialect detection,
// section segmentation, field extraction and record assembly.
package docket

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a3tai/docket-extract/internal/docket/assemble"
	"github.com/a3tai/docket-extract/internal/docket/dialect"
	derrors "github.com/a3tai/docket-extract/internal/docket/errors"
	"github.com/a3tai/docket-extract/internal/docket/fields"
	"github.com/a3tai/docket-extract/internal/docket/lines"
	"github.com/a3tai/docket-extract/internal/docket/record"
	"github.com/a3tai/docket-extract/internal/docket/sections"
	"github.com/a3tai/docket-extract/internal/pdf"
	"github.com/a3tai/docket-extract/internal/summary"
)

// Options configures a Service.
type Options struct {
	// Dialect forces a dialect by name. Empty means detect per document.
	Dialect string
	Strict  bool
}

// Service extracts case records from docket files or text.
type Service struct {
	registry  *dialect.Registry
	extractor pdf.TextExtractor
	opts      Options
}

// NewService creates a service. extractor may be nil when only plain text
// input is used.
func NewService(registry *dialect.Registry, extractor pdf.TextExtractor, opts Options) (*Service, error) {
	if registry == nil {
		return nil, errors.New("dialect registry is required")
	}
	if opts.Dialect != "" {
		if _, ok := registry.Get(opts.Dialect); !ok {
			return nil, fmt.Errorf("unknown dialect: %s", opts.Dialect)
		}
	}
	return &Service{registry: registry, extractor: extractor, opts: opts}, nil
}

// Registry returns the dialect registry in use.
func (s *Service) Registry() *dialect.Registry {
	return s.registry
}

// Options returns the options the service was created with.
func (s *Service) Options() Options {
	return s.opts
}

// WithOptions returns a service sharing the registry and extractor of s.
func (s *Service) WithOptions(opts Options) (*Service, error) {
	return NewService(s.registry, s.extractor, opts)
}

func (s *Service) errorOptions() derrors.Options {
	return derrors.Options{StrictMode: s.opts.Strict}
}

// Text returns the layout text of a document. Files ending in .txt are read
// as is, anything else goes through the PDF text extractor.
func (s *Service) Text(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", derrors.Fatal(err, "failed to read text file: %v", err)
		}
		return string(data), nil
	}
	if s.extractor == nil {
		return "", derrors.Fatal(nil, "no PDF text extractor configured")
	}
	text, err := s.extractor.ExtractText(ctx, path)
	if err != nil {
		return "", derrors.Fatal(err, "failed to extract text: %v", err)
	}
	return text, nil
}

// Detect picks the dialect for a document, honouring a forced dialect.
func (s *Service) Detect(fileName string, doc lines.Document) *dialect.Dialect {
	if s.opts.Dialect != "" {
		d, _ := s.registry.Get(s.opts.Dialect)
		return d
	}
	return s.registry.Detect(dialect.Signals{
		FileName: fileName,
		Headers:  sections.ScanHeaders(doc),
		Text:     lines.Text(doc.Lines),
	})
}

// ParseFile extracts one document. Failures are reported in the outcome,
// never as a panic.
func (s *Service) ParseFile(ctx context.Context, path string) record.Outcome {
	name := filepath.Base(path)
	text, err := s.Text(ctx, path)
	if err != nil {
		return record.Failed(name, err)
	}
	return s.ParseText(name, text)
}

// ParseText extracts a document whose text is already available.
func (s *Service) ParseText(fileName, text string) record.Outcome {
	doc := lines.Normalize(text)
	d := s.Detect(fileName, doc)

	if d.Kind == dialect.KindSummary {
		return s.parseSummary(fileName, d, doc)
	}

	seg := sections.New(&d.Segmentation).Split(doc)
	res := assemble.New(d, s.errorOptions()).Assemble(seg, fileName)

	_, warnings := res.Errors.Count()
	out := record.Outcome{
		FileName:  fileName,
		Dialect:   d.Name,
		Succeeded: res.Succeeded,
		Record:    res.Record,
		Warnings:  warnings,
	}
	if !res.Succeeded {
		reason := failureReason(res)
		out.FailureReason = &reason
	}
	return out
}

func failureReason(res *assemble.Result) string {
	if res.Fatal != nil {
		return res.Fatal.Error()
	}
	if len(res.Errors.Errors) > 0 {
		return res.Errors.Errors[0].Error()
	}
	return "identity section was not extracted"
}

func (s *Service) parseSummary(fileName string, d *dialect.Dialect, doc lines.Document) record.Outcome {
	ctx := fields.NewContext(summary.Section, s.errorOptions(), nil)
	cs, err := summary.Parse(ctx, d, doc)
	if err != nil {
		out := record.Failed(fileName, err)
		out.Dialect = d.Name
		return out
	}
	return record.Outcome{
		FileName:  fileName,
		Dialect:   d.Name,
		Succeeded: true,
		Summary:   cs,
		Warnings:  len(ctx.Anomalies()),
	}
}

// SectionView is one segmented section as reported by Sections.
type SectionView struct {
	Name   string   `json:"name"`
	Header string   `json:"header"`
	Lines  []string `json:"lines"`
}

// SectionsReport is the segmentation of one document.
type SectionsReport struct {
	FileName string        `json:"file_name"`
	Dialect  string        `json:"dialect"`
	Sections []SectionView `json:"sections"`
	Dropped  int           `json:"dropped_lines"`
	Notes    []string      `json:"notes,omitempty"`
}

// Sections segments a file without extracting fields.
func (s *Service) Sections(ctx context.Context, path string) (*SectionsReport, error) {
	text, err := s.Text(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.SectionsText(filepath.Base(path), text), nil
}

// SectionsText segments text without extracting fields.
func (s *Service) SectionsText(fileName, text string) *SectionsReport {
	doc := lines.Normalize(text)
	d := s.Detect(fileName, doc)
	seg := sections.New(&d.Segmentation).Split(doc)

	rep := &SectionsReport{
		FileName: fileName,
		Dialect:  d.Name,
		Sections: make([]SectionView, 0, len(seg.Order)),
		Dropped:  seg.Count(sections.SpanDropped),
	}
	for _, name := range seg.Order {
		sec := seg.Sections[name]
		view := SectionView{Name: sec.Name, Header: sec.Header, Lines: make([]string, len(sec.Lines))}
		for i, l := range sec.Lines {
			view.Lines[i] = l.Raw()
		}
		rep.Sections = append(rep.Sections, view)
	}
	for _, n := range seg.Notes {
		rep.Notes = append(rep.Notes, n.Error())
	}
	return rep
}
