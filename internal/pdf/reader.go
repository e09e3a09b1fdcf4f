package pdf

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned for documents without a text layer.
var ErrNoText = errors.New("no text content could be extracted from PDF")

// TextExtractor turns a document into layout text. Each physical line of
// the page becomes one line of text and horizontal position is kept as
// leading and inner spaces.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// Options tune the layout renderer.
type Options struct {
	MaxFileSize int64
	MaxTextSize int
	// CellWidth is the width in points of one text column.
	CellWidth float64
	// RowTolerance is the vertical distance in points under which two
	// glyphs share a line.
	RowTolerance float64
	// Validate runs the structural validator before extraction.
	Validate bool
}

// DefaultOptions returns options calibrated for 8pt court docket sheets.
func DefaultOptions() Options {
	return Options{
		MaxFileSize:  100 * 1024 * 1024,
		MaxTextSize:  10 * 1024 * 1024,
		CellWidth:    4.8,
		RowTolerance: 2.0,
		Validate:     true,
	}
}

// Reader extracts layout text from PDF files.
type Reader struct {
	opts      Options
	validator *Validator
}

// NewReader creates a reader with the given options.
func NewReader(opts Options) *Reader {
	d := DefaultOptions()
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = d.MaxFileSize
	}
	if opts.MaxTextSize <= 0 {
		opts.MaxTextSize = d.MaxTextSize
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = d.CellWidth
	}
	if opts.RowTolerance <= 0 {
		opts.RowTolerance = d.RowTolerance
	}
	r := &Reader{opts: opts}
	if opts.Validate {
		r.validator = NewValidator(opts.MaxFileSize)
	}
	return r
}

// ExtractText renders every page of path. Pages are separated by a single
// newline.
func (r *Reader) ExtractText(ctx context.Context, path string) (text string, err error) {
	if r.validator != nil {
		if err := r.validator.Check(path); err != nil {
			return "", err
		}
	} else if err := checkFile(path, r.opts.MaxFileSize); err != nil {
		return "", err
	}

	// ledongthuc/pdf panics on some malformed content streams
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to extract text content: %v", rec)
		}
	}()

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var builder strings.Builder
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		for _, line := range Layout(page.Content().Text, r.opts.CellWidth, r.opts.RowTolerance) {
			if builder.Len()+len(line)+1 > r.opts.MaxTextSize {
				return "", fmt.Errorf("text exceeds %d bytes", r.opts.MaxTextSize)
			}
			builder.WriteString(line)
			builder.WriteByte('\n')
		}
	}

	text = builder.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Layout groups glyphs into lines from the top of the page down and places
// each glyph at the column its X position maps to. Column 0 is the leftmost
// glyph on the page.
func Layout(texts []pdf.Text, cellWidth, rowTolerance float64) []string {
	glyphs := make([]pdf.Text, 0, len(texts))
	minX := math.MaxFloat64
	for _, t := range texts {
		if t.S == "" || t.S == "\n" {
			continue
		}
		glyphs = append(glyphs, t)
		if strings.TrimSpace(t.S) != "" && t.X < minX {
			minX = t.X
		}
	}
	if len(glyphs) == 0 {
		return nil
	}

	// A row is anchored on its topmost glyph.
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].Y > glyphs[j].Y })
	var rows [][]pdf.Text
	start := 0
	for i := 1; i <= len(glyphs); i++ {
		if i == len(glyphs) || glyphs[start].Y-glyphs[i].Y > rowTolerance {
			rows = append(rows, glyphs[start:i])
			start = i
		}
	}

	out := make([]string, 0, len(rows))
	var line []rune
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		line = line[:0]
		for _, g := range row {
			col := int(math.Round((g.X - minX) / cellWidth))
			for len(line) < col {
				line = append(line, ' ')
			}
			line = append(line, []rune(g.S)...)
		}
		out = append(out, strings.TrimRight(string(line), " "))
	}
	return out
}
