// Package dialect holds the table-driven description of every supported
// docket layout and picks the one that fits a document.
package dialect

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed dialects/*.yaml
var builtin embed.FS

// DefaultDialect is used when no signal matches.
const DefaultDialect = "cp"

// Signals are the cheap document features used for detection.
type Signals struct {
	FileName string
	Headers  []string
	Text     string
}

// Registry maps dialect names to their tables.
type Registry struct {
	dialects map[string]*Dialect
	order    []string
	fallback string
}

// NewRegistry returns a registry loaded with the built-in dialects.
func NewRegistry() (*Registry, error) {
	r := &Registry{dialects: make(map[string]*Dialect), fallback: DefaultDialect}
	raw, err := readDir(builtin, "dialects")
	if err != nil {
		return nil, err
	}
	if err := r.add(raw); err != nil {
		return nil, err
	}
	return r, nil
}

// MustRegistry is NewRegistry for callers that cannot recover.
func MustRegistry() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// LoadFile adds or replaces dialects from a YAML file holding one or more
// documents.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read dialect file: %w", err)
	}
	raw, err := decodeAll(data, path)
	if err != nil {
		return err
	}
	return r.add(raw)
}

// SetFallback changes the dialect used when detection finds nothing.
func (r *Registry) SetFallback(name string) error {
	if _, ok := r.dialects[name]; !ok {
		return fmt.Errorf("unknown dialect: %s", name)
	}
	r.fallback = name
	return nil
}

// Get returns a dialect by name.
func (r *Registry) Get(name string) (*Dialect, bool) {
	d, ok := r.dialects[name]
	return d, ok
}

// Names lists dialect names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Detect scores every dialect against the signals and returns the best.
func (r *Registry) Detect(sig Signals) *Dialect {
	base := strings.ToLower(filepath.Base(sig.FileName))
	text := strings.ToLower(sig.Text)

	best, bestScore := "", 0
	for _, name := range r.order {
		d := r.dialects[name]
		score := 0
		for _, f := range d.Detect.FileNames {
			if base != "" && strings.Contains(base, strings.ToLower(f)) {
				score += 10
			}
		}
		for _, h := range d.Detect.Headers {
			for _, got := range sig.Headers {
				if strings.Contains(got, h) {
					score += 3
					break
				}
			}
		}
		for _, phrase := range d.Detect.Text {
			if strings.Contains(text, strings.ToLower(phrase)) {
				score += 5
			}
		}
		if score == 0 {
			continue
		}
		score += d.Detect.Priority
		if score > bestScore {
			best, bestScore = name, score
		}
	}
	if best == "" {
		best = r.fallback
	}
	return r.dialects[best]
}

func (r *Registry) add(raw []*Dialect) error {
	pending := make(map[string]*Dialect, len(raw))
	for _, d := range raw {
		if d.Name == "" {
			return fmt.Errorf("dialect without name")
		}
		pending[d.Name] = d
	}

	names := make([]string, 0, len(pending))
	for n := range pending {
		names = append(names, n)
	}
	sort.Strings(names)

	resolved := make(map[string]*Dialect)
	var resolve func(name string, depth int) (*Dialect, error)
	resolve = func(name string, depth int) (*Dialect, error) {
		if d, ok := resolved[name]; ok {
			return d, nil
		}
		if depth > 8 {
			return nil, fmt.Errorf("dialect %s: extends chain too deep", name)
		}
		d, ok := pending[name]
		if !ok {
			existing, ok := r.dialects[name]
			if !ok {
				return nil, fmt.Errorf("unknown dialect: %s", name)
			}
			return existing, nil
		}
		if d.Extends != "" {
			parent, err := resolve(d.Extends, depth+1)
			if err != nil {
				return nil, fmt.Errorf("dialect %s: %w", name, err)
			}
			d = merge(parent, d)
		}
		if err := d.compile(); err != nil {
			return nil, fmt.Errorf("dialect %s: %w", name, err)
		}
		resolved[name] = d
		return d, nil
	}

	for _, n := range names {
		if _, err := resolve(n, 0); err != nil {
			return err
		}
	}
	for _, d := range raw {
		if _, seen := r.dialects[d.Name]; !seen {
			r.order = append(r.order, d.Name)
		}
		r.dialects[d.Name] = resolved[d.Name]
	}
	return nil
}

// merge overlays child on parent. Extractors are replaced per record key;
// every other non-empty child field replaces the parent's.
func merge(parent, child *Dialect) *Dialect {
	out := *parent
	out.Name = child.Name
	out.Extends = child.Extends
	out.Detect = child.Detect
	if child.Description != "" {
		out.Description = child.Description
	}
	if child.Kind != "" {
		out.Kind = child.Kind
	}
	if child.Identity != "" {
		out.Identity = child.Identity
	}
	if child.Boilerplate != nil {
		out.Boilerplate = child.Boilerplate
	}
	if child.Summary != nil {
		out.Summary = mergeSummary(parent.Summary, child.Summary)
	}

	seg := parent.Segmentation
	cs := child.Segmentation
	if cs.FalsePositives != nil {
		seg.FalsePositives = cs.FalsePositives
	}
	if cs.Canonical != nil {
		seg.Canonical = cs.Canonical
	}
	if cs.Standard != nil {
		seg.Standard = cs.Standard
	}
	if cs.ChargesHeader != "" {
		seg.ChargesHeader = cs.ChargesHeader
	}
	if cs.PageHeaders != nil {
		seg.PageHeaders = cs.PageHeaders
	}
	if cs.Continuations != nil {
		seg.Continuations = cs.Continuations
	}
	out.Segmentation = seg

	out.Extractors = make(map[string]*Extractor, len(parent.Extractors)+len(child.Extractors))
	for k, v := range parent.Extractors {
		out.Extractors[k] = v
	}
	for k, v := range child.Extractors {
		out.Extractors[k] = v
	}
	return &out
}

func mergeSummary(parent, child *SummaryRules) *SummaryRules {
	if parent == nil {
		return child
	}
	out := *parent
	if child.Mode != "" {
		out.Mode = child.Mode
	}
	if child.Statuses != nil {
		out.Statuses = child.Statuses
	}
	if child.Counties != nil {
		out.Counties = child.Counties
	}
	if child.Sequence != nil {
		out.Sequence = child.Sequence
	}
	if child.Sentence != nil {
		out.Sentence = child.Sentence
	}
	if child.Dispositions != "" {
		out.Dispositions = child.Dispositions
	}
	if child.Periods != "" {
		out.Periods = child.Periods
	}
	if child.Charge != nil {
		out.Charge = child.Charge
	}
	if child.Punishment != nil {
		out.Punishment = child.Punishment
	}
	if child.ArrestLine != nil {
		out.ArrestLine = child.ArrestLine
	}
	if child.Banner != nil {
		out.Banner = child.Banner
	}
	if child.Boilerplate != nil {
		out.Boilerplate = child.Boilerplate
	}
	if child.Tokens.Sequence != "" || child.Tokens.Grade != "" {
		out.Tokens = child.Tokens
	}
	return &out
}

func (d *Dialect) compile() error {
	if d.Kind == "" {
		d.Kind = KindDocket
	}
	if err := d.Segmentation.compile(); err != nil {
		return err
	}
	for key, e := range d.Extractors {
		if e == nil {
			delete(d.Extractors, key)
			continue
		}
		if err := e.compile(); err != nil {
			return fmt.Errorf("extractor %s: %w", key, err)
		}
	}
	if d.Kind == KindDocket && d.Identity != "" {
		if _, ok := d.Extractors[d.Identity]; !ok {
			return fmt.Errorf("identity extractor %s is not defined", d.Identity)
		}
	}
	if d.Kind == KindSummary && d.Summary == nil {
		return fmt.Errorf("summary dialect without summary rules")
	}
	if d.Summary != nil {
		return d.Summary.compile()
	}
	return nil
}

func (e *Extractor) compile() error {
	if err := compileLabels(e.Labels); err != nil {
		return err
	}
	if e.Table != nil {
		if err := e.Table.compile(); err != nil {
			return err
		}
	}
	if err := compileBlocks(e.Blocks); err != nil {
		return err
	}
	if a := e.Attorneys; a != nil {
		if len(a.Sides) != 2 {
			return fmt.Errorf("attorney layout needs two sides")
		}
		var err error
		if a.addressEnd, err = compileOptional(a.AddressEnd); err != nil {
			return err
		}
	}
	if e.Sentencing != nil {
		return e.Sentencing.compile()
	}
	return nil
}

func readDir(fsys fs.FS, dir string) ([]*Dialect, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list dialects: %w", err)
	}
	var out []*Dialect
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		p := dir + "/" + entry.Name()
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		ds, err := decodeAll(data, p)
		if err != nil {
			return nil, err
		}
		out = append(out, ds...)
	}
	return out, nil
}

// decodeAll reads every document of a YAML stream. Empty documents are
// skipped.
func decodeAll(data []byte, source string) ([]*Dialect, error) {
	var out []*Dialect
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for i := 1; ; i++ {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s document %d: %w", source, i, err)
		}
		if emptyDocument(&doc) {
			continue
		}
		var d Dialect
		if err := doc.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to parse %s document %d: %w", source, i, err)
		}
		out = append(out, &d)
	}
}

func emptyDocument(doc *yaml.Node) bool {
	if len(doc.Content) == 0 {
		return true
	}
	n := doc.Content[0]
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
