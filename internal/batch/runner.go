// Package batch drives the extraction pipeline over many documents with a
// bounded worker pool and a resumable CSV progress ledger.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/docket-extract/internal/docket/record"
	"github.com/a3tai/docket-extract/internal/logging"
)

// Parser turns one file into an outcome. It must not panic, but the runner
// recovers if it does.
type Parser interface {
	ParseFile(ctx context.Context, path string) record.Outcome
}

// Saver persists outcomes next to the JSON files.
type Saver interface {
	Save(ctx context.Context, runID string, o record.Outcome) error
}

// Options configures a Runner.
type Options struct {
	OutputDir string
	Workers   int
	// Force reparses files the ledger already marks as succeeded.
	Force  bool
	Store  Saver
	Logger *slog.Logger
}

// Failure names one document that did not parse.
type Failure struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// Report summarizes one run.
type Report struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Skipped   int           `json:"skipped"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []Failure     `json:"failures,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Runner parses documents in parallel. Each document is handled by a single
// worker from start to finish.
type Runner struct {
	parser Parser
	ledger *Ledger
	opts   Options
	log    *slog.Logger

	mu     sync.Mutex
	report *Report
}

// NewRunner creates a runner writing progress to ledger.
func NewRunner(parser Parser, ledger *Ledger, opts Options) (*Runner, error) {
	if parser == nil {
		return nil, errors.New("parser is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{parser: parser, ledger: ledger, opts: opts, log: logging.OrDiscard(opts.Logger)}, nil
}

// Run parses inputs and returns the run report. Cancelling ctx stops new
// documents from being dispatched; documents already running finish. The
// returned error is non-nil only when the ledger cannot be written or ctx
// was cancelled.
func (r *Runner) Run(ctx context.Context, inputs []Input) (*Report, error) {
	if err := os.MkdirAll(r.opts.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("cannot create output directory %s: %w", r.opts.OutputDir, err)
	}

	start := time.Now()
	r.report = &Report{RunID: uuid.NewString(), Total: len(inputs)}
	log := r.log.With("run", r.report.RunID)
	log.Info("batch started", "documents", len(inputs), "workers", r.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

dispatch:
	for _, in := range inputs {
		select {
		case <-gctx.Done():
			break dispatch
		default:
		}
		if !r.opts.Force && r.ledger.Succeeded(in.FileName) {
			log.Debug("already parsed", "file", in.FileName)
			r.count(func(rep *Report) { rep.Skipped++ })
			continue
		}
		in := in
		g.Go(func() error {
			return r.process(gctx, log, in)
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	r.report.Duration = time.Since(start)
	log.Info("batch finished",
		"succeeded", r.report.Succeeded,
		"failed", r.report.Failed,
		"skipped", r.report.Skipped,
		"elapsed", r.report.Duration.Round(time.Millisecond))
	return r.report, err
}

func (r *Runner) count(f func(*Report)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(r.report)
}

// process handles one document. Only ledger failures are returned.
func (r *Runner) process(ctx context.Context, log *slog.Logger, in Input) error {
	o := r.parse(ctx, in)

	if o.Succeeded {
		if _, err := WriteDocument(r.opts.OutputDir, o); err != nil {
			reason := err.Error()
			o.Succeeded = false
			o.FailureReason = &reason
		}
	}

	if r.opts.Store != nil {
		if err := r.opts.Store.Save(ctx, r.report.RunID, o); err != nil {
			log.Warn("failed to store outcome", "file", in.FileName, "err", err)
		}
	}

	if err := r.ledger.Record(in.FileName, o.Succeeded); err != nil {
		return fmt.Errorf("ledger update for %s failed: %w", in.FileName, err)
	}

	if o.Succeeded {
		log.Info("parsed", "file", in.FileName, "dialect", o.Dialect, "warnings", o.Warnings)
		r.count(func(rep *Report) { rep.Succeeded++ })
		return nil
	}

	reason := ""
	if o.FailureReason != nil {
		reason = *o.FailureReason
	}
	log.Error("parse failed", "file", in.FileName, "err", reason)
	r.count(func(rep *Report) {
		rep.Failed++
		rep.Failures = append(rep.Failures, Failure{FileName: in.FileName, Reason: reason})
	})
	return nil
}

func (r *Runner) parse(ctx context.Context, in Input) (o record.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			o = record.Failed(in.FileName, fmt.Errorf("panic while parsing: %v", p))
		}
	}()
	o = r.parser.ParseFile(ctx, in.Path)
	if o.FileName == "" {
		o.FileName = in.FileName
	}
	return o
}
