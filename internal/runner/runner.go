// Package runner orchestrates the pipeline stages: dependency order,
// per-stage timing, operator-facing progress on stdout and failures on
// stderr, fail-fast propagation.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cineflow/internal/errs"
)

// Stage is one orchestrated unit of work. Name is the --only selector
// value, Label the operator-facing line prefix.
type Stage struct {
	Name  string
	Label string
	Run   func(ctx context.Context) error
}

const validateStage = "validate"

type Options struct {
	// Only restricts the run to the named stage. Empty means a full run.
	Only string
	// SkipValidate omits the validate stage from a full run.
	SkipValidate bool
}

type Runner struct {
	// Stages in full-run order.
	Stages []Stage
	Out    io.Writer
	Err    io.Writer
	Log    zerolog.Logger
}

// Run executes the pipeline and reports the terminal status with total wall
// time. The returned error is non-nil whenever any stage failed; the caller
// maps it to a nonzero process exit.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	syms := newSymbols()
	log := r.Log.With().Str("run_id", uuid.New().String()[:8]).Logger()

	start := time.Now()
	err := r.runStages(ctx, opts, syms, log)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		fmt.Fprintf(r.Err, "\n%s Pipeline FAILED in %.2fs\n", syms.boom, elapsed)
		return err
	}
	fmt.Fprintf(r.Out, "\n%s Pipeline complete OK in %.2fs\n", syms.done, elapsed)
	return nil
}

func (r *Runner) runStages(ctx context.Context, opts Options, syms symbols, log zerolog.Logger) error {
	if opts.Only != "" {
		st, ok := r.stage(opts.Only)
		if !ok {
			return fmt.Errorf("%w: invalid --only value %q (expected ingest, validate, load, or admin)",
				errs.ErrConfiguration, opts.Only)
		}
		return r.timed(ctx, st, syms, log)
	}

	for _, st := range r.Stages {
		if st.Name == validateStage && opts.SkipValidate {
			fmt.Fprintf(r.Out, "%s DQ checks skipped by --skip-validate\n", syms.warn)
			continue
		}
		if err := r.timed(ctx, st, syms, log); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) stage(name string) (Stage, bool) {
	for _, st := range r.Stages {
		if st.Name == name {
			return st, true
		}
	}
	return Stage{}, false
}

// timed wraps a stage with start/elapsed instrumentation. Failures carry
// the stage label, elapsed time, and cause on the failure channel before
// the error is re-raised.
func (r *Runner) timed(ctx context.Context, st Stage, syms symbols, log zerolog.Logger) error {
	t0 := time.Now()
	fmt.Fprintf(r.Out, "%s %s ...\n", syms.play, st.Label)
	log.Debug().Str("stage", st.Name).Msg("stage started")

	if err := st.Run(ctx); err != nil {
		dt := time.Since(t0)
		fmt.Fprintf(r.Err, "%s %s FAILED (%.2fs): %v\n", syms.fail, st.Label, dt.Seconds(), err)
		log.Error().Str("stage", st.Name).Dur("elapsed", dt).Err(err).Msg("stage failed")
		return err
	}

	dt := time.Since(t0)
	fmt.Fprintf(r.Out, "%s %s OK (%.2fs)\n", syms.ok, st.Label, dt.Seconds())
	log.Debug().Str("stage", st.Name).Dur("elapsed", dt).Msg("stage finished")
	return nil
}

type symbols struct {
	play, ok, fail, warn, done, boom, arrow string
}

// newSymbols picks the progress glyphs, falling back to ASCII when
// NO_EMOJI is set for terminals and CI logs that mangle unicode.
func newSymbols() symbols {
	switch os.Getenv("NO_EMOJI") {
	case "1", "true", "TRUE", "True":
		return symbols{play: ">", ok: "OK", fail: "FAIL", warn: "WARN", done: "DONE", boom: "ERROR", arrow: "->"}
	}
	return symbols{play: "▶", ok: "✔", fail: "✖", warn: "⚠", done: "✅", boom: "❌", arrow: "→"}
}

// Arrow exposes the direction glyph for stage labels built by the caller.
func Arrow() string { return newSymbols().arrow }
