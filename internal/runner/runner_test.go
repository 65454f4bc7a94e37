package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineflow/internal/errs"
)

type harness struct {
	runner *Runner
	ran    *[]string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

// newHarness builds a runner over four recording stages; failOn marks one
// stage to fail.
func newHarness(failOn string) harness {
	var ran []string
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	mk := func(name string) Stage {
		return Stage{
			Name:  name,
			Label: "stage " + name,
			Run: func(context.Context) error {
				ran = append(ran, name)
				if name == failOn {
					return errors.New(name + " exploded")
				}
				return nil
			},
		}
	}
	r := &Runner{
		Stages: []Stage{mk("ingest"), mk("validate"), mk("load"), mk("admin")},
		Out:    out,
		Err:    errOut,
		Log:    zerolog.Nop(),
	}
	return harness{runner: r, ran: &ran, out: out, errOut: errOut}
}

func TestFullRunOrder(t *testing.T) {
	h := newHarness("")

	require.NoError(t, h.runner.Run(context.Background(), Options{}))

	assert.Equal(t, []string{"ingest", "validate", "load", "admin"}, *h.ran)
	assert.Contains(t, h.out.String(), "Pipeline complete OK")
	assert.Empty(t, h.errOut.String())
}

func TestSkipValidate(t *testing.T) {
	h := newHarness("")

	require.NoError(t, h.runner.Run(context.Background(), Options{SkipValidate: true}))

	assert.Equal(t, []string{"ingest", "load", "admin"}, *h.ran)
	assert.Contains(t, h.out.String(), "skipped by --skip-validate")
}

func TestOnlyRunsSingleStage(t *testing.T) {
	h := newHarness("")

	require.NoError(t, h.runner.Run(context.Background(), Options{Only: "load"}))

	assert.Equal(t, []string{"load"}, *h.ran)
}

func TestInvalidOnlySelector(t *testing.T) {
	h := newHarness("")

	err := h.runner.Run(context.Background(), Options{Only: "reticulate"})

	require.ErrorIs(t, err, errs.ErrConfiguration)
	assert.Empty(t, *h.ran, "no stage may run on an invalid selector")
	assert.Contains(t, h.errOut.String(), "Pipeline FAILED")
}

func TestStageFailureAbortsRun(t *testing.T) {
	h := newHarness("load")

	err := h.runner.Run(context.Background(), Options{})

	require.Error(t, err)
	assert.Equal(t, []string{"ingest", "validate", "load"}, *h.ran, "admin must not run after load fails")
	assert.Contains(t, h.errOut.String(), "stage load FAILED")
	assert.Contains(t, h.errOut.String(), "load exploded")
	assert.Contains(t, h.errOut.String(), "Pipeline FAILED")
	assert.NotContains(t, h.out.String(), "Pipeline complete OK")
}

func TestFailureIsReRaisedUnchanged(t *testing.T) {
	sentinel := errors.New("boom")
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r := &Runner{
		Stages: []Stage{{Name: "ingest", Label: "Ingest", Run: func(context.Context) error { return sentinel }}},
		Out:    out, Err: errOut, Log: zerolog.Nop(),
	}

	err := r.Run(context.Background(), Options{Only: "ingest"})

	assert.ErrorIs(t, err, sentinel)
}

func TestProgressLinesPerStage(t *testing.T) {
	h := newHarness("")

	require.NoError(t, h.runner.Run(context.Background(), Options{Only: "admin"}))

	assert.Contains(t, h.out.String(), "stage admin ...")
	assert.Contains(t, h.out.String(), "stage admin OK (")
}

func TestNoEmojiFallback(t *testing.T) {
	t.Setenv("NO_EMOJI", "1")
	h := newHarness("validate")

	_ = h.runner.Run(context.Background(), Options{})

	assert.Contains(t, h.out.String(), "> stage ingest ...")
	assert.Contains(t, h.out.String(), "OK stage ingest OK (")
	assert.Contains(t, h.errOut.String(), "FAIL stage validate FAILED (")
	assert.Contains(t, h.errOut.String(), "ERROR Pipeline FAILED")
}
