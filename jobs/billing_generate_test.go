package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/locafrota/locafrota/internal/billing"
)

type fakeGenerator struct {
	result billing.GenerateResult
	err    error
	calls  int
}

func (f *fakeGenerator) GenerateMonthlyInvoices(ctx context.Context) (billing.GenerateResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeSweeper struct {
	marked int64
	err    error
	calls  int
}

func (f *fakeSweeper) MarkOverdueInvoices(ctx context.Context) (int64, error) {
	f.calls++
	return f.marked, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBillingGenerateJobRunsService(t *testing.T) {
	gen := &fakeGenerator{result: billing.GenerateResult{ReferenceMonth: "2024-03", Created: 3}}
	job := NewBillingGenerateJob(gen, discardLogger(), nil)

	err := job.Handle(context.Background(), NewBillingGenerateTask())
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
}

func TestBillingGenerateJobPropagatesError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("db down")}
	job := NewBillingGenerateJob(gen, discardLogger(), nil)

	err := job.Handle(context.Background(), NewBillingGenerateTask())
	require.Error(t, err)
}

func TestBillingGenerateJobRequiresService(t *testing.T) {
	job := &BillingGenerateJob{}
	require.Error(t, job.Handle(context.Background(), NewBillingGenerateTask()))
}

func TestOverdueSweepJobRunsService(t *testing.T) {
	sw := &fakeSweeper{marked: 4}
	job := NewOverdueSweepJob(sw, discardLogger(), nil)

	err := job.Handle(context.Background(), NewOverdueSweepTask())
	require.NoError(t, err)
	require.Equal(t, 1, sw.calls)
}

func TestOverdueSweepJobPropagatesError(t *testing.T) {
	sw := &fakeSweeper{err: errors.New("db down")}
	job := NewOverdueSweepJob(sw, discardLogger(), nil)

	require.Error(t, job.Handle(context.Background(), NewOverdueSweepTask()))
}
