// Package jobs holds the scheduled batch work: maturity detection, monthly
// point accrual and nightly balance reconciliation.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/goldsave/goldsave-api/internal/pkg/logger"
	"github.com/goldsave/goldsave-api/internal/pkg/metrics"
)

const (
	NameRecalculatePoints = "recalculate-points"
	NameMaturity          = "maturity"
	NameAccrual           = "accrual"
)

// Job is one named batch
type Job interface {
	Name() string
	Run(ctx context.Context) (*Report, error)
}

// ItemError records one enrollment the batch skipped because it failed
type ItemError struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	Error        string    `json:"error"`
}

// Report summarizes a run. Per-item failures are counted here and never fail the run.
type Report struct {
	Job             string          `json:"job"`
	RunID           string          `json:"run_id"`
	Note            string          `json:"note,omitempty"`
	Processed       int             `json:"processed"`
	Succeeded       int             `json:"succeeded"`
	Failed          int             `json:"failed"`
	Skipped         int             `json:"skipped"`
	Adjusted        int             `json:"adjusted,omitempty"`
	PointsConverted int64           `json:"points_converted,omitempty"`
	GramsAccrued    decimal.Decimal `json:"grams_accrued"`
	Errors          []ItemError     `json:"errors,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`

	mu sync.Mutex
}

func newReport(name string) *Report {
	return &Report{Job: name, GramsAccrued: decimal.Zero, StartedAt: time.Now().UTC()}
}

func (r *Report) fail(id uuid.UUID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Processed++
	r.Failed++
	r.Errors = append(r.Errors, ItemError{EnrollmentID: id, Error: err.Error()})
}

func (r *Report) skip() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Processed++
	r.Skipped++
}

func (r *Report) succeed(fn func(r *Report)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Processed++
	r.Succeeded++
	if fn != nil {
		fn(r)
	}
}

type manualKey struct{}

// Manual marks ctx as an operator-triggered run.
func Manual(ctx context.Context) context.Context {
	return context.WithValue(ctx, manualKey{}, true)
}

func IsManual(ctx context.Context) bool {
	v, _ := ctx.Value(manualKey{}).(bool)
	return v
}

// Execute runs job with a run id, structured logging and metrics.
func Execute(ctx context.Context, job Job) (*Report, error) {
	runID := uuid.NewString()
	l := logger.ForJob(job.Name(), runID)
	ctx = logger.WithContext(ctx, &l)
	start := time.Now()

	l.Info().Msg("Job started")
	report, err := job.Run(ctx)
	took := time.Since(start)

	var succeeded, failed int
	if report != nil {
		report.RunID = runID
		report.FinishedAt = time.Now().UTC()
		succeeded, failed = report.Succeeded, report.Failed
	}
	metrics.RecordJob(job.Name(), err, succeeded, failed, took.Seconds())

	if err != nil {
		l.Error().Err(err).Dur("took", took).Msg("Job failed")
		return report, err
	}
	l.Info().
		Int("processed", report.Processed).
		Int("succeeded", succeeded).
		Int("failed", failed).
		Int("skipped", report.Skipped).
		Str("note", report.Note).
		Dur("took", took).
		Msg("Job finished")
	return report, nil
}
