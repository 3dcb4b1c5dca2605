// Package scheduler fires the batch jobs on cron schedules. A Redis lock keeps
// two API instances from running the same job at once.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/goldsave/goldsave-api/internal/jobs"
	"github.com/goldsave/goldsave-api/internal/pkg/apperr"
)

const (
	lockPrefix     = "goldsave:job-lock:"
	defaultLockTTL = 30 * time.Minute
	defaultTimeout = 25 * time.Minute
)

var (
	ErrUnknownJob = apperr.NotFound("JOB_NOT_FOUND", "Unknown job")
	ErrJobRunning = apperr.BusinessRule("JOB_RUNNING", "Job is already running")
)

type Scheduler struct {
	cron     *cron.Cron
	redis    *redis.Client
	jobs     map[string]jobs.Job
	lockTTL  time.Duration
	timeout  time.Duration
	newToken func() string
}

func New(redisClient *redis.Client, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	l := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		redis:    redisClient,
		jobs:     make(map[string]jobs.Job),
		lockTTL:  defaultLockTTL,
		timeout:  defaultTimeout,
		newToken: uuid.NewString,
	}
}

// Register schedules job on spec and makes it available to RunNow.
// An empty spec registers the job for manual runs only.
func (s *Scheduler) Register(spec string, job jobs.Job) error {
	s.jobs[job.Name()] = job
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.run(ctx, job); err != nil && !errors.Is(err, ErrJobRunning) {
			log.Error().Err(err).Str("job", job.Name()).Msg("Scheduled job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name(), spec, err)
	}
	log.Info().Str("job", job.Name()).Str("schedule", spec).Msg("Job scheduled")
	return nil
}

// Names lists the registered jobs.
func (s *Scheduler) Names() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunNow runs a registered job immediately under the same lock as the schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*jobs.Report, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(jobs.Manual(ctx), job)
}

func (s *Scheduler) run(ctx context.Context, job jobs.Job) (*jobs.Report, error) {
	release, err := s.lock(ctx, job.Name())
	if err != nil {
		return nil, err
	}
	defer release()
	return jobs.Execute(ctx, job)
}

// lock takes the cross-instance run lock. Without Redis it is a no-op and
// cron's SkipIfStillRunning is the only overlap guard.
func (s *Scheduler) lock(ctx context.Context, name string) (func(), error) {
	if s.redis == nil {
		return func() {}, nil
	}

	key := lockPrefix + name
	token := s.newToken()
	ok, err := s.redis.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire job lock %s: %w", name, err)
	}
	if !ok {
		log.Info().Str("job", name).Msg("Job already running elsewhere, skipping")
		return nil, ErrJobRunning
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// Only delete the lock if it is still ours; an expired lock may have been retaken.
		current, err := s.redis.Get(releaseCtx, key).Result()
		if err != nil || current != token {
			return
		}
		if err := s.redis.Del(releaseCtx, key).Err(); err != nil {
			log.Warn().Err(err).Str("job", name).Msg("Failed to release job lock")
		}
	}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("entries", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop prevents new runs and waits for running ones until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("Scheduler stop timed out with jobs still running")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
