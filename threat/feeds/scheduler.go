package feeds

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// =============================================================================
// Aggregation Scheduler
// =============================================================================

// DefaultSchedule runs once per cache TTL
const DefaultSchedule = "@hourly"

// ErrRunInProgress is returned by RunNow while another run is executing
var ErrRunInProgress = errors.New("aggregation run already in progress")

// Job is one full pipeline run (aggregate and materialize)
type Job func(ctx context.Context) error

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	// Spec is a cron expression with seconds field, or a descriptor such as @hourly
	Spec       string
	Timezone   string
	RunOnStart bool
}

// Scheduler runs a Job periodically. At most one run executes at a time,
// whether scheduled or triggered manually.
type Scheduler struct {
	cron       *cron.Cron
	job        Job
	spec       string
	runOnStart bool
	logger     *zap.SugaredLogger

	runMu sync.Mutex

	mu      sync.Mutex
	running bool
	entryID cron.EntryID

	// tracks the run-on-start job, which cron does not know about
	startRuns sync.WaitGroup
}

// NewScheduler validates the schedule and prepares the cron runner
func NewScheduler(cfg SchedulerConfig, job Job, logger *zap.SugaredLogger) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: job is required", ErrInvalidSchedule)
	}

	spec := cfg.Spec
	if spec == "" {
		spec = DefaultSchedule
	}

	tz := time.UTC
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			logger.Warnf("Invalid timezone %s, using UTC: %v", cfg.Timezone, err)
		} else {
			tz = loc
		}
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Desugar()))

	s := &Scheduler{
		job:        job,
		spec:       spec,
		runOnStart: cfg.RunOnStart,
		logger:     logger,
	}

	s.cron = cron.New(
		cron.WithLocation(tz),
		cron.WithSeconds(),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	entryID, err := s.cron.AddFunc(spec, s.scheduledRun)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, spec, err)
	}
	s.entryID = entryID

	return s, nil
}

// Start starts the cron runner
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.cron.Start()
	s.running = true
	s.logger.Infof("Aggregation scheduler started with schedule %s", s.spec)

	if s.runOnStart {
		s.startRuns.Add(1)
		go func() {
			defer s.startRuns.Done()
			s.scheduledRun()
		}()
	}
}

// Stop stops scheduling and waits for a running job to finish. A run that
// has started always completes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.startRuns.Wait()

	s.running = false
	s.logger.Info("Aggregation scheduler stopped")
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Next returns the next time the schedule fires after now
func (s *Scheduler) Next() time.Time {
	entry := s.cron.Entry(s.entryID)
	if entry.Schedule == nil {
		return time.Time{}
	}
	return entry.Schedule.Next(time.Now().In(s.cron.Location()))
}

// RunNow executes the job immediately unless a run is already in progress
func (s *Scheduler) RunNow(ctx context.Context) error {
	if !s.runMu.TryLock() {
		return ErrRunInProgress
	}
	defer s.runMu.Unlock()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		return err
	}
	s.logger.Infof("Aggregation run finished in %v", time.Since(start))
	return nil
}

func (s *Scheduler) scheduledRun() {
	// Runs are never cancelled midway. Each fetch is bounded by its own timeout
	err := s.RunNow(context.Background())
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("Skipping scheduled aggregation, previous run still in progress")
	case err != nil:
		s.logger.Errorf("Scheduled aggregation failed: %v", err)
	}
}
