package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"github.com/smallbiznis/estatehub/internal/clock"
	obsmetrics "github.com/smallbiznis/estatehub/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/estatehub/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Job names, also used as metric labels.
const (
	JobPostExpiry    = "post_expiry"
	JobPaymentExpiry = "payment_expiry"
)

const (
	triggerSchedule = "schedule"
	triggerStartup  = "startup"
	triggerManual   = "manual"
)

type Params struct {
	fx.In

	Config        Config
	Log           *zap.Logger
	Clock         clock.Clock
	GenID         *snowflake.Node
	PostExpiry    *PostExpiryEngine
	PaymentExpiry *PaymentExpiryEngine
	Metrics       *obsmetrics.SchedulerMetrics `optional:"true"`
}

// Status is reported by the admin status endpoint.
type Status struct {
	IsRunning  bool `json:"isRunning"`
	TasksCount int  `json:"tasksCount"`
}

// Scheduler drives both expiry engines on cron schedules and exposes manual
// triggers for the admin surface.
type Scheduler struct {
	cfg           Config
	log           *zap.Logger
	clock         clock.Clock
	genID         *snowflake.Node
	postExpiry    *PostExpiryEngine
	paymentExpiry *PaymentExpiryEngine
	metrics       *obsmetrics.SchedulerMetrics

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(p Params) *Scheduler {
	m := p.Metrics
	if m == nil {
		m = obsmetrics.Scheduler()
	}
	return &Scheduler{
		cfg:           p.Config.withDefaults(),
		log:           p.Log.Named("scheduler"),
		clock:         p.Clock,
		genID:         p.GenID,
		postExpiry:    p.PostExpiry,
		paymentExpiry: p.PaymentExpiry,
		metrics:       m,
	}
}

// Start registers both jobs and starts the cron runner. Calling Start on a
// running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		s.log.Warn("invalid scheduler timezone, falling back to UTC",
			zap.String("timezone", s.cfg.Timezone),
			zap.Error(err),
		)
		loc = time.UTC
	}

	cronLogger := newCronLogger(s.log)
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	if _, err := c.AddFunc(s.cfg.PostExpirySchedule, func() {
		s.runScheduled(runCtx, JobPostExpiry, triggerSchedule)
	}); err != nil {
		cancel()
		return fmt.Errorf("register %s: %w", JobPostExpiry, err)
	}
	if _, err := c.AddFunc(s.cfg.PaymentExpirySchedule, func() {
		s.runScheduled(runCtx, JobPaymentExpiry, triggerSchedule)
	}); err != nil {
		cancel()
		return fmt.Errorf("register %s: %w", JobPaymentExpiry, err)
	}

	s.log.Info("scheduler registered jobs",
		zap.String("timezone", loc.String()),
		zap.String(JobPostExpiry, s.cfg.PostExpirySchedule),
		zap.String(JobPaymentExpiry, s.cfg.PaymentExpirySchedule),
	)

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.running = true
	s.metrics.SetRunning(true, len(c.Entries()))

	if s.cfg.RunPostExpiryOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runScheduled(runCtx, JobPostExpiry, triggerStartup)
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(s.cfg.PaymentStartupDelay)
		defer timer.Stop()
		select {
		case <-runCtx.Done():
			return
		case <-timer.C:
		}
		s.runScheduled(runCtx, JobPaymentExpiry, triggerStartup)
	}()

	return nil
}

// Stop halts the cron runner and waits for in-flight runs until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	cancel := s.cancel
	s.running = false
	s.cron = nil
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	cronDone := c.Stop()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	s.metrics.SetRunning(false, 0)
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.cron == nil {
		return Status{}
	}
	return Status{IsRunning: true, TasksCount: len(s.cron.Entries())}
}

// RunPostExpiryNow runs the post expiry engine outside the schedule.
func (s *Scheduler) RunPostExpiryNow(ctx context.Context) (PostExpiryResult, error) {
	var result PostExpiryResult
	err := s.runJob(ctx, JobPostExpiry, triggerManual, func(ctx context.Context, run *jobRun) error {
		var err error
		result, err = s.postExpiry.Run(ctx)
		run.AddProcessed(result.UpdatedCount)
		run.AddErrors(result.FailedNotifications)
		s.metrics.AddBatchProcessed(JobPostExpiry, obsmetrics.ResourceListings, result.UpdatedCount)
		s.metrics.AddBatchProcessed(JobPostExpiry, obsmetrics.ResourceNotifications, result.NotifiedOwners)
		return err
	})
	return result, err
}

// RunPaymentExpiryNow runs the payment expiry engine outside the schedule.
func (s *Scheduler) RunPaymentExpiryNow(ctx context.Context) (PaymentExpiryResult, error) {
	var result PaymentExpiryResult
	err := s.runJob(ctx, JobPaymentExpiry, triggerManual, func(ctx context.Context, run *jobRun) error {
		var err error
		result, err = s.paymentExpiry.Run(ctx)
		run.AddProcessed(result.CancelledCount)
		s.metrics.AddBatchProcessed(JobPaymentExpiry, obsmetrics.ResourcePayments, result.CancelledCount)
		return err
	})
	return result, err
}

func (s *Scheduler) PaymentExpiryStats(ctx context.Context) (paymentdomain.ExpiryStats, error) {
	return s.paymentExpiry.Stats(ctx)
}

// runScheduled runs a job for a non-manual trigger. Errors are logged and
// the next tick retries.
func (s *Scheduler) runScheduled(ctx context.Context, job, trigger string) {
	var err error
	switch job {
	case JobPostExpiry:
		err = s.runJob(ctx, job, trigger, func(ctx context.Context, run *jobRun) error {
			result, err := s.postExpiry.Run(ctx)
			run.AddProcessed(result.UpdatedCount)
			run.AddErrors(result.FailedNotifications)
			s.metrics.AddBatchProcessed(job, obsmetrics.ResourceListings, result.UpdatedCount)
			s.metrics.AddBatchProcessed(job, obsmetrics.ResourceNotifications, result.NotifiedOwners)
			return err
		})
	case JobPaymentExpiry:
		err = s.runJob(ctx, job, trigger, func(ctx context.Context, run *jobRun) error {
			result, err := s.paymentExpiry.Run(ctx)
			run.AddProcessed(result.CancelledCount)
			s.metrics.AddBatchProcessed(job, obsmetrics.ResourcePayments, result.CancelledCount)
			return err
		})
	}
	if err != nil {
		s.logSchedulerError(ctx, "scheduler.job.failed", job, trigger, err)
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	trigger string,
	fn func(ctx context.Context, run *jobRun) error,
) (err error) {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, run := s.newJobRun(ctx, name, trigger)
	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(name, trigger)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", obsmetrics.ErrJobPanic, r)
		}

		s.metrics.ObserveJobDuration(name, time.Since(start))
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
		if err == nil {
			return
		}

		if errors.Is(err, context.DeadlineExceeded) {
			s.metrics.IncJobTimeout(name)
		}
		s.metrics.IncJobError(name, err)
		err = fmt.Errorf("%s: %w", name, err)
	}()

	return fn(ctx, run)
}

type cronLogger struct {
	log *zap.SugaredLogger
}

func newCronLogger(log *zap.Logger) cron.Logger {
	return cronLogger{log: log.Named("cron").Sugar()}
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
