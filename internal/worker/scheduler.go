// Package worker runs the background side of the bulletin board: the cron
// schedule that keeps the signage snapshot fresh and the job handlers the
// in-memory queue dispatches to.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-bulletin-api/internal/service"
	"github.com/noah-isme/sma-bulletin-api/pkg/jobs"
)

type enqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// Scheduler enqueues a signage refresh on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	queue    enqueuer
	schedule string
	logger   *zap.Logger
}

// NewScheduler validates schedule and prepares a scheduler in loc. Accepted
// specs are the standard five-field form and descriptors such as "@every 1m".
func NewScheduler(schedule string, loc *time.Location, queue enqueuer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid signage refresh schedule %q: %w", schedule, err)
	}

	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger.Sugar()})),
		queue:    queue,
		schedule: schedule,
		logger:   logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("register signage refresh: %w", err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	job := jobs.Job{Type: service.JobSignageRefresh, Payload: "schedule"}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.logger.Warn("failed to enqueue scheduled signage refresh", zap.Error(err))
	}
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.logger.Info("signage refresh scheduler started", zap.String("schedule", s.schedule))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running tick, or ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
