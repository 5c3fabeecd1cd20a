package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"course_outreach/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const runTimeout = 2 * time.Hour

type runner interface {
	Run(ctx context.Context, today time.Time, dryRun bool) (*app.RunReport, error)
}

// OutreachScheduler triggers the nightly outreach run.
type OutreachScheduler struct {
	cronEngine *cron.Cron
	service    runner
	logger     *logrus.Entry
	cronSpec   string
	location   *time.Location

	// ctx is the parent of every job; Stop cancels it.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewOutreachScheduler(service runner, logger *logrus.Entry, cronSpec string, location *time.Location) *OutreachScheduler {
	if location == nil {
		location = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &OutreachScheduler{
		cronEngine: cron.New(cron.WithLocation(location)),
		service:    service,
		logger:     logger.WithField("component", "scheduler"),
		cronSpec:   cronSpec,
		location:   location,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *OutreachScheduler) Start() error {
	s.logger.Info("Starting outreach scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for nightly outreach run.")
		s.execute(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("could not add outreach cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("Outreach scheduler started.")
	return nil
}

func (s *OutreachScheduler) execute(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, runTimeout)
	defer cancel()

	today := time.Now().In(s.location)
	report, err := s.service.Run(ctx, today, false)
	if err != nil {
		if errors.Is(err, app.ErrRunInProgress) {
			s.logger.Warn("Skipping scheduled run: a run is already in progress.")
			return
		}
		s.logger.WithError(err).Error("Scheduled outreach run failed.")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"run_id": report.Run.ID,
		"sent":   report.Run.Sent,
		"failed": report.Run.Failed,
	}).Info("Scheduled outreach run completed.")
}

func (s *OutreachScheduler) Stop() {
	s.logger.Info("Stopping outreach scheduler...")
	s.cancel()
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Outreach scheduler gracefully stopped.")
}
