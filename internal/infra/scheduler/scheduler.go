package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"birthday_notifier/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is the unit of work the scheduler triggers.
type Job interface {
	Run(ctx context.Context) (*app.RunResult, error)
}

type BirthdayScheduler struct {
	cronEngine *cron.Cron
	job        Job
	logger     *logrus.Entry
	cronSpec   string
	runTimeout time.Duration
}

func NewBirthdayScheduler(job Job, logger *logrus.Entry, cronSpec string, runTimeout time.Duration) *BirthdayScheduler {
	cl := cronLogger{logger: logger}
	return &BirthdayScheduler{
		// Use server's local time for cron, same clock as the target date.
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		job:        job,
		logger:     logger,
		cronSpec:   cronSpec,
		runTimeout: runTimeout,
	}
}

func (s *BirthdayScheduler) Start() error {
	s.logger.Info("Starting birthday scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, s.tick)
	if err != nil {
		return fmt.Errorf("could not add birthday cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Birthday scheduler started.")
	return nil
}

// tick runs the job once. Failures are logged and the next tick retries.
func (s *BirthdayScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
	defer cancel()
	RunAndLog(ctx, s.job, s.logger)
}

// RunAndLog executes one run and logs its outcome.
func RunAndLog(ctx context.Context, job Job, logger *logrus.Entry) (*app.RunResult, error) {
	res, err := job.Run(ctx)
	switch {
	case errors.Is(err, app.ErrRunInProgress):
		logger.Warn("Previous birthday run still in progress. Skipping tick.")
	case err != nil:
		logger.WithError(err).Error("Birthday run failed")
	case res != nil:
		logger.WithFields(logrus.Fields{
			"outcome":     res.Outcome,
			"target_date": res.TargetDate,
			"sent":        len(res.SentTo),
			"failed":      len(res.Failed),
		}).Info("Birthday run finished")
	}
	return res, err
}

func (s *BirthdayScheduler) Stop() {
	s.logger.Info("Stopping birthday scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Birthday scheduler gracefully stopped.")
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	logger *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(kvFields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(kvFields(keysAndValues)).Error("cron: " + msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
