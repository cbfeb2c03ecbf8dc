// internal/app/birthday_job.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"birthday_notifier/internal/domain/birthday"
	"birthday_notifier/internal/domain/mail"
	"birthday_notifier/internal/domain/notification"
	"birthday_notifier/internal/domain/telegram"
	"birthday_notifier/internal/domain/user"
	"birthday_notifier/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRunInProgress is returned when Run is called while another run is still executing.
	ErrRunInProgress = errors.New("birthday job is already running")
	// ErrLedgerWrite means reminders went out but the run could not be recorded,
	// so the next tick may send them again.
	ErrLedgerWrite = errors.New("failed to record notification run")
)

// Outcome is the terminal state of a single Run.
type Outcome string

const (
	OutcomeSkipped      Outcome = "skipped"
	OutcomeNoBirthdays  Outcome = "no_birthdays"
	OutcomeNoRecipients Outcome = "no_recipients"
	OutcomeCompleted    Outcome = "completed"
)

// RunResult describes what a Run did.
type RunResult struct {
	Outcome        Outcome
	TargetDate     string
	BirthdayPeople []string
	Recipients     []string
	SentTo         []string
	Failed         []string
	// Recorded is true once the ledger holds a run for TargetDate.
	Recorded bool
}

// JobOptions tunes delivery and recording. Zero values fall back to defaults.
type JobOptions struct {
	SendTimeout     time.Duration
	SendConcurrency int
	LedgerAttempts  int
	LedgerBackoff   time.Duration
	// LedgerTimeout bounds recording, retries included. Recording is detached
	// from the run context so an expired tick still records what it sent.
	LedgerTimeout time.Duration
	// Now is the clock used to compute the target date.
	Now func() time.Time
}

const (
	defaultSendTimeout     = 15 * time.Second
	defaultSendConcurrency = 4
	defaultLedgerAttempts  = 3
	defaultLedgerBackoff   = 500 * time.Millisecond
	defaultLedgerTimeout   = 10 * time.Second
)

// BirthdayJob sends the "birthdays tomorrow" reminder at most once per target date.
type BirthdayJob struct {
	users       user.Repository
	ledger      notification.Ledger
	mailer      mail.Sender
	broadcaster telegram.Broadcaster // optional
	logger      *logrus.Entry
	opts        JobOptions
	running     atomic.Bool
}

func NewBirthdayJob(
	users user.Repository,
	ledger notification.Ledger,
	mailer mail.Sender,
	broadcaster telegram.Broadcaster,
	logger *logrus.Entry,
	opts JobOptions,
) *BirthdayJob {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if opts.SendConcurrency <= 0 {
		opts.SendConcurrency = defaultSendConcurrency
	}
	if opts.LedgerAttempts <= 0 {
		opts.LedgerAttempts = defaultLedgerAttempts
	}
	if opts.LedgerBackoff <= 0 {
		opts.LedgerBackoff = defaultLedgerBackoff
	}
	if opts.LedgerTimeout <= 0 {
		opts.LedgerTimeout = defaultLedgerTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BirthdayJob{
		users:       users,
		ledger:      ledger,
		mailer:      mailer,
		broadcaster: broadcaster,
		logger:      logger,
		opts:        opts,
	}
}

// TargetDate returns tomorrow relative to now, on now's clock.
func TargetDate(now time.Time) (time.Time, string) {
	target := now.AddDate(0, 0, 1)
	return target, target.Format(notification.DateLayout)
}

// Run performs one tick. It never records a run unless delivery was attempted.
func (j *BirthdayJob) Run(ctx context.Context) (*RunResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		metrics.IncJobRun("busy")
		return nil, ErrRunInProgress
	}
	defer j.running.Store(false)

	res, err := j.run(ctx)
	metrics.IncJobRun(outcomeLabel(res, err))
	return res, err
}

// outcomeLabel is the metrics label for a finished run.
func outcomeLabel(res *RunResult, err error) string {
	switch {
	case errors.Is(err, ErrLedgerWrite):
		return "ledger_failed"
	case err != nil || res == nil:
		return "failed"
	default:
		return string(res.Outcome)
	}
}

func (j *BirthdayJob) run(ctx context.Context) (*RunResult, error) {
	target, targetDate := TargetDate(j.opts.Now())
	logCtx := j.logger.WithFields(logrus.Fields{
		"run_id":      uuid.NewString(),
		"target_date": targetDate,
	})
	logCtx.Info("Birthday job started")

	// 1. Idempotency guard
	existing, err := j.ledger.FindByDate(ctx, targetDate)
	if err != nil && !errors.Is(err, notification.ErrRunNotFound) {
		logCtx.WithError(err).Error("Failed to check notification ledger")
		return nil, fmt.Errorf("failed to check ledger for %s: %w", targetDate, err)
	}
	if existing != nil {
		logCtx.WithField("recorded_at", existing.CreatedAt).Warn("Reminders already sent for target date. Skipping.")
		return &RunResult{Outcome: OutcomeSkipped, TargetDate: targetDate, Recorded: true}, nil
	}

	// 2. Directory
	users, err := j.users.ListAll(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	// 3. Selection
	sel := birthday.Select(users, target)
	names := sel.Names()
	res := &RunResult{
		TargetDate:     targetDate,
		BirthdayPeople: names,
		Recipients:     sel.NotifyList,
	}
	logCtx = logCtx.WithFields(logrus.Fields{
		"users":      len(users),
		"birthdays":  len(sel.Subjects),
		"recipients": len(sel.NotifyList),
	})

	if len(sel.Subjects) == 0 {
		logCtx.Info("No birthdays tomorrow")
		res.Outcome = OutcomeNoBirthdays
		return res, nil
	}
	if len(sel.NotifyList) == 0 {
		logCtx.Warn("No recipients to notify")
		res.Outcome = OutcomeNoRecipients
		return res, nil
	}

	// 4. Delivery
	msg := birthday.Compose(names)
	res.SentTo, res.Failed = j.sendAll(ctx, logCtx, msg, sel.NotifyList)
	metrics.AddEmails("sent", len(res.SentTo))
	metrics.AddEmails("failed", len(res.Failed))

	if j.broadcaster != nil {
		if err := j.broadcaster.Broadcast(msg.TextBody); err != nil {
			logCtx.WithError(err).Error("Failed to broadcast reminder to team chat")
		}
	}

	// 5. Flip the guard, even for partial delivery.
	res.Outcome = OutcomeCompleted
	run := &notification.Run{
		TargetDate:     targetDate,
		SentTo:         res.SentTo,
		BirthdayPeople: names,
	}
	if err := j.record(context.WithoutCancel(ctx), logCtx, run); err != nil {
		metrics.IncLedgerWriteFailure()
		logCtx.WithError(err).WithField("sent_to", res.SentTo).
			Error("CRITICAL: reminders were sent but the run was not recorded; the next tick may send duplicates")
		return res, fmt.Errorf("%w for %s: %w", ErrLedgerWrite, targetDate, err)
	}
	res.Recorded = true

	logCtx.WithFields(logrus.Fields{
		"sent":   len(res.SentTo),
		"failed": len(res.Failed),
	}).Info("Birthday reminders sent")
	return res, nil
}

// sendAll delivers msg to every address and waits for all attempts. Both
// returned slices keep the order of addrs.
func (j *BirthdayJob) sendAll(ctx context.Context, logCtx *logrus.Entry, msg mail.Message, addrs []string) (sent, failed []string) {
	errs := make([]error, len(addrs))

	var g errgroup.Group
	g.SetLimit(j.opts.SendConcurrency)
	for i, addr := range addrs {
		i, addr := i, addr
		g.Go(func() error {
			errs[i] = j.sendOne(ctx, msg, addr)
			return nil
		})
	}
	_ = g.Wait()

	for i, addr := range addrs {
		if errs[i] != nil {
			logCtx.WithError(errs[i]).WithField("email", addr).Error("Send failed")
			failed = append(failed, addr)
			continue
		}
		logCtx.WithField("email", addr).Debug("Reminder sent")
		sent = append(sent, addr)
	}
	return sent, failed
}

func (j *BirthdayJob) sendOne(ctx context.Context, msg mail.Message, to string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, j.opts.SendTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mailer panic: %v", r)
		}
	}()

	msg.To = to
	return j.mailer.Send(ctx, msg)
}

// record writes run, retrying transient failures. A duplicate date means
// another writer got there first and is treated as success.
func (j *BirthdayJob) record(ctx context.Context, logCtx *logrus.Entry, run *notification.Run) error {
	ctx, cancel := context.WithTimeout(ctx, j.opts.LedgerTimeout)
	defer cancel()

	var err error
	for attempt := 1; attempt <= j.opts.LedgerAttempts; attempt++ {
		err = j.ledger.RecordRun(ctx, run)
		if err == nil {
			return nil
		}
		if errors.Is(err, notification.ErrRunAlreadyRecorded) {
			logCtx.Warn("Run for target date was recorded concurrently")
			return nil
		}
		logCtx.WithError(err).WithField("attempt", attempt).Warn("Ledger write failed")
		if attempt == j.opts.LedgerAttempts {
			break
		}
		if err := sleepCtx(ctx, time.Duration(attempt)*j.opts.LedgerBackoff); err != nil {
			return err
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
