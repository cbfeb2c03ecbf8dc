package notification

import "context"

// Ledger is the durable store of completed runs, keyed by target date.
type Ledger interface {
	// FindByDate returns ErrRunNotFound when no run exists for date.
	FindByDate(ctx context.Context, date string) (*Run, error)
	// RecordRun returns ErrRunAlreadyRecorded if the date is taken.
	RecordRun(ctx context.Context, run *Run) error
	// ListRecent returns the latest runs, newest target date first.
	ListRecent(ctx context.Context, limit int) ([]*Run, error)
}
