// Package notification holds the ledger of completed birthday notification runs.
package notification

import (
	"errors"
	"time"
)

var (
	ErrRunNotFound        = errors.New("notification run not found")
	ErrRunAlreadyRecorded = errors.New("notification run already recorded for this date")
)

// DateLayout is the format of Run.TargetDate.
const DateLayout = "2006-01-02"

// Run records one completed notification run. TargetDate is the unique key:
// its presence means the reminder for that date was handled.
type Run struct {
	ID             int64
	TargetDate     string
	SentTo         []string
	BirthdayPeople []string
	CreatedAt      time.Time
}
