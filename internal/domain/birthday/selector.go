// Package birthday selects who has a birthday on a target date, who should
// hear about it, and what they are told.
package birthday

import (
	"strings"
	"time"

	"birthday_notifier/internal/domain/user"
)

const monthDayLayout = "01-02"

// Selection is the partition of the directory for one target date.
type Selection struct {
	// Subjects are the users whose birthday is on the target date.
	Subjects []*user.User
	// NotifyList holds normalized, deduplicated addresses of everyone else,
	// in directory order.
	NotifyList []string
}

// Select partitions users for target. Only the month and day of target and
// of each date of birth are compared. Users with an invalid email are left
// out of every address set; users with no date of birth are never subjects.
func Select(users []*user.User, target time.Time) Selection {
	targetKey := target.Format(monthDayLayout)

	var sel Selection
	birthdayEmails := make(map[string]struct{})
	for _, u := range users {
		if u == nil || u.DateOfBirth.IsZero() {
			continue
		}
		if u.DateOfBirth.Format(monthDayLayout) != targetKey {
			continue
		}
		sel.Subjects = append(sel.Subjects, u)
		if email := NormalizeEmail(u.Email); IsValidEmail(email) {
			birthdayEmails[email] = struct{}{}
		}
	}

	seen := make(map[string]struct{})
	for _, u := range users {
		if u == nil {
			continue
		}
		email := NormalizeEmail(u.Email)
		if !IsValidEmail(email) {
			continue
		}
		if _, dup := seen[email]; dup {
			continue
		}
		seen[email] = struct{}{}
		if _, excluded := birthdayEmails[email]; excluded {
			continue
		}
		sel.NotifyList = append(sel.NotifyList, email)
	}
	return sel
}

// Names returns the display names of the subjects, skipping blank ones.
func (s Selection) Names() []string {
	names := make([]string, 0, len(s.Subjects))
	for _, u := range s.Subjects {
		if name := strings.TrimSpace(u.Name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
