// Package rules holds the project lifecycle and pledge acceptance rules.
// Everything here is a pure function of its arguments and the supplied
// instant; nothing reads the clock or touches storage.
package rules

import (
	"time"

	"crowdfund/internal/models"
)

// Day is the length of one unit of project duration.
const Day = 24 * time.Hour

// ClosesAt returns the instant a published project stops accepting pledges,
// or nil for a draft.
func ClosesAt(pubDate *time.Time, duration int) *time.Time {
	if pubDate == nil {
		return nil
	}
	closes := pubDate.Add(time.Duration(duration) * Day)
	return &closes
}

// IsOpen reports whether a project with the given publication instant and
// duration accepts pledges at now. Drafts are never open. A project closes
// exactly at pubDate + duration days.
func IsOpen(pubDate *time.Time, duration int, now time.Time) bool {
	closes := ClosesAt(pubDate, duration)
	if closes == nil {
		return false
	}
	return now.Before(*closes)
}

// ProjectIsOpen is IsOpen applied to a stored project.
func ProjectIsOpen(p *models.Project, now time.Time) bool {
	return IsOpen(p.PubDate, p.Duration, now)
}
