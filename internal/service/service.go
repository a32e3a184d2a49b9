// Package service implements the application's use cases on top of the
// repositories, the access policy and the domain rules.
package service

import (
	"time"
)

// Clock supplies the current instant. Services evaluate every time-dependent
// rule against a single reading per call.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

func clockOrDefault(now Clock) Clock {
	if now == nil {
		return utcNow
	}
	return now
}
