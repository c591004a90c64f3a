package billing

import "strings"

// Status mirrors the provider's subscription status.
type Status string

const (
	StatusIncomplete        Status = "incomplete"
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceled          Status = "canceled"
	StatusIncompleteExpired Status = "incomplete_expired"
	StatusUnpaid            Status = "unpaid"
	StatusPaused            Status = "paused"
)

// ParseStatus returns "" for values the lifecycle does not know.
func ParseStatus(s string) Status {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusIncomplete, StatusTrialing, StatusActive, StatusPastDue,
		StatusCanceled, StatusIncompleteExpired, StatusUnpaid, StatusPaused:
		return st
	}
	return ""
}

func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusIncompleteExpired
}

// Entitling statuses grant the base membership.
func (s Status) Entitling() bool {
	return s == StatusActive || s == StatusTrialing
}

// lifecycleRank orders statuses along the lifecycle. It only breaks ties
// between events carrying the same provider timestamp.
func lifecycleRank(s Status) int {
	switch s {
	case StatusIncomplete:
		return 0
	case StatusTrialing:
		return 1
	case StatusActive:
		return 2
	case StatusPastDue, StatusPaused:
		return 3
	case StatusUnpaid:
		return 4
	case StatusCanceled, StatusIncompleteExpired:
		return 5
	}
	return -1
}

// CanTransition reports whether the lifecycle allows from -> to.
// Terminal statuses are sticky and nothing goes back to incomplete.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == StatusIncomplete {
		return false
	}
	return lifecycleRank(to) >= 0
}

// ShouldApply decides whether an incoming provider update (status observed at
// nextAt, unix seconds) replaces the stored one (observed at curAt).
// Older updates are stale; same-second updates only move forward.
func ShouldApply(cur Status, curAt int64, next Status, nextAt int64) bool {
	if !CanTransition(cur, next) {
		return false
	}
	if nextAt < curAt {
		return false
	}
	if nextAt == curAt {
		return lifecycleRank(next) >= lifecycleRank(cur)
	}
	return true
}
