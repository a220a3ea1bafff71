package core

import "fmt"

// Status is the application lifecycle status detected from an email.
type Status string

const (
	StatusApplied    Status = "Applied"
	StatusInProgress Status = "In Progress"
	StatusInterview  Status = "Interview"
	StatusOffer      Status = "Offer"
	StatusRejected   Status = "Rejected"
)

// AllStatuses lists statuses in declaration order. The order doubles as the
// tie-break order for keyword scoring.
var AllStatuses = []Status{StatusApplied, StatusInProgress, StatusInterview, StatusOffer, StatusRejected}

// Priority returns the position of a status on the progression ladder
// Applied < In Progress < Interview < Offer. Rejected is a terminal sibling
// that does not sit on the ladder and returns 0.
func (s Status) Priority() int {
	switch s {
	case StatusApplied:
		return 1
	case StatusInProgress:
		return 2
	case StatusInterview:
		return 3
	case StatusOffer:
		return 4
	default:
		return 0
	}
}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusApplied, StatusInProgress, StatusInterview, StatusOffer, StatusRejected:
		return true
	}
	return false
}

// ParseStatus converts a string to a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// ShouldSupersede reports whether a detected status justifies an update
// suggestion over the stored one. Progression must be strictly upward;
// Rejected is terminal, so it supersedes any non-Rejected status and nothing
// supersedes it.
func ShouldSupersede(current, next Status) bool {
	if current == StatusRejected {
		return false
	}
	if next == StatusRejected {
		return true
	}
	return next.Priority() > current.Priority()
}
