package subscription

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("subscription: invalid status transition")

var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusCancelled, StatusFailed},
	StatusActive:  {StatusCancelled},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func transitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Cycle is a billing cycle.
type Cycle string

const (
	CycleMonthly Cycle = "monthly"
	CycleAnnual  Cycle = "annual"
)

// ParseCycle accepts monthly/annual and the yearly alias.
func ParseCycle(v string) (Cycle, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "monthly", "month":
		return CycleMonthly, nil
	case "annual", "yearly", "year":
		return CycleAnnual, nil
	default:
		return "", fmt.Errorf("subscription: unknown billing cycle %q", v)
	}
}

// PeriodEnd returns the end of the billing period starting at from.
func (c Cycle) PeriodEnd(from time.Time) time.Time {
	if c == CycleAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
