// Package events carries trigger poll lifecycle events from the poll
// runner to its consumers (the monitor TUI, the poll command's logger).
package events

import "time"

// Event is the base interface for all poll events.
type Event interface {
	EventType() string
	TriggerLabel() string
}

// Event type constants
const (
	EventTypePollAttempt      = "trigger.poll"
	EventTypeTriggerSatisfied = "trigger.satisfied"
	EventTypeTriggerTimedOut  = "trigger.timed_out"
	EventTypePollError        = "trigger.poll_error"
)

// PollAttemptEvent is published after every poll of a still-unsatisfied
// trigger.
type PollAttemptEvent struct {
	Label     string
	Attempt   int
	Attrs     map[string]string
	Timestamp time.Time
}

func (e PollAttemptEvent) EventType() string    { return EventTypePollAttempt }
func (e PollAttemptEvent) TriggerLabel() string { return e.Label }

// TriggerSatisfiedEvent is published when a trigger's condition is
// genuinely met.
type TriggerSatisfiedEvent struct {
	Label     string
	Attempts  int
	Attrs     map[string]string
	Timestamp time.Time
}

func (e TriggerSatisfiedEvent) EventType() string    { return EventTypeTriggerSatisfied }
func (e TriggerSatisfiedEvent) TriggerLabel() string { return e.Label }

// TriggerTimedOutEvent is published when a trigger is forced open by its
// timeout rather than its condition.
type TriggerTimedOutEvent struct {
	Label     string
	Attempts  int
	Attrs     map[string]string
	Timestamp time.Time
}

func (e TriggerTimedOutEvent) EventType() string    { return EventTypeTriggerTimedOut }
func (e TriggerTimedOutEvent) TriggerLabel() string { return e.Label }

// PollErrorEvent is published when the runner itself hits a problem, e.g. a
// trigger definition that cannot be built.
type PollErrorEvent struct {
	Label     string
	Err       error
	Timestamp time.Time
}

func (e PollErrorEvent) EventType() string    { return EventTypePollError }
func (e PollErrorEvent) TriggerLabel() string { return e.Label }
