package config

import "fmt"

// Trigger types understood by the poll runner.
const (
	TypeFileExists   = "file_exists"
	TypeFileContains = "file_contains"
	TypeSuiteState   = "suite_state"
)

// TriggerDef defines one trigger instance for the poll runner. Which
// fields apply depends on Type; the gating fields apply to all types.
type TriggerDef struct {
	Type          string `json:"type"`
	DependentTask string `json:"dependent_task"`
	Point         string `json:"point"`

	// file_exists / file_contains
	User            string `json:"user,omitempty"`
	Host            string `json:"host,omitempty"`
	Path            string `json:"path,omitempty"`
	MaxAge          string `json:"max_age,omitempty"`
	ActionedFileLog string `json:"actioned_file_log,omitempty"`
	NumExpected     *int   `json:"num_expected,omitempty"`
	StrictRetry     bool   `json:"strict_retry,omitempty"`

	// file_contains
	Text        string `json:"text,omitempty"`
	Regex       bool   `json:"regex,omitempty"`
	MinNumLines int    `json:"min_num_lines,omitempty"`

	// suite_state
	TargetSuite string `json:"target_suite,omitempty"`
	Task        string `json:"task,omitempty"`
	Offset      string `json:"offset,omitempty"`
	Status      string `json:"status,omitempty"`
	Message     string `json:"message,omitempty"`
	RunDir      string `json:"run_dir,omitempty"`

	// Gating, all optional. Durations are ISO 8601 intervals (PT5M).
	DelayFirstPollUntil    string `json:"delay_first_poll_until,omitempty"`
	TimeoutFirstRun        string `json:"timeout_first_run,omitempty"`
	TimeoutCycleOffset     string `json:"timeout_cycle_offset,omitempty"`
	RequiredPreviousStatus string `json:"required_previous_status,omitempty"`
}

// Validate checks a trigger definition for the fields its type requires.
func (d TriggerDef) Validate(label string) error {
	switch d.Type {
	case TypeFileExists:
		if d.Path == "" {
			return fmt.Errorf("trigger %q: file_exists requires path", label)
		}
	case TypeFileContains:
		if d.Path == "" || d.Text == "" {
			return fmt.Errorf("trigger %q: file_contains requires path and text", label)
		}
	case TypeSuiteState:
		if d.TargetSuite == "" || d.Task == "" {
			return fmt.Errorf("trigger %q: suite_state requires target_suite and task", label)
		}
	default:
		return fmt.Errorf("trigger %q: unknown type %q", label, d.Type)
	}
	if d.Point == "" {
		return fmt.Errorf("trigger %q: point is required", label)
	}
	return nil
}

// SuiteConfig is the top-level configuration for one suite's trigger poll
// runner.
type SuiteConfig struct {
	Suite         string                `json:"suite"`
	SuiteShareDir string                `json:"suite_share_dir"`
	PollInterval  string                `json:"poll_interval"` // ISO 8601 interval
	MaxConcurrent int                   `json:"max_concurrent"`
	Triggers      map[string]TriggerDef `json:"triggers"`
}

// Validate checks the whole configuration.
func (c *SuiteConfig) Validate() error {
	if c.Suite == "" {
		return fmt.Errorf("suite name is required")
	}
	for label, def := range c.Triggers {
		if err := def.Validate(label); err != nil {
			return err
		}
	}
	return nil
}
