package config

// DefaultConfig returns the default configuration. Triggers come entirely
// from the loaded files; only the runner knobs have built-in values.
func DefaultConfig() *SuiteConfig {
	return &SuiteConfig{
		PollInterval:  "PT10S",
		MaxConcurrent: 4,
		Triggers:      map[string]TriggerDef{},
	}
}
