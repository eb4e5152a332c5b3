package main

import (
	"github.com/spf13/cobra"

	"github.com/cycleworks/cyclegate/internal/config"
)

// rootFlags are shared by all subcommands.
type rootFlags struct {
	configPath string
	globalPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "cyclegate",
		Short: "External-condition triggers for cyclic workflow suites",
		Long: `cyclegate polls external conditions (file arrival, file contents,
foreign suite task states) that gate release of scheduled tasks, with
start delays, previous-cycle gating, and forced-completion timeouts.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "",
		"suite trigger config file (default .cyclegate/config.json)")
	root.PersistentFlags().StringVar(&flags.globalPath, "global-config", "",
		"global config file (default ~/.cyclegate/config.json)")

	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newPollCmd(flags))
	root.AddCommand(newMonitorCmd(flags))
	return root
}

// loadConfig resolves the configured or conventional config paths.
func loadConfig(flags *rootFlags) (*config.SuiteConfig, error) {
	if flags.configPath == "" && flags.globalPath == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(flags.globalPath, flags.configPath)
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}
