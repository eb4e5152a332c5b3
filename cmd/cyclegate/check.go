package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cycleworks/cyclegate/internal/poller"
	"github.com/cycleworks/cyclegate/internal/remote"
)

// checkOutput is the JSON shape printed by the check command: the same
// 2-tuple the scheduler consumes.
type checkOutput struct {
	Satisfied bool              `json:"satisfied"`
	Attrs     map[string]string `json:"attrs"`
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <trigger-label>",
		Short: "Evaluate one configured trigger once and print the result",
		Long: `Evaluate a single trigger from the suite config exactly once, the way
one scheduler poll would, and print the (satisfied, attrs) result as
JSON. Exits 0 when satisfied, 3 when not yet satisfied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			label := args[0]
			def, ok := cfg.Triggers[label]
			if !ok {
				return fmt.Errorf("no trigger %q in config", label)
			}

			pm := remote.NewProcessManager()
			w, err := poller.Build(label, def, cfg, pm)
			if err != nil {
				return err
			}

			res := w.Check(cmd.Context())
			out, err := json.MarshalIndent(checkOutput{
				Satisfied: res.Satisfied,
				Attrs:     res.Attrs,
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))

			if !res.Satisfied {
				os.Exit(3)
			}
			return nil
		},
	}
	return cmd
}
