package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cycleworks/cyclegate/internal/events"
	"github.com/cycleworks/cyclegate/internal/poller"
	"github.com/cycleworks/cyclegate/internal/remote"
)

func newPollCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Poll all configured triggers until they fire",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pm := remote.NewProcessManager()
			go func() {
				<-ctx.Done()
				if err := pm.KillAll(); err != nil {
					log.Printf("error killing transport subprocesses: %v", err)
				}
			}()

			bus := events.NewBus()
			defer bus.Close()
			go logEvents(bus.Subscribe(256))

			runner := poller.New(cfg, bus, pm)
			if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

// logEvents mirrors poll events to the standard logger for headless runs.
func logEvents(sub <-chan events.Event) {
	for event := range sub {
		switch e := event.(type) {
		case events.PollAttemptEvent:
			log.Printf("poll %q attempt %d: not yet satisfied", e.Label, e.Attempt)
		case events.PollErrorEvent:
			log.Printf("poll %q error: %v", e.Label, e.Err)
		}
	}
}
