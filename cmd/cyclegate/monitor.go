package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/cycleworks/cyclegate/internal/events"
	"github.com/cycleworks/cyclegate/internal/poller"
	"github.com/cycleworks/cyclegate/internal/remote"
	"github.com/cycleworks/cyclegate/internal/tui"
)

func newMonitorCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Poll all configured triggers with a live terminal monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pm := remote.NewProcessManager()
			bus := events.NewBus()
			defer bus.Close()

			p := tea.NewProgram(tui.New(bus, cfg.Suite), tea.WithAltScreen())

			runCtx, cancelRun := context.WithCancel(ctx)
			defer cancelRun()
			runner := poller.New(cfg, bus, pm)
			go func() {
				if err := runner.Run(runCtx); err != nil && runCtx.Err() == nil {
					log.Printf("poll runner: %v", err)
				}
			}()

			errChan := make(chan error, 1)
			go func() {
				_, err := p.Run()
				errChan <- err
			}()

			select {
			case err := <-errChan:
				// Monitor exited (user pressed q); stop polling too.
				cancelRun()
				if killErr := pm.KillAll(); killErr != nil {
					log.Printf("error killing transport subprocesses: %v", killErr)
				}
				return err
			case <-ctx.Done():
				stop()
				cancelRun()
				if err := pm.KillAll(); err != nil {
					log.Printf("error killing transport subprocesses: %v", err)
				}
				p.Quit()

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				select {
				case err := <-errChan:
					return err
				case <-shutdownCtx.Done():
					log.Println("shutdown timeout exceeded, forcing exit")
					return nil
				}
			}
		},
	}
}
