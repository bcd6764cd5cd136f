package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dfslink/dfslink/internal/events"
	"github.com/dfslink/dfslink/internal/health"
)

// newHealthCmd creates the 'health' command.
func newHealthCmd() *cobra.Command {
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show storage node health",
		Long: `Query the gateway's node dashboard.

Examples:
  dfslink health
  dfslink health --watch --interval 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			bus := events.NewEventBus(10)
			defer bus.Close()
			monitor := health.NewMonitor(client, bus, GetLogger(), interval)

			if !watch {
				nodes, err := monitor.Check(GetContext())
				if err != nil {
					return err
				}
				for _, line := range health.Summarize(nodes) {
					fmt.Println(line)
				}
				return nil
			}

			snapshots := bus.Subscribe(events.EventNodeHealth)
			go monitor.Run(GetContext())

			for {
				select {
				case <-GetContext().Done():
					return nil
				case ev := <-snapshots:
					snapshot := ev.(*events.NodeHealthEvent)
					fmt.Printf("--- %s ---\n", snapshot.Timestamp().Format("15:04:05"))
					for id, status := range snapshot.Nodes {
						fmt.Printf("%s: %s\n", id, status)
					}
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll continuously")
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "Polling interval with --watch")
	return cmd
}
