package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dfslink/dfslink/internal/session"
)

// newWhoamiCmd creates the 'whoami' command.
func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current gateway session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			provider := session.NewProvider(client)
			status, err := provider.Status(GetContext())
			if err != nil {
				return fmt.Errorf("session probe: %w", err)
			}

			if !status.LoggedIn() {
				fmt.Println("Not logged in.")
				return nil
			}

			fmt.Printf("Logged in as: %s\n", status.User)
			if status.Admin() {
				fmt.Println("Role: admin")
			}
			return nil
		},
	}
}
