// Package cli: interactive navigation shell.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dfslink/dfslink/internal/dfspath"
	"github.com/dfslink/dfslink/internal/events"
	"github.com/dfslink/dfslink/internal/listing"
	"github.com/dfslink/dfslink/internal/nav"
)

// newNavCmd creates the 'nav' command: an interactive shell over the
// navigator, the CLI stand-in for a file browser pane.
func newNavCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nav",
		Short: "Browse the gateway interactively",
		Long: `Interactive navigation shell.

Commands:
  cd <path>   Navigate to a directory (absolute or relative)
  ls          Show the current listing again
  back        Go back in history
  forward     Go forward in history
  home        Navigate to the root
  pwd         Print the current path
  history     Show the history stack
  retry       Refetch the current path after an error
  quit        Exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := getAPIClient()
			if err != nil {
				return err
			}

			ctx := GetContext()
			bus := events.NewEventBus(100)
			defer bus.Close()

			bridge := nav.NewBridge(nav.NewMemoryPort())
			navigator := nav.NewNavigator(ctx, bridge, listing.NewFetcher(client), bus)
			outcomes := bus.SubscribeAll()

			shell := &navShell{navigator: navigator, outcomes: outcomes}

			// Load the root before the first prompt.
			navigator.Home()
			shell.awaitAndPrint()

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Printf("dfslink:%s> ", navigator.CurrentPath().Display())
				if !scanner.Scan() {
					return scanner.Err()
				}
				if done := shell.dispatch(strings.TrimSpace(scanner.Text())); done {
					return nil
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
			}
		},
	}
}

type navShell struct {
	navigator *nav.Navigator
	outcomes  <-chan events.Event
}

// dispatch runs one shell command; returns true on quit.
func (s *navShell) dispatch(line string) bool {
	if line == "" {
		return false
	}
	fields := strings.Fields(line)
	command, rest := fields[0], fields[1:]

	switch command {
	case "quit", "exit", "q":
		return true
	case "cd":
		if len(rest) != 1 {
			fmt.Println("usage: cd <path>")
			return false
		}
		target := s.resolve(rest[0])
		if dfspath.Normalize(target).Equal(s.navigator.CurrentPath()) {
			// Already there; navigating would be a no-op with no event.
			s.printListing()
			return false
		}
		s.navigator.Navigate(target)
		s.awaitAndPrint()
	case "ls":
		s.printListing()
	case "back":
		if !s.navigator.History().CanBack() {
			fmt.Println("already at the oldest entry")
			return false
		}
		s.navigator.Back()
		s.awaitAndPrint()
	case "forward":
		if !s.navigator.History().CanForward() {
			fmt.Println("already at the newest entry")
			return false
		}
		s.navigator.Forward()
		s.awaitAndPrint()
	case "home":
		if s.navigator.CurrentPath().IsRoot() {
			s.printListing()
			return false
		}
		s.navigator.Home()
		s.awaitAndPrint()
	case "pwd":
		fmt.Println(s.navigator.CurrentPath().Display())
	case "history":
		cursor := s.navigator.History().Cursor()
		for i, entry := range s.navigator.History().Entries() {
			marker := "  "
			if i == cursor {
				marker = "* "
			}
			fmt.Printf("%s%s\n", marker, entry.Display())
		}
	case "retry":
		s.navigator.Retry()
		s.awaitAndPrint()
	default:
		fmt.Printf("unknown command %q\n", command)
	}
	return false
}

// resolve turns a cd argument into an absolute raw path. ".." walks up;
// other relative names descend from the current path.
func (s *navShell) resolve(arg string) string {
	if strings.HasPrefix(arg, "/") {
		return arg
	}
	current := s.navigator.CurrentPath()
	for _, seg := range strings.Split(arg, "/") {
		switch seg {
		case "", ".":
		case "..":
			current = current.Parent()
		default:
			next, err := current.Join(seg)
			if err != nil {
				fmt.Printf("invalid name %q\n", seg)
				return current.Display()
			}
			current = next
		}
	}
	return current.Display()
}

// awaitAndPrint waits for the in-flight navigation to settle, then
// prints the outcome. Superseded results are skipped.
func (s *navShell) awaitAndPrint() {
	for ev := range s.outcomes {
		navEv, ok := ev.(*events.NavEvent)
		if !ok || navEv.Superseded {
			continue
		}
		switch navEv.Type() {
		case events.EventNavLoaded:
			s.printListing()
			return
		case events.EventNavFailed:
			fmt.Printf("error: %v (use 'retry' to try again)\n", navEv.Err)
			return
		}
	}
}

func (s *navShell) printListing() {
	if s.navigator.Phase() != nav.PhaseLoaded {
		fmt.Println("no listing loaded")
		return
	}
	printListing(s.navigator.Listing(), true)
}
