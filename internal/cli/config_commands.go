// Package cli provides configuration management commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dfslink/dfslink/internal/api"
	"github.com/dfslink/dfslink/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dfslink configuration",
		Long: `Configuration management commands.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the gateway connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup.

The configuration is saved to ~/.config/dfslink/config with mode 0600.
Use --force to overwrite an existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(configPath); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", configPath)
					fmt.Println("Use --force to overwrite or run 'config show' to view it.")
					return nil
				}
			}

			fmt.Println("dfslink configuration setup")
			fmt.Println()

			cfg := config.New()

			url, err := readLine("Gateway URL", config.DefaultGatewayURL)
			if err != nil {
				return err
			}
			cfg.GatewayURL = url

			token, err := readSecret("Auth token (empty to skip)")
			if err != nil {
				return err
			}
			cfg.AuthToken = token

			useProxy, err := readLine("Configure proxy? (y/N)", "n")
			if err != nil {
				return err
			}
			if useProxy == "y" || useProxy == "yes" {
				fmt.Println()
				fmt.Println("Proxy modes: no-proxy, system, basic, ntlm")

				mode, err := readLine("Proxy mode", "system")
				if err != nil {
					return err
				}
				cfg.ProxyMode = mode

				if mode == "basic" || mode == "ntlm" {
					if cfg.ProxyHost, err = readLine("Proxy host", ""); err != nil {
						return err
					}
					portStr, err := readLine("Proxy port", "8080")
					if err != nil {
						return err
					}
					if port, perr := strconv.Atoi(portStr); perr == nil && port > 0 {
						cfg.ProxyPort = port
					}
					if cfg.ProxyUser, err = readLine("Proxy user (empty to skip)", ""); err != nil {
						return err
					}
					if cfg.ProxyUser != "" {
						if cfg.ProxyPassword, err = readSecret("Proxy password"); err != nil {
							return err
						}
					}
				}
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.Save(cfg, configPath); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Println()
			fmt.Printf("Configuration saved to: %s\n", configPath)
			fmt.Println("Test it with: dfslink config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the merged configuration from:
  1. Configuration file (~/.config/dfslink/config)
  2. DFSLINK_TOKEN environment variable
  3. Command-line flags (--gateway-url, --token)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Print("Configuration\n\n")
			fmt.Printf("Gateway URL: %s\n", cfg.GatewayURL)
			if cfg.AuthToken != "" {
				// Never print any portion of the token.
				fmt.Printf("Auth token:  <set (%d chars)>\n", len(cfg.AuthToken))
			} else {
				fmt.Println("Auth token:  <not set>")
			}
			fmt.Println()
			fmt.Printf("Proxy mode: %s\n", cfg.ProxyMode)
			if cfg.ProxyHost != "" {
				fmt.Printf("Proxy host: %s\n", cfg.ProxyHost)
				fmt.Printf("Proxy port: %d\n", cfg.ProxyPort)
			}

			path := cfgFile
			if path == "" {
				path, _ = config.DefaultConfigPath()
			}
			fmt.Println()
			fmt.Printf("Configuration file: %s\n", path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Println("  (file does not exist - using defaults)")
			}
			return nil
		},
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the gateway connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			fmt.Printf("Gateway: %s\n", cfg.BaseURL())
			fmt.Println("Testing connection...")

			client, err := api.NewClient(cfg)
			if err != nil {
				return fmt.Errorf("failed to create API client: %w", err)
			}

			ctx, cancel := context.WithTimeout(GetContext(), 10*time.Second)
			defer cancel()

			status, err := client.SessionStatus(ctx)
			if err != nil {
				fmt.Println("Connection FAILED")
				return fmt.Errorf("connection test failed: %w", err)
			}

			fmt.Println("Connection OK")
			if status.LoggedIn() {
				fmt.Printf("Logged in as: %s\n", status.User)
			} else {
				fmt.Println("Reachable, but not logged in.")
			}
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			fmt.Println(path)
			if _, err := os.Stat(path); err == nil {
				fmt.Println("Status: file exists")
			} else {
				fmt.Println("Status: file does not exist (create with 'dfslink config init')")
			}
			return nil
		},
	}
}
