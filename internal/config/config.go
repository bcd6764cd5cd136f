// Package config provides configuration management for dfslink.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/ini.v1"
)

// Config holds the gateway connection and proxy settings.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\dfslink\config
//   - Unix: ~/.config/dfslink/config
//
// INI format:
//
//	[gateway]
//	url = http://localhost:5100
//	auth_token = <session-token>
//
//	[proxy]
//	mode = no-proxy        ; no-proxy | system | basic | ntlm
//	host =
//	port = 8080
//	user =
//	password =
//	no_proxy =
//	warmup = false
type Config struct {
	// Gateway connection settings
	GatewayURL string `ini:"url"`
	AuthToken  string `ini:"auth_token"`

	// Proxy settings
	ProxyMode     string `ini:"mode"`
	ProxyHost     string `ini:"host"`
	ProxyPort     int    `ini:"port"`
	ProxyUser     string `ini:"user"`
	ProxyPassword string `ini:"password"`
	NoProxy       string `ini:"no_proxy"`
	ProxyWarmup   bool   `ini:"warmup"`
}

// Validation errors
var (
	ErrMissingGatewayURL = errors.New("gateway url is required")
	ErrInvalidProxyMode  = errors.New("proxy mode must be one of: no-proxy, system, basic, ntlm")
	ErrMissingProxyHost  = errors.New("proxy host is required for basic/ntlm proxy modes")
)

// EnvToken is the environment variable that overrides the stored auth token.
const EnvToken = "DFSLINK_TOKEN"

// DefaultGatewayURL is used when no configuration exists yet.
const DefaultGatewayURL = "http://localhost:5100"

// DefaultConfigPath returns the default path for the config file.
// - Windows: %USERPROFILE%\.config\dfslink\config
// - Unix: ~/.config/dfslink/config
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "dfslink")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "dfslink")
	}

	return filepath.Join(configDir, "config"), nil
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		GatewayURL: DefaultGatewayURL,
		ProxyMode:  "no-proxy",
		ProxyPort:  8080,
	}
}

// Load loads configuration from an INI file.
// A missing file yields defaults and no error; an unreadable or malformed
// file is an error. DFSLINK_TOKEN, when set, overrides the stored token.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnv(cfg)
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	gatewaySection := iniFile.Section("gateway")
	cfg.GatewayURL = gatewaySection.Key("url").MustString(cfg.GatewayURL)
	cfg.AuthToken = gatewaySection.Key("auth_token").String()

	proxySection := iniFile.Section("proxy")
	cfg.ProxyMode = proxySection.Key("mode").MustString("no-proxy")
	cfg.ProxyHost = proxySection.Key("host").String()
	cfg.ProxyPort = proxySection.Key("port").MustInt(8080)
	cfg.ProxyUser = proxySection.Key("user").String()
	cfg.ProxyPassword = proxySection.Key("password").String()
	cfg.NoProxy = proxySection.Key("no_proxy").String()
	cfg.ProxyWarmup = proxySection.Key("warmup").MustBool(false)

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if token := os.Getenv(EnvToken); token != "" {
		cfg.AuthToken = token
	}
}

// Save saves configuration to an INI file, creating parent directories as
// needed. Uses a temp file and rename so a crash never leaves a truncated
// config behind. The auth token is stored in the file, so permissions are
// restricted on Unix.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	gatewaySection, err := iniFile.NewSection("gateway")
	if err != nil {
		return fmt.Errorf("failed to create gateway section: %w", err)
	}
	gatewaySection.Key("url").SetValue(cfg.GatewayURL)
	gatewaySection.Key("auth_token").SetValue(cfg.AuthToken)

	proxySection, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxySection.Key("mode").SetValue(cfg.ProxyMode)
	proxySection.Key("host").SetValue(cfg.ProxyHost)
	proxySection.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxySection.Key("user").SetValue(cfg.ProxyUser)
	proxySection.Key("password").SetValue(cfg.ProxyPassword)
	proxySection.Key("no_proxy").SetValue(cfg.NoProxy)
	proxySection.Key("warmup").SetValue(fmt.Sprintf("%t", cfg.ProxyWarmup))

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks that the configuration can be used to reach the gateway.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.GatewayURL) == "" {
		return ErrMissingGatewayURL
	}

	switch strings.ToLower(cfg.ProxyMode) {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.ProxyHost) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}

	return nil
}

// BaseURL returns the gateway URL without a trailing slash.
func (cfg *Config) BaseURL() string {
	return strings.TrimSuffix(cfg.GatewayURL, "/")
}
