// Package config provides functionality for managing configuration
// options for the client using command-line flags, environment
// variables, and an optional JSON config file.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the client.
type Options struct {
	// BaseURL is the API origin, e.g. https://api.example.com.
	BaseURL string `json:"base_url"`

	// CredentialsPath is where the session credential file lives.
	CredentialsPath string `json:"credentials_path"`

	// LogLevel selects the zap log level.
	LogLevel string `json:"log_level"`

	// RequestTimeout bounds every API call.
	RequestTimeout time.Duration `json:"-"`

	// RefreshTimeout bounds the token refresh call. A hanging refresh
	// would starve every queued request, so this is always finite.
	RefreshTimeout time.Duration `json:"-"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.BaseURL, "url", "http://localhost:8080", "API base URL")
	flag.StringVar(&options.CredentialsPath, "credentials", defaultCredentialsPath(), "path to the credential file")
	flag.StringVar(&options.LogLevel, "log-level", "info", "log level: debug|info|warn|error")
	flag.DurationVar(&options.RequestTimeout, "timeout", 30*time.Second, "per-request timeout")
	flag.DurationVar(&options.RefreshTimeout, "refresh-timeout", 10*time.Second, "token refresh timeout")
	flag.StringVar(&options.Config, "config", "", "path to config file")
	flag.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
}

func defaultCredentialsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "credentials.json"
	}
	return home + "/.portfoliocore/credentials.json"
}

// Parse parses the command-line flags, the optional .env file, and
// environment variables to set configuration values. It returns a
// pointer to the Options struct containing the parsed values.
func Parse() *Options {
	// A missing .env file is fine; values then come from the real
	// environment only.
	_ = godotenv.Load()

	flag.Parse()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if baseURL := os.Getenv("API_URL"); baseURL != "" {
		options.BaseURL = baseURL
	}
	if credPath := os.Getenv("CREDENTIALS_PATH"); credPath != "" {
		options.CredentialsPath = credPath
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	return options
}
