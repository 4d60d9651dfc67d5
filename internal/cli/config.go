package cli

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/starscrape/starscrape/pkg/errors"
)

// Environment variables consulted when the credential flags are empty.
const (
	envUsername = "GITHUB_USERNAME"
	envCookie   = "GITHUB_COOKIE"
)

// credentials is the resolved identity used to open a session.
type credentials struct {
	Username string
	Cookie   string
}

// fileConfig mirrors ~/.config/starscrape/config.toml. All fields are
// optional; flags and environment variables take precedence.
type fileConfig struct {
	Username  string  `toml:"username"`
	Cookie    string  `toml:"cookie"`
	Delay     float64 `toml:"delay"`
	Sort      string  `toml:"sort"`
	Direction string  `toml:"direction"`
	Filter    string  `toml:"filter"`
	Redis     string  `toml:"redis"`
}

// configPath returns the config file location using XDG standard
// (~/.config/starscrape/config.toml).
func configPath() (string, error) {
	if cfgHome := os.Getenv("XDG_CONFIG_HOME"); cfgHome != "" {
		return filepath.Join(cfgHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// loadFileConfig reads the config file if it exists. A missing or unreadable
// file yields the zero config.
func loadFileConfig() fileConfig {
	var cfg fileConfig
	path, err := configPath()
	if err != nil {
		return cfg
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return fileConfig{}
	}
	return cfg
}

// resolveCredentials resolves username and cookie in precedence order:
// explicit flags, then the process environment (with an optional .env file
// loaded first), then the config file. Missing credentials after all three
// steps are a fatal configuration error.
func resolveCredentials(user, cookie string, cfg fileConfig) (credentials, error) {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	if user == "" {
		user = os.Getenv(envUsername)
	}
	if cookie == "" {
		cookie = os.Getenv(envCookie)
	}
	if user == "" {
		user = cfg.Username
	}
	if cookie == "" {
		cookie = cfg.Cookie
	}

	if user == "" || cookie == "" {
		return credentials{}, errors.New(errors.ErrCodeInvalidConfig,
			"missing credentials: set --user and --cookie, export %s and %s, or add them to the config file",
			envUsername, envCookie)
	}
	return credentials{Username: user, Cookie: cookie}, nil
}
