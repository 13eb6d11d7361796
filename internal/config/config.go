package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	APIBaseURL     string        `env:"RENTLINK_API_URL" envDefault:"https://api.rentlink.app"`
	RequestTimeout time.Duration `env:"RENTLINK_REQUEST_TIMEOUT" envDefault:"15s"`
	RetryAttempts  int           `env:"RENTLINK_RETRY_ATTEMPTS" envDefault:"4"`
	RetryBaseDelay time.Duration `env:"RENTLINK_RETRY_BASE_DELAY" envDefault:"500ms"`
	DBPath         string        `env:"RENTLINK_DB"`
	LogLevel       string        `env:"RENTLINK_LOG_LEVEL" envDefault:"info"`
}

// Load reads configuration from environment variables. Flags in main take
// precedence over the values returned here.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		path, err := defaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = path
	}
	return cfg, nil
}

// DataDir is the directory holding the local database and log file.
func (c Config) DataDir() string {
	return filepath.Dir(c.DBPath)
}

func defaultDBPath() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "windows":
		dataDir = os.Getenv("APPDATA")
		if dataDir == "" {
			dataDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support")
	default:
		dataDir = os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(dataDir, "rentlink", "rentlink.db"), nil
}
