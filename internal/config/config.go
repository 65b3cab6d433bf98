package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Transmission
	TransmissionHost string
	TransmissionPort int

	// Polling
	PollTimesPerDay int // Tracker cycles per day (default: 4)
	ShowConcurrency int // Shows processed in parallel per cycle (default: 4)

	// Matching
	MinResolution  string   // Default minimum resolution for new shows (default: 1080p)
	SourcePriority []string // Tie-break order between feed sources

	// Feeds
	NyaaBaseURL       string // Override for mirror deployments, empty for nyaa.si
	SubsPleaseBaseURL string // Override, empty for subsplease.org

	// Download
	DownloadDir string // Base directory for completed episodes

	// Server
	ServerPort string

	// HTTP
	HTTPTimeoutSeconds int

	// Paths
	DatabaseFile string // $CONFIG_DIR/animarr.db

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	// Set defaults
	viper.SetDefault("TRANSMISSION_PORT", 9091)
	viper.SetDefault("POLL_TIMES_PER_DAY", 4)
	viper.SetDefault("SHOW_CONCURRENCY", 4)
	viper.SetDefault("MIN_RESOLUTION", "1080p")
	viper.SetDefault("SOURCE_PRIORITY", "nyaa,subsplease,nyaa_scrape")
	viper.SetDefault("DOWNLOAD_DIR", "/data/Anime")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	viper.SetDefault("LOG_LEVEL", "info")

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "animarr")
	} else {
		// Convert relative path to absolute path
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	databaseFile := viper.GetString("DATABASE_FILE")
	if databaseFile == "" {
		databaseFile = filepath.Join(configDir, "animarr.db")
	}

	config := &Config{
		// Transmission
		TransmissionHost: viper.GetString("TRANSMISSION_HOST"),
		TransmissionPort: viper.GetInt("TRANSMISSION_PORT"),

		// Polling
		PollTimesPerDay: viper.GetInt("POLL_TIMES_PER_DAY"),
		ShowConcurrency: viper.GetInt("SHOW_CONCURRENCY"),

		// Matching
		MinResolution:  viper.GetString("MIN_RESOLUTION"),
		SourcePriority: splitList(viper.GetString("SOURCE_PRIORITY")),

		// Feeds
		NyaaBaseURL:       viper.GetString("NYAA_BASE_URL"),
		SubsPleaseBaseURL: viper.GetString("SUBSPLEASE_BASE_URL"),

		// Download
		DownloadDir: viper.GetString("DOWNLOAD_DIR"),

		// Server
		ServerPort: viper.GetString("SERVER_PORT"),

		// HTTP
		HTTPTimeoutSeconds: viper.GetInt("HTTP_TIMEOUT_SECONDS"),

		// Paths
		DatabaseFile: databaseFile,

		// Logging
		LogLevel: viper.GetString("LOG_LEVEL"),
	}

	// Validate required fields
	if config.TransmissionHost == "" {
		return nil, fmt.Errorf("TRANSMISSION_HOST is required")
	}
	if config.PollTimesPerDay < 1 || config.PollTimesPerDay > 24 {
		return nil, fmt.Errorf("POLL_TIMES_PER_DAY must be between 1 and 24")
	}
	if config.ShowConcurrency < 1 {
		return nil, fmt.Errorf("SHOW_CONCURRENCY must be at least 1")
	}

	return config, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
