// Package cfg loads service configuration from a YAML file selected by
// CONFIG_FILE, falling back to environment variables. Environment values
// override file values either way.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	DataPath        string
	StatsWindow     int
	RetrainInterval time.Duration
	MetricsPort     int

	GamesAPIURL    string
	ScoreStreamURL string
	Seasons        []string
	RESTTimeout    time.Duration
}

type ConfigFile struct {
	Model struct {
		StatsWindow     int    `yaml:"statsWindow"`
		RetrainInterval string `yaml:"retrainInterval"`
	} `yaml:"model"`

	Collector struct {
		GamesAPIURL    string   `yaml:"gamesAPIURL"`
		ScoreStreamURL string   `yaml:"scoreStreamURL"`
		Seasons        []string `yaml:"seasons"`
		RESTTimeout    string   `yaml:"restTimeout"`
	} `yaml:"collector"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsPort int    `yaml:"metricsPort"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	retrain, err := time.ParseDuration(getEnvOrDefault("RETRAIN_INTERVAL", config.Model.RetrainInterval))
	if err != nil {
		retrain = 6 * time.Hour
	}

	restTimeout, err := time.ParseDuration(getEnvOrDefault("REST_TIMEOUT", config.Collector.RESTTimeout))
	if err != nil {
		restTimeout = 10 * time.Second
	}

	settings := Settings{
		DataPath:        getEnvOrDefault("DATA_PATH", config.System.DataPath),
		StatsWindow:     getIntFromEnvOrConfig("STATS_WINDOW", config.Model.StatsWindow),
		RetrainInterval: retrain,
		MetricsPort:     getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort),
		GamesAPIURL:     getEnvOrDefault("GAMES_API_URL", config.Collector.GamesAPIURL),
		ScoreStreamURL:  getEnvOrDefault("SCORE_STREAM_URL", config.Collector.ScoreStreamURL),
		Seasons:         getSeasonsFromEnvOrConfig(config.Collector.Seasons),
		RESTTimeout:     restTimeout,
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DataPath:        getEnvOrDefault("DATA_PATH", "data"),
		StatsWindow:     getIntOrDefault("STATS_WINDOW", 5),
		RetrainInterval: getDurationOrDefault("RETRAIN_INTERVAL", 6*time.Hour),
		MetricsPort:     getIntOrDefault("METRICS_PORT", 9090),
		GamesAPIURL:     os.Getenv("GAMES_API_URL"), // optional, disables the collector when empty
		ScoreStreamURL:  os.Getenv("SCORE_STREAM_URL"),
		Seasons:         splitOrDefault(os.Getenv("SEASONS"), nil),
		RESTTimeout:     getDurationOrDefault("REST_TIMEOUT", 10*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.DataPath == "" {
		s.DataPath = "data"
	}
	if s.StatsWindow == 0 {
		s.StatsWindow = 5
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 9090
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func splitOrDefault(v string, def []string) []string {
	if v == "" {
		return def
	}
	return strings.Split(v, ",")
}

func getSeasonsFromEnvOrConfig(configSeasons []string) []string {
	if env := os.Getenv("SEASONS"); env != "" {
		return strings.Split(env, ",")
	}
	return configSeasons
}

// validateSettings performs bounds checks on configuration values.
func validateSettings(settings *Settings) error {
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if settings.StatsWindow < 1 || settings.StatsWindow > 100 {
		return fmt.Errorf("stats window must be between 1 and 100 games, got %d", settings.StatsWindow)
	}
	if settings.RetrainInterval != 0 && settings.RetrainInterval < time.Minute {
		return fmt.Errorf("retrain interval must be at least 1m, got %v", settings.RetrainInterval)
	}
	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}
	return nil
}
