package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Log level for run and watch (debug, info, warn, error)
	// Default: "info"
	LogLevel string

	// Upper bound on a single scenario step
	// Default: 10s
	StepTimeout time.Duration

	// How far before the end SeekToEnd seeks
	// Default: 100ms
	SeekEndOffset time.Duration

	// Path of the SQLite session journal
	// Default: ~/.config/playwait/journal.db
	JournalPath string

	// Maximum table width for history and events output (0 = unlimited)
	OutputWidth int

	// Watch UI refresh interval
	// Default: 100ms
	RefreshRate time.Duration

	// Simulated player settings
	Player PlayerConfig
}

// PlayerConfig holds simulated player configuration
type PlayerConfig struct {
	TickInterval    time.Duration
	ReadyDelay      time.Duration
	LoadDelay       time.Duration
	DefaultDuration time.Duration
	Autoplay        bool
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, configDir)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// PLAYWAIT_PLAYER_TICK_INTERVAL overrides player.tick_interval
	v.SetEnvPrefix("PLAYWAIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		LogLevel:      v.GetString("log_level"),
		StepTimeout:   v.GetDuration("step_timeout"),
		SeekEndOffset: v.GetDuration("seek_end_offset"),
		JournalPath:   v.GetString("journal_path"),
		OutputWidth:   v.GetInt("output_width"),
		RefreshRate:   v.GetDuration("refresh_rate"),
		Player: PlayerConfig{
			TickInterval:    v.GetDuration("player.tick_interval"),
			ReadyDelay:      v.GetDuration("player.ready_delay"),
			LoadDelay:       v.GetDuration("player.load_delay"),
			DefaultDuration: v.GetDuration("player.default_duration"),
			Autoplay:        v.GetBool("player.autoplay"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("log_level", "info")
	v.SetDefault("step_timeout", 10*time.Second)
	v.SetDefault("seek_end_offset", 100*time.Millisecond)
	v.SetDefault("journal_path", filepath.Join(configDir, "journal.db"))
	v.SetDefault("output_width", 0)
	v.SetDefault("refresh_rate", 100*time.Millisecond)
	v.SetDefault("player.tick_interval", 250*time.Millisecond)
	v.SetDefault("player.ready_delay", 10*time.Millisecond)
	v.SetDefault("player.load_delay", 50*time.Millisecond)
	v.SetDefault("player.default_duration", time.Second)
	v.SetDefault("player.autoplay", false)
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "playwait")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	configFile := filepath.Join(getConfigDir(), "config.yaml")

	v.Set("log_level", c.LogLevel)
	v.Set("step_timeout", c.StepTimeout.String())
	v.Set("seek_end_offset", c.SeekEndOffset.String())
	v.Set("journal_path", c.JournalPath)
	v.Set("output_width", c.OutputWidth)
	v.Set("refresh_rate", c.RefreshRate.String())
	v.Set("player.tick_interval", c.Player.TickInterval.String())
	v.Set("player.ready_delay", c.Player.ReadyDelay.String())
	v.Set("player.load_delay", c.Player.LoadDelay.String())
	v.Set("player.default_duration", c.Player.DefaultDuration.String())
	v.Set("player.autoplay", c.Player.Autoplay)

	// Write to file
	return v.WriteConfigAs(configFile)
}
