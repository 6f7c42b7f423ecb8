// Package config loads the worker and monitor configuration from an
// optional YAML file plus the environment, and resolves the Pinata JWT
// from the OS keyring when it is not configured directly. The resulting
// struct is passed explicitly into every entry point; nothing reads the
// process environment after loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/zalando/go-keyring"
)

// Keyring coordinates for the Pinata JWT fallback.
const (
	KeyringService = "ytipfs-worker"
	KeyringUser    = "pinata-jwt"
)

// Indirection for tests: the zalando keyring talks to the real OS
// secret service.
var (
	keyringGet = keyring.Get
	keyringSet = keyring.Set
)

// Config carries every tunable of the worker, the monitor and the CLI.
// Environment names follow the original service deployment.
type Config struct {
	// Worker
	Port           int    `yaml:"port" env:"PORT" env-default:"8080"`
	DownloadDir    string `yaml:"download_dir" env:"DOWNLOAD_DIR" env-default:"/data"`
	YtdlFormat     string `yaml:"ytdl_format" env:"YTDL_FORMAT" env-default:"bv*+ba/bestvideo+bestaudio/best"`
	OutputTemplate string `yaml:"output_template" env:"OUTPUT_TEMPLATE" env-default:"%(title).80s-%(id)s.%(ext)s"`
	MaxFileMB      int64  `yaml:"max_file_mb" env:"MAX_FILE_MB" env-default:"1500"`
	KeepFiles      bool   `yaml:"keep_files" env:"KEEP_FILES"`
	GatewayURL     string `yaml:"gateway_url" env:"GATEWAY_URL" env-default:"https://ipfs.skatehive.app/ipfs/"`
	PinataJWT      string `yaml:"pinata_jwt" env:"PINATA_JWT"`

	// Monitor
	CookieFile         string `yaml:"cookie_file" env:"COOKIE_FILE"`
	AlertThresholdDays int    `yaml:"alert_threshold_days" env:"ALERT_THRESHOLD_DAYS" env-default:"7"`
	DiscordWebhookURL  string `yaml:"discord_webhook_url" env:"DISCORD_WEBHOOK_URL"`
	NotifyAlways       bool   `yaml:"notify_always" env:"NOTIFY_ALWAYS" env-default:"true"`
	CheckSchedule      string `yaml:"check_schedule" env:"CHECK_SCHEDULE" env-default:"0 * * * *"`
	LogFile            string `yaml:"log_file" env:"LOG_FILE"`

	// CLI
	HistoryDB string `yaml:"history_db" env:"HISTORY_DB"`
}

// Load reads the configuration from the YAML file at path (when path is
// non-empty) merged with the environment, then fills the home-directory
// dependent defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.applyHomeDefaults(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyHomeDefaults fills the paths whose defaults depend on the invoking
// user's home directory and cannot be expressed as struct tags.
func (c *Config) applyHomeDefaults() error {
	if c.LogFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		c.LogFile = filepath.Join(home, "ytipfs-cookie-check.log")
	}
	if c.HistoryDB == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolving config directory: %w", err)
		}
		c.HistoryDB = filepath.Join(dir, "ytipfs", "history.db")
	}
	return nil
}

// MaxBytes converts the configured megabyte cap to bytes.
func (c *Config) MaxBytes() int64 {
	return c.MaxFileMB * 1024 * 1024
}

// StatusURL is the local endpoint the liveness probe checks.
func (c *Config) StatusURL() string {
	return fmt.Sprintf("http://localhost:%d/cookies/status", c.Port)
}

// ResolvePinataJWT returns the configured JWT, falling back to the OS
// keyring entry written by `ytipfs auth`.
func (c *Config) ResolvePinataJWT() (string, error) {
	if c.PinataJWT != "" {
		return c.PinataJWT, nil
	}
	token, err := keyringGet(KeyringService, KeyringUser)
	if err != nil {
		return "", fmt.Errorf("pinata JWT not configured and keyring lookup failed: %w", err)
	}
	return token, nil
}

// StorePinataJWT saves the JWT into the OS keyring for later runs.
func StorePinataJWT(token string) error {
	if token == "" {
		return fmt.Errorf("refusing to store an empty JWT")
	}
	if err := keyringSet(KeyringService, KeyringUser, token); err != nil {
		return fmt.Errorf("storing pinata JWT in keyring: %w", err)
	}
	return nil
}
