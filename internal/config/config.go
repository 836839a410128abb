package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/scansplit/scansplit/internal/errors"
	"github.com/spf13/viper"
)

// DefaultMaxScanSize is the size limit at which scans are split: 5 GiB,
// the largest input the signature scan backend accepts.
const DefaultMaxScanSize = 5 * 1024 * 1024 * 1024

// Config represents the complete scansplit configuration.
type Config struct {
	Hub     HubConfig     `mapstructure:"hub"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Detect  DetectConfig  `mapstructure:"detect"`
	Wait    WaitConfig    `mapstructure:"wait"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// HubConfig identifies and authenticates against the Black Duck server.
type HubConfig struct {
	// URL is the server URL, e.g. https://hub.example.com
	URL string `mapstructure:"url"`
	// Token is the API token. Prefer TokenFile so the token stays out of
	// shell history and config files checked into VCS.
	Token string `mapstructure:"token"`
	// TokenFile is a file containing the API token.
	TokenFile string `mapstructure:"token_file"`
	// Insecure disables TLS certificate verification (hub and Detect both)
	Insecure bool `mapstructure:"insecure"`
	// TimeoutSeconds is the per-request timeout for hub REST calls
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ScanConfig controls how the target directory is split.
type ScanConfig struct {
	// MaxScanSizeBytes is the size limit per scan unit (default: 5 GiB)
	MaxScanSizeBytes int64 `mapstructure:"max_scan_size_bytes"`
	// Exclude lists directory patterns omitted from sizing and scanning.
	// Patterns match a directory's base name or full path (glob syntax).
	Exclude []string `mapstructure:"exclude"`
}

// DetectConfig controls the Synopsys Detect invocation.
type DetectConfig struct {
	// JarPath is the synopsys-detect jar. The SYNOPSYS_DETECT_PATH
	// environment variable overrides the built-in default.
	JarPath string `mapstructure:"jar_path"`
	// PropertiesFile holds additional detect properties, one per line,
	// appended to every invocation.
	PropertiesFile string `mapstructure:"properties_file"`
}

// WaitConfig controls waiting for scan processing after all scans ran.
type WaitConfig struct {
	// Enabled turns on waiting (default: false)
	Enabled bool `mapstructure:"enabled"`
	// MaxChecks is how many times to poll before timing out
	// (default: 240, which is 20 minutes at the default delay)
	MaxChecks int `mapstructure:"max_checks"`
	// CheckDelaySeconds is the pause between polls (default: 5)
	CheckDelaySeconds int `mapstructure:"check_delay_seconds"`
}

// LoggingConfig controls structured and detect log output.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error"
	Level string `mapstructure:"level"`
	// Dir is where the run log and per-scan detect logs are written.
	// Empty means the current working directory for detect logs and
	// stderr for the run log.
	Dir string `mapstructure:"dir"`
}

// CheckDelay returns the poll delay as a time.Duration.
func (w *WaitConfig) CheckDelay() time.Duration {
	return time.Duration(w.CheckDelaySeconds) * time.Second
}

// Timeout returns the hub request timeout as a time.Duration.
func (h *HubConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// ResolveToken returns the API token from Token or TokenFile.
func (h *HubConfig) ResolveToken() (string, error) {
	if h.Token != "" {
		return h.Token, nil
	}
	if h.TokenFile == "" {
		return "", errors.NewConfigError("hub.token", "", errors.ErrTokenMissing)
	}
	data, err := os.ReadFile(h.TokenFile)
	if err != nil {
		return "", errors.NewConfigError("hub.token_file", h.TokenFile, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.NewConfigError("hub.token_file", h.TokenFile, errors.ErrTokenMissing)
	}
	return token, nil
}

// Default returns a Config with sensible default values.
func Default() *Config {
	jar := os.Getenv("SYNOPSYS_DETECT_PATH")
	if jar == "" {
		jar = "./synopsys-detect.jar"
	}

	return &Config{
		Hub: HubConfig{
			TimeoutSeconds: 30,
		},
		Scan: ScanConfig{
			MaxScanSizeBytes: DefaultMaxScanSize,
			Exclude:          []string{},
		},
		Detect: DetectConfig{
			JarPath: jar,
		},
		Wait: WaitConfig{
			Enabled:           false,
			MaxChecks:         240,
			CheckDelaySeconds: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("hub.url", defaults.Hub.URL)
	viper.SetDefault("hub.token", defaults.Hub.Token)
	viper.SetDefault("hub.token_file", defaults.Hub.TokenFile)
	viper.SetDefault("hub.insecure", defaults.Hub.Insecure)
	viper.SetDefault("hub.timeout_seconds", defaults.Hub.TimeoutSeconds)

	viper.SetDefault("scan.max_scan_size_bytes", defaults.Scan.MaxScanSizeBytes)
	viper.SetDefault("scan.exclude", defaults.Scan.Exclude)

	viper.SetDefault("detect.jar_path", defaults.Detect.JarPath)
	viper.SetDefault("detect.properties_file", defaults.Detect.PropertiesFile)

	viper.SetDefault("wait.enabled", defaults.Wait.Enabled)
	viper.SetDefault("wait.max_checks", defaults.Wait.MaxChecks)
	viper.SetDefault("wait.check_delay_seconds", defaults.Wait.CheckDelaySeconds)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scansplit")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scansplit"
	}
	return filepath.Join(home, ".config", "scansplit")
}

// ConfigFile returns the path to the config file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
