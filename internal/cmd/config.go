package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/scansplit/scansplit/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify scansplit configuration",
	Long: `View or modify scansplit configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  scansplit config set scan.max_scan_size_bytes 2147483648
  scansplit config set hub.url https://hub.example.com
  scansplit config set wait.enabled true

Valid keys:
  hub.url                  - Black Duck server URL
  hub.token_file           - File containing the API token
  hub.insecure             - Skip TLS certificate verification (true/false)
  hub.timeout_seconds      - Per-request timeout for server REST calls
  scan.max_scan_size_bytes - Size limit per scan unit in bytes
  detect.jar_path          - Path to the synopsys-detect jar
  detect.properties_file   - File of extra detect properties
  wait.enabled             - Wait for scan processing (true/false)
  wait.max_checks          - Status polls before timing out
  wait.check_delay_seconds - Seconds between status polls
  logging.level            - Log level: debug, info, warn, error
  logging.dir              - Directory for run and detect logs`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/scansplit/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("Current configuration:")
	fmt.Println()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("hub:")
	fmt.Printf("  url: %s\n", cfg.Hub.URL)
	if cfg.Hub.Token != "" {
		fmt.Printf("  token: (set)\n")
	} else {
		fmt.Printf("  token: (unset)\n")
	}
	fmt.Printf("  token_file: %s\n", cfg.Hub.TokenFile)
	fmt.Printf("  insecure: %v\n", cfg.Hub.Insecure)
	fmt.Printf("  timeout_seconds: %d\n", cfg.Hub.TimeoutSeconds)

	fmt.Println("scan:")
	fmt.Printf("  max_scan_size_bytes: %d (%s)\n", cfg.Scan.MaxScanSizeBytes, humanSize(cfg.Scan.MaxScanSizeBytes))
	fmt.Printf("  exclude: %s\n", strings.Join(cfg.Scan.Exclude, ", "))

	fmt.Println("detect:")
	fmt.Printf("  jar_path: %s\n", cfg.Detect.JarPath)
	fmt.Printf("  properties_file: %s\n", cfg.Detect.PropertiesFile)

	fmt.Println("wait:")
	fmt.Printf("  enabled: %v\n", cfg.Wait.Enabled)
	fmt.Printf("  max_checks: %d\n", cfg.Wait.MaxChecks)
	fmt.Printf("  check_delay_seconds: %d\n", cfg.Wait.CheckDelaySeconds)

	fmt.Println("logging:")
	fmt.Printf("  level: %s\n", cfg.Logging.Level)
	fmt.Printf("  dir: %s\n", cfg.Logging.Dir)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	validKeys := map[string]string{
		"hub.url":                  "string",
		"hub.token":                "string",
		"hub.token_file":           "string",
		"hub.insecure":             "bool",
		"hub.timeout_seconds":      "int",
		"scan.max_scan_size_bytes": "int",
		"detect.jar_path":          "string",
		"detect.properties_file":   "string",
		"wait.enabled":             "bool",
		"wait.max_checks":          "int",
		"wait.check_delay_seconds": "int",
		"logging.level":            "string",
		"logging.dir":              "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'scansplit config set --help' to see valid keys", key)
	}

	var typedValue interface{}
	switch keyType {
	case "string":
		if key == "logging.level" && !validLogLevel(value) {
			return fmt.Errorf("invalid value for %s: %s\nValid options: %s",
				key, value, strings.Join(config.ValidLogLevels(), ", "))
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal <= 0 {
			return fmt.Errorf("invalid value for %s: must be positive", key)
		}
		typedValue = intVal
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func validLogLevel(level string) bool {
	for _, l := range config.ValidLogLevels() {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'scansplit config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configContent := `# Scansplit configuration

# Black Duck server connection
hub:
  url: ""
  # Prefer token_file over token so the secret stays out of this file
  token_file: ""
  # Skip TLS certificate verification (also sets detect.blackduck.trust.cert)
  insecure: false
  timeout_seconds: 30

# How the target directory is split
scan:
  # Size limit per scan unit in bytes (default: 5 GiB)
  max_scan_size_bytes: 5368709120
  # Directory patterns omitted from sizing and scanning
  exclude: []

# Synopsys Detect invocation
detect:
  # Overridden by the SYNOPSYS_DETECT_PATH environment variable
  jar_path: ./synopsys-detect.jar
  # Extra detect properties, one per line
  properties_file: ""

# Waiting for the server to process scans after all units ran
wait:
  enabled: false
  max_checks: 240
  check_delay_seconds: 5

logging:
  # debug, info, warn, error
  level: info
  # Directory for the run log and per-scan detect logs.
  # Empty writes the run log to stderr and detect logs to the working directory.
  dir: ""
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize scansplit's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Printf("  2. $HOME/.config/scansplit/config.yaml\n")
	fmt.Printf("  3. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: SCANSPLIT_* (e.g., SCANSPLIT_SCAN_MAX_SCAN_SIZE_BYTES)")

	return nil
}
