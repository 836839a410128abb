package cmd

import (
	"strings"

	"github.com/scansplit/scansplit/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "scansplit",
	Short: "Split large directory trees into size-bounded signature scans",
	Long: `Scansplit partitions a directory tree into groups that each fit under
the scan size limit of a Black Duck server, then runs one Synopsys Detect
signature scan per group and maps every resulting code location to a single
project version on the server.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/scansplit/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/scansplit")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SCANSPLIT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., SCANSPLIT_SCAN_MAX_SCAN_SIZE_BYTES for scan.max_scan_size_bytes
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
