package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/scansplit/scansplit/internal/config"
	"github.com/scansplit/scansplit/internal/detect"
	"github.com/scansplit/scansplit/internal/hub"
	"github.com/scansplit/scansplit/internal/logging"
	"github.com/scansplit/scansplit/internal/runner"
	"github.com/scansplit/scansplit/internal/sizer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scanCmd = &cobra.Command{
	Use:   "scan <server-url> <project> <version> <target-dir>",
	Short: "Split a directory and run one signature scan per unit",
	Long: `Scan sizes the target directory, splits it into units that each fit
under the scan size limit, unmaps stale code locations from the project
version, then runs one Synopsys Detect signature scan per unit. Every
scan maps its code location to the given project version, which is
created on the server if it does not exist.

The API token comes from --token, --token-file, the SCANSPLIT_HUB_TOKEN
environment variable, or the config file.`,
	Args: cobra.ExactArgs(4),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("token", "", "Black Duck API token")
	scanCmd.Flags().String("token-file", "", "file containing the API token")
	scanCmd.Flags().Bool("insecure", false, "skip TLS certificate verification")

	scanCmd.Flags().Int64("size-limit", config.DefaultMaxScanSize, "maximum bytes per scan unit")
	scanCmd.Flags().StringSlice("exclude", nil, "directory pattern to omit from sizing and scanning (repeatable)")

	scanCmd.Flags().String("jar", "", "path to the synopsys-detect jar")
	scanCmd.Flags().String("properties-file", "", "file of extra detect properties, one per line")

	scanCmd.Flags().Bool("wait", false, "wait for the server to finish processing all scans")
	scanCmd.Flags().Int("max-checks", 240, "how many times to poll scan status before timing out")
	scanCmd.Flags().Int("check-delay", 5, "seconds between scan status polls")

	scanCmd.Flags().String("logging-dir", "", "directory for the run log and per-scan detect logs")

	rootCmd.AddCommand(scanCmd)
}

// bindScanFlags points the viper keys at this command's flags. Keys shared
// with the split command are bound at run time so the two commands do not
// shadow each other.
func bindScanFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	_ = viper.BindPFlag("hub.token", flags.Lookup("token"))
	_ = viper.BindPFlag("hub.token_file", flags.Lookup("token-file"))
	_ = viper.BindPFlag("hub.insecure", flags.Lookup("insecure"))
	_ = viper.BindPFlag("scan.max_scan_size_bytes", flags.Lookup("size-limit"))
	_ = viper.BindPFlag("scan.exclude", flags.Lookup("exclude"))
	_ = viper.BindPFlag("detect.jar_path", flags.Lookup("jar"))
	_ = viper.BindPFlag("detect.properties_file", flags.Lookup("properties-file"))
	_ = viper.BindPFlag("wait.enabled", flags.Lookup("wait"))
	_ = viper.BindPFlag("wait.max_checks", flags.Lookup("max-checks"))
	_ = viper.BindPFlag("wait.check_delay_seconds", flags.Lookup("check-delay"))
	_ = viper.BindPFlag("logging.dir", flags.Lookup("logging-dir"))
}

func runScan(cmd *cobra.Command, args []string) error {
	bindScanFlags(cmd)
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	serverURL, projectName, versionName, target := args[0], args[1], args[2], args[3]

	token, err := cfg.Hub.ResolveToken()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Close()

	var props []string
	if cfg.Detect.PropertiesFile != "" {
		props, err = detect.LoadProperties(cfg.Detect.PropertiesFile)
		if err != nil {
			return err
		}
	}

	hubOpts := []hub.Option{
		hub.WithTimeout(cfg.Hub.Timeout()),
		hub.WithPollPolicy(cfg.Wait.MaxChecks, cfg.Wait.CheckDelay()),
		hub.WithLogger(log),
	}
	if cfg.Hub.Insecure {
		hubOpts = append(hubOpts, hub.WithInsecure())
	}
	client := hub.NewHTTPClient(serverURL, token, hubOpts...)

	factory := func(tree *sizer.Node) detect.Executor {
		return detect.NewDetectExecutor(detect.Params{
			HubURL:          serverURL,
			APIToken:        token,
			Project:         projectName,
			Version:         versionName,
			JarPath:         cfg.Detect.JarPath,
			TrustCert:       cfg.Hub.Insecure,
			ExtraProperties: props,
			ExcludeNames:    cfg.Scan.Exclude,
			LoggingDir:      cfg.Logging.Dir,
		}, tree, detect.WithLogger(log))
	}

	summary, err := runner.New(cfg, projectName, versionName, factory, client, log).Run(cmd.Context(), target)
	if err != nil {
		return err
	}

	printSummary(os.Stdout, summary, cfg.Scan.MaxScanSizeBytes)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d scans failed", summary.Failed, len(summary.Results))
	}
	return nil
}

func printSummary(w io.Writer, s *runner.Summary, limit int64) {
	printPlan(w, s.Plan, limit)
	fmt.Fprintln(w, strings.Repeat("─", 60))

	if s.Unmapped > 0 {
		fmt.Fprintf(w, "Unmapped %d stale code location(s)\n", s.Unmapped)
	}
	for i, r := range s.Results {
		status := render(okStyle, "ok")
		if r.Err != nil {
			status = render(failStyle, "FAILED")
		}
		if r.Result == nil {
			fmt.Fprintf(w, "Scan %d/%d: %s\n", i+1, len(s.Results), status)
			continue
		}
		fmt.Fprintf(w, "Scan %d/%d %s: %s (%s)\n",
			i+1, len(s.Results), r.Result.CodeLocation, status,
			r.Result.Duration.Round(time.Second))
		if r.Err != nil && r.Result.LogPath != "" {
			fmt.Fprintf(w, "  log: %s\n", r.Result.LogPath)
		}
	}
}
