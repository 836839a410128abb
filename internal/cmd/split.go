package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/scansplit/scansplit/internal/config"
	"github.com/scansplit/scansplit/internal/partition"
	"github.com/scansplit/scansplit/internal/runner"
	"github.com/scansplit/scansplit/internal/sizer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var splitCmd = &cobra.Command{
	Use:   "split <target-dir>",
	Short: "Partition a directory into scan units without scanning",
	Long: `Split sizes the target directory and shows how it would be divided
into scan units under the size limit, without contacting a server or
running any scan. Use it to preview and tune the limit and exclusions.`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

var splitJSON bool

func init() {
	splitCmd.Flags().Int64("size-limit", config.DefaultMaxScanSize, "maximum bytes per scan unit")
	splitCmd.Flags().StringSlice("exclude", nil, "directory pattern to omit from sizing (repeatable)")
	splitCmd.Flags().BoolVar(&splitJSON, "json", false, "emit the plan as JSON")

	rootCmd.AddCommand(splitCmd)
}

// bindSplitFlags points the shared viper keys at this command's flags.
// Binding at run time rather than in init keeps the scan command's flags
// for the same keys from shadowing these.
func bindSplitFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("scan.max_scan_size_bytes", cmd.Flags().Lookup("size-limit"))
	_ = viper.BindPFlag("scan.exclude", cmd.Flags().Lookup("exclude"))
}

// splitOutput is the JSON shape of a dry-run plan.
type splitOutput struct {
	Target     string             `json:"target"`
	SizeLimit  int64              `json:"size_limit"`
	TotalBytes int64              `json:"total_bytes"`
	Files      int                `json:"files"`
	Groups     []partition.Group  `json:"groups"`
	Skips      []sizer.SkipRecord `json:"skips,omitempty"`
}

func runSplit(cmd *cobra.Command, args []string) error {
	bindSplitFlags(cmd)
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	plan, err := runner.BuildPlan(cfg, args[0])
	if err != nil {
		return err
	}

	if splitJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(splitOutput{
			Target:     plan.Root.Path,
			SizeLimit:  cfg.Scan.MaxScanSizeBytes,
			TotalBytes: plan.Root.Size,
			Files:      plan.Root.Files,
			Groups:     plan.Groups,
			Skips:      plan.Skips,
		})
	}

	printPlan(os.Stdout, plan, cfg.Scan.MaxScanSizeBytes)
	return nil
}

func printPlan(w io.Writer, plan *runner.Plan, limit int64) {
	fmt.Fprintf(w, "Target: %s\n", plan.Root.Path)
	fmt.Fprintf(w, "Total:  %s across %d files (limit %s per scan)\n",
		humanSize(plan.Root.Size), plan.Root.Files, humanSize(limit))
	fmt.Fprintln(w, strings.Repeat("─", 60))

	for i, g := range plan.Groups {
		size := humanSize(g.Size)
		if g.Oversized {
			size = render(warnStyle, size+" (over limit)")
		}
		fmt.Fprintf(w, "Scan %d: %s, %d member(s)\n", i+1, size, len(g.Members))
		for _, m := range g.Members {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}

	if len(plan.Skips) > 0 {
		fmt.Fprintln(w, strings.Repeat("─", 60))
		fmt.Fprintf(w, "Skipped %d entries:\n", len(plan.Skips))
		for _, s := range plan.Skips {
			fmt.Fprintf(w, "  %s: %s\n", s.Path, s.Reason)
		}
	}
}
