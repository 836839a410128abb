// Package runner wires a full split-and-scan run together: size the target
// tree, partition it into scan units, prepare the hub project version, run
// the scanner per unit, and optionally wait for scan processing.
//
// Collaborators are injected as interfaces so the run logic is testable
// without a hub server or a java process.
package runner

import (
	"context"
	"time"

	"github.com/scansplit/scansplit/internal/config"
	"github.com/scansplit/scansplit/internal/detect"
	"github.com/scansplit/scansplit/internal/hub"
	"github.com/scansplit/scansplit/internal/logging"
	"github.com/scansplit/scansplit/internal/partition"
	"github.com/scansplit/scansplit/internal/sizer"
)

// Plan is the result of sizing and partitioning a target directory,
// before any scanning happens.
type Plan struct {
	// Root is the sized tree snapshot.
	Root *sizer.Node
	// Groups are the scan units, in emission order.
	Groups []partition.Group
	// Skips are the entries that could not be sized.
	Skips []sizer.SkipRecord
}

// Oversized returns how many groups exceed the size limit.
func (p *Plan) Oversized() int {
	n := 0
	for _, g := range p.Groups {
		if g.Oversized {
			n++
		}
	}
	return n
}

// BuildPlan sizes targetDir and partitions it per the configuration.
func BuildPlan(cfg *config.Config, targetDir string) (*Plan, error) {
	root, skips, err := sizer.SizeTree(targetDir, sizer.Options{Exclude: cfg.Scan.Exclude})
	if err != nil {
		return nil, err
	}
	groups, err := partition.Partition(root, cfg.Scan.MaxScanSizeBytes)
	if err != nil {
		return nil, err
	}
	return &Plan{Root: root, Groups: groups, Skips: skips}, nil
}

// ExecutorFactory builds the scan executor for one run. The sized tree is
// needed to derive per-scan exclusion patterns.
type ExecutorFactory func(tree *sizer.Node) detect.Executor

// GroupResult is the outcome of scanning one group.
type GroupResult struct {
	Group  partition.Group
	Result *detect.Result
	Err    error
}

// Summary describes a completed run.
type Summary struct {
	// Plan is the sizing and grouping the run executed.
	Plan *Plan
	// Results holds one entry per group, in order.
	Results []GroupResult
	// Unmapped is how many stale code locations were cleared beforehand.
	Unmapped int
	// Failed is how many scans returned an error.
	Failed int
}

// Runner executes a full run against one project version.
type Runner struct {
	cfg      *config.Config
	project  string
	version  string
	executor ExecutorFactory
	hub      hub.Client
	log      *logging.Logger
}

// New creates a Runner. The hub client may be nil, in which case project
// preparation and waiting are skipped (used by tests and dry runs).
func New(cfg *config.Config, project, version string, factory ExecutorFactory, client hub.Client, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{
		cfg:      cfg,
		project:  project,
		version:  version,
		executor: factory,
		hub:      client,
		log:      log,
	}
}

// Run executes the full flow for targetDir. Scan failures do not stop the
// run; they are recorded in the summary. A non-nil error means the run
// aborted (bad target, bad config, hub preparation or waiting failed).
func (r *Runner) Run(ctx context.Context, targetDir string) (*Summary, error) {
	plan, err := BuildPlan(r.cfg, targetDir)
	if err != nil {
		return nil, err
	}

	r.log.Info("plan ready",
		"target", targetDir,
		"total_bytes", plan.Root.Size,
		"files", plan.Root.Files,
		"groups", len(plan.Groups),
		"skips", len(plan.Skips))
	for _, skip := range plan.Skips {
		r.log.Warn("entry skipped during sizing", "path", skip.Path, "reason", skip.Reason)
	}

	summary := &Summary{Plan: plan}

	if r.hub != nil {
		if err := r.hub.EnsureProjectVersion(ctx, r.project, r.version); err != nil {
			return nil, err
		}
		n, err := r.hub.UnmapCodeLocations(ctx, r.project, r.version)
		if err != nil {
			return nil, err
		}
		summary.Unmapped = n
		if n > 0 {
			r.log.Info("unmapped stale code locations", "count", n)
		}
	}

	exec := r.executor(plan.Root)
	start := time.Now()

	for i, group := range plan.Groups {
		log := r.log.WithGroup(i)
		if group.Oversized {
			log.Warn("group exceeds the size limit; the scanner may reject it",
				"size", group.Size, "limit", r.cfg.Scan.MaxScanSizeBytes)
		}

		result, scanErr := exec.Scan(ctx, group)
		summary.Results = append(summary.Results, GroupResult{Group: group, Result: result, Err: scanErr})
		if scanErr != nil {
			summary.Failed++
			log.Error("scan failed", "error", scanErr)
		}

		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}

	if r.cfg.Wait.Enabled && r.hub != nil {
		var names []string
		for _, res := range summary.Results {
			if res.Err == nil && res.Result != nil {
				names = append(names, res.Result.CodeLocation)
			}
		}
		if len(names) > 0 {
			r.log.Info("waiting for scan processing", "scans", len(names))
			if err := r.hub.WaitForScans(ctx, names, start); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}
