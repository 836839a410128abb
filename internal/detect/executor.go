// Package detect invokes the Synopsys Detect signature scanner, once per
// scan unit. It is the run's only collaborator that spawns processes.
//
// Each scan unit maps to one Detect invocation with its own code location
// name, so every group's results land on the hub as an independent scan
// mapped to the same project version. Detect's combined output is captured
// to a per-scan log file.
package detect

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/scansplit/scansplit/internal/errors"
	"github.com/scansplit/scansplit/internal/logging"
	"github.com/scansplit/scansplit/internal/partition"
	"github.com/scansplit/scansplit/internal/sizer"
)

// Executor runs the external scanner against one group. Implementations
// must treat the group as frozen: membership is never mutated after handoff.
type Executor interface {
	// Scan runs one scan for the group and reports the outcome. A non-nil
	// Result is returned even on failure so callers can point users at the
	// captured log.
	Scan(ctx context.Context, group partition.Group) (*Result, error)
}

// Result describes one completed (or failed) Detect invocation.
type Result struct {
	// CodeLocation is the scan/code location name used on the hub.
	CodeLocation string
	// SourcePath is the directory or file handed to Detect.
	SourcePath string
	// LogPath is where the detect output was captured, empty if the log
	// could not be written.
	LogPath string
	// Duration is the wall time of the invocation.
	Duration time.Duration
}

// Runner abstracts process execution so tests never spawn java.
type Runner interface {
	// Run executes name with args and returns its combined output.
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Params holds everything a Detect invocation needs beyond the group itself.
type Params struct {
	// HubURL is the Black Duck server URL.
	HubURL string
	// APIToken authenticates Detect against the hub.
	APIToken string
	// Project and Version name the project version all scans map to.
	Project string
	Version string
	// JarPath is the synopsys-detect jar to run.
	JarPath string
	// TrustCert disables certificate verification in Detect.
	TrustCert bool
	// ExtraProperties are additional detect properties appended verbatim
	// to every invocation.
	ExtraProperties []string
	// ExcludeNames are directory name patterns the signature scanner should
	// skip in every scan, mirroring the patterns excluded during sizing.
	ExcludeNames []string
	// LoggingDir is where per-scan detect logs are written. Empty means
	// the current working directory.
	LoggingDir string
}

// DetectExecutor implements Executor by shelling out to java.
type DetectExecutor struct {
	params Params
	index  map[string]*sizer.Node
	runner Runner
	log    *logging.Logger
}

// Option configures a DetectExecutor.
type Option func(*DetectExecutor)

// WithRunner replaces the process runner, for tests.
func WithRunner(r Runner) Option {
	return func(e *DetectExecutor) {
		e.runner = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *logging.Logger) Option {
	return func(e *DetectExecutor) {
		e.log = log
	}
}

// NewDetectExecutor creates an executor for one run. The sized tree is used
// to derive exclusion patterns when a group does not cover its source
// directory entirely.
func NewDetectExecutor(params Params, tree *sizer.Node, opts ...Option) *DetectExecutor {
	e := &DetectExecutor{
		params: params,
		index:  indexTree(tree),
		runner: execRunner{},
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// indexTree maps every node path to its node for target resolution.
func indexTree(tree *sizer.Node) map[string]*sizer.Node {
	index := map[string]*sizer.Node{}
	if tree == nil {
		return index
	}
	var visit func(n *sizer.Node)
	visit = func(n *sizer.Node) {
		index[n.Path] = n
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(tree)
	return index
}

// Scan runs one Detect invocation for the group.
func (e *DetectExecutor) Scan(ctx context.Context, group partition.Group) (*Result, error) {
	target := e.target(group)
	name := CodeLocationName(e.params.Project, e.params.Version, target.SourcePath)
	log := e.log.WithCodeLocation(name)

	args := e.buildArgs(target, name)
	log.Debug("running detect", "source", target.SourcePath, "excludes", len(target.Excludes))

	start := time.Now()
	output, runErr := e.runner.Run(ctx, "java", args)
	result := &Result{
		CodeLocation: name,
		SourcePath:   target.SourcePath,
		Duration:     time.Since(start),
	}

	logPath, logErr := e.writeLog(name, output)
	if logErr != nil {
		log.Warn("failed to capture detect log", "error", logErr)
	}
	result.LogPath = logPath

	if runErr != nil {
		log.Error("detect failed", "error", runErr, "log", logPath)
		return result, errors.NewScanError(name, logPath, runErr)
	}
	log.Debug("detect succeeded", "duration", result.Duration, "log", logPath)
	return result, nil
}

// buildArgs assembles the full java argument list for one scan.
func (e *DetectExecutor) buildArgs(target Target, codeLocation string) []string {
	args := []string{
		"-jar", e.params.JarPath,
		"--blackduck.url=" + e.params.HubURL,
		"--blackduck.api.token=" + e.params.APIToken,
		fmt.Sprintf("--blackduck.trust.cert=%t", e.params.TrustCert),
		"--detect.parallel.processors=-1",
		"--detect.project.name=" + e.params.Project,
		"--detect.project.version.name=" + e.params.Version,
	}
	args = append(args, e.params.ExtraProperties...)
	args = append(args,
		"--detect.source.path="+target.SourcePath,
		"--detect.code.location.name="+codeLocation,
	)
	if len(target.Excludes) > 0 {
		args = append(args,
			"--detect.blackduck.signature.scanner.exclusion.patterns="+strings.Join(target.Excludes, ","))
	}
	if len(e.params.ExcludeNames) > 0 {
		args = append(args,
			"--detect.blackduck.signature.scanner.exclusion.name.patterns="+strings.Join(e.params.ExcludeNames, ","))
	}
	return args
}

// writeLog captures detect output to {LoggingDir}/{codeLocation}-detect.log.
func (e *DetectExecutor) writeLog(codeLocation string, output []byte) (string, error) {
	dir := e.params.LoggingDir
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	path := filepath.Join(dir, codeLocation+"-detect.log")
	if err := os.WriteFile(path, output, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// CodeLocationName derives the hub scan name for a source path, flattening
// path separators so the name is unique per project, version, and path.
func CodeLocationName(project, version, sourcePath string) string {
	flat := strings.NewReplacer("/", "-", "\\", "-").Replace(sourcePath)
	flat = strings.Trim(flat, "-")
	return fmt.Sprintf("%s-%s-%s", project, version, flat)
}
