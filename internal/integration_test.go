// Package internal contains integration tests that verify the sizing,
// partitioning, and scan execution packages work together on a real
// directory tree.
package internal

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/scansplit/scansplit/internal/config"
	"github.com/scansplit/scansplit/internal/detect"
	"github.com/scansplit/scansplit/internal/runner"
)

// recordingRunner captures every invocation instead of spawning java.
type recordingRunner struct {
	calls [][]string
}

func (r *recordingRunner) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	r.calls = append(r.calls, args)
	return []byte("detect output"), nil
}

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TestSplitAndScanFlow builds a tree too large for one scan, plans it,
// and verifies every unit turns into a detect invocation carrying a
// distinct code location mapped to the same project version.
func TestSplitAndScanFlow(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "alpha", "a.bin"), 600)
	writeFile(t, filepath.Join(root, "alpha", "b.bin"), 300)
	writeFile(t, filepath.Join(root, "beta", "c.bin"), 700)
	writeFile(t, filepath.Join(root, "top.bin"), 200)

	cfg := config.Default()
	cfg.Scan.MaxScanSizeBytes = 1000

	plan, err := runner.BuildPlan(cfg, root)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.Groups) < 2 {
		t.Fatalf("expected the tree to be split, got %d group(s)", len(plan.Groups))
	}
	if plan.Root.Size != 1800 {
		t.Errorf("total size = %d, want 1800", plan.Root.Size)
	}

	rec := &recordingRunner{}
	executor := detect.NewDetectExecutor(detect.Params{
		HubURL:     "https://hub.example.com",
		APIToken:   "token",
		Project:    "proj",
		Version:    "1.0",
		JarPath:    "detect.jar",
		LoggingDir: t.TempDir(),
	}, plan.Root, detect.WithRunner(rec))

	seen := make(map[string]bool)
	for _, g := range plan.Groups {
		res, err := executor.Scan(context.Background(), g)
		if err != nil {
			t.Fatalf("Scan(%v): %v", g.Members, err)
		}
		if seen[res.CodeLocation] {
			t.Errorf("duplicate code location %q", res.CodeLocation)
		}
		seen[res.CodeLocation] = true
		if _, err := os.Stat(res.LogPath); err != nil {
			t.Errorf("missing detect log for %s: %v", res.CodeLocation, err)
		}
	}

	if len(rec.calls) != len(plan.Groups) {
		t.Fatalf("detect ran %d times, want %d", len(rec.calls), len(plan.Groups))
	}
	for _, args := range rec.calls {
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "--detect.project.name=proj") {
			t.Errorf("invocation missing project name: %s", joined)
		}
		if !strings.Contains(joined, "--detect.project.version.name=1.0") {
			t.Errorf("invocation missing version name: %s", joined)
		}
	}
}
