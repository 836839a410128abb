package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scansplit/scansplit/internal/config"
	"github.com/scansplit/scansplit/internal/detect"
	"github.com/scansplit/scansplit/internal/errors"
	"github.com/scansplit/scansplit/internal/hub"
	"github.com/scansplit/scansplit/internal/partition"
	"github.com/scansplit/scansplit/internal/sizer"
)

// fakeExecutor records scanned groups and can fail selected ones.
type fakeExecutor struct {
	scanned  []partition.Group
	failWhen func(partition.Group) bool
}

func (f *fakeExecutor) Scan(_ context.Context, g partition.Group) (*detect.Result, error) {
	f.scanned = append(f.scanned, g)
	name := detect.CodeLocationName("proj", "1.0", g.Members[0])
	if f.failWhen != nil && f.failWhen(g) {
		return &detect.Result{CodeLocation: name}, errors.NewScanError(name, "", errors.New("exit status 1"))
	}
	return &detect.Result{CodeLocation: name}, nil
}

// fakeHub records the hub calls a run makes.
type fakeHub struct {
	ensured   bool
	unmapped  int
	waitedFor []string
	waitErr   error
}

func (f *fakeHub) EnsureProjectVersion(context.Context, string, string) error {
	f.ensured = true
	return nil
}

func (f *fakeHub) UnmapCodeLocations(context.Context, string, string) (int, error) {
	f.unmapped = 3
	return 3, nil
}

func (f *fakeHub) WaitForScans(_ context.Context, names []string, _ time.Time) error {
	f.waitedFor = names
	return f.waitErr
}

func writeFile(t *testing.T, dir, rel string, n int) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, make([]byte, n), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func testConfig(limit int64) *config.Config {
	cfg := config.Default()
	cfg.Scan.MaxScanSizeBytes = limit
	return cfg
}

func newTestRunner(cfg *config.Config, exec *fakeExecutor, h *fakeHub) *Runner {
	factory := func(*sizer.Node) detect.Executor { return exec }
	var client hub.Client
	if h != nil {
		client = h
	}
	return New(cfg, "proj", "1.0", factory, client, nil)
}

func TestBuildPlan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", 3)
	writeFile(t, dir, "b.bin", 3)

	plan, err := BuildPlan(testConfig(5), dir)
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	if len(plan.Groups) != 2 {
		t.Errorf("got %d groups, want 2", len(plan.Groups))
	}
	if plan.Root.Size != 6 {
		t.Errorf("Root.Size = %d, want 6", plan.Root.Size)
	}
}

func TestBuildPlan_MissingTarget(t *testing.T) {
	_, err := BuildPlan(testConfig(5), filepath.Join(t.TempDir(), "nope"))
	if !errors.IsNotFound(err) {
		t.Errorf("error = %v, want not-found", err)
	}
}

func TestBuildPlan_InvalidLimit(t *testing.T) {
	_, err := BuildPlan(testConfig(0), t.TempDir())
	if !errors.Is(err, errors.ErrInvalidSizeLimit) {
		t.Errorf("error = %v, want ErrInvalidSizeLimit", err)
	}
}

func TestRun_ScansEveryGroup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", 3)
	writeFile(t, dir, "b.bin", 3)

	exec := &fakeExecutor{}
	h := &fakeHub{}
	r := newTestRunner(testConfig(5), exec, h)

	summary, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(exec.scanned) != 2 {
		t.Errorf("scanned %d groups, want 2", len(exec.scanned))
	}
	if !h.ensured {
		t.Error("project version was not ensured before scanning")
	}
	if summary.Unmapped != 3 {
		t.Errorf("Unmapped = %d, want 3", summary.Unmapped)
	}
	if summary.Failed != 0 {
		t.Errorf("Failed = %d, want 0", summary.Failed)
	}
}

func TestRun_ScanFailureDoesNotStopTheRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", 3)
	writeFile(t, dir, "b.bin", 3)

	exec := &fakeExecutor{
		failWhen: func(g partition.Group) bool {
			return filepath.Base(g.Members[0]) == "a.bin"
		},
	}
	r := newTestRunner(testConfig(5), exec, &fakeHub{})

	summary, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(exec.scanned) != 2 {
		t.Errorf("scanned %d groups, want both despite the failure", len(exec.scanned))
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if summary.Results[0].Err == nil {
		t.Error("first group should carry its scan error")
	}
}

func TestRun_WaitsForSuccessfulScansOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", 3)
	writeFile(t, dir, "b.bin", 3)

	cfg := testConfig(5)
	cfg.Wait.Enabled = true

	exec := &fakeExecutor{
		failWhen: func(g partition.Group) bool {
			return filepath.Base(g.Members[0]) == "a.bin"
		},
	}
	h := &fakeHub{}
	r := newTestRunner(cfg, exec, h)

	if _, err := r.Run(context.Background(), dir); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(h.waitedFor) != 1 {
		t.Fatalf("waited for %d scans, want 1 (the successful one)", len(h.waitedFor))
	}
}

func TestRun_WithoutHub(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.bin", 3)

	exec := &fakeExecutor{}
	r := newTestRunner(testConfig(5), exec, nil)

	summary, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if summary.Unmapped != 0 {
		t.Errorf("Unmapped = %d, want 0 without a hub", summary.Unmapped)
	}
	if len(exec.scanned) != 1 {
		t.Errorf("scanned %d groups, want 1", len(exec.scanned))
	}
}

func TestRun_ReportsSkips(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.bin", 3)
	if err := os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "dangling")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	r := newTestRunner(testConfig(5), &fakeExecutor{}, nil)
	summary, err := r.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(summary.Plan.Skips) != 1 {
		t.Errorf("Skips = %v, want the dangling link", summary.Plan.Skips)
	}
}

func TestPlan_Oversized(t *testing.T) {
	plan := &Plan{Groups: []partition.Group{
		{Size: 3},
		{Size: 20, Oversized: true},
		{Size: 2},
	}}
	if got := plan.Oversized(); got != 1 {
		t.Errorf("Oversized() = %d, want 1", got)
	}
}
