package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/scansplit/scansplit/internal/partition"
	"github.com/scansplit/scansplit/internal/runner"
	"github.com/scansplit/scansplit/internal/sizer"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "scansplit" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "scansplit")
	}

	expectedCmds := []string{"scan", "split", "config"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, name := range expectedCmds {
		if !cmdMap[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestScanCommandArity(t *testing.T) {
	if err := scanCmd.Args(scanCmd, []string{"url", "project", "version"}); err == nil {
		t.Error("expected an error for 3 args")
	}
	if err := scanCmd.Args(scanCmd, []string{"url", "project", "version", "dir"}); err != nil {
		t.Errorf("unexpected error for 4 args: %v", err)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024 * 1024, "5.0 GiB"},
	}

	for _, tt := range tests {
		if got := humanSize(tt.n); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestPrintPlan(t *testing.T) {
	plan := &runner.Plan{
		Root: &sizer.Node{Path: "/data", Kind: sizer.KindDir, Size: 30, Files: 3},
		Groups: []partition.Group{
			{Members: []string{"/data/a", "/data/b"}, Size: 20},
			{Members: []string{"/data/huge.bin"}, Size: 10, Oversized: true},
		},
		Skips: []sizer.SkipRecord{
			{Path: "/data/sock", Reason: "not a regular file"},
		},
	}

	var buf bytes.Buffer
	printPlan(&buf, plan, 25)
	out := buf.String()

	for _, want := range []string{
		"Target: /data",
		"Scan 1: 20 B, 2 member(s)",
		"/data/a",
		"over limit",
		"Skipped 1 entries:",
		"/data/sock: not a regular file",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
