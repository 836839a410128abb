package errors

import (
	"io/fs"
	"strings"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("/tmp/nope", ErrTargetNotFound)

	if !strings.Contains(err.Error(), "/tmp/nope") {
		t.Errorf("Error() should contain path, got %q", err.Error())
	}
	if !Is(err, ErrTargetNotFound) {
		t.Error("Is(err, ErrTargetNotFound) = false, want true")
	}

	var nf *NotFoundError
	if !As(err, &nf) {
		t.Fatal("As(err, &nf) = false, want true")
	}
	if nf.Path != "/tmp/nope" {
		t.Errorf("Path = %q, want %q", nf.Path, "/tmp/nope")
	}
}

func TestNotFoundError_WrapsOSError(t *testing.T) {
	err := NewNotFoundError("/tmp/nope", fs.ErrNotExist)
	if !Is(err, fs.ErrNotExist) {
		t.Error("Is(err, fs.ErrNotExist) = false, want true")
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound = false, want true")
	}
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("scan.max_scan_size_bytes", -1, ErrInvalidSizeLimit)

	want := "config scan.max_scan_size_bytes: scan size limit must be positive (got: -1)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !Is(err, ErrInvalidSizeLimit) {
		t.Error("Is(err, ErrInvalidSizeLimit) = false, want true")
	}
	if !IsConfig(err) {
		t.Error("IsConfig = false, want true")
	}
}

func TestScanError(t *testing.T) {
	t.Run("with log path", func(t *testing.T) {
		err := NewScanError("proj-1.0-src", "/logs/proj-1.0-src-detect.log", New("exit status 1"))
		if !strings.Contains(err.Error(), "/logs/proj-1.0-src-detect.log") {
			t.Errorf("Error() should reference the detect log, got %q", err.Error())
		}
	})

	t.Run("without log path", func(t *testing.T) {
		err := NewScanError("proj-1.0-src", "", New("exit status 1"))
		if strings.Contains(err.Error(), "see ") {
			t.Errorf("Error() should not reference a log, got %q", err.Error())
		}
	})
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", NewNotFoundError("/x", ErrTargetNotFound), true},
		{"not a directory", NewNotFoundError("/x", ErrNotADirectory), true},
		{"config", NewConfigError("scan.max_scan_size_bytes", 0, ErrInvalidSizeLimit), true},
		{"scan failure", NewScanError("cl", "", New("boom")), false},
		{"hub failure", NewHubError("authenticate", 401, New("unauthorized")), false},
		{"plain error", New("something"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"hub 500", NewHubError("unmap code location", 500, New("server error")), true},
		{"hub 503", NewHubError("wait for scan", 503, New("unavailable")), true},
		{"hub 429", NewHubError("wait for scan", 429, New("throttled")), true},
		{"hub 401", NewHubError("authenticate", 401, New("unauthorized")), false},
		{"hub 404", NewHubError("find project", 404, New("missing")), false},
		{"hub transport", NewHubError("authenticate", 0, New("connection refused")), true},
		{"scan error", NewScanError("cl", "", New("boom")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
