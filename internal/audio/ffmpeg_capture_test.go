package audio

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"livetrans/internal/domain"
	"livetrans/internal/ports"
)

func TestFFMPEGCaptureStartReadAndClose(t *testing.T) {
	t.Parallel()

	// Four s16le samples: 0x0100, 0x0200, 0x0300, 0x0400.
	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf '\\x00\\x01\\x00\\x02\\x00\\x03\\x00\\x04'\nsleep 2\n")
	capture := NewFFMPEGCapture(script, "pulse")

	session, err := capture.Start(context.Background(), ports.AudioConfig{Channels: 1})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	frame := make([]float32, 4)
	n, readErr := session.ReadFrame(frame)
	if n != 4 {
		t.Fatalf("expected 4 samples, got n=%d err=%v", n, readErr)
	}
	if frame[0] <= 0 || frame[1] <= frame[0] {
		t.Fatalf("unexpected sample values: %v", frame)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	// Close is idempotent.
	if err := session.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}

func TestFFMPEGCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script, "pulse")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !errors.Is(err, domain.ErrDeviceUnavailable) {
		t.Fatalf("expected ErrDeviceUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "exited before capture started") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-lc", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeStopErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func TestTrimStderr(t *testing.T) {
	t.Parallel()

	if got := trimStderr("  hi\n"); got != "hi" {
		t.Fatalf("unexpected trim result: %q", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
