package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"version"}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code: got %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), version) {
		t.Errorf("version output missing %q: %q", version, stdout.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"launch"}, &stdout, &stderr)

	if code != 2 {
		t.Fatalf("exit code: got %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "unknown command") {
		t.Errorf("stderr missing diagnosis: %q", stderr.String())
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"help"}, &stdout, &stderr)

	if code != 0 {
		t.Fatalf("exit code: got %d, want 0", code)
	}
	for _, cmd := range []string{"diagnose", "resolve", "version"} {
		if !strings.Contains(stdout.String(), cmd) {
			t.Errorf("help output missing %q", cmd)
		}
	}
}

func TestRun_DiagnoseBadConfigPath(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"diagnose", "-config", "/does/not/exist.yaml"}, &stdout, &stderr)

	if code != 2 {
		t.Fatalf("exit code: got %d, want 2", code)
	}
}
