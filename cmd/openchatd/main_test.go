package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"version"}); err != nil {
		t.Fatalf("run version: %v", err)
	}
	if !strings.Contains(stdout.String(), "openchatd") {
		t.Errorf("version output %q should name the program", stdout.String())
	}
}

func TestRun_VersionJSON(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("run version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if info["version"] == "" {
		t.Error("version field missing")
	}
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), &stdout, &stderr, nil); err != nil {
		t.Fatalf("run with no args: %v", err)
	}
	if !strings.Contains(stdout.String(), "Usage:") {
		t.Errorf("expected usage text, got %q", stdout.String())
	}
}

func TestRun_BadArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-frobnicate"}},
		{"unknown command", []string{"launch"}},
		{"bad output format", []string{"-o", "yaml", "version"}},
		{"ask without message", []string{"ask"}},
		{"missing explicit config", []string{"-config", "/nonexistent/openchatd.yaml", "serve"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if err := run(context.Background(), &stdout, &stderr, tt.args); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRun_ConfigFlagForms(t *testing.T) {
	// Both -config <path> and -config=<path> must parse; with a path
	// that does not exist, both should fail the same way.
	for _, args := range [][]string{
		{"-config", "/nope.yaml", "version"},
		{"-config=/nope.yaml", "version"},
	} {
		var stdout, stderr bytes.Buffer
		// version never touches the config, so both succeed.
		if err := run(context.Background(), &stdout, &stderr, args); err != nil {
			t.Errorf("run %v: %v", args, err)
		}
	}
}
