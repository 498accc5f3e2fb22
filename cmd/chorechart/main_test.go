package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestReadPasswordPiped(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"secret123\n", "secret123"},
		{"secret123\r\n", "secret123"},
		{"no-newline", "no-newline"},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := readPassword(strings.NewReader(tt.in), io.Discard)
		if err != nil {
			t.Fatalf("readPassword(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("readPassword(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScheduleCommand(t *testing.T) {
	t.Setenv("CHORECHART_P1_NAME", "Alex")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--env-file", "", "schedule", "2026-01"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var epoch []string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "2026-01-18") {
			epoch = append(epoch, line)
		}
	}
	// The epoch Sunday carries all four chores.
	if len(epoch) != 4 {
		t.Fatalf("got %d assignments on 2026-01-18, want 4:\n%s", len(epoch), out.String())
	}
	if !strings.Contains(out.String(), "Alex") {
		t.Error("expected display name in output")
	}
	if strings.Contains(out.String(), "2026-02-01") {
		t.Error("output leaked into the next month")
	}
}

func TestScheduleCommandRejectsBadMonth(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"--env-file", "", "schedule", "2026-13"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for invalid month")
	}
}
