package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestComponent(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	record := func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	}

	// Created before the logger is swapped on purpose.
	logf := Component("shift")
	SetLogger(record)

	logf("iteration %d failed", 3)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if want := "[shift] iteration 3 failed"; lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
}
