package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"bilisub/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrUpstream, "metadata", "view", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"metadata", "view", "request failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutCauseOrDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrUpstream) {
		t.Fatalf("expected default upstream marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindAndExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
		code int
	}{
		{name: "nil", err: nil, kind: "", code: 0},
		{name: "resolution", err: services.Wrap(services.ErrResolution, "resolve", "", "no code", nil), kind: "resolution", code: 2},
		{name: "not found", err: services.Wrap(services.ErrNotFound, "metadata", "view", "gone", nil), kind: "not_found", code: 3},
		{name: "upstream", err: services.Wrap(services.ErrUpstream, "fetch", "get", "503", nil), kind: "upstream", code: 4},
		{name: "conversion", err: services.Wrap(services.ErrConversion, "convert", "cue", "bad from", nil), kind: "conversion", code: 5},
		{name: "rewrapped", err: fmt.Errorf("run: %w", services.Wrap(services.ErrNotFound, "", "", "", nil)), kind: "not_found", code: 3},
		{name: "configuration", err: services.Wrap(services.ErrConfiguration, "config", "", "bad", nil), kind: "configuration", code: 1},
		{name: "plain", err: errors.New("plain"), kind: "internal", code: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.Kind(tt.err); got != tt.kind {
				t.Fatalf("Kind = %q, want %q", got, tt.kind)
			}
			if got := services.ExitCode(tt.err); got != tt.code {
				t.Fatalf("ExitCode = %d, want %d", got, tt.code)
			}
		})
	}
}
