package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"subforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "transcribe", "whisper", "request failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"transcribe", "whisper", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "start", "download", "short read", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsRetryableClassification(t *testing.T) {
	retryable := []error{
		services.Wrap(services.ErrTransient, "chunk", "cut", "io", errors.New("io")),
		services.Wrap(services.ErrExternalTool, "chunk", "ffmpeg", "exit 1", nil),
		services.Wrap(services.ErrTimeout, "translate", "azure", "deadline", nil),
		errors.New("untagged"),
	}
	for _, err := range retryable {
		if !services.IsRetryable(err) {
			t.Fatalf("expected retryable: %v", err)
		}
	}

	permanent := []error{
		services.Wrap(services.ErrValidation, "start", "probe", "no audio", nil),
		services.Wrap(services.ErrConfiguration, "translate", "driver", "unknown", nil),
		services.Wrap(services.ErrNotFound, "start", "job", "missing", nil),
		context.Canceled,
		nil,
	}
	for _, err := range permanent {
		if services.IsRetryable(err) {
			t.Fatalf("expected not retryable: %v", err)
		}
	}
}
