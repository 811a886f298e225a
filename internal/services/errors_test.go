package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransfer, "acquisition", "download", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransfer) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"acquisition", "download", "failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestQuotaIsToolError(t *testing.T) {
	err := services.Wrap(services.ErrQuota, "analysis", "run", "rate limited", nil)
	if !errors.Is(err, services.ErrQuota) {
		t.Fatal("expected quota marker")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected quota to be a tool error sub-kind")
	}
	if services.Kind(err) != "quota" {
		t.Fatalf("unexpected kind %q", services.Kind(err))
	}
}

func TestKindMapping(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrTimeout, "analysis", "run", "", nil), "timeout"},
		{services.Wrap(services.ErrNotFound, "acquisition", "select", "video file not found", nil), "not_found"},
		{services.Wrap(services.ErrExternalTool, "analysis", "run", "exit 1", nil), "external_tool"},
		{errors.New("plain"), "transient"},
	}
	for _, tt := range tests {
		if got := services.Kind(tt.err); got != tt.want {
			t.Errorf("Kind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
	if services.Hint(errors.New("x")) == "" {
		t.Fatal("expected default hint")
	}
}

func TestDetailsAndFailureMessage(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransfer, "acquisition", "download", "download failed", cause)

	d := services.Details(err)
	if d.Kind != "transfer" || d.Stage != "acquisition" || d.Operation != "download" {
		t.Fatalf("unexpected details %+v", d)
	}
	if d.Cause != cause {
		t.Fatalf("expected cause to be retained, got %v", d.Cause)
	}
	if got := services.FailureMessage(err); got != "download failed: connection reset" {
		t.Fatalf("FailureMessage = %q", got)
	}
	if got := services.FailureMessage(services.Wrap(services.ErrNotFound, "acquisition", "select", "video file not found", nil)); got != "video file not found" {
		t.Fatalf("FailureMessage = %q", got)
	}
	if got := services.FailureMessage(errors.New("plain")); got != "plain" {
		t.Fatalf("FailureMessage = %q", got)
	}
}
