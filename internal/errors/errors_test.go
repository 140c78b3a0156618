package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWarrenError_Error(t *testing.T) {
	err := New(CodeConfigInvalid, "missing persona name")
	expected := "[CONFIG_INVALID] missing persona name"
	if err.Error() != expected {
		t.Errorf("expected %q, got %q", expected, err.Error())
	}
}

func TestWarrenError_Wrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap(CodePersistFailed, "comment create failed", inner)

	if err.Error() != "[PERSIST_FAILED] comment create failed: connection refused" {
		t.Errorf("unexpected error string: %s", err.Error())
	}

	// Unwrap should return inner
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find inner error")
	}
}

func TestWarrenError_WithSuggestion(t *testing.T) {
	err := New(CodeAPIKeyMissing, "OPENAI_API_KEY not set").
		WithSuggestion("Set the OPENAI_API_KEY environment variable or add api_key to warren.yaml")

	if err.Suggestion != "Set the OPENAI_API_KEY environment variable or add api_key to warren.yaml" {
		t.Errorf("unexpected suggestion: %s", err.Suggestion)
	}
}

func TestWarrenError_ErrorsAs(t *testing.T) {
	err := Wrap(CodeRateLimited, "post window exhausted", fmt.Errorf("count at max"))

	var warrenErr *WarrenError
	if !errors.As(err, &warrenErr) {
		t.Fatal("errors.As should work")
	}
	if warrenErr.Code != CodeRateLimited {
		t.Errorf("expected code %q, got %q", CodeRateLimited, warrenErr.Code)
	}
}

func TestAsCode(t *testing.T) {
	err := New(CodeAuthFailed, "no persona matched credential")
	if AsCode(err) != CodeAuthFailed {
		t.Errorf("expected code %q, got %q", CodeAuthFailed, AsCode(err))
	}

	// Non-WarrenError
	plain := fmt.Errorf("plain error")
	if AsCode(plain) != "" {
		t.Error("expected empty code for non-WarrenError")
	}
}

func TestSuggestion(t *testing.T) {
	err := New(CodeNotFound, "channel not found").WithSuggestion("check the channel slug")
	if Suggestion(err) != "check the channel slug" {
		t.Errorf("expected 'check the channel slug', got %q", Suggestion(err))
	}

	// Non-WarrenError
	if Suggestion(fmt.Errorf("plain")) != "" {
		t.Error("expected empty suggestion for non-WarrenError")
	}
}

func TestWarrenError_WrappedAs(t *testing.T) {
	inner := New(CodeGenerationFailed, "empty completion")
	wrapped := fmt.Errorf("tick aborted: %w", inner)

	var warrenErr *WarrenError
	if !errors.As(wrapped, &warrenErr) {
		t.Fatal("errors.As should unwrap through fmt.Errorf")
	}
	if warrenErr.Code != CodeGenerationFailed {
		t.Errorf("expected code %q, got %q", CodeGenerationFailed, warrenErr.Code)
	}
}
