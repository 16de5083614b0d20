package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := (&DomainError{
		Category: ErrCatValidation,
		Code:     "CODE",
		Message:  "message",
	}).WithCause(cause)

	if err.Unwrap() != cause {
		t.Fatalf("expected cause to be unwrapped")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to match cause")
	}

	match := &DomainError{Category: ErrCatValidation, Code: "CODE"}
	if !errors.Is(err, match) {
		t.Fatalf("expected errors.Is to match category and code")
	}
	if got := err.Error(); got != "[validation] CODE: message (root)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDomainError_WithDetail(t *testing.T) {
	err := &DomainError{Category: ErrCatOracle, Code: "X", Message: "msg"}
	err.WithDetail("k", "v")
	if err.Details == nil || err.Details["k"] != "v" {
		t.Fatalf("expected details to be set")
	}
}

func TestErrorFactories(t *testing.T) {
	if ErrValidation("C", "m").Retryable {
		t.Fatalf("validation should not be retryable")
	}
	if !ErrOracle("C", "m").Retryable {
		t.Fatalf("transport should be retryable")
	}
	if !ErrTimeout("m").Retryable {
		t.Fatalf("timeout should be retryable")
	}
	if !ErrParse("m").Retryable {
		t.Fatalf("parse should be retryable")
	}
	if !ErrRateLimit("m").Retryable {
		t.Fatalf("rate limit should be retryable")
	}
	if ErrCancelled("m").Retryable {
		t.Fatalf("cancellation should not be retryable")
	}
	if ErrState("C", "m").Retryable {
		t.Fatalf("state should not be retryable")
	}
	if ErrNotFound("report", "x").Retryable {
		t.Fatalf("not found should not be retryable")
	}
}

func TestCategoryHelpers(t *testing.T) {
	wrapped := fmt.Errorf("calling oracle: %w", ErrTimeout("slow"))

	if !IsRetryable(wrapped) {
		t.Errorf("IsRetryable(wrapped timeout) = false, want true")
	}
	if GetCategory(wrapped) != ErrCatTimeout {
		t.Errorf("GetCategory() = %v, want %v", GetCategory(wrapped), ErrCatTimeout)
	}
	if !IsCategory(wrapped, ErrCatTimeout) {
		t.Errorf("IsCategory() = false, want true")
	}
	if GetCode(wrapped) != CodeTimeout {
		t.Errorf("GetCode() = %q, want %q", GetCode(wrapped), CodeTimeout)
	}

	plain := errors.New("boom")
	if IsRetryable(plain) {
		t.Errorf("IsRetryable(plain) = true, want false")
	}
	if GetCategory(plain) != ErrCatInternal {
		t.Errorf("GetCategory(plain) = %v, want %v", GetCategory(plain), ErrCatInternal)
	}
	if GetCode(plain) != "" {
		t.Errorf("GetCode(plain) = %q, want empty", GetCode(plain))
	}
}
