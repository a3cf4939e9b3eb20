package recoerr

import (
	"errors"
	"testing"
)

func TestNewHasNoCause(t *testing.T) {
	err := New(Usage, "bad flag")
	if err.Error() != "bad flag" {
		t.Fatalf("Error() = %q, want %q", err.Error(), "bad flag")
	}
	if errors.Unwrap(err) != nil {
		t.Fatalf("expected no wrapped cause")
	}
}

func TestWrapComposesMessageAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(Upstream, "fetch failed", cause)

	want := "fetch failed: connection refused"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the wrapped cause")
	}
}

func TestWithHintChainsAndMutatesInPlace(t *testing.T) {
	err := New(Validation, "amount out of range").WithHint("use a value between 0 and 1000000")
	if err.Hint != "use a value between 0 and 1000000" {
		t.Fatalf("unexpected hint: %q", err.Hint)
	}
	if err.Kind != Validation {
		t.Fatalf("unexpected kind: %q", err.Kind)
	}
}
