package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf_FindsCodeThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "trip %s missing", "abc")
	wrapped := fmt.Errorf("handler: %w", base)

	code, ok := CodeOf(wrapped)
	if !ok || code != CodeNotFound {
		t.Fatalf("CodeOf(wrapped) = %q, %v; want %q, true", code, ok, CodeNotFound)
	}
	if !Is(wrapped, CodeNotFound) {
		t.Fatal("Is should match through fmt.Errorf wrapping")
	}
	if Is(wrapped, CodeConflict) {
		t.Fatal("Is should not match a different code")
	}
}

func TestCodeOf_UnclassifiedError(t *testing.T) {
	if _, ok := CodeOf(errors.New("plain")); ok {
		t.Fatal("a plain error carries no code")
	}
	if _, ok := CodeOf(nil); ok {
		t.Fatal("nil carries no code")
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeStorageUnavailable, cause, "load trip")

	if !errors.Is(err, cause) {
		t.Fatal("Wrap must keep the cause reachable via errors.Is")
	}
	if got := err.Error(); got != "STORAGE_UNAVAILABLE: load trip: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestWrap_InnermostCodeWins(t *testing.T) {
	inner := New(CodeValidation, "bad time")
	outer := Wrap(CodeReplanFailed, inner, "apply proposal")

	// errors.As stops at the first *Error in the chain, which is the outer one.
	if code, _ := CodeOf(outer); code != CodeReplanFailed {
		t.Fatalf("outermost code should win, got %q", code)
	}
	if !Is(outer, CodeReplanFailed) {
		t.Fatal("outer code not reported")
	}
}
