package apperr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_IsMatchesKind(t *testing.T) {
	cause := errors.New("disk full")
	err := ES("index.save", "session_1", ErrIO, cause)

	if !errors.Is(err, ErrIO) {
		t.Error("errors.Is(err, ErrIO) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if errors.Is(err, ErrState) {
		t.Error("errors.Is(err, ErrState) = true, want false")
	}
}

func TestError_MessageFormat(t *testing.T) {
	err := ES("chain.invoke", "session_20251026_103848_269900d5", ErrState, errors.New("no retriever bound"))

	msg := err.Error()
	for _, want := range []string{"chain.invoke", "invalid state", "no retriever bound", "session_20251026_103848_269900d5"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestError_NilCause(t *testing.T) {
	err := E("config.load", ErrConfiguration, nil)
	if err.Error() == "" {
		t.Error("Error() returned empty string")
	}
	if !errors.Is(err, ErrConfiguration) {
		t.Error("errors.Is(err, ErrConfiguration) = false, want true")
	}
}

func TestError_AsThroughWrapping(t *testing.T) {
	inner := Msg("manager.loadOrCreate", ErrConfiguration, "no existing index and no seed texts")
	wrapped := fmt.Errorf("building retriever: %w", inner)

	var appErr *Error
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As failed to find *Error through wrapping")
	}
	if appErr.Op != "manager.loadOrCreate" {
		t.Errorf("Op = %q, want manager.loadOrCreate", appErr.Op)
	}
	if !errors.Is(wrapped, ErrConfiguration) {
		t.Error("errors.Is through wrapping = false, want true")
	}
}
