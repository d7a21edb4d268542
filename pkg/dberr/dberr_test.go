package dberr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorStringCarriesContext(t *testing.T) {
	err := NotFound("table %s does not exist", "users").
		WithComponent("Engine").WithOperation("SelectAll")

	msg := err.Error()
	for _, want := range []string{"NOT_FOUND", "Engine", "SelectAll", "users"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := OversizeTuple("tuple of 5016 bytes exceeds page capacity 4080")
	wrapped := fmt.Errorf("insert failed: %w", inner)

	if !HasCode(wrapped, CodeOversizeTuple) {
		t.Error("HasCode missed wrapped DBError")
	}
	if HasCode(wrapped, CodeNotFound) {
		t.Error("HasCode matched the wrong code")
	}
	if HasCode(nil, CodeNotFound) {
		t.Error("HasCode matched nil error")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(cause, CategorySystem, CodeIO, "failed to flush page")

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not see the cause")
	}
}
