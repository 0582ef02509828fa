package errdefs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKind_Sentinels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrInvalidArg, "ErrInvalidArg"},
		{ErrInvalidName, "ErrInvalidName"},
		{ErrNotFound, "ErrNotFound"},
		{ErrExists, "ErrExists"},
		{ErrBusy, "ErrBusy"},
		{ErrCycle, "ErrCycle"},
		{ErrUnknownTemplate, "ErrUnknownTemplate"},
		{ErrIllegalTransition, "ErrIllegalTransition"},
		{ErrSpawn, "ErrSpawn"},
		{ErrStorage, "ErrStorage"},
		{ErrTimeout, "ErrTimeout"},
	}
	for _, c := range cases {
		if got := Kind(c.err); got != c.want {
			t.Errorf("Kind(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestKind_WrappedError(t *testing.T) {
	err := fmt.Errorf("%w: team %q", ErrNotFound, "alpha")
	if got := Kind(err); got != "ErrNotFound" {
		t.Errorf("Kind(wrapped) = %q, want ErrNotFound", got)
	}
}

func TestKind_UnknownErrorFallsBackToStorage(t *testing.T) {
	if got := Kind(errors.New("disk on fire")); got != "ErrStorage" {
		t.Errorf("Kind(unknown) = %q, want ErrStorage", got)
	}
}

func TestHelpers(t *testing.T) {
	if !IsNotFound(fmt.Errorf("wrap: %w", ErrNotFound)) {
		t.Error("IsNotFound should match wrapped ErrNotFound")
	}
	if IsNotFound(ErrBusy) {
		t.Error("IsNotFound should not match ErrBusy")
	}
	if !IsBusy(fmt.Errorf("wrap: %w", ErrBusy)) {
		t.Error("IsBusy should match wrapped ErrBusy")
	}
}
