package qerrors

import (
	"errors"
	"testing"
)

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewSchemaError("bad dataset", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find cause")
	}

	var target *Error
	if !errors.As(err, &target) {
		t.Fatalf("expected errors.As to match *Error")
	}
	if target.Kind != SchemaError {
		t.Errorf("Kind = %v, want %v", target.Kind, SchemaError)
	}
}

func TestErrorWithContext(t *testing.T) {
	base := NewInsufficientDataError("subject has too few ratings", nil)
	withSubj := base.With("subject", 3)

	if withSubj.Context["subject"] != 3 {
		t.Errorf("Context[subject] = %v, want 3", withSubj.Context["subject"])
	}
	if base.Context != nil {
		t.Errorf("With must not mutate the receiver, base.Context = %v", base.Context)
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := NewDidNotConvergeError("solver stalled", 1000, 0.0005)
	want := "did_not_converge: solver stalled"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
