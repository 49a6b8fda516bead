package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodeDependency, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("MetadataFor(%s) status = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	t.Parallel()

	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected fallback status %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("driver failure")
	err := Wrap(CodeDependency, cause, "load order")
	if err.Unwrap() != cause {
		t.Fatal("expected cause to be preserved")
	}
	if !IsCode(err, CodeDependency) {
		t.Fatal("expected dependency code")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("As failed through wrapping: %v", typed)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	t.Parallel()

	root := fmt.Errorf("socket closed")
	err := Wrap(CodeDependency, root, "publish event")

	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
}
