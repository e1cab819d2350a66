package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	t.Parallel()

	cases := map[Code]int{
		CodeValidation:          http.StatusBadRequest,
		CodeInsufficientStock:   http.StatusBadRequest,
		CodeReservationExpired:  http.StatusBadRequest,
		CodeAmountMismatch:      http.StatusBadRequest,
		CodePaymentVerification: http.StatusBadRequest,
		CodeStateConflict:       http.StatusBadRequest,
		CodeIdempotency:         http.StatusConflict,
		CodeNotFound:            http.StatusNotFound,
		CodeInternal:            http.StatusInternalServerError,
		CodeDependency:          http.StatusServiceUnavailable,
	}
	for code, want := range cases {
		if got := MetadataFor(code).HTTPStatus; got != want {
			t.Fatalf("MetadataFor(%s) status = %d, want %d", code, got, want)
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

	cause := fmt.Errorf("row locked")
	err := Wrap(CodeDependency, cause, "reserve inventory")
	if err.Unwrap() != cause {
		t.Fatal("expected wrapped cause")
	}
	if As(fmt.Errorf("outer: %w", err)) == nil {
		t.Fatal("expected typed error through wrapping")
	}
}

func TestHasCode(t *testing.T) {
	t.Parallel()

	err := New(CodeInsufficientStock, "only 2 left")
	if !HasCode(err, CodeInsufficientStock) {
		t.Fatal("expected matching code")
	}
	if HasCode(err, CodeReservationExpired) {
		t.Fatal("unexpected code match")
	}
	if HasCode(nil, CodeInternal) {
		t.Fatal("nil error must not match")
	}
}
