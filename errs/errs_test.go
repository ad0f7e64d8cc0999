package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormattingIncludesFields(t *testing.T) {
	err := New(
		"orders",
		CodeValidationRejected,
		WithHTTP(400),
		WithMessage("Invalid Qty"),
		WithRequestID("req-123"),
		WithField("method", "POST"),
		WithField("path", "/orders"),
		WithCause(errors.New("gateway http 400")),
	)

	out := err.Error()
	if !strings.Contains(out, "resource=orders") {
		t.Fatalf("expected resource marker in error string: %s", out)
	}
	if !strings.Contains(out, "code=validation_rejected") {
		t.Fatalf("expected code in error string: %s", out)
	}
	if !strings.Contains(out, "http=400") {
		t.Fatalf("expected http status in error string: %s", out)
	}
	if !strings.Contains(out, "request_id=req-123") {
		t.Fatalf("expected request id in error string: %s", out)
	}
	expectedFields := "fields=method=\"POST\",path=\"/orders\""
	if !strings.Contains(out, expectedFields) {
		t.Fatalf("expected fields %q in error string: %s", expectedFields, out)
	}
	if !strings.Contains(out, "cause=\"gateway http 400\"") {
		t.Fatalf("expected wrapped cause in error string: %s", out)
	}
}

func TestWithFieldIgnoresBlankKey(t *testing.T) {
	err := New("orders", CodeNotFound, WithField("  ", "x"))
	if err.Metadata != nil {
		t.Fatalf("expected metadata to stay nil, got %v", err.Metadata)
	}
}

func TestKindOfUnwrapsChain(t *testing.T) {
	base := New("executions", CodeNotFound, WithHTTP(404))
	wrapped := fmt.Errorf("load execution 7: %w", base)

	if got := KindOf(wrapped); got != CodeNotFound {
		t.Fatalf("expected not_found, got %q", got)
	}
	if !Is(wrapped, CodeNotFound) {
		t.Fatalf("expected Is to match not_found")
	}
	if KindOf(errors.New("plain")) != CodeServerError {
		t.Fatalf("expected plain errors to classify as server_error")
	}
	if KindOf(nil) != "" {
		t.Fatalf("expected empty code for nil error")
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := New("orders", CodeNetworkUnavailable, WithCause(cause))
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
}

func TestRejectedIsValidationRejected(t *testing.T) {
	err := Rejected("order-ticket", "price required")
	if err.Code != CodeValidationRejected {
		t.Fatalf("unexpected code %q", err.Code)
	}
	if err.Message != "price required" {
		t.Fatalf("unexpected message %q", err.Message)
	}
}
