package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("exit status 128")
	err := New(CheckoutFailure, "git checkout failed", cause)

	if err.Code != CheckoutFailure {
		t.Errorf("Code = %v, want %v", err.Code, CheckoutFailure)
	}
	if len(err.SuggestedFixes) == 0 {
		t.Error("expected default fixes for CHECKOUT_FAILURE")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name      string
		err       *Error
		wantParts []string
	}{
		{
			name:      "with cause",
			err:       New(IndexWriteFailure, "bulk write rejected", errors.New("status 429")),
			wantParts: []string{"INDEX_WRITE_FAILURE", "bulk write rejected", "status 429"},
		},
		{
			name:      "without cause",
			err:       Newf(ExtractionFailure, "cannot parse %s", "a/public/index.ts"),
			wantParts: []string{"EXTRACTION_FAILURE", "cannot parse a/public/index.ts"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("snapshot 2020-01-01: %w", New(CheckoutFailure, "rev-list failed", nil))

	if got := CodeOf(wrapped); got != CheckoutFailure {
		t.Errorf("CodeOf(wrapped) = %v, want %v", got, CheckoutFailure)
	}
	if got := CodeOf(errors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain) = %v, want %v", got, InternalError)
	}
	if !Is(wrapped, CheckoutFailure) {
		t.Error("Is(wrapped, CheckoutFailure) = false")
	}
	if Is(nil, CheckoutFailure) {
		t.Error("Is(nil, ...) = true")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(DiscoveryFailure, "manifest unreadable", nil).WithDetails(map[string]string{"path": "x/kibana.json"})
	details, ok := err.Details.(map[string]string)
	if !ok || details["path"] != "x/kibana.json" {
		t.Errorf("Details = %v", err.Details)
	}
}
