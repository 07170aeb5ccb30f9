package apperror

import (
	"errors"
	"testing"
)

// Every constructor must be recognisable by errors.Is against its sentinel,
// because handler.writeError picks the status code that way. Upstream and
// Persistence additionally keep their cause reachable for logging.

func TestErrorsIs(t *testing.T) {
	// Each test case checks that errors.Is() correctly identifies the error type
	tests := []struct {
		name     string // Descriptive name for test output
		err      error  // The error to test
		target   error  // What we expect it to match
		wantMatch bool  // Should errors.Is() return true?
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("user", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("user", "abc123"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("user", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "ValidationFailed does NOT match ErrNotFound",
			err:       ValidationFailed("name", "too long"),
			target:    ErrNotFound,
			wantMatch: false,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("invalid credentials"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Upstream wraps ErrUpstream",
			err:       Upstream("failed to fetch products", errors.New("dial tcp: refused")),
			target:    ErrUpstream,
			wantMatch: true,
		},
		{
			name:      "Upstream also matches its cause",
			err:       Upstream("failed to fetch products", errDialRefused),
			target:    errDialRefused,
			wantMatch: true,
		},
		{
			name:      "Persistence wraps ErrPersistence",
			err:       Persistence("failed to save snapshot", errors.New("disk full")),
			target:    ErrPersistence,
			wantMatch: true,
		},
		{
			name:      "Persistence does NOT match ErrUpstream",
			err:       Persistence("failed to save snapshot", errors.New("disk full")),
			target:    ErrUpstream,
			wantMatch: false,
		},
	}

	// t.Run() creates a sub-test for each case.
	// Output looks like: TestErrorsIs/NotFound_wraps_ErrNotFound
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				// t.Errorf marks the test as failed but continues running other tests
				// (vs t.Fatalf which stops immediately)
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("user", "abc123"),
			wantMessage: "user not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "Unauthorized uses custom message",
			err:         Unauthorized("invalid credentials"),
			wantMessage: "invalid credentials",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("user", "abc123"),
			wantMessage: "user conflict with id abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// .Error() should return the human-readable message
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

var errDialRefused = errors.New("dial tcp: connection refused")

func TestUnwrap(t *testing.T) {
	// Unwrap() returns the sentinel first, then the cause when one is set.
	// This is what makes errors.Is() work for both.
	err := NotFound("user", "abc123")
	unwrapped := err.Unwrap()

	if len(unwrapped) != 1 || unwrapped[0] != ErrNotFound {
		t.Errorf("Unwrap() = %v, want [%v]", unwrapped, ErrNotFound)
	}

	withCause := Upstream("failed to fetch products", errDialRefused)
	unwrapped = withCause.Unwrap()
	if len(unwrapped) != 2 || unwrapped[0] != ErrUpstream || unwrapped[1] != errDialRefused {
		t.Errorf("Unwrap() = %v, want [%v %v]", unwrapped, ErrUpstream, errDialRefused)
	}
}

func TestErrorIncludesCause(t *testing.T) {
	// The cause is part of Error() for server-side logs; handlers send only Message.
	err := Persistence("failed to save snapshot", errors.New("disk full"))

	if got, want := err.Error(), "failed to save snapshot: disk full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if err.Message != "failed to save snapshot" {
		t.Errorf("Message = %q, want %q", err.Message, "failed to save snapshot")
	}
}

func TestValidationFailedField(t *testing.T) {
	// Verify that the Field is set correctly for validation errors.
	// This lets handlers tell the frontend WHICH field was invalid.
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
