package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewTriageError(t *testing.T) {
	cause := errors.New("underlying error")

	err := NewTriageError(BaselineInvalid, "cannot parse baseline", cause)

	if err.Code != BaselineInvalid {
		t.Errorf("Code = %v, want %v", err.Code, BaselineInvalid)
	}
	if err.Message != "cannot parse baseline" {
		t.Errorf("Message = %q, want %q", err.Message, "cannot parse baseline")
	}
	if len(err.SuggestedFixes) != 1 {
		t.Errorf("len(SuggestedFixes) = %d, want 1", len(err.SuggestedFixes))
	}
}

func TestTriageError_Error(t *testing.T) {
	tests := []struct {
		name      string
		code      ErrorCode
		message   string
		cause     error
		wantParts []string
	}{
		{
			name:      "with cause",
			code:      LogUnreadable,
			message:   "cannot read run.log",
			cause:     errors.New("permission denied"),
			wantParts: []string{"LOG_UNREADABLE", "cannot read run.log", "permission denied"},
		},
		{
			name:      "without cause",
			code:      LogNotFound,
			message:   "log file missing.log does not exist",
			cause:     nil,
			wantParts: []string{"LOG_NOT_FOUND", "missing.log"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTriageError(tt.code, tt.message, tt.cause)
			got := err.Error()

			for _, part := range tt.wantParts {
				if !strings.Contains(got, part) {
					t.Errorf("Error() = %q, want to contain %q", got, part)
				}
			}
		})
	}
}

func TestTriageError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewTriageError(InternalError, "something went wrong", cause)

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the cause through Unwrap")
	}

	// Test nil cause
	errNoCause := NewTriageError(RemoteFailed, "ssh dial failed", nil)
	if errNoCause.Unwrap() != nil {
		t.Errorf("Unwrap() on error without cause should return nil")
	}
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("analyze: %w", NewTriageError(LogNotFound, "gone", nil))
	if got := CodeOf(wrapped); got != LogNotFound {
		t.Errorf("CodeOf(wrapped) = %v, want %v", got, LogNotFound)
	}
	if got := CodeOf(errors.New("plain")); got != InternalError {
		t.Errorf("CodeOf(plain) = %v, want %v", got, InternalError)
	}
}

func TestGetSuggestedFixes(t *testing.T) {
	tests := []struct {
		code    ErrorCode
		wantNil bool
		wantLen int
	}{
		{LogNotFound, false, 1},
		{BaselineInvalid, false, 1},
		{ConfigInvalid, false, 1},
		{HistoryUnavailable, false, 1},
		{ChecksInvalid, false, 1},
		{LogUnreadable, true, 0}, // No predefined fixes
		{InternalError, true, 0}, // No predefined fixes
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fixes := GetSuggestedFixes(tt.code)

			if tt.wantNil && fixes != nil {
				t.Errorf("GetSuggestedFixes(%v) = %v, want nil", tt.code, fixes)
			}
			if !tt.wantNil && len(fixes) != tt.wantLen {
				t.Errorf("GetSuggestedFixes(%v) len = %d, want %d", tt.code, len(fixes), tt.wantLen)
			}
		})
	}
}

func TestErrorCodes(t *testing.T) {
	// Ensure all error codes are unique
	codes := []ErrorCode{
		LogNotFound,
		LogUnreadable,
		BaselineInvalid,
		ConfigInvalid,
		HistoryUnavailable,
		RemoteFailed,
		ChecksInvalid,
		InternalError,
	}

	seen := make(map[ErrorCode]bool)
	for _, code := range codes {
		if seen[code] {
			t.Errorf("Duplicate error code: %v", code)
		}
		seen[code] = true

		if string(code) == "" {
			t.Error("Error code should not be empty")
		}
	}
}

func TestErrorActionsMap(t *testing.T) {
	for code, fixes := range ErrorActions {
		if len(fixes) == 0 {
			t.Errorf("ErrorActions[%v] has no fix actions", code)
		}
		for i, fix := range fixes {
			if fix.Type == "" {
				t.Errorf("ErrorActions[%v][%d].Type is empty", code, i)
			}
			if fix.Command == "" && fix.Path == "" {
				t.Errorf("ErrorActions[%v][%d] has neither command nor path", code, i)
			}
		}
	}
}
