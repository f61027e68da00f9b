package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "no cause",
			err:  New(ErrCategoryConfig, CodeInvalidWeights, "device weights sum to 0.9"),
			want: "[CONFIG:INVALID_WEIGHTS] device weights sum to 0.9",
		},
		{
			name: "with cause",
			err:  Wrap(ErrCategoryStorage, CodeUploadFailed, "upload failed", fmt.Errorf("connection refused")),
			want: "[STORAGE:UPLOAD_FAILED] upload failed: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := NewWarehouseError(CodeLoadFailed, "insert users", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestError_Is(t *testing.T) {
	err1 := NewConfigError(CodeInvalidConfig, "first")
	err2 := NewConfigError(CodeInvalidConfig, "second")
	err3 := NewConfigError(CodeInvalidWeights, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}

	wrapped := fmt.Errorf("generate: %w", err1)
	if !errors.Is(wrapped, New(ErrCategoryConfig, CodeInvalidConfig, "")) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryStorage, CodeUploadFailed, true},
		{ErrCategoryStorage, CodeDownloadFailed, true},
		{ErrCategoryStorage, CodeObjectNotFound, false},
		{ErrCategoryConfig, CodeInvalidConfig, false},
		{ErrCategoryGeneration, CodeInvariantViolated, false},
		{ErrCategoryWarehouse, CodeLoadFailed, false},
		{ErrCategoryExport, CodeWriteFailed, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors are never retryable")
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := fmt.Errorf("load: %w", NewWarehouseError(CodeCheckFailed, "retention > 1", nil))
	if got := GetCategory(err); got != ErrCategoryWarehouse {
		t.Errorf("GetCategory = %q, want %q", got, ErrCategoryWarehouse)
	}
	if got := GetCode(err); got != CodeCheckFailed {
		t.Errorf("GetCode = %q, want %q", got, CodeCheckFailed)
	}
	if GetCategory(fmt.Errorf("plain")) != "" || GetCode(fmt.Errorf("plain")) != "" {
		t.Error("plain errors should have no category or code")
	}
}

func TestWithDetails(t *testing.T) {
	base := NewConfigError(CodeInvalidWeights, "bad table")
	detailed := base.WithDetails(map[string]interface{}{"table": "device"})
	if base.Details != nil {
		t.Error("WithDetails must not mutate the receiver")
	}
	if detailed.Details["table"] != "device" {
		t.Errorf("details = %v", detailed.Details)
	}
}
