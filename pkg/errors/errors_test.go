package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "parse error",
			category:   CategoryParse,
			code:       CodeInvalidFormat,
			message:    "invalid format",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "validation error",
			category:   CategoryValidation,
			code:       CodeDuplicateID,
			message:    "duplicate id",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("missing field"),
			expectCode: 4,
		},
		{
			name:       "internal error",
			category:   CategoryInternal,
			code:       CodeUnexpectedError,
			message:    "unexpected",
			cause:      nil,
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *PipelineError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}

			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}

			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}

			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
		})
	}
}

func TestPipelineErrorWithContext(t *testing.T) {
	err := New(CategoryFile, CodeFileNotFound, "test error").
		WithContext("file", "/path/to/file").
		WithContext("line", 42).
		WithSuggestion("check file path")

	if err.Context["file"] != "/path/to/file" {
		t.Errorf("expected file context '/path/to/file', got %v", err.Context["file"])
	}
	if err.Context["line"] != 42 {
		t.Errorf("expected line context 42, got %v", err.Context["line"])
	}

	if err.Suggestion != "check file path" {
		t.Errorf("expected suggestion 'check file path', got %s", err.Suggestion)
	}

	// Error string includes the suggestion when one is set
	expected := "test error (suggestion: check file path)"
	if err.Error() != expected {
		t.Errorf("expected error string '%s', got '%s'", expected, err.Error())
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, CategoryFile, CodeFileNotFound, "should be nil"); err != nil {
		t.Errorf("expected nil when wrapping nil, got %v", err)
	}
}

func TestSpecificErrorConstructors(t *testing.T) {
	t.Run("FileError", func(t *testing.T) {
		cause := errors.New("permission denied")
		err := FileError(CodeFilePermission, "/test/file.csv", cause)

		if err.Category != CategoryFile {
			t.Errorf("expected file category, got %s", err.Category)
		}
		if err.Context["file_path"] != "/test/file.csv" {
			t.Errorf("expected file_path context, got %v", err.Context["file_path"])
		}
		if err.Suggestion == "" {
			t.Error("expected suggestion to be set")
		}
		if err.Cause != cause {
			t.Errorf("expected cause to be %v, got %v", cause, err.Cause)
		}
	})

	t.Run("ParseError", func(t *testing.T) {
		err := ParseError(CodeInvalidFormat, "orders.csv", 10, "amount", "12.3.4", nil)

		if err.Category != CategoryParse {
			t.Errorf("expected parse category, got %s", err.Category)
		}
		if err.Context["file"] != "orders.csv" {
			t.Errorf("expected file context, got %v", err.Context["file"])
		}
		if err.Context["line"] != 10 {
			t.Errorf("expected line context, got %v", err.Context["line"])
		}
		if err.Context["field"] != "amount" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		err := ValidationError(CodeDuplicateID, "order_id", "O1", nil)

		if err.Category != CategoryValidation {
			t.Errorf("expected validation category, got %s", err.Category)
		}
		if err.Context["field"] != "order_id" {
			t.Errorf("expected field context, got %v", err.Context["field"])
		}
	})

	t.Run("ConfigurationError", func(t *testing.T) {
		err := ConfigurationError(CodeInvalidConfig, "amount-tolerance", -1, nil)

		if err.Category != CategoryConfiguration {
			t.Errorf("expected configuration category, got %s", err.Category)
		}
		if err.Context["setting"] != "amount-tolerance" {
			t.Errorf("expected setting context, got %v", err.Context["setting"])
		}
	})

	t.Run("ReconciliationError", func(t *testing.T) {
		cause := errors.New("bad tolerance")
		err := ReconciliationError(CodeProcessingError, "engine setup", cause)

		if err.Category != CategoryReconciliation {
			t.Errorf("expected reconciliation category, got %s", err.Category)
		}
		if err.Code != CodeProcessingError {
			t.Errorf("expected processing_error code, got %s", err.Code)
		}
		if err.Context["operation"] != "engine setup" {
			t.Errorf("expected operation context, got %v", err.Context["operation"])
		}
		if ExitCode(err) != 5 {
			t.Errorf("expected exit code 5, got %d", ExitCode(err))
		}
	})

	t.Run("InternalError", func(t *testing.T) {
		err := InternalError(CodeUnexpectedError, "csv_loading", errors.New("boom"))

		if err.Category != CategoryInternal {
			t.Errorf("expected internal category, got %s", err.Category)
		}
		if err.Context["operation"] != "csv_loading" {
			t.Errorf("expected operation context, got %v", err.Context["operation"])
		}
	})
}

func TestIsPipelineError(t *testing.T) {
	if !IsPipelineError(New(CategoryFile, CodeFileNotFound, "x")) {
		t.Error("expected PipelineError to be detected")
	}
	if IsPipelineError(errors.New("plain")) {
		t.Error("expected plain error to not be a PipelineError")
	}
}

func TestAsPipelineError(t *testing.T) {
	inner := FileError(CodeFileNotFound, "/missing.csv", nil)
	wrapped := fmt.Errorf("loading failed: %w", inner)

	extracted, ok := AsPipelineError(wrapped)
	if !ok {
		t.Fatal("expected PipelineError to be extracted from the chain")
	}
	if extracted.Code != CodeFileNotFound {
		t.Errorf("expected file_not_found code, got %s", extracted.Code)
	}

	if _, ok := AsPipelineError(errors.New("plain")); ok {
		t.Error("expected no PipelineError in a plain error")
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(nil); got != 0 {
		t.Errorf("expected 0 for nil error, got %d", got)
	}
	if got := ExitCode(errors.New("plain")); got != 1 {
		t.Errorf("expected 1 for plain error, got %d", got)
	}
	if got := ExitCode(FileError(CodeFileNotFound, "/x.csv", nil)); got != 2 {
		t.Errorf("expected 2 for file error, got %d", got)
	}

	wrapped := fmt.Errorf("outer: %w", ConfigurationError(CodeInvalidConfig, "format", "xml", nil))
	if got := ExitCode(wrapped); got != 4 {
		t.Errorf("expected 4 for wrapped configuration error, got %d", got)
	}
}
