package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	e := NewAnalysisRequestError("上游失败")
	if got := e.Error(); got != "analysis_request_error: 上游失败" {
		t.Fatalf("Error() = %q", got)
	}

	e = &Error{Type: ErrAPI, Message: "boom", Code: "INTERNAL"}
	if got := e.Error(); got != "api_error: boom (code: INTERNAL)" {
		t.Fatalf("Error() with code = %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    bool
	}{
		{ErrRateLimit, true},
		{ErrOverloaded, true},
		{ErrAPI, true},
		{ErrInvalidInput, false},
		{ErrMissingCredential, false},
		{ErrAnalysisParse, false},
		{ErrAuthentication, false},
	}
	for _, tt := range tests {
		e := &Error{Type: tt.errType}
		if got := e.IsRetryable(); got != tt.want {
			t.Errorf("IsRetryable(%s) = %v, want %v", tt.errType, got, tt.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	e := NewAnalysisParseError("格式错误", cause)
	if !errors.Is(e, cause) {
		t.Fatal("wrapped cause not reachable via errors.Is")
	}

	plain := NewInvalidInputError("空")
	if plain.Unwrap() != nil {
		t.Fatal("Unwrap of uncaused error should be nil")
	}
}

func TestIsType(t *testing.T) {
	e := NewMicrophoneUnavailableError("没有麦克风", nil)
	if !IsType(e, ErrMicrophoneUnavailable) {
		t.Fatal("IsType missed direct error")
	}
	wrapped := fmt.Errorf("start call: %w", e)
	if !IsType(wrapped, ErrMicrophoneUnavailable) {
		t.Fatal("IsType missed wrapped error")
	}
	if IsType(wrapped, ErrLiveSession) {
		t.Fatal("IsType matched wrong type")
	}
	if IsType(errors.New("plain"), ErrAPI) {
		t.Fatal("IsType matched untyped error")
	}
}
