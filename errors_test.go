package apiclient

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := newError(KindDeclared, "Invalid title.", nil, RequestInfo{Method: "POST", URL: "https://api.example.com/posts"})

	expected := "POST https://api.example.com/posts: Invalid title."
	if err.Error() != expected {
		t.Errorf("Expected '%s', got '%s'", expected, err.Error())
	}

	bare := &Error{Message: "configuration validation failed"}
	if bare.Error() != "configuration validation failed" {
		t.Errorf("Expected bare message, got '%s'", bare.Error())
	}

	var nilErr *Error
	if nilErr.Error() != "<nil>" {
		t.Errorf("Expected '<nil>', got '%s'", nilErr.Error())
	}
}

func TestNewErrorAlwaysHasResponse(t *testing.T) {
	err := newError(KindTransport, MessageNetworkError, nil, RequestInfo{})
	if err.Response == nil {
		t.Fatal("Expected non-nil response")
	}
	if len(err.Response) != 0 {
		t.Errorf("Expected empty response, got %v", err.Response)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &Error{Kind: KindTransport, Message: MessageNetworkError, Cause: cause}

	if err.Unwrap() != cause {
		t.Errorf("Expected unwrapped error to be %v, got %v", cause, err.Unwrap())
	}
	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the cause")
	}

	var nilErr *Error
	if nilErr.Unwrap() != nil {
		t.Error("Expected nil unwrap on nil receiver")
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("loading posts: %w", &Error{Kind: KindShape, Message: MessageUnexpectedResponse})

	if !errors.Is(err, &Error{Kind: KindShape}) {
		t.Error("Expected errors.Is to match the same kind")
	}
	if errors.Is(err, &Error{Kind: KindStatus}) {
		t.Error("Expected errors.Is not to match a different kind")
	}
	if !IsKind(err, KindShape) {
		t.Error("Expected IsKind to unwrap and match")
	}
	if IsKind(errors.New("plain"), KindShape) {
		t.Error("Expected IsKind to reject non-client errors")
	}
}

func TestErrorForbidden(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want bool
	}{
		{"http 403", &Error{StatusCode: 403, Response: Payload{}}, true},
		{"body status number", &Error{StatusCode: 200, Response: Payload{"status": float64(403)}}, true},
		{"body status string", &Error{Response: Payload{"status": "403"}}, true},
		{"http 401", &Error{StatusCode: 401, Response: Payload{}}, false},
		{"body status 500", &Error{Response: Payload{"status": float64(500)}}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Forbidden(); got != tt.want {
				t.Errorf("Forbidden() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{
		KindTransport: "transport",
		KindShape:     "shape",
		KindDeclared:  "declared",
		KindStatus:    "status",
		KindConfig:    "config",
		Kind(99):      "unknown",
	} {
		if kind.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(kind), kind.String(), want)
		}
	}
}
