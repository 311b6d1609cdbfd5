package r2client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

func responseError(status int) error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: status}},
		Err:      errors.New("api error"),
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", fmt.Errorf("wrapped: %w", ErrNotFound), true},
		{"no such key", &types.NoSuchKey{}, true},
		{"api code", &smithy.GenericAPIError{Code: "NotFound"}, true},
		{"http 404", responseError(http.StatusNotFound), true},
		{"http 500", responseError(http.StatusInternalServerError), false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"api code", &smithy.GenericAPIError{Code: "PreconditionFailed"}, true},
		{"http 412", responseError(http.StatusPreconditionFailed), true},
		{"concurrent create", fmt.Errorf("put lock: %w", &smithy.GenericAPIError{Code: "ConditionalRequestConflict"}), true},
		{"http 404", responseError(http.StatusNotFound), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPreconditionFailed(tt.err); got != tt.want {
				t.Errorf("IsPreconditionFailed(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
