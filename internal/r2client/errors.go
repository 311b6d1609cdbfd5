package r2client

import (
	"errors"
	"net/http"

	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// classify returns the S3 error code and HTTP status carried by err, when
// the SDK attached them. HEAD requests have no body, so only the status
// identifies a missing object.
func classify(err error) (code string, status int) {
	if apiErr, ok := errors.AsType[smithy.APIError](err); ok {
		code = apiErr.ErrorCode()
	}
	if respErr, ok := errors.AsType[*smithyhttp.ResponseError](err); ok {
		status = respErr.HTTPStatusCode()
	}
	return code, status
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	code, status := classify(err)
	return code == "NoSuchKey" || code == "NotFound" || status == http.StatusNotFound
}

// IsPreconditionFailed reports whether a conditional write lost its race:
// the etag moved, or another writer created the key first.
func IsPreconditionFailed(err error) bool {
	if err == nil {
		return false
	}
	code, status := classify(err)
	return code == "PreconditionFailed" || code == "ConditionalRequestConflict" ||
		status == http.StatusPreconditionFailed
}
