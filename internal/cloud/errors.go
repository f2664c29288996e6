// SPDX-License-Identifier: MPL-2.0

package cloud

import (
	"errors"
	"slices"
	"strings"

	"github.com/aws/smithy-go"
)

const (
	codeResourceNotFound      = "ResourceNotFoundException"
	codeResourceConflict      = "ResourceConflictException"
	codeInvalidParameterValue = "InvalidParameterValueException"
)

var (
	// ErrFunctionNotFound is returned when Lambda has no function by that name.
	ErrFunctionNotFound = errors.New("function not found")
	// ErrNoRegion is returned when neither config nor the SDK chain yields a region.
	ErrNoRegion = errors.New("no AWS region configured")
	// ErrNoArtifactBucket is returned when S3 staging is requested without a bucket.
	ErrNoArtifactBucket = errors.New("no artifact bucket configured")
)

// IsAPIError reports whether err carries one of the given AWS error codes.
func IsAPIError(err error, codes ...string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && slices.Contains(codes, apiErr.ErrorCode())
}

// IsNotFound reports whether err is a ResourceNotFoundException from any service.
func IsNotFound(err error) bool {
	return IsAPIError(err, codeResourceNotFound)
}

// isRolePropagation matches the error Lambda returns while a freshly created
// IAM role is not yet visible to it.
func isRolePropagation(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == codeInvalidParameterValue &&
		strings.Contains(apiErr.ErrorMessage(), "cannot be assumed")
}
