// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidFunctionName is the sentinel error wrapped by InvalidFunctionNameError.
var ErrInvalidFunctionName = errors.New("invalid function name")

// functionNameRe is Lambda's rule for unqualified function names.
var functionNameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type (
	// FunctionName is the short name of a Lambda function. It doubles as the
	// function's directory name, entry-point file stem and event-rule suffix.
	FunctionName string

	// InvalidFunctionNameError is returned when a FunctionName does not match
	// Lambda's naming rule.
	InvalidFunctionNameError struct {
		Value FunctionName
	}
)

// Error implements the error interface.
func (e *InvalidFunctionNameError) Error() string {
	return fmt.Sprintf("invalid function name %q (use 1-64 letters, digits, '-' or '_')", string(e.Value))
}

// Unwrap returns ErrInvalidFunctionName for errors.Is.
func (e *InvalidFunctionNameError) Unwrap() error { return ErrInvalidFunctionName }

// Validate checks the name against Lambda's naming rule.
func (n FunctionName) Validate() error {
	if !functionNameRe.MatchString(string(n)) {
		return &InvalidFunctionNameError{Value: n}
	}
	return nil
}

// String returns the name.
func (n FunctionName) String() string { return string(n) }
