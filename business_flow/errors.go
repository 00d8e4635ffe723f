// Package businessflow contains the tracking pipeline and the read-side views built on it
package businessflow

import (
	"errors"
	"fmt"

	"github.com/amirphl/lurewatch/app/lure"
)

// Business flow error constants
var (
	// Target-related errors
	ErrNoTargets     = errors.New("no targets registered")
	ErrInvalidTarget = errors.New("invalid target")

	// Lure-related errors
	ErrUnknownTemplate = lure.ErrUnknownTemplate
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// ErrorCode returns the business code carried by err, or an empty string
func ErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func IsNoTargets(err error) bool {
	return errors.Is(err, ErrNoTargets)
}

func IsInvalidTarget(err error) bool {
	return errors.Is(err, ErrInvalidTarget)
}
