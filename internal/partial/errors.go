package partial

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes partial evaluation errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a missing tree or registry.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeEvaluationFailed indicates a registered subtree could not be evaluated.
	ErrCodeEvaluationFailed ErrorCode = "EVALUATION_FAILED"
)

// Error is returned by the entry points of this package.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrNilTree is returned when Analyze, Fold or Reduce get no tree.
var ErrNilTree = &Error{Code: ErrCodeInvalidArgument, Message: "expression tree is nil"}

// ErrNilRegistry is returned when Fold gets no registry.
var ErrNilRegistry = &Error{Code: ErrCodeInvalidArgument, Message: "registry is nil"}

// Evaluation errors.
var (
	ErrUnboundParameter = errors.New("unbound parameter")
	ErrNoHostFunc       = errors.New("no host implementation")
	ErrUnsupportedNode  = errors.New("unsupported node")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrOverflow         = errors.New("integer overflow")
	ErrNotFolded        = errors.New("node is not a folded value")
)

// maxExprLen caps the rendering of a failed subtree in error messages.
const maxExprLen = 200

// EvaluationError is the error carried by a Failure produced by Fold.
type EvaluationError struct {
	// Expr is the formatted subtree whose evaluation failed, cut to
	// maxExprLen bytes.
	Expr string
	Err  error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.Expr, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// IsInvalidArgument reports whether err is an invalid-argument error.
// Uses errors.As to handle wrapped errors.
func IsInvalidArgument(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == ErrCodeInvalidArgument
	}
	return false
}

// IsEvaluationError reports whether err carries a deferred evaluation failure.
func IsEvaluationError(err error) bool {
	var ee *EvaluationError
	return errors.As(err, &ee)
}
