// Package queryerr defines the coded error type shared by the value model,
// evaluator, compiler and pagination layers.
package queryerr

import (
	"errors"
	"fmt"
)

// Code categorizes query errors.
type Code string

const (
	// CodeLiteralFormat indicates malformed literal text.
	CodeLiteralFormat Code = "LITERAL_FORMAT"

	// CodeNotImplemented indicates an expression construct the in-memory
	// evaluator has no rule for.
	CodeNotImplemented Code = "NOT_IMPLEMENTED"

	// CodeUnsupportedExpression indicates an expression construct the query
	// compiler cannot push down.
	CodeUnsupportedExpression Code = "UNSUPPORTED_EXPRESSION"

	// CodeEvaluation indicates a runtime failure while evaluating one entity:
	// type mismatch, division by zero, null arithmetic.
	CodeEvaluation Code = "EVALUATION_RUNTIME"

	// CodePaginationState indicates a skip token that matches no entity in
	// the current ordering.
	CodePaginationState Code = "PAGINATION_STATE"
)

// Error is a query error with a category code.
//
// Node names the offending expression construct when one is known
// (for example "method startswith" or "binary add").
type Error struct {
	Code    Code
	Message string
	Node    string
	Details map[string]string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Node != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Node)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// LiteralFormat creates an error for text that is not a valid literal of typ.
func LiteralFormat(text, typ string, cause error) *Error {
	return &Error{
		Code:    CodeLiteralFormat,
		Message: fmt.Sprintf("malformed %s literal %q", typ, text),
		Details: map[string]string{"text": text, "type": typ},
		Err:     cause,
	}
}

// NotImplemented creates an error for a construct without an evaluation rule.
func NotImplemented(node string) *Error {
	return &Error{
		Code:    CodeNotImplemented,
		Message: "no evaluation rule",
		Node:    node,
	}
}

// Unsupported creates an error for a construct without a compilation rule.
func Unsupported(node, reason string) *Error {
	return &Error{
		Code:    CodeUnsupportedExpression,
		Message: reason,
		Node:    node,
	}
}

// Evaluation creates a runtime evaluation error.
func Evaluation(format string, args ...any) *Error {
	return &Error{
		Code:    CodeEvaluation,
		Message: fmt.Sprintf(format, args...),
	}
}

// PaginationState creates an error for a skip token with no matching entity.
func PaginationState(token string) *Error {
	return &Error{
		Code:    CodePaginationState,
		Message: "skip token matches no entity in the current ordering",
		Details: map[string]string{"skiptoken": token},
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsLiteralFormat reports whether err is a literal format error.
func IsLiteralFormat(err error) bool { return CodeOf(err) == CodeLiteralFormat }

// IsNotImplemented reports whether err is a missing evaluation rule.
func IsNotImplemented(err error) bool { return CodeOf(err) == CodeNotImplemented }

// IsUnsupported reports whether err is a missing compilation rule.
func IsUnsupported(err error) bool { return CodeOf(err) == CodeUnsupportedExpression }

// IsEvaluation reports whether err is a runtime evaluation error.
func IsEvaluation(err error) bool { return CodeOf(err) == CodeEvaluation }

// IsPaginationState reports whether err is a stale skip token.
func IsPaginationState(err error) bool { return CodeOf(err) == CodePaginationState }

// IsClientError reports whether err should surface as a bad request:
// malformed literals and expressions the server cannot evaluate or compile.
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case CodeLiteralFormat, CodeNotImplemented, CodeUnsupportedExpression:
		return true
	default:
		return false
	}
}
