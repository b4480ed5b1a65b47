// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer. Role and ownership checks
// live here, next to the operations they guard.
package service

import "fmt"

// ValidationError marks missing or malformed input. Handlers map it to 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}
