// Package exiterr carries process exit codes along with errors
package exiterr

import (
	"errors"
	"fmt"
)

const (
	CodeErrored = 1
	// Bad arguments or input files
	CodeUsage = 2
)

type ExitError struct {
	Err  error
	Code int
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d", e.Code)
	}

	return fmt.Sprintf("%d: %s", e.Code, e.Err.Error())
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// Wrap an error with an exit code
func Wrap(code int, err error) error {
	return ExitError{Code: code, Err: err}
}

// Code picks the exit code for an error returned by a command
func Code(err error) int {
	if err == nil {
		return 0
	}

	var ee ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return CodeErrored
}
