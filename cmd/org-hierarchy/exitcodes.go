package main

import (
	"errors"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitStore      = 4
	exitStoreWrite = 5
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}

// reconcileExitCode classifies reconciler failures.
func reconcileExitCode(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidGraph), errors.Is(err, services.ErrUnresolvedPlaceholder):
		return exitValidation
	case errors.Is(err, services.ErrCreateDesignation), errors.Is(err, services.ErrUpdateDesignation):
		return exitStoreWrite
	default:
		return exitStore
	}
}
