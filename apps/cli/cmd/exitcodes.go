package cmd

import (
	"errors"

	"github.com/abdul-hamid-achik/hitwire/packages/codec"
	hithttp "github.com/abdul-hamid-achik/hitwire/packages/http"
	"github.com/abdul-hamid-achik/hitwire/packages/schema"
	"github.com/abdul-hamid-achik/hitwire/packages/uri"
)

// Exit codes for hitwire CLI
const (
	// ExitSuccess indicates the request succeeded
	ExitSuccess = 0

	// ExitStatusFailure indicates a response status of 400 or above
	ExitStatusFailure = 1

	// ExitParseError indicates a response body that could not be parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network/connection error
	ExitNetworkError = 4

	// ExitValidationError indicates a response that failed schema validation
	ExitValidationError = 5

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

type exitError struct {
	code int
	err  error
	// reported is set once the error has been printed by a formatter.
	reported bool
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCodeFor maps a request error to the exit code the CLI reports.
func exitCodeFor(err error) int {
	var (
		exitErr        *exitError
		statusErr      *hithttp.StatusError
		parseErr       *hithttp.ParseError
		stateErr       *hithttp.StateError
		validationErr  *schema.ValidationError
		unencodableErr *codec.UnencodableError
		syntaxErr      *uri.SyntaxError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.code
	case errors.As(err, &statusErr):
		return ExitStatusFailure
	case errors.As(err, &parseErr):
		return ExitParseError
	case errors.As(err, &validationErr):
		return ExitValidationError
	case errors.As(err, &stateErr), errors.As(err, &unencodableErr), errors.As(err, &syntaxErr):
		return ExitUsageError
	}
	return ExitNetworkError
}
