package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	// ErrorTransient failures are retried until the item runs out of retries.
	ErrorTransient ErrorKind = "transient"
	// ErrorDataIntegrity marks a structurally malformed item. Retrying cannot
	// fix it, so it fails at once.
	ErrorDataIntegrity ErrorKind = "data_integrity"
	// ErrorConfiguration marks unknown routes, unsupported source types and
	// broken source configs. The item fails at once.
	ErrorConfiguration ErrorKind = "configuration"
)

var (
	ErrUnknownRoute         = errors.New("no handler for route")
	ErrScrapeAlreadyPending = errors.New("a scrape request is already pending")
	ErrMissingPipelineState = errors.New("required pipeline state is missing")
)

type StageError struct {
	Kind ErrorKind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	return &StageError{Kind: ErrorTransient, Err: err}
}

func DataIntegrity(err error) error {
	return &StageError{Kind: ErrorDataIntegrity, Err: err}
}

func Configuration(err error) error {
	return &StageError{Kind: ErrorConfiguration, Err: err}
}

// KindOf classifies err. Errors that were not classified by a handler, such as
// network failures and malformed AI answers, are transient.
func KindOf(err error) ErrorKind {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Kind
	}
	return ErrorTransient
}
