package recommend

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed recommendation or training operation so the
// transport layer can map it to a status code without string matching.
type ErrorKind int

const (
	// KindInfrastructure covers storage, queue and other dependency failures.
	KindInfrastructure ErrorKind = iota
	// KindNotFound means the workspace or target contact does not exist.
	KindNotFound
	// KindDegenerate means the workspace has no usable contact graph.
	KindDegenerate
	// KindTrainingDivergence means the optimization produced a non-finite loss.
	KindTrainingDivergence
)

// ServiceError is the structured error type of the recommendation service.
type ServiceError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, msg string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind of a service error, defaulting to infrastructure
// for anything else.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInfrastructure
}
