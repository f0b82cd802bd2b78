package logging

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const Stacktrace = "stacktrace"

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// WithStacktrace adds err and, if one was recorded, the stack trace of the point where err was created.
func WithStacktrace(logger logrus.FieldLogger, err error) *logrus.Entry {
	entry := logger.WithError(err)
	if stack := ExtractStack(err); stack != nil {
		entry = entry.WithField(Stacktrace, stack)
	}
	return entry
}

// ExtractStack returns the innermost stack trace in the chain of wrapped errors, i.e. the one closest to
// the origin of the error, or nil if there is none.
func ExtractStack(err error) errors.StackTrace {
	var rv errors.StackTrace
	for err != nil {
		if tracer, ok := err.(stackTracer); ok {
			rv = tracer.StackTrace()
		}
		err = errors.Unwrap(err)
	}
	return rv
}
