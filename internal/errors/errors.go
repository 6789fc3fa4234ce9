package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Common error markers. Errors built with this package are marked with one of
// these so callers can classify them with errors.Is or the Is* helpers.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrValidation       = errors.New("validation error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrDatabase         = errors.New("database error")
	ErrInternal         = errors.New("internal error")

	// ErrTransport marks failures to reach the billing provider at all.
	ErrTransport = errors.New("transport error")
	// ErrProvider marks responses where the provider answered with a non-success code.
	ErrProvider = errors.New("provider error")
	// ErrItem marks a failure scoped to a single catalog item during a batch.
	ErrItem = errors.New("item error")
	// ErrAlreadyRunning is returned when a reconciliation run is already in progress.
	ErrAlreadyRunning = errors.New("run already in progress")
)

// ErrorBuilder accumulates context for an error before it is marked.
type ErrorBuilder struct {
	err     error
	details map[string]interface{}
}

// NewError starts a new error with the given message
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepth(1, msg)}
}

// NewErrorf starts a new error with a formatted message
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepth(1, fmt.Sprintf(format, args...))}
}

// WithError starts a builder around an existing error
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.NewWithDepth(1, "unknown error")
	}
	return &ErrorBuilder{err: err}
}

// WithHint attaches a user facing hint
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf attaches a formatted user facing hint
func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured details that are safe to log or report
func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	if b.details == nil {
		b.details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		b.details[k] = v
	}
	return b
}

// Mark finalizes the builder and marks the error with the given reference
func (b *ErrorBuilder) Mark(reference error) error {
	err := b.err
	if len(b.details) > 0 {
		err = &detailedError{cause: err, details: b.details}
	}
	return errors.Mark(err, reference)
}

// detailedError carries reportable details alongside its cause.
type detailedError struct {
	cause   error
	details map[string]interface{}
}

func (e *detailedError) Error() string { return e.cause.Error() }
func (e *detailedError) Unwrap() error { return e.cause }

// ReportableDetails collects the details attached anywhere in err's chain.
// Outer layers win on key conflicts.
func ReportableDetails(err error) map[string]interface{} {
	out := make(map[string]interface{})
	var layers []map[string]interface{}
	for e := err; e != nil; e = errors.UnwrapOnce(e) {
		if d, ok := e.(*detailedError); ok {
			layers = append(layers, d.details)
		}
	}
	for i := len(layers) - 1; i >= 0; i-- {
		for k, v := range layers[i] {
			out[k] = v
		}
	}
	return out
}

// Hints returns the hints attached to err, flattened into one string.
func Hints(err error) string {
	return errors.FlattenHints(err)
}

func IsNotFound(err error) bool         { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool    { return errors.Is(err, ErrAlreadyExists) }
func IsValidation(err error) bool       { return errors.Is(err, ErrValidation) }
func IsInvalidOperation(err error) bool { return errors.Is(err, ErrInvalidOperation) }
func IsDatabase(err error) bool         { return errors.Is(err, ErrDatabase) }
func IsTransport(err error) bool        { return errors.Is(err, ErrTransport) }
func IsProvider(err error) bool         { return errors.Is(err, ErrProvider) }
func IsItem(err error) bool             { return errors.Is(err, ErrItem) }
func IsAlreadyRunning(err error) bool   { return errors.Is(err, ErrAlreadyRunning) }
func IsInternal(err error) bool         { return errors.Is(err, ErrInternal) }
