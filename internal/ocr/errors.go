package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable is returned when the extraction service cannot be
	// reached or times out. Callers must surface this distinctly; absence of
	// data is never a valid empty extraction.
	ErrServiceUnavailable = errors.New("extraction service unavailable")

	// ErrExtractionFailed is returned when the service responded but could
	// not process the document. Retryable.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrInvalidPayload is returned when the service response does not
	// contain a parseable invoice document.
	ErrInvalidPayload = errors.New("invalid extraction payload")
)

// Error wraps extraction failures with the operation that produced them.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err, Details: details}
}
