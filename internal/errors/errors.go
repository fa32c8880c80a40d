package errors

import (
	"errors"
	"fmt"
	"strconv"
)

// Error is a coded failure of the order index. Write-path failures are
// logged and swallowed by the trigger; read, config and bulk failures reach
// the CLI and are rendered by FormatForCLI.
type Error struct {
	// Code identifies the failure, e.g. ERR_201_STORE_WRITE for a failed upsert.
	Code string

	Message string

	// Category and Severity are derived from the code.
	Category Category
	Severity Severity

	// Details are rendered one per line, sorted by key (record_id, user_id,
	// lock path, batch counts).
	Details map[string]string

	Cause error

	// Retryable marks failures a later trigger or reindex run can repair,
	// such as a busy database or a held reindex lock.
	Retryable bool

	// Suggestion tells the operator what to run next.
	Suggestion string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on code alone, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches a key-value pair and returns e.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the operator hint and returns e.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New builds an Error whose category, severity and retry flag follow code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap gives an uncoded error a code, keeping its text. Wrap(code, nil) is nil.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError reports an unreadable or invalid configuration file.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreWriteError reports a failed index upsert or customer update.
func StoreWriteError(message string, cause error) *Error {
	return New(ErrCodeStoreWrite, message, cause)
}

// StoreReadError reports a failed read of the index or of source records.
func StoreReadError(message string, cause error) *Error {
	return New(ErrCodeStoreRead, message, cause)
}

// ValidationError reports bad CLI or filter input.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// RecordNotFound reports a source record that does not exist (anymore).
// Bulk runs skip these instead of counting them as failures.
func RecordNotFound(id int64) *Error {
	return New(ErrCodeRecordNotFound, fmt.Sprintf("record %d not found", id), nil).
		WithDetail("record_id", strconv.FormatInt(id, 10))
}

// BulkLocked reports a reindex lock held by another run.
func BulkLocked(lockPath string) *Error {
	return New(ErrCodeBulkLocked, "another reindex is running", nil).
		WithDetail("lock", lockPath).
		WithSuggestion("wait for it to finish or run 'orderindex reindex kill'")
}

// BulkAborted reports a run stopped by the kill switch or by cancellation.
func BulkAborted(reason string, batchesDone, batchesTotal int) *Error {
	return New(ErrCodeBulkAborted, "reindex aborted by "+reason, nil).
		WithDetail("batches_done", strconv.Itoa(batchesDone)).
		WithDetail("batches_total", strconv.Itoa(batchesTotal)).
		WithSuggestion("run 'orderindex reindex --resume' to continue")
}

// Sentinels for errors.Is.
var (
	ErrBulkAborted    = &Error{Code: ErrCodeBulkAborted}
	ErrBulkLocked     = &Error{Code: ErrCodeBulkLocked}
	ErrRecordNotFound = &Error{Code: ErrCodeRecordNotFound}
	ErrStoreWrite     = &Error{Code: ErrCodeStoreWrite}
)

// IsRetryable reports whether any Error in err's chain is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsFatal reports whether err carries a fatal code (a failed schema migration).
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode returns the code of the first Error in err's chain, or "".
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
