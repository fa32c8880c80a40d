// Package errors provides structured error handling for the order index.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store errors (index tables, option store)
//   - 4XX: Validation errors (filters, search input)
//   - 5XX: Internal errors
//   - 6XX: Bulk reindex errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates failures talking to the index store.
	CategoryStore Category = "STORE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryBulk indicates bulk reindex control errors.
	CategoryBulk Category = "BULK"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeStoreWrite = "ERR_201_STORE_WRITE"
	ErrCodeStoreRead  = "ERR_202_STORE_READ"
	ErrCodeSchema     = "ERR_203_SCHEMA"

	// Validation errors (400-499)
	ErrCodeInvalidInput       = "ERR_401_INVALID_INPUT"
	ErrCodeMalformedToken     = "ERR_402_MALFORMED_SEARCH_TOKEN"
	ErrCodeUnsupportedOrderBy = "ERR_403_UNSUPPORTED_ORDERBY"

	// Internal errors (500-599)
	ErrCodeInternal       = "ERR_501_INTERNAL"
	ErrCodeRecordNotFound = "ERR_502_RECORD_NOT_FOUND"

	// Bulk errors (600-699)
	ErrCodeBulkAborted = "ERR_601_BULK_ABORTED"
	ErrCodeBulkLocked  = "ERR_602_BULK_LOCKED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_STORE_WRITE")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '4':
		return CategoryValidation
	case '6':
		return CategoryBulk
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeSchema:
		return SeverityFatal
	case ErrCodeMalformedToken, ErrCodeUnsupportedOrderBy, ErrCodeBulkAborted:
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// A failed index write is retried by the next mutation or a bulk re-run.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStoreWrite, ErrCodeStoreRead, ErrCodeBulkLocked:
		return true
	default:
		return false
	}
}
