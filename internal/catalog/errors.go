package catalog

// errors.go defines the error taxonomy of a merge run and the diagnostic
// codes attached to each condition.
//
// # Source Errors (SRC001-SRC099)
//
//	SRC001 - Source not found: a configured price list file does not exist
//	         Action: Check the file name or the sources manifest
//	         Severity: recoverable, the source is skipped
//
//	SRC002 - Source directory missing: the data directory does not exist
//	         Action: Create the directory or fix CATALOG_DATA_DIR
//	         Severity: fatal
//
//	SRC003 - No sources: no usable price list was found
//	         Action: Add <supplier>_<manufacturer>.csv files to the data directory
//	         Severity: fatal
//
//	SRC004 - Invalid source name: file name does not follow <supplier>_<manufacturer>.<ext>
//	         Action: Rename the file or list it in the sources manifest
//	         Severity: recoverable, the file is skipped
//
// # Encoding Errors (ENC001-ENC099)
//
//	ENC001 - Decode failure: the file could not be decoded even after fallback
//	         Action: Save the file as UTF-8 or Latin-1 text
//	         Severity: recoverable, the source is skipped
//
// # Row Errors (ROW001-ROW099, PRC001-PRC099)
//
//	ROW001 - Skipped row: the row has no item number
//	         Action: Fill the PART # column
//	         Severity: recoverable, the row is dropped
//
//	PRC001 - Invalid price: the price text is not a number
//	         Action: Use plain decimals such as 1,234.50
//	         Severity: recoverable, the price defaults to 0
//
// # Rate Errors (RATE001-RATE099)
//
//	RATE001 - Rate unavailable: no usable rate for the offer currency
//	          Action: Add the currency to the rate table
//	          Severity: recoverable, the original price is kept
//
//	RATE002 - Rate fetch failed: the live rate provider could not be used
//	          Action: Check RATES_URL and network access
//	          Severity: recoverable, built-in rates are used
//
// # Output Errors (OUT001-OUT099)
//
//	OUT001 - Output write failed: the snapshot could not be serialized or written
//	         Action: Check the output path and permissions
//	         Severity: fatal
//
// # Default Error (ERR000)
//
// Fallback when no sentinel matches.

import (
	"errors"
)

var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrSourceDirMissing  = errors.New("source directory missing")
	ErrNoSources         = errors.New("no source files found")
	ErrSourceNameInvalid = errors.New("source file name does not follow <supplier>_<manufacturer>.<ext>")
	ErrDecodeFailure     = errors.New("decode failure")
	ErrSkippedRow        = errors.New("row has no item number")
	ErrPriceParse        = errors.New("invalid price")
	ErrRateUnavailable   = errors.New("exchange rate unavailable")
	ErrRateFetch         = errors.New("exchange rate fetch failed")
	ErrOutputWrite       = errors.New("output write failed")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Fatal   bool   // Whether the condition aborts the run
}

// errorCode ties a sentinel error to its user message.
type errorCode struct {
	err error
	msg UserMessage
}

// errorCodes is checked in order with errors.Is; the first match wins.
var errorCodes = []errorCode{
	{ErrSourceNotFound, UserMessage{
		Message: "Price list file not found",
		Action:  "Check the file name or the sources manifest",
		Code:    "SRC001",
	}},
	{ErrSourceDirMissing, UserMessage{
		Message: "Price list directory does not exist",
		Action:  "Create the directory or fix CATALOG_DATA_DIR",
		Code:    "SRC002",
		Fatal:   true,
	}},
	{ErrNoSources, UserMessage{
		Message: "No usable price list was found",
		Action:  "Add <supplier>_<manufacturer>.csv files to the data directory",
		Code:    "SRC003",
		Fatal:   true,
	}},
	{ErrSourceNameInvalid, UserMessage{
		Message: "File name does not follow <supplier>_<manufacturer>.<ext>",
		Action:  "Rename the file or list it in the sources manifest",
		Code:    "SRC004",
	}},
	{ErrDecodeFailure, UserMessage{
		Message: "File could not be decoded",
		Action:  "Save the file as UTF-8 or Latin-1 text",
		Code:    "ENC001",
	}},
	{ErrSkippedRow, UserMessage{
		Message: "Row skipped because it has no item number",
		Action:  "Fill the PART # column",
		Code:    "ROW001",
	}},
	{ErrPriceParse, UserMessage{
		Message: "Price is not a number and was set to 0",
		Action:  "Use plain decimals such as 1,234.50",
		Code:    "PRC001",
	}},
	{ErrRateUnavailable, UserMessage{
		Message: "No exchange rate for currency, original price kept",
		Action:  "Add the currency to the rate table",
		Code:    "RATE001",
	}},
	{ErrRateFetch, UserMessage{
		Message: "Live exchange rates unavailable, built-in rates used",
		Action:  "Check RATES_URL and network access",
		Code:    "RATE002",
	}},
	{ErrOutputWrite, UserMessage{
		Message: "Catalog could not be written",
		Action:  "Check the output path and permissions",
		Code:    "OUT001",
		Fatal:   true,
	}},
}

// defaultMessage is returned when no sentinel matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts an error into a user-friendly message with a code.
// Returns the ERR000 message for nil or unrecognised errors.
func MapError(err error) UserMessage {
	if err == nil {
		return defaultMessage
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.msg
		}
	}
	return defaultMessage
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	return err != nil && MapError(err).Fatal
}
