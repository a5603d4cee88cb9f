package catalog

// errors.go defines the pipeline's error taxonomy and the mapping from
// technical errors to user-friendly messages with support codes.
//
// Row-level validation problems are never returned as Go errors; they are
// aggregated into the ValidationReport (or MergeResult) so a caller always
// sees the complete picture in one pass. The errors here cover the
// upload-level failures that abort an operation:
//
//	ErrUploadNotFound   - the upload id does not exist
//	ErrSupplierNotFound - the supplier id does not exist
//	TransitionError     - an illegal status edge was attempted (ordering bug)
//	ErrMergePrecondition- merge called on an upload that is not mergeable
//	MergeFailure        - the merge transaction failed and was rolled back

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for callers to match with errors.Is.
var (
	ErrUploadNotFound   = errors.New("upload not found")
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrInvalidTransition is wrapped by TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMergePrecondition signals that the upload's status does not allow
	// merging (and skip_invalid_rows was not set).
	ErrMergePrecondition = errors.New("upload is not in a mergeable status")
)

// TransitionError reports an illegal status edge. Treated as fatal to the
// calling operation: it indicates an ordering bug in the caller, not bad data.
type TransitionError struct {
	UploadID string
	From     UploadStatus
	To       UploadStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("upload %s: illegal transition %s -> %s", e.UploadID, e.From, e.To)
}

// Unwrap lets errors.Is(err, ErrInvalidTransition) match.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// MergeFailure wraps a transaction-level merge error. The transaction has
// been rolled back; no partial canonical state was written and the upload
// keeps its pre-merge status.
type MergeFailure struct {
	UploadID string
	Stage    string // "upsert-products", "price-history", "finalize", ...
	Err      error
}

func (e *MergeFailure) Error() string {
	return fmt.Sprintf("merge of upload %s failed at %s: %v", e.UploadID, e.Stage, e.Err)
}

func (e *MergeFailure) Unwrap() error { return e.Err }

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Matched with strings.Contains; first match wins, so specific
// patterns come before general ones.
var errorPatterns = []errorPattern{
	// Pipeline ordering errors (UPL001-UPL099)
	{
		pattern: "illegal transition",
		msg: UserMessage{
			Message: "The upload is not in the right state for this operation",
			Action:  "Check the upload status; failed uploads must be reprocessed first",
			Code:    "UPL001",
		},
	},
	{
		pattern: "not in a mergeable status",
		msg: UserMessage{
			Message: "The upload has not passed validation",
			Action:  "Validate the upload first, or merge with skipInvalidRows",
			Code:    "UPL002",
		},
	},
	{
		pattern: "upload not found",
		msg: UserMessage{
			Message: "Upload not found",
			Action:  "Verify the upload id",
			Code:    "UPL003",
		},
	},
	{
		pattern: "supplier not found",
		msg: UserMessage{
			Message: "Supplier not found",
			Action:  "Create the supplier before uploading its pricelists",
			Code:    "UPL004",
		},
	},

	// Request decoding errors (REQ001)
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request is invalid",
			Action:  "Fix the request payload and retry",
			Code:    "REQ001",
		},
	},

	// Merge errors (MRG001-MRG099)
	{
		pattern: "merge of upload",
		msg: UserMessage{
			Message: "The merge failed and was rolled back; no catalog data was changed",
			Action:  "Review the error details and re-run the merge",
			Code:    "MRG001",
		},
	},

	// Database constraint errors (DB001-DB003)
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check the upload for conflicting rows",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check the upload for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review the upload for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure the supplier exists before uploading",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure the supplier exists before uploading",
			Code:    "DB003",
		},
	},

	// Database connection errors (DB004-DB007)
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller batch or try again later",
			Code:    "DB007",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller batch or try again later",
			Code:    "DB007",
		},
	},

	// Rate limiting (RATE001)
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// MapError converts a technical error into a user-friendly message.
// Unmatched errors map to the generic ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{Message: "Success", Code: "OK"}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
}
