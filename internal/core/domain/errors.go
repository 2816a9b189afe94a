package domain

import (
	"errors"
	"strings"
)

// ============================================================================
// Fine-Tuning Errors
// ============================================================================

// Configuration errors
var (
	ErrMissingAPIKey       = errors.New("NEBIUS_API_KEY is not defined in environment variables")
	ErrMissingTrainingFile = errors.New("training file is required")
	ErrMissingModel        = errors.New("model is required")
	ErrMissingJobID        = errors.New("job ID is required")
	ErrMissingFileID       = errors.New("file ID is required")
)

// Kind sentinels, matched with errors.Is against a *FineTuningError
var (
	ErrFileNotReady     = errors.New("file not ready")
	ErrInvalidFormat    = errors.New("invalid training data format")
	ErrConfiguration    = errors.New("configuration error")
	ErrProviderFailure  = errors.New("provider request failed")
	ErrInvalidExtension = errors.New("file must be in JSONL format with .jsonl extension")
)

// ============================================================================
// Generation Log Errors
// ============================================================================

var (
	ErrLogNotFound       = errors.New("no completed log entry found for this request ID")
	ErrLogTableMissing   = errors.New("the generation_logs table does not exist")
	ErrLogStoreDisabled  = errors.New("generation log store is not configured")
	ErrMissingRequestID  = errors.New("request ID is required")
	ErrMissingImageURL   = errors.New("image URL is required")
	ErrInvalidPagination = errors.New("limit and offset must be non-negative")
)

// ============================================================================
// Tagged fine-tuning error
// ============================================================================

// ErrorKind classifies a fine-tuning failure for the HTTP boundary.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindFileNotReady
	KindInvalidFormat
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindFileNotReady:
		return "file_not_ready"
	case KindInvalidFormat:
		return "invalid_format"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindFileNotReady:
		return ErrFileNotReady
	case KindInvalidFormat:
		return ErrInvalidFormat
	default:
		return ErrProviderFailure
	}
}

// FineTuningError carries a user-facing message, its classification and the
// underlying cause.
type FineTuningError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewFineTuningError builds a tagged error. An empty message falls back to the
// cause's text.
func NewFineTuningError(kind ErrorKind, message string, err error) *FineTuningError {
	return &FineTuningError{Kind: kind, Message: message, Err: err}
}

func (e *FineTuningError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.sentinel().Error()
}

func (e *FineTuningError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrFileNotReady) and friends match on the kind.
func (e *FineTuningError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the classification of err, or KindUnknown when err carries
// no *FineTuningError.
func KindOf(err error) ErrorKind {
	var fe *FineTuningError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// HasJSONLExtension reports whether name ends in ".jsonl".
func HasJSONLExtension(name string) bool {
	return strings.HasSuffix(name, ".jsonl")
}
