package pcm

import "errors"

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

// LoadError represents a failure to produce a sample window from a file
type LoadError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Load error codes
const (
	ErrCodeUnavailable       = "UNAVAILABLE"
	ErrCodeShortRead         = "SHORT_READ"
	ErrCodeInvalidWindow     = "INVALID_WINDOW"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	ErrCodeDecoding          = "DECODING_FAILED"
)

// NewLoadError creates a new load error
func NewLoadError(path, code, message string, cause error) *LoadError {
	return &LoadError{
		Path:    path,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ErrorCode returns the LoadError code carried by err, or "" if there is none.
func ErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ""
}

// IsUnavailable reports whether err means the input could not be opened or decoded.
func IsUnavailable(err error) bool {
	switch ErrorCode(err) {
	case ErrCodeUnavailable, ErrCodeDecoding, ErrCodeUnsupportedFormat:
		return true
	}
	return false
}
