package domain

import "fmt"

// DirectoryUnavailableError indicates a directory transport, bind, or
// forward-progress failure. Aborts the cycle.
type DirectoryUnavailableError struct {
	Message string
}

func (e *DirectoryUnavailableError) Error() string { return e.Message }

// PagingUnsupportedError indicates the directory accepted the query but did
// not honor cursor-based paging. This is a hard failure: a truncated
// directory view can make real employees appear absent.
type PagingUnsupportedError struct {
	Message string
}

func (e *PagingUnsupportedError) Error() string { return e.Message }

// PlatformUnavailableError indicates a transport or auth failure against the
// workspace platform. Aborts the cycle.
type PlatformUnavailableError struct {
	Message string
}

func (e *PlatformUnavailableError) Error() string { return e.Message }

// FailsafeExceededError indicates the candidate ratio exceeded the failsafe
// threshold. The cycle is aborted with zero mutations.
type FailsafeExceededError struct {
	Message string
}

func (e *FailsafeExceededError) Error() string { return e.Message }

// RevokeError indicates one candidate's revoke call failed. The candidate is
// skipped; the rest of the cycle proceeds.
type RevokeError struct {
	Message string
}

func (e *RevokeError) Error() string { return e.Message }

// NotifyError indicates one recipient's message failed. Remaining recipients
// are still attempted.
type NotifyError struct {
	Message string
}

func (e *NotifyError) Error() string { return e.Message }

// ErrDirectoryUnavailable creates a DirectoryUnavailableError with a formatted message.
func ErrDirectoryUnavailable(format string, args ...interface{}) *DirectoryUnavailableError {
	return &DirectoryUnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrPagingUnsupported creates a PagingUnsupportedError with a formatted message.
func ErrPagingUnsupported(format string, args ...interface{}) *PagingUnsupportedError {
	return &PagingUnsupportedError{Message: fmt.Sprintf(format, args...)}
}

// ErrPlatformUnavailable creates a PlatformUnavailableError with a formatted message.
func ErrPlatformUnavailable(format string, args ...interface{}) *PlatformUnavailableError {
	return &PlatformUnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ErrFailsafeExceeded creates a FailsafeExceededError with a formatted message.
func ErrFailsafeExceeded(format string, args ...interface{}) *FailsafeExceededError {
	return &FailsafeExceededError{Message: fmt.Sprintf(format, args...)}
}

// ErrRevoke creates a RevokeError with a formatted message.
func ErrRevoke(format string, args ...interface{}) *RevokeError {
	return &RevokeError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotify creates a NotifyError with a formatted message.
func ErrNotify(format string, args ...interface{}) *NotifyError {
	return &NotifyError{Message: fmt.Sprintf(format, args...)}
}
