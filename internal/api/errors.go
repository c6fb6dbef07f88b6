package api

import "fmt"

// The closed error taxonomy surfaced by every Client method. Backend
// SDK errors are always translated before they cross the adapter
// boundary; callers branch with errors.As.

// InvalidCredentialsError means the credential was missing or rejected
// (HTTP 401). Not retryable without external re-authentication.
type InvalidCredentialsError struct {
	Message string
	Err     error
}

func (e *InvalidCredentialsError) Error() string {
	if e.Message == "" {
		return "invalid or expired credentials"
	}
	return "invalid credentials: " + e.Message
}

func (e *InvalidCredentialsError) Unwrap() error { return e.Err }

// APIError is a generic backend HTTP failure carrying the status code.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// DownloadError is a download-family failure, used when a bare APIError
// would lose the operation context.
type DownloadError struct {
	FileID  string
	Message string
	Err     error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download of %s failed: %s", e.FileID, e.Message)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UpdateError is an update-content-family failure.
type UpdateError struct {
	FileID  string
	Message string
	Err     error
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("update of %s failed: %s", e.FileID, e.Message)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// NotSupportedError means the operation has no meaning or implementation
// for this backend. It is permanent; callers should branch on backend
// capability beforehand if they care. Alternative, when set, names the
// operation to use instead.
type NotSupportedError struct {
	Operation   string
	Alternative string
}

func (e *NotSupportedError) Error() string {
	if e.Alternative != "" {
		return fmt.Sprintf("%s is not supported by this backend, use %s instead", e.Operation, e.Alternative)
	}
	return fmt.Sprintf("%s is not supported by this backend", e.Operation)
}
