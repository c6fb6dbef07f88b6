package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsMatchThroughWrapping(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("operation failed: %w", &APIError{StatusCode: 503, Message: "unavailable", Err: cause})

	var apiErr *APIError
	if assert.True(t, errors.As(wrapped, &apiErr)) {
		assert.Equal(t, 503, apiErr.StatusCode)
	}
	assert.True(t, errors.Is(wrapped, cause))
}

func TestInvalidCredentialsMessage(t *testing.T) {
	assert.Equal(t, "invalid or expired credentials", (&InvalidCredentialsError{}).Error())
	assert.Contains(t, (&InvalidCredentialsError{Message: "token revoked"}).Error(), "token revoked")
}

func TestUpdateErrorKeepsContext(t *testing.T) {
	cause := &APIError{StatusCode: 500, Message: "server"}
	err := &UpdateError{FileID: "f1", Message: cause.Error(), Err: cause}

	assert.Contains(t, err.Error(), "f1")

	var apiErr *APIError
	if assert.True(t, errors.As(err, &apiErr)) {
		assert.Equal(t, 500, apiErr.StatusCode)
	}
}

func TestNotSupportedNamesAlternative(t *testing.T) {
	err := &NotSupportedError{Operation: "CreateFileWithMimeType on Dropbox", Alternative: "CreateFileWithExtension"}
	assert.Contains(t, err.Error(), "CreateFileWithExtension")

	bare := &NotSupportedError{Operation: "PermanentlyDeleteFile on OneDrive"}
	assert.NotContains(t, bare.Error(), "instead")
}
