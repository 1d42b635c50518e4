package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAttributes(t *testing.T) {
	code := Code("TEST_REGISTERED")
	Register(code, Attributes{Message: "registered", Severity: SeverityWarning, Retryable: true})

	err := New(code, "")
	assert.Equal(t, "registered", err.Message())
	assert.True(t, err.Retryable())
	assert.Equal(t, SeverityWarning, err.Severity())
}

func TestUnregisteredCodeFallsBackToUnknown(t *testing.T) {
	attr := AttributesOf(Code("NEVER_REGISTERED"))
	assert.Equal(t, AttributesOf(CodeUnknown), attr)
}

func TestWrapKeepsCauseAndCode(t *testing.T) {
	cause := stdErrors.New("dial tcp: connection refused")
	err := fmt.Errorf("outer: %w", Wrap(CodeStorageFailure, cause, "写入失败", WithMetadata("table", "preview_audit")))

	require.True(t, stdErrors.Is(err, cause))
	assert.Equal(t, CodeStorageFailure, CodeOf(err))
	assert.True(t, RetryableError(err))
	assert.True(t, stdErrors.Is(err, New(CodeStorageFailure, "")))

	unified, ok := From(err)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"table": "preview_audit"}, unified.Metadata())
}

func TestOverrides(t *testing.T) {
	err := New(CodeTimeout, "slow", WithRetryable(false), WithSeverity(SeverityInfo))
	assert.False(t, err.Retryable())
	assert.Equal(t, SeverityInfo, SeverityOf(err))
	assert.True(t, err.ShouldAlert())
}

func TestPlainErrorsAreUnknown(t *testing.T) {
	err := stdErrors.New("plain")
	assert.Equal(t, CodeUnknown, CodeOf(err))
	assert.False(t, RetryableError(err))
	assert.Equal(t, SeverityCritical, SeverityOf(err))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[NOT_FOUND] resource not found", New(CodeNotFound, "").Error())
	assert.Equal(t, "[TIMEOUT] rpc: deadline", Wrap(CodeTimeout, stdErrors.New("deadline"), "rpc").Error())

	var nilErr *Error
	assert.Equal(t, "", nilErr.Error())
	assert.Equal(t, CodeUnknown, nilErr.Code())
	assert.False(t, nilErr.ShouldAlert())
}

func TestMetadataIsCopied(t *testing.T) {
	err := New(CodeInvalidArgument, "bad", WithMetadata("field", "amount"))
	md := err.Metadata()
	md["field"] = "changed"
	assert.Equal(t, "amount", err.Metadata()["field"])
	assert.Nil(t, New(CodeInvalidArgument, "").Metadata())
}
