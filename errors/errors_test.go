package errors_test

import (
	goerrors "errors"
	"testing"

	"github.com/ajrojasfuentes/qrfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestDiskoErrorWithMessage(t *testing.T) {
	newErr := errors.ErrNotFound.WithMessage("foo.txt")
	assert.Equal(t, "no such entry: foo.txt", newErr.Error())
	assert.ErrorIs(t, newErr, errors.ErrNotFound)
}

func TestDiskoErrorWrap(t *testing.T) {
	originalErr := goerrors.New("tag mismatch")
	newErr := errors.ErrAuthenticationFailed.WrapError(originalErr)
	assert.Equal(t, "decryption failed: tag mismatch", newErr.Error())
	assert.ErrorIs(t, newErr, originalErr)
}
