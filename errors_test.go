package fatimg_test

import (
	"errors"
	"testing"

	"github.com/dargueta/fatimg"
	fe "github.com/dargueta/fatimg/errors"
	"github.com/stretchr/testify/assert"
)

func TestFatimgErrorWithMessage(t *testing.T) {
	newErr := fatimg.ErrNotFound.WithMessage("README.TXT")
	assert.Equal(
		t, "No such file or directory: README.TXT", newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, fatimg.ErrNotFound)
	assert.NotErrorIs(t, newErr, fatimg.ErrNoSpace)
	assert.Equal(t, fe.ENOENT, newErr.Errno())
}

func TestFatimgErrorWithMessageChained(t *testing.T) {
	newErr := fatimg.ErrNoSpace.WithMessage("need 3 clusters").WithMessage("have 2")
	assert.Equal(
		t, "No space left on device: need 3 clusters: have 2", newErr.Error())
	assert.ErrorIs(t, newErr, fatimg.ErrNoSpace)
	assert.Equal(t, fe.ENOSPC, newErr.Errno())
}

func TestFatimgErrorWrap(t *testing.T) {
	originalErr := errors.New("original error")
	newErr := fatimg.ErrIOFailed.Wrap(originalErr)
	expectedMessage := "Input/output error: original error"

	assert.EqualValues(t, expectedMessage, newErr.Error(), "error message is wrong")
	assert.ErrorIs(t, newErr, originalErr, "original error not set as parent")
	assert.ErrorIs(t, newErr, fatimg.ErrIOFailed, "fatimg error not set as parent")
}

func TestSentinelsAreDistinct(t *testing.T) {
	// CorruptImage and BrokenChain share an errno but must not match each other.
	assert.NotErrorIs(t, fatimg.ErrBrokenChain, fatimg.ErrCorruptImage)
	assert.Equal(t, fatimg.ErrBrokenChain.Errno(), fatimg.ErrCorruptImage.Errno())
}

func TestExitStatus(t *testing.T) {
	assert.Equal(t, 28, fe.ENOSPC.ExitStatus())
	assert.Equal(t, 1, fe.EOK.ExitStatus())
	assert.Equal(t, 1, fe.Errno(200).ExitStatus())
	assert.Equal(t, "Structure needs cleaning", fe.StrError(fe.EUCLEAN))
}

func TestStrErrorKnowsEveryCode(t *testing.T) {
	codes := []fe.Errno{
		fe.EOK, fe.ENOENT, fe.EIO, fe.EINVAL, fe.ENFILE, fe.EFBIG, fe.ENOSPC, fe.EUCLEAN, fe.EMEDIUMTYPE,
	}
	for _, code := range codes {
		assert.NotContainsf(t, fe.StrError(code), "not recognized", "code %d", int(code))
	}
	assert.Equal(t, "error 1 not recognized.", fe.StrError(fe.Errno(1)))
}
