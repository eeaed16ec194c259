package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(KindIdentifierNotFound, "no GUID in %q", "Object=foo")
	wrapped := fmt.Errorf("resolve object: %w", base)

	assert.Equal(t, KindIdentifierNotFound, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindIdentifierNotFound))
	assert.False(t, Is(wrapped, KindMalformedDescriptor))
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.False(t, Is(nil, KindInputFileMissing))
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("permission denied")
	err := Wrap(cause, KindInputFileMissing, "cannot read project").WithPath(`C:\src\App.vbp`)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, `cannot read project: C:\src\App.vbp: permission denied`, err.Error())
}
