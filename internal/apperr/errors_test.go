package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIs_MatchesKindSentinels(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("user not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.False(t, errors.Is(err, ErrPermissionDenied))
}

func TestIs_CodedErrorsOnlyMatchSameCode(t *testing.T) {
	mismatch := Validation("password_mismatch", "Passwords must match")
	missing := Validation("password_missing", "Must have a password")

	assert.True(t, errors.Is(mismatch, ErrValidation))
	assert.True(t, errors.Is(mismatch, mismatch))
	assert.False(t, errors.Is(missing, mismatch))
	assert.False(t, errors.Is(mismatch, missing))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindPermissionDenied, KindOf(PermissionDenied()))
	assert.Equal(t, KindConfiguration, KindOf(fmt.Errorf("send: %w", Configuration("no template", nil))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestError_MessageFromFields(t *testing.T) {
	err := ValidationFields(map[string][]string{
		"phone": {"invalid phone number"},
		"email": {"cannot be blank"},
	})

	assert.Equal(t, "email: cannot be blank, phone: invalid phone number", err.Error())
	assert.Nil(t, err.Messages())
}

func TestConfiguration_UnwrapsCause(t *testing.T) {
	cause := errors.New("template missing")
	err := Configuration("email template pair incomplete", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "email template pair incomplete: template missing", err.Error())
}

func TestWithCode_DoesNotMutateSentinel(t *testing.T) {
	coded := ErrAuthentication.WithCode("not_validated")

	assert.Equal(t, "", ErrAuthentication.Code)
	assert.Equal(t, "not_validated", coded.Code)
	assert.True(t, errors.Is(coded, ErrAuthentication))
}
