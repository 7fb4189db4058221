package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_Names(t *testing.T) {
	u := &User{Email: "pat@example.com"}
	assert.Equal(t, "pat@example.com", u.FullName())
	assert.Equal(t, "pat@example.com", u.ShortName())

	u.FirstName = "Pat"
	u.LastName = "Doe"
	assert.Equal(t, "Pat Doe", u.FullName())
	assert.Equal(t, "Pat", u.ShortName())

	u.FirstName = ""
	assert.Equal(t, "Doe", u.FullName())
}

func TestUser_AgeAt(t *testing.T) {
	birth := time.Date(1990, time.June, 15, 0, 0, 0, 0, time.UTC)
	u := &User{Birthdate: &birth}

	assert.Equal(t, 35, u.AgeAt(time.Date(2026, time.June, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 36, u.AgeAt(time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, (&User{}).AgeAt(time.Now()))
}

func TestUser_Flags(t *testing.T) {
	now := time.Now()
	u := &User{IsSuperuser: true}
	assert.True(t, u.IsStaff())
	assert.False(t, u.IsValidated())

	u.ValidatedAt = &now
	assert.True(t, u.IsValidated())

	key := NewKey(PurposeReset, now)
	u.Key = &key
	assert.True(t, u.HasKey(PurposeReset))
	assert.False(t, u.HasKey(PurposeValidation))
}

func TestNewKey_IsUnique(t *testing.T) {
	now := time.Now()
	a := NewKey(PurposeValidation, now)
	b := NewKey(PurposeValidation, now)
	assert.NotEqual(t, a.Value, b.Value)
	assert.Equal(t, 4, int(a.Value.Version()))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Pat@example.com", NormalizeEmail("  Pat@EXAMPLE.com "))
	assert.Equal(t, "not-an-email", NormalizeEmail("not-an-email"))
}
