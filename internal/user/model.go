package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderFemale Gender = "f"
	GenderMale   Gender = "m"
)

// Purpose tags what a Key may be used for.
type Purpose string

const (
	PurposeValidation Purpose = "validation"
	PurposeReset      Purpose = "reset"
)

// Key is a single-use token bound to a user. A user holds at most one key;
// issuing a new one replaces the previous key whatever its purpose.
type Key struct {
	Purpose  Purpose
	Value    uuid.UUID
	IssuedAt time.Time
}

// NewKey returns a fresh random key for purpose.
func NewKey(purpose Purpose, now time.Time) Key {
	return Key{Purpose: purpose, Value: uuid.New(), IssuedAt: now}
}

type User struct {
	ID            uuid.UUID
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	PreferredName string
	Gender        *Gender
	Birthdate     *time.Time
	Phone         string
	Image         *string // storage key of the uploaded profile image
	IsSuperuser   bool
	IsDeveloper   bool
	DateJoined    time.Time
	LastLogin     *time.Time
	ValidatedAt   *time.Time
	Key           *Key
	UpdatedAt     time.Time
}

// FullName returns first and last name separated by a space, or the email
// when both are blank.
func (u *User) FullName() string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Email
}

func (u *User) ShortName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

// Age returns whole years since the birthdate, or 0 without one.
func (u *User) Age() int {
	return u.AgeAt(time.Now())
}

func (u *User) AgeAt(now time.Time) int {
	if u.Birthdate == nil {
		return 0
	}
	b := u.Birthdate.UTC()
	now = now.UTC()
	years := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func (u *User) IsStaff() bool {
	return u.IsSuperuser
}

func (u *User) IsValidated() bool {
	return u.ValidatedAt != nil
}

// HasKey reports whether the user currently holds a key for purpose.
func (u *User) HasKey(purpose Purpose) bool {
	return u.Key != nil && u.Key.Purpose == purpose
}

// CreateParams holds the fields stored when an account is created. The
// password must already be hashed.
type CreateParams struct {
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	PreferredName string
	Gender        *Gender
	Birthdate     *time.Time
	Phone         string
	IsSuperuser   bool
	IsDeveloper   bool
	ValidatedAt   *time.Time
}

// NormalizeEmail lowercases the domain part of an address and trims spaces.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}
