package user

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"

	"github.com/radiusfinancial/radius-api/internal/apperr"
)

const (
	dateLayout    = "2006-01-02"
	maxNameLength = 30
	// DefaultPhoneRegion is used for numbers written without a country code.
	DefaultPhoneRegion = "US"
)

// Registration is the payload accepted when creating an account. Role
// flags are not part of it and can only be granted later by a superuser.
type Registration struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	PreferredName string `json:"preferred_name"`
	Gender        string `json:"gender"`
	Birthdate     string `json:"birthdate"`
	Phone         string `json:"phone"`
}

// Validate checks the payload. Passwords shorter than minPasswordLength are
// rejected; zero disables the length check.
func (r Registration) Validate(minPasswordLength int) error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, 0)),
		validation.Field(&r.FirstName, validation.Length(0, maxNameLength)),
		validation.Field(&r.LastName, validation.Length(0, maxNameLength)),
		validation.Field(&r.PreferredName, validation.Length(0, maxNameLength)),
		validation.Field(&r.Gender, validation.In(string(GenderFemale), string(GenderMale))),
		validation.Field(&r.Birthdate, validation.Date(dateLayout)),
		validation.Field(&r.Phone, validation.By(phoneRule)),
	)
	return fieldErrors(err)
}

// Params converts a validated registration into CreateParams.
func (r Registration) Params(passwordHash string) (CreateParams, error) {
	phone, err := NormalizePhone(r.Phone)
	if err != nil {
		return CreateParams{}, fieldError("phone", err)
	}

	birthdate, err := parseDate(r.Birthdate)
	if err != nil {
		return CreateParams{}, fieldError("birthdate", err)
	}

	return CreateParams{
		Email:         r.Email,
		PasswordHash:  passwordHash,
		FirstName:     strings.TrimSpace(r.FirstName),
		LastName:      strings.TrimSpace(r.LastName),
		PreferredName: strings.TrimSpace(r.PreferredName),
		Gender:        parseGender(r.Gender),
		Birthdate:     birthdate,
		Phone:         phone,
	}, nil
}

// Patch is a partial update. Nil fields are left untouched; an empty gender
// or birthdate clears the stored value. Email is not patchable.
type Patch struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	PreferredName *string `json:"preferred_name"`
	Gender        *string `json:"gender"`
	Birthdate     *string `json:"birthdate"`
	Phone         *string `json:"phone"`
	IsDeveloper   *bool   `json:"is_developer"`
	IsSuperuser   *bool   `json:"is_superuser"`
}

func (p Patch) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.FirstName, validation.Length(0, maxNameLength)),
		validation.Field(&p.LastName, validation.Length(0, maxNameLength)),
		validation.Field(&p.PreferredName, validation.Length(0, maxNameLength)),
		validation.Field(&p.Gender, validation.In(string(GenderFemale), string(GenderMale))),
		validation.Field(&p.Birthdate, validation.Date(dateLayout)),
		validation.Field(&p.Phone, validation.By(phoneRule)),
	)
	return fieldErrors(err)
}

// Apply validates the patch and writes it onto u.
func (p Patch) Apply(u *User) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if p.FirstName != nil {
		u.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		u.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.PreferredName != nil {
		u.PreferredName = strings.TrimSpace(*p.PreferredName)
	}
	if p.Gender != nil {
		u.Gender = parseGender(*p.Gender)
	}
	if p.Birthdate != nil {
		birthdate, err := parseDate(*p.Birthdate)
		if err != nil {
			return fieldError("birthdate", err)
		}
		u.Birthdate = birthdate
	}
	if p.Phone != nil {
		phone, err := NormalizePhone(*p.Phone)
		if err != nil {
			return fieldError("phone", err)
		}
		u.Phone = phone
	}
	if p.IsDeveloper != nil {
		u.IsDeveloper = *p.IsDeveloper
	}
	if p.IsSuperuser != nil {
		u.IsSuperuser = *p.IsSuperuser
	}

	return nil
}

var errInvalidPhone = errors.New("enter a valid phone number")

// NormalizePhone formats a phone number as E.164. Empty input stays empty.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", errInvalidPhone
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func phoneRule(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return nil
	}
	_, err := NormalizePhone(s)
	return err
}

func parseGender(s string) *Gender {
	if s == "" {
		return nil
	}
	g := Gender(s)
	return &g
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, errors.New("date has wrong format, use YYYY-MM-DD")
	}
	return &t, nil
}

func fieldError(field string, err error) error {
	return apperr.ValidationFields(map[string][]string{field: {err.Error()}})
}

// fieldErrors turns ozzo validation errors into a field-keyed
// apperr validation error.
func fieldErrors(err error) error {
	if err == nil {
		return nil
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(map[string][]string, len(verrs))
	for field, ferr := range verrs {
		if ferr != nil {
			fields[field] = []string{ferr.Error()}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return apperr.ValidationFields(fields)
}
