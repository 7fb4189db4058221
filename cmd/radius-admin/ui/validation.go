package ui

import (
	"fmt"
	"strings"
)

// SuperuserInput is what createsuperuser collects from flags or the form.
type SuperuserInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	Validated       bool
}

// Complete reports whether every required field was given.
func (in *SuperuserInput) Complete() bool {
	return in.Email != "" && in.Password != ""
}

// Validate checks the input before it reaches the account service, which
// applies the full registration rules.
func (in *SuperuserInput) Validate() error {
	if err := requireEmail(in.Email); err != nil {
		return err
	}
	if in.Password == "" {
		return fmt.Errorf("password is required")
	}
	if in.PasswordConfirm != "" && in.PasswordConfirm != in.Password {
		return fmt.Errorf("passwords do not match")
	}
	return nil
}

func requireEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	if !strings.Contains(s, "@") {
		return fmt.Errorf("%q is not an email address", s)
	}
	return nil
}
