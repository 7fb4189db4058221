package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
)

// RunSuperuserForm asks for whatever in is missing and returns the
// completed input.
func RunSuperuserForm(in SuperuserInput) (*SuperuserInput, error) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("admin@radiusfinancial.com").
				Value(&in.Email).
				Validate(requireEmail),

			huh.NewInput().
				Title("First name").
				Value(&in.FirstName),

			huh.NewInput().
				Title("Last name").
				Value(&in.LastName),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&in.Password).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("password is required")
					}
					return nil
				}),

			huh.NewInput().
				Title("Password (again)").
				EchoMode(huh.EchoModePassword).
				Value(&in.PasswordConfirm).
				Validate(func(s string) error {
					if s != in.Password {
						return fmt.Errorf("passwords do not match")
					}
					return nil
				}),

			huh.NewConfirm().
				Title("Mark the email as validated?").
				Description("Skips the validation email.").
				Value(&in.Validated),
		),
	).WithTheme(huh.ThemeCatppuccin())

	if err := form.Run(); err != nil {
		return nil, err
	}

	in.Email = strings.TrimSpace(in.Email)
	return &in, nil
}

// PrintUser prints the account an operation acted on.
func PrintUser(title string, id uuid.UUID, email string, superuser, validated bool) {
	fmt.Println(titleStyle.Render(title))
	fmt.Println(labelStyle.Render("ID") + id.String())
	fmt.Println(labelStyle.Render("Email") + email)
	fmt.Println(labelStyle.Render("Superuser") + yesNo(superuser))
	fmt.Println(labelStyle.Render("Validated") + yesNo(validated))
	fmt.Println()
}

// PrintToken prints an access token for copying.
func PrintToken(email, token string) {
	fmt.Println(titleStyle.Render("Acting as " + email))
	fmt.Println(token)
	fmt.Println(subtleStyle.Render("Send it as: Authorization: Bearer <token>"))
}

// PrintSuccess prints a success message.
func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
