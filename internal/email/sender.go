// Package email renders account notifications and hands them to a
// transport.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	texttemplate "text/template"

	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/user"
)

// Template ids understood by Send.
const (
	TemplateUserValidation           = "user_validation"
	TemplateUserValidated            = "user_validated"
	TemplateUserResetPassword        = "user_reset_password"
	TemplateUserResetPasswordSuccess = "user_reset_password_success"
)

var subjects = map[string]string{
	TemplateUserValidation:           "You have requested access to {{.Settings.Name}}",
	TemplateUserValidated:            "Your account has been validated",
	TemplateUserResetPassword:        "Password Reset Request",
	TemplateUserResetPasswordSuccess: "Password successfully changed",
}

// Settings is the site information available to every template as
// .Settings.
type Settings struct {
	Name        string
	URL         string
	FrontendURL string
	StaticURL   string
	HeaderColor string
	BGColor     string
	LogoURL     string
}

// Transport delivers a fully built message.
type Transport interface {
	Send(ctx context.Context, msg *Message) error
}

// Sender renders a template pair and sends it as one multipart message.
type Sender struct {
	templates fs.FS
	transport Transport
	from      string
	settings  Settings
	logger    *logging.Logger
}

func NewSender(templates fs.FS, transport Transport, from string, settings Settings, logger *logging.Logger) *Sender {
	return &Sender{
		templates: templates,
		transport: transport,
		from:      from,
		settings:  settings,
		logger:    logger,
	}
}

// Send renders email/<templateID>.html and email/<templateID>.txt with data
// plus .Settings and .User, and mails the result to recipient. A missing
// template is a configuration error. Transport failures are returned as-is;
// there is no retry.
func (s *Sender) Send(ctx context.Context, templateID string, data map[string]any, recipient *user.User) error {
	tctx := make(map[string]any, len(data)+2)
	tctx["Settings"] = s.settings
	tctx["User"] = recipient
	for k, v := range data {
		tctx[k] = v
	}

	subject, err := s.renderSubject(templateID, tctx)
	if err != nil {
		return err
	}

	text, err := s.renderText(templateID, tctx)
	if err != nil {
		return err
	}

	html, err := s.renderHTML(templateID, tctx)
	if err != nil {
		return err
	}

	msg := &Message{
		From:    s.from,
		To:      recipient.Email,
		Subject: subject,
		Text:    text,
		HTML:    html,
	}

	if err := s.transport.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send email", "template", templateID, "email", recipient.Email, "error", err)
		return fmt.Errorf("send %s email: %w", templateID, err)
	}

	s.logger.Info("email sent", "template", templateID, "email", recipient.Email)
	return nil
}

func (s *Sender) renderSubject(templateID string, data map[string]any) (string, error) {
	src, ok := subjects[templateID]
	if !ok {
		return "", apperr.Configuration(fmt.Sprintf("no subject for email template %q", templateID), nil)
	}

	t, err := texttemplate.New("subject").Parse(src)
	if err != nil {
		return "", apperr.Configuration("invalid email subject template", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render subject: %w", err)
	}
	return buf.String(), nil
}

func (s *Sender) renderText(templateID string, data map[string]any) (string, error) {
	name := "email/" + templateID + ".txt"
	t, err := texttemplate.ParseFS(s.templates, name)
	if err != nil {
		return "", templateError(name, err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (s *Sender) renderHTML(templateID string, data map[string]any) (string, error) {
	name := "email/" + templateID + ".html"
	if _, err := fs.Stat(s.templates, name); err != nil {
		return "", templateError(name, err)
	}

	t, err := htmltemplate.ParseFS(s.templates, "email/base.html", name)
	if err != nil {
		return "", templateError(name, err)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func templateError(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return apperr.Configuration(fmt.Sprintf("email template %s not found", name), err)
	}
	return apperr.Configuration(fmt.Sprintf("invalid email template %s", name), err)
}
