package email

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/user"
	"github.com/radiusfinancial/radius-api/templates"
)

type recordingTransport struct {
	sent []*Message
	err  error
}

func (t *recordingTransport) Send(_ context.Context, msg *Message) error {
	if t.err != nil {
		return t.err
	}
	t.sent = append(t.sent, msg)
	return nil
}

var testSettings = Settings{Name: "radius", HeaderColor: "#03a9f4", BGColor: "#f5f5f5"}

func newTestSender(t *testing.T, tr Transport) *Sender {
	t.Helper()
	return NewSender(templates.EmailFS, tr, "support@radiusfinancial.com", testSettings, logging.NewDiscardLogger())
}

func TestSender_RendersEveryTemplate(t *testing.T) {
	tr := &recordingTransport{}
	s := newTestSender(t, tr)
	u := &user.User{Email: "pat@example.com", FirstName: "Pat"}

	for _, id := range []string{
		TemplateUserValidation,
		TemplateUserValidated,
		TemplateUserResetPassword,
		TemplateUserResetPasswordSuccess,
	} {
		require.NoError(t, s.Send(context.Background(), id, map[string]any{"URL": "https://x/" + id}, u), id)
	}

	require.Len(t, tr.sent, 4)
	first := tr.sent[0]
	assert.Equal(t, "You have requested access to radius", first.Subject)
	assert.Equal(t, "pat@example.com", first.To)
	assert.Equal(t, "support@radiusfinancial.com", first.From)
	assert.Contains(t, first.Text, "Hi Pat,")
	assert.Contains(t, first.Text, "https://x/user_validation")
	assert.Contains(t, first.HTML, `href="https://x/user_validation"`)
	assert.Contains(t, first.HTML, "<!DOCTYPE html>")
}

func TestSender_MissingTemplateIsConfigurationError(t *testing.T) {
	tr := &recordingTransport{}
	fsys := fstest.MapFS{
		"email/base.html":          {Data: []byte(`{{define "base"}}{{template "content" .}}{{end}}`)},
		"email/user_validated.txt": {Data: []byte("text only")},
	}
	s := NewSender(fsys, tr, "from@example.com", testSettings, logging.NewDiscardLogger())
	u := &user.User{Email: "pat@example.com"}

	err := s.Send(context.Background(), TemplateUserValidated, nil, u)
	require.ErrorIs(t, err, apperr.ErrConfiguration)

	err = s.Send(context.Background(), TemplateUserValidation, nil, u)
	require.ErrorIs(t, err, apperr.ErrConfiguration)

	err = s.Send(context.Background(), "unknown", nil, u)
	require.ErrorIs(t, err, apperr.ErrConfiguration)

	assert.Empty(t, tr.sent)
}

func TestSender_TransportErrorPropagates(t *testing.T) {
	boom := errors.New("relay down")
	s := newTestSender(t, &recordingTransport{err: boom})

	err := s.Send(context.Background(), TemplateUserValidated, nil, &user.User{Email: "pat@example.com"})
	assert.ErrorIs(t, err, boom)
}

func TestMessage_BytesIsMultipartAlternative(t *testing.T) {
	msg := &Message{
		From:    "from@example.com",
		To:      "pat@example.com",
		Subject: "Hello",
		Text:    "plain body",
		HTML:    "<p>html body</p>",
	}

	raw, err := msg.Bytes()
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", parsed.Header.Get("To"))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/alternative", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	var types, bodies []string
	for {
		part, err := mr.NextRawPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(quotedprintable.NewReader(part))
		require.NoError(t, err)
		types = append(types, part.Header.Get("Content-Type"))
		bodies = append(bodies, string(body))
	}

	assert.Equal(t, []string{"text/plain; charset=UTF-8", "text/html; charset=UTF-8"}, types)
	assert.Equal(t, []string{"plain body", "<p>html body</p>"}, bodies)
}

func TestConsoleTransport_WritesMessage(t *testing.T) {
	var out bytes.Buffer
	tr := NewConsoleTransport(&out, logging.NewDiscardLogger())

	err := tr.Send(context.Background(), &Message{From: "a@b.com", To: "c@d.com", Subject: "Hi", Text: "t", HTML: "h"})
	require.NoError(t, err)
	assert.True(t, strings.Contains(out.String(), "To: c@d.com"))
}
