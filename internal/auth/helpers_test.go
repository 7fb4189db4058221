package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/user"
	"github.com/radiusfinancial/radius-api/internal/user/usertest"
)

const testKey = "0123456789abcdef0123456789abcdef"

type sentMail struct {
	templateID string
	data       map[string]any
	to         string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, templateID string, data map[string]any, recipient *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{templateID: templateID, data: data, to: recipient.Email})
	return nil
}

func (m *recordingMailer) Sent() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

func (m *recordingMailer) Templates() []string {
	var ids []string
	for _, s := range m.Sent() {
		ids = append(ids, s.templateID)
	}
	return ids
}

type testEnv struct {
	service *Service
	store   *usertest.Store
	mailer  *recordingMailer
	refresh *RedisRefreshStore
	tokens  *PasetoService
	redis   *miniredis.Miniredis
}

func defaultOptions() Options {
	return Options{
		SiteURL:              "https://api.example.com",
		FrontendURL:          "https://app.example.com",
		AccessTokenDuration:  time.Hour,
		RefreshTokenDuration: 24 * time.Hour,
		RequireValidated:     true,
	}
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tokens, err := NewPasetoService([]byte(testKey))
	require.NoError(t, err)

	env := &testEnv{
		store:   usertest.NewStore(),
		mailer:  &recordingMailer{},
		refresh: NewRedisRefreshStore(client),
		tokens:  tokens,
		redis:   mr,
	}
	env.service = NewService(env.store, env.refresh, tokens, env.mailer, nil, logging.NewDiscardLogger(), opts)
	return env
}

func registration(email string) user.Registration {
	return user.Registration{Email: email, Password: "correct horse", FirstName: "Ada", LastName: "Lovelace"}
}

// register creates an account and returns it with the key it was mailed.
func (e *testEnv) register(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := e.service.Register(context.Background(), registration(email))
	require.NoError(t, err)
	return e.store.Get(u.ID)
}

// validated creates an account that has already validated its email.
func (e *testEnv) validated(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := e.service.CreateAccount(context.Background(), registration(email), AccountOptions{Validated: true})
	require.NoError(t, err)
	return e.store.Get(u.ID)
}
