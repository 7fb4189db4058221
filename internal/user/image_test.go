package user

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func gravatarClient(status int, calls *[]*http.Request) *http.Client {
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		*calls = append(*calls, r)
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader("")), Header: http.Header{}}, nil
	})}
}

type staticLocator string

func (l staticLocator) PublicURL(key string) string { return string(l) + "/" + key }

func TestGravatarURL(t *testing.T) {
	sum := md5.Sum([]byte("pat@example.com"))
	want := "https://secure.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + ".jpg?"

	url := GravatarURL(" Pat@Example.com ", 80, "404")
	assert.True(t, strings.HasPrefix(url, want), url)
	assert.Contains(t, url, "d=404")
	assert.Contains(t, url, "s=80")
	assert.Contains(t, url, "r=pg")
}

func TestImageResolver_PrefersUploadedImage(t *testing.T) {
	var calls []*http.Request
	r := NewImageResolver(gravatarClient(http.StatusOK, &calls), staticLocator("https://cdn.example.com"), "", "/static/")

	key := "users/1/profile.png"
	got := r.URL(context.Background(), &User{Email: "pat@example.com", Image: &key})

	assert.Equal(t, "https://cdn.example.com/users/1/profile.png", got)
	assert.Empty(t, calls)
}

func TestImageResolver_Gravatar(t *testing.T) {
	var calls []*http.Request
	r := NewImageResolver(gravatarClient(http.StatusOK, &calls), nil, "", "/static/")

	got := r.URL(context.Background(), &User{Email: "pat@example.com"})

	assert.Contains(t, got, "s=256")
	if assert.Len(t, calls, 1) {
		assert.Equal(t, http.MethodHead, calls[0].Method)
		assert.Equal(t, "404", calls[0].URL.Query().Get("d"))
	}
}

func TestImageResolver_Placeholder(t *testing.T) {
	var calls []*http.Request
	r := NewImageResolver(gravatarClient(http.StatusNotFound, &calls), nil, "https://api.example.com/", "/static/")

	got := r.URL(context.Background(), &User{Email: "pat@example.com"})
	assert.Equal(t, "https://api.example.com/static/accounts/images/placeholder_profile.svg", got)

	r = NewImageResolver(gravatarClient(http.StatusNotFound, &calls), nil, "", "https://static.example.com/")
	assert.Equal(t, "https://static.example.com/accounts/images/placeholder_profile.svg", r.PlaceholderURL())
}

func TestImageKey(t *testing.T) {
	u := &User{}
	assert.Equal(t, "users/00000000-0000-0000-0000-000000000000/profile.jpg", ImageKey(u, ".jpg"))
	assert.Equal(t, "users/00000000-0000-0000-0000-000000000000/profile.png", ImageKey(u, ""))
}
