package user

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	gravatarBaseURL  = "https://secure.gravatar.com/avatar/"
	placeholderPath  = "accounts/images/placeholder_profile.svg"
	profileImageSize = 256
)

// ImageLocator returns the public URL of a stored profile image.
type ImageLocator interface {
	PublicURL(key string) string
}

// ImageResolver picks the image shown for a user: the uploaded image, then a
// gravatar if one exists for the email, then the static placeholder.
type ImageResolver struct {
	client    *http.Client
	locator   ImageLocator
	siteURL   string
	staticURL string
}

// NewImageResolver creates a resolver. locator may be nil when uploads are
// not configured.
func NewImageResolver(client *http.Client, locator ImageLocator, siteURL, staticURL string) *ImageResolver {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return &ImageResolver{
		client:    client,
		locator:   locator,
		siteURL:   strings.TrimSuffix(siteURL, "/"),
		staticURL: staticURL,
	}
}

// URL returns the profile image URL for u.
func (r *ImageResolver) URL(ctx context.Context, u *User) string {
	if u.Image != nil && *u.Image != "" && r.locator != nil {
		return r.locator.PublicURL(*u.Image)
	}
	if r.HasGravatar(ctx, u.Email) {
		return GravatarURL(u.Email, profileImageSize, "mm")
	}
	return r.PlaceholderURL()
}

// PlaceholderURL is absolute when the static URL is site-relative and a site
// URL is configured.
func (r *ImageResolver) PlaceholderURL() string {
	path := r.staticURL + placeholderPath
	if strings.HasPrefix(path, "/") && r.siteURL != "" {
		return r.siteURL + path
	}
	return path
}

// HasGravatar probes gravatar with a HEAD request; any failure counts as no
// gravatar.
func (r *ImageResolver) HasGravatar(ctx context.Context, email string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, GravatarURL(email, 80, "404"), nil)
	if err != nil {
		return false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// GravatarURL builds the gravatar address for email. def is the gravatar
// fallback ("mm", "404", ...).
func GravatarURL(email string, size int, def string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	qs := url.Values{}
	qs.Set("s", fmt.Sprint(size))
	qs.Set("d", def)
	qs.Set("r", "pg")
	return gravatarBaseURL + hex.EncodeToString(sum[:]) + ".jpg?" + qs.Encode()
}

// ImageKey returns the storage key for a profile image upload.
func ImageKey(u *User, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	return fmt.Sprintf("users/%s/profile%s", u.ID, ext)
}
