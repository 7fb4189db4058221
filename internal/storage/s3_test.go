package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusfinancial/radius-api/internal/config"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Put(t *testing.T) {
	client := &fakeS3{}
	store := newS3Store(client, "profiles", "https://cdn.example.com/")

	err := store.Put(context.Background(), "users/1/profile.png", strings.NewReader("png"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "profiles", aws.ToString(client.input.Bucket))
	assert.Equal(t, "users/1/profile.png", aws.ToString(client.input.Key))
	assert.Equal(t, "image/png", aws.ToString(client.input.ContentType))
	assert.Equal(t, "png", client.body)
	assert.Equal(t, "https://cdn.example.com/users/1/profile.png", store.PublicURL("users/1/profile.png"))
}

func TestS3Store_PutError(t *testing.T) {
	store := newS3Store(&fakeS3{err: errors.New("denied")}, "b", "https://x")
	assert.Error(t, store.Put(context.Background(), "k", strings.NewReader(""), "image/png"))
}

func TestNewS3Store_PublicURLDefaults(t *testing.T) {
	store, err := NewS3Store(context.Background(), config.StorageConfig{
		Bucket: "profiles", Region: "us-west-2", AccessKey: "k", SecretKey: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://profiles.s3.us-west-2.amazonaws.com/a.png", store.PublicURL("a.png"))

	store, err = NewS3Store(context.Background(), config.StorageConfig{
		Bucket: "profiles", Region: "us-east-1", BaseEndpoint: "http://localhost:9000", AccessKey: "k", SecretKey: "s",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/profiles/a.png", store.PublicURL("a.png"))
}
