package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key   string
		valid bool
	}{
		{"3f2a.jpg", true},
		{"3f2a.preview.webp", true},
		{"", false},
		{"..", false},
		{"../etc/passwd", false},
		{"nested/key.png", false},
		{`win\key.png`, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := validateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidKey)
			}
		})
	}
}

func TestLocalStore_PutAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir, "/uploads")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Put(ctx, "abc.png", "image/png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/abc.png", url)

	content, err := os.ReadFile(filepath.Join(dir, "abc.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), content)

	require.NoError(t, store.Delete(ctx, "abc.png"))
	_, err = os.Stat(filepath.Join(dir, "abc.png"))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, "abc.png"), "deleting a missing object is not an error")

	_, err = store.Put(ctx, "../escape.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

type mockObjectAPI struct {
	mock.Mock
}

func (m *mockObjectAPI) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, _ := io.ReadAll(in.Body)
	args := m.Called(aws.ToString(in.Bucket), aws.ToString(in.Key), aws.ToString(in.ContentType), string(body))
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *mockObjectAPI) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(aws.ToString(in.Bucket), aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

func TestS3Store_Put(t *testing.T) {
	api := new(mockObjectAPI)
	api.On("PutObject", "recipes", "abc.jpg", "image/jpeg", "jpeg-bytes").Return(nil)

	store := newS3StoreWithClient(api, S3Options{Bucket: "recipes", BaseEndpoint: "http://minio:9000"})
	url, err := store.Put(context.Background(), "abc.jpg", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/recipes/abc.jpg", url)
	api.AssertExpectations(t)
}

func TestS3Store_PublicURL(t *testing.T) {
	tests := []struct {
		name     string
		opts     S3Options
		expected string
	}{
		{"explicit public base", S3Options{Bucket: "b", PublicBaseURL: "https://cdn.example.com/"}, "https://cdn.example.com/k.png"},
		{"custom endpoint", S3Options{Bucket: "b", BaseEndpoint: "http://localhost:9000"}, "http://localhost:9000/b/k.png"},
		{"aws virtual host", S3Options{Bucket: "b", Region: "eu-west-1"}, "https://b.s3.eu-west-1.amazonaws.com/k.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := new(mockObjectAPI)
			api.On("PutObject", "b", "k.png", "image/png", "x").Return(nil)
			url, err := newS3StoreWithClient(api, tt.opts).Put(context.Background(), "k.png", "image/png", []byte("x"))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, url)
		})
	}
}

func TestS3Store_Errors(t *testing.T) {
	api := new(mockObjectAPI)
	boom := errors.New("bucket unavailable")
	api.On("PutObject", "b", "k.png", "image/png", "x").Return(boom)
	api.On("DeleteObject", "b", "k.png").Return(boom)

	store := newS3StoreWithClient(api, S3Options{Bucket: "b", Region: "us-east-1"})
	_, err := store.Put(context.Background(), "k.png", "image/png", []byte("x"))
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, store.Delete(context.Background(), "k.png"), boom)
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Options{Region: "us-east-1"})
	assert.Error(t, err)
}
