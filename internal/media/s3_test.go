package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutObject struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutObject) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3Upload(t *testing.T) {
	fake := &fakePutObject{}
	u := &S3{
		client:        fake,
		bucket:        "media",
		publicBaseURL: "https://cdn.example.com",
		now:           func() time.Time { return time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC) },
	}

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	asset, err := u.Upload(context.Background(), writeTempFile(t, png))
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	assert.Equal(t, "media", aws.ToString(fake.input.Bucket))
	assert.Equal(t, "image/png", aws.ToString(fake.input.ContentType))
	key := aws.ToString(fake.input.Key)
	assert.True(t, strings.HasPrefix(key, "media/2026/05/04/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "https://cdn.example.com/"+key, asset.URL)
	assert.Equal(t, png, fake.body)
}

func TestS3UploadErrors(t *testing.T) {
	u := &S3{client: &fakePutObject{err: errors.New("denied")}, bucket: "media", publicBaseURL: "https://cdn", now: time.Now}

	_, err := u.Upload(context.Background(), writeTempFile(t, []byte("data")))
	assert.Error(t, err)

	_, err = u.Upload(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{PublicBaseURL: "https://cdn"})
	assert.Error(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	up, err := New(context.Background(), Config{Backend: "cloudinary", CloudinaryURL: "cloudinary://k:s@demo"})
	require.NoError(t, err)
	assert.IsType(t, &Cloudinary{}, up)

	_, err = New(context.Background(), Config{Backend: "ftp"})
	assert.Error(t, err)
}
