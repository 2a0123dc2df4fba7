package publish

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	body, _ := io.ReadAll(params.Body)
	f.body = body
	return &s3.PutObjectOutput{}, f.err
}

func TestPublish(t *testing.T) {
	fake := &fakeS3{}
	pub := newS3Publisher(fake, S3Config{Bucket: "artifacts", Prefix: "web/routes"})
	pub.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := pub.Publish(context.Background(), "generated/routes.d.ts", []byte("export type Routes = never;\n"))
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	assert.Equal(t, "artifacts", *fake.input.Bucket)
	assert.Equal(t, "web/routes/routes.d.ts", *fake.input.Key)
	assert.Equal(t, "application/typescript; charset=utf-8", *fake.input.ContentType)
	assert.Equal(t, "2026-01-02T03:04:05Z", fake.input.Metadata["generated-at"])
	assert.Equal(t, "export type Routes = never;\n", string(fake.body))
}

func TestPublishError(t *testing.T) {
	fake := &fakeS3{err: errors.New("access denied")}
	pub := newS3Publisher(fake, S3Config{Bucket: "artifacts"})

	err := pub.Publish(context.Background(), "routes_gen.go", []byte("package routes\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, "routes_gen.go", *fake.input.Key)
	assert.Equal(t, "text/x-go; charset=utf-8", *fake.input.ContentType)
}

func TestNewS3PublisherRequiresCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	_, err := NewS3Publisher(S3Config{Bucket: "artifacts"})
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = NewS3Publisher(S3Config{})
	assert.Error(t, err)
}

func TestNewS3Publisher(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	pub, err := NewS3Publisher(S3Config{Bucket: "artifacts", Endpoint: "http://localhost:9000", PathStyle: true})
	require.NoError(t, err)
	assert.Equal(t, "artifacts", pub.bucket)
}
