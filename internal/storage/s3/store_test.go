package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "uploads/id/file.pdf", want: "uploads/id/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "uploads/id/file.pdf", want: "root/uploads/id/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "exports/id.csv", want: "root/exports/id.csv"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/exports/id.csv", want: "root/exports/id.csv"},
		{name: "nested prefix", prefix: "root/sub", key: "results/id.json", want: "root/sub/results/id.json"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, applyPrefix(tt.prefix, tt.key))
		})
	}
}

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = b
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := NewWithClient(fake, "bucket", "/staging/")

	n, err := s.Put(ctx, "exports/batch.csv", "text/csv", strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.Contains(t, fake.objects, "staging/exports/batch.csv")
	assert.Equal(t, "text/csv", fake.types["staging/exports/batch.csv"])

	rc, err := s.Open(ctx, "exports/batch.csv")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "a,b\n", string(body))

	require.NoError(t, s.Delete(ctx, "exports/batch.csv"))
	_, err = s.Open(ctx, "exports/batch.csv")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestNew_RequiresBucket(t *testing.T) {
	_, err := New(context.Background(), "us-east-1", "", "")
	assert.Error(t, err)
}
