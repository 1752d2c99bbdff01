package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// fakeProcessor runs calls through gax.Invoke so retry options behave as in the real client.
type fakeProcessor struct {
	errs  []error
	resp  *documentaipb.ProcessResponse
	calls int
	last  *documentaipb.ProcessRequest
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error) {
	f.last = req
	var resp *documentaipb.ProcessResponse
	err := gax.Invoke(ctx, func(ctx context.Context, _ gax.CallSettings) error {
		f.calls++
		if f.calls <= len(f.errs) {
			return f.errs[f.calls-1]
		}
		resp = f.resp
		return nil
	}, opts...)
	return resp, err
}

func (f *fakeProcessor) Close() error { return nil }

func testConfig(attempts int) common.DocumentAIConfig {
	return common.DocumentAIConfig{
		CredentialsFile: "unused.json",
		ProjectID:       "acme",
		Location:        "eu",
		ProcessorID:     "proc-1",
		Timeout:         5 * time.Second,
		MaxAttempts:     attempts,
	}
}

func newTestClient(proc DocumentProcessor, attempts int) *DocumentAIClient {
	c := NewDocumentAIClientWith(proc, testConfig(attempts), nil)
	c.backoff = gax.Backoff{Initial: time.Millisecond, Max: 2 * time.Millisecond, Multiplier: 1.5}
	return c
}

func TestExtract_OK(t *testing.T) {
	proc := &fakeProcessor{resp: &documentaipb.ProcessResponse{Document: sampleDocument()}}
	c := newTestClient(proc, 1)

	res, err := c.Extract(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Len(t, res.Fields, 5)
	assert.Len(t, res.LineItems, 2)
	assert.NotEmpty(t, res.Raw)

	require.NotNil(t, proc.last)
	assert.Equal(t, "projects/acme/locations/eu/processors/proc-1", proc.last.GetName())
	assert.Equal(t, "application/pdf", proc.last.GetRawDocument().GetMimeType())
	assert.Equal(t, []byte("%PDF"), proc.last.GetRawDocument().GetContent())
}

func TestExtract_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"quota", status.Error(codes.ResourceExhausted, "quota"), common.ErrQuotaExceeded},
		{"bad input", status.Error(codes.InvalidArgument, "unsupported input file"), common.ErrUnprocessableDocument},
		{"unavailable", status.Error(codes.Unavailable, "down"), common.ErrServiceUnavailable},
		{"auth", status.Error(codes.Unauthenticated, "bad creds"), common.ErrServiceUnavailable},
		{"transport", errors.New("connection reset"), common.ErrServiceUnavailable},
		{"deadline", context.DeadlineExceeded, common.ErrServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &fakeProcessor{errs: []error{tt.err}}
			_, err := newTestClient(proc, 1).Extract(context.Background(), []byte("x"), "image/png")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Equal(t, constants.StageExtract, common.StageOf(err))
			assert.Equal(t, 1, proc.calls)
		})
	}
}

func TestExtract_NoDocument(t *testing.T) {
	proc := &fakeProcessor{resp: &documentaipb.ProcessResponse{}}
	_, err := newTestClient(proc, 1).Extract(context.Background(), []byte("x"), "image/png")
	assert.True(t, errors.Is(err, common.ErrUnprocessableDocument))
}

func TestExtract_SingleAttemptByDefault(t *testing.T) {
	proc := &fakeProcessor{
		errs: []error{status.Error(codes.Unavailable, "blip")},
		resp: &documentaipb.ProcessResponse{Document: sampleDocument()},
	}
	_, err := newTestClient(proc, 1).Extract(context.Background(), []byte("x"), "image/png")
	assert.True(t, errors.Is(err, common.ErrServiceUnavailable))
	assert.Equal(t, 1, proc.calls)
}

func TestExtract_BoundedRetry(t *testing.T) {
	proc := &fakeProcessor{
		errs: []error{
			status.Error(codes.Unavailable, "blip"),
			status.Error(codes.ResourceExhausted, "slow down"),
		},
		resp: &documentaipb.ProcessResponse{Document: sampleDocument()},
	}
	res, err := newTestClient(proc, 3).Extract(context.Background(), []byte("x"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, 3, proc.calls)
	assert.Len(t, res.Fields, 5)

	exhausted := &fakeProcessor{errs: []error{
		status.Error(codes.Unavailable, "1"),
		status.Error(codes.Unavailable, "2"),
		status.Error(codes.Unavailable, "3"),
	}}
	_, err = newTestClient(exhausted, 2).Extract(context.Background(), []byte("x"), "image/png")
	assert.True(t, errors.Is(err, common.ErrServiceUnavailable))
	assert.Equal(t, 2, exhausted.calls)

	// non-retryable codes are not retried
	invalid := &fakeProcessor{errs: []error{status.Error(codes.InvalidArgument, "bad")}}
	_, err = newTestClient(invalid, 3).Extract(context.Background(), []byte("x"), "image/png")
	assert.True(t, errors.Is(err, common.ErrUnprocessableDocument))
	assert.Equal(t, 1, invalid.calls)
}

func TestNewDocumentAIClient_MissingConfiguration(t *testing.T) {
	_, err := NewDocumentAIClient(context.Background(), common.DocumentAIConfig{Location: "us"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMissingConfiguration))

	cfg := testConfig(1)
	cfg.CredentialsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = NewDocumentAIClient(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, common.ErrMissingConfiguration))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))
	cfg.CredentialsFile = bad
	_, err = NewDocumentAIClient(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, common.ErrMissingConfiguration))
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "us-documentai.googleapis.com:443", Endpoint("us", ""))
	assert.Equal(t, "localhost:9000", Endpoint("eu", "localhost:9000"))
}
