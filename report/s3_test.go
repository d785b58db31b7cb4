package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper accepts PUT requests and keeps the uploaded bodies by path.
type mockRoundTripper struct {
	mu      sync.Mutex
	objects map[string]stored
	status  int
}

type stored struct {
	body        []byte
	contentType string
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != 0 {
		return &http.Response{StatusCode: m.status, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	if req.Method != http.MethodPut {
		return &http.Response{StatusCode: 501, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{}}, nil
	}
	body, _ := io.ReadAll(req.Body)
	if dec, ok := decodeChunked(body); ok {
		body = dec
	}
	m.objects[req.URL.Path] = stored{body: body, contentType: req.Header.Get("Content-Type")}
	return &http.Response{StatusCode: 200, Body: io.NopCloser(bytes.NewReader(nil)), Header: http.Header{"ETag": {"\"etag\""}}}, nil
}

func newMockS3Sink(t *testing.T, prefix string) (*S3Sink, *mockRoundTripper) {
	t.Helper()
	rt := &mockRoundTripper{objects: map[string]stored{}}
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String("https://mock.s3.local")
		o.HTTPClient = &http.Client{Transport: rt}
		o.UsePathStyle = true
	})
	return &S3Sink{client: client, bucket: "bench-results", prefix: prefix}, rt
}

func TestS3SinkUploadsJSON(t *testing.T) {
	sink, rt := newMockS3Sink(t, "nightly/sqlite")
	r := sampleReport()
	require.NoError(t, sink.Write(context.Background(), r))

	obj, ok := rt.objects["/bench-results/nightly/sqlite/run-1.json"]
	require.True(t, ok, "uploaded keys: %v", rt.objects)
	assert.Equal(t, "application/json", obj.contentType)

	loaded := &Report{}
	require.NoError(t, json.Unmarshal(obj.body, loaded))
	assert.Equal(t, r.RunID, loaded.RunID)
	assert.Len(t, loaded.Groups, len(r.Groups))
}

func TestS3SinkKey(t *testing.T) {
	sink, _ := newMockS3Sink(t, "")
	assert.Equal(t, "abc.json", sink.Key("abc"))
	sink.prefix = "a/b/"
	assert.Equal(t, "a/b/abc.json", sink.Key("abc"))
}

func TestS3SinkUploadError(t *testing.T) {
	sink, rt := newMockS3Sink(t, "")
	rt.status = http.StatusForbidden
	err := sink.Write(context.Background(), sampleReport())
	assert.ErrorContains(t, err, "upload to s3://bench-results/run-1.json")
}

func TestNewS3Sink(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "SECRET")

	_, err := NewS3Sink(context.Background(), S3Config{})
	assert.Error(t, err)

	sink, err := NewS3Sink(context.Background(), S3Config{Bucket: "b", Endpoint: "http://localhost:9000", PathStyle: true})
	require.NoError(t, err)
	assert.Equal(t, "s3", sink.Name())
	assert.Equal(t, "us-east-1", sink.client.Options().Region)
}

// decodeChunked strips a single-chunk aws-chunked encoding.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 {
		return nil, false
	}
	n, err := strconv.ParseInt(parts[0], 16, 64)
	if err != nil || n <= 0 {
		return nil, false
	}
	if int64(len(parts[1])) != n || parts[2] != "0" {
		return nil, false
	}
	return []byte(parts[1]), true
}
