package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestWriter_UploadPrefixesKey(t *testing.T) {
	p := &fakePutter{}
	w := &Writer{client: p, bucket: "archive", prefix: "pharosbet"}

	require.NoError(t, w.Upload(context.Background(), "feeds/x.jsonl", []byte("{}"), "application/x-ndjson"))
	assert.Equal(t, "archive", aws.ToString(p.input.Bucket))
	assert.Equal(t, "pharosbet/feeds/x.jsonl", aws.ToString(p.input.Key))
	assert.Equal(t, "application/x-ndjson", aws.ToString(p.input.ContentType))
	assert.Equal(t, int64(2), aws.ToInt64(p.input.ContentLength))
	assert.Equal(t, "{}", string(p.body))

	p.err = errors.New("access denied")
	assert.ErrorContains(t, w.Upload(context.Background(), "k", nil, "text/plain"), "access denied")
}

func TestFeedArchiver(t *testing.T) {
	p := &fakePutter{}
	a := NewFeedArchiver(&Writer{client: p, bucket: "b"})
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	markets := []domain.Market{{ID: "demo-1", YesPrice: 42, NoPrice: 58}, {ID: "demo-2", YesPrice: 35, NoPrice: 65}}
	key, err := a.ArchiveFeed(context.Background(), markets, at)
	require.NoError(t, err)
	assert.Equal(t, "feeds/2026/03/01/20260301T120000Z.jsonl", key)

	lines := bytes.Split(bytes.TrimSpace(p.body), []byte("\n"))
	require.Len(t, lines, 2)
	var first domain.Market
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "demo-1", first.ID)
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://minio:9000", normaliseEndpoint("minio:9000", true))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
	assert.Equal(t, "https://e2.example.com", normaliseEndpoint("https://e2.example.com", false))
}
