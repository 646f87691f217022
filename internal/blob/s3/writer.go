package s3blob

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

type putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Writer uploads archive objects under prefix in one bucket.
type Writer struct {
	client putter
	bucket string
	prefix string
}

func NewWriter(c *Client, prefix string) *Writer {
	return &Writer{client: c.s3, bucket: c.Bucket(), prefix: prefix}
}

// Upload stores body in a single PutObject request. Feed snapshots are small
// enough that multipart uploads never apply.
func (w *Writer) Upload(ctx context.Context, key string, body []byte, contentType string) error {
	full := path.Join(w.prefix, key)
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(w.bucket),
		Key:           aws.String(full),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", full, err)
	}
	return nil
}

var _ domain.ObjectWriter = (*Writer)(nil)
