package domain

import "context"

// ObjectWriter uploads an archive object. Keys are relative to whatever
// prefix the implementation was configured with.
type ObjectWriter interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) error
}
