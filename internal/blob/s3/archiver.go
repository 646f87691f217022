package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/pharosbet/internal/domain"
)

// FeedArchiver writes feed snapshots as JSONL objects, one market per line.
type FeedArchiver struct {
	writer domain.ObjectWriter
}

// NewFeedArchiver creates a FeedArchiver that uploads through writer.
func NewFeedArchiver(writer domain.ObjectWriter) *FeedArchiver {
	return &FeedArchiver{writer: writer}
}

// ArchiveFeed uploads markets and returns the object key.
func (a *FeedArchiver) ArchiveFeed(ctx context.Context, markets []domain.Market, at time.Time) (string, error) {
	buf, err := marshalJSONL(markets)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive feed marshal: %w", err)
	}
	key := feedKey(at)
	if err := a.writer.Upload(ctx, key, buf, "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: archive feed upload: %w", err)
	}
	return key, nil
}

// feedKey partitions snapshots by UTC day:
//
//	feeds/2026/03/01/20260301T120000Z.jsonl
func feedKey(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("feeds/%s/%s.jsonl", at.Format("2006/01/02"), at.Format("20060102T150405Z"))
}

func marshalJSONL(markets []domain.Market) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range markets {
		if err := enc.Encode(markets[i]); err != nil {
			return nil, fmt.Errorf("encode market %s: %w", markets[i].ID, err)
		}
	}
	return buf.Bytes(), nil
}
