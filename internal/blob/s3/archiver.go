package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/propscope/oddsjobs/internal/domain"
)

const jsonlContentType = "application/x-ndjson"

// Snapshot kinds.
const (
	KindLanding   = "landing"
	KindArbitrage = "arbitrage"
)

// SnapshotArchiver writes point-in-time copies of the landing list and the
// live arbitrage set as JSONL objects:
//
//	{prefix}/{kind}/2025-07-14/{run_id}.jsonl
type SnapshotArchiver struct {
	writer domain.BlobWriter
	prefix string
}

// NewSnapshotArchiver creates a SnapshotArchiver. prefix may be empty.
func NewSnapshotArchiver(writer domain.BlobWriter, prefix string) *SnapshotArchiver {
	return &SnapshotArchiver{writer: writer, prefix: prefix}
}

// ArchiveLanding uploads results and returns the object path. An empty list
// uploads nothing and returns "".
func (a *SnapshotArchiver) ArchiveLanding(ctx context.Context, runID string, at time.Time, results []domain.ConsensusResult) (string, error) {
	return upload(ctx, a, KindLanding, runID, at, results)
}

// ArchiveArbitrage uploads opps and returns the object path. An empty list
// uploads nothing and returns "".
func (a *SnapshotArchiver) ArchiveArbitrage(ctx context.Context, runID string, at time.Time, opps []domain.ArbOpportunity) (string, error) {
	return upload(ctx, a, KindArbitrage, runID, at, opps)
}

func upload[T any](ctx context.Context, a *SnapshotArchiver, kind, runID string, at time.Time, records []T) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	buf, err := marshalJSONL(records)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s marshal: %w", kind, err)
	}

	p := SnapshotPath(a.prefix, kind, runID, at)
	err = a.writer.Put(ctx, domain.BlobObject{
		Key:         p,
		Body:        buf,
		ContentType: jsonlContentType,
		Metadata: map[string]string{
			"run-id":  runID,
			"kind":    kind,
			"records": strconv.Itoa(len(records)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}
	return p, nil
}

// SnapshotPath builds the object key for one snapshot, partitioned by UTC
// date.
func SnapshotPath(prefix, kind, runID string, at time.Time) string {
	return path.Join(prefix, kind, at.UTC().Format(time.DateOnly), runID+".jsonl")
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
