package domain

import "context"

// BlobObject is one object to upload.
type BlobObject struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
}

// BlobWriter uploads objects to object storage.
type BlobWriter interface {
	Put(ctx context.Context, obj BlobObject) error
}
