package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

// ErrNotConfigured is returned by the disabled store when no object storage
// backend was configured at startup.
var ErrNotConfigured = errors.New("storage: object storage not configured")

// BlobStore is the image-hosting collaborator: it stores opaque blobs and
// serves them by URL.
type BlobStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (url, key string, err error)
	Destroy(ctx context.Context, key string) error
}

// Disabled is a BlobStore that rejects every operation. Used when S3
// credentials are absent so image-free routes still work.
type Disabled struct{}

func (Disabled) Upload(ctx context.Context, data []byte, contentType string) (string, string, error) {
	return "", "", ErrNotConfigured
}

func (Disabled) Destroy(ctx context.Context, key string) error {
	return ErrNotConfigured
}

// DecodeDataURI splits a base64 data URI ("data:image/png;base64,....") into
// raw bytes and content type. Bare base64 without a prefix is accepted and
// treated as image/jpeg.
func DecodeDataURI(uri string) ([]byte, string, error) {
	contentType := "image/jpeg"
	payload := uri
	if strings.HasPrefix(uri, "data:") {
		meta, rest, ok := strings.Cut(uri[len("data:"):], ",")
		if !ok {
			return nil, "", errors.New("storage: malformed data URI")
		}
		payload = rest
		meta = strings.TrimSuffix(meta, ";base64")
		if meta != "" {
			contentType = meta
		}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.New("storage: invalid base64 image payload")
	}
	return data, contentType, nil
}
