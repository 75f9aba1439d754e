package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/dustin/go-humanize"
	"google.golang.org/api/option"

	"github.com/kdeps/kxlate/pkg/logging"
)

// GCS stores objects in Google Cloud Storage.
type GCS struct {
	client *gcs.Client
	logger *logging.Logger
}

// NewGCS opens a client. credentialsFile may be empty to use application
// default credentials.
func NewGCS(ctx context.Context, credentialsFile string, logger *logging.Logger, opts ...option.ClientOption) (*GCS, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, logger: logger}, nil
}

// Fetch implements Store.
func (g *GCS) Fetch(ctx context.Context, bucket, object string) ([]byte, error) {
	if err := validateLocation(bucket, object); err != nil {
		return nil, err
	}

	r, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) || errors.Is(err, gcs.ErrBucketNotExist) {
			return nil, fmt.Errorf("gs://%s/%s: %w", bucket, object, ErrNotFound)
		}
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, object, err)
	}

	g.logger.Debug("object fetched", "bucket", bucket, "object", object, "size", humanize.Bytes(uint64(len(data))))
	return data, nil
}

// Put implements Store.
func (g *GCS) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if err := validateLocation(bucket, key); err != nil {
		return err
	}

	w := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", bucket, key, err)
	}

	g.logger.Debug("object stored", "bucket", bucket, "key", key, "size", humanize.Bytes(uint64(len(data))))
	return nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}
