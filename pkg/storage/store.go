// Package storage reads source transcripts and writes translation artifacts
// to bucket-addressed object stores.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// Store is the object storage boundary used by the pipeline.
type Store interface {
	// Fetch returns the full contents of bucket/object.
	Fetch(ctx context.Context, bucket, object string) ([]byte, error)
	// Put writes data under bucket/key, replacing any existing object.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

func validateLocation(bucket, name string) error {
	if bucket == "" {
		return errors.New("bucket is required")
	}
	if name == "" {
		return fmt.Errorf("object name is required in bucket %s", bucket)
	}
	return nil
}
