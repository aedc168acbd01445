// Package storage provides object-store backed persistence for last-good
// schedule snapshots, so a spreadsheet outage degrades to cached data
// instead of failing schedule reads.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
)

// ObjectStore defines common object operations across backends.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Bucket() string
}

// Snapshots wraps an ObjectStore with JSON helpers.
type Snapshots struct {
	backend ObjectStore
}

// NewSnapshots constructs a Snapshots wrapper for the provided backend.
func NewSnapshots(backend ObjectStore) *Snapshots {
	return &Snapshots{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *Snapshots) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// SaveJSON marshals v and stores it under key.
func (s *Snapshots) SaveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json")
}

// LoadJSON reads the object under key and unmarshals it into v.
func (s *Snapshots) LoadJSON(ctx context.Context, key string, v any) error {
	r, err := s.backend.Get(ctx, key)
	if err != nil {
		return err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
