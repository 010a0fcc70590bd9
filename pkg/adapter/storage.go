package adapter

import (
	"context"
	"errors"
	"io"

	"cloud.google.com/go/storage"
	"github.com/iin-community/kehila/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Storage holds user-uploaded binary objects such as profile images.
// Keys are object paths within a single bucket. Objects are written by
// the community platform out of band, so only reads are exposed here.
type Storage interface {
	// Get returns a reader for the object at key plus its content type
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// storageClient implements Storage using Cloud Storage
type storageClient struct {
	bucketName string
	client     *storage.Client
}

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageClient) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", goerr.Wrap(model.ErrNotFound, "object not found", goerr.V("key", key))
		}
		return nil, "", goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}

	return reader, reader.Attrs.ContentType, nil
}
