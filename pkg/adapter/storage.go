package adapter

import (
	"context"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
)

var (
	// ErrObjectNotExist is returned by Get for a missing key.
	ErrObjectNotExist = goerr.New("object does not exist")
)

// Storage is the durable key-value blob store behind the record repository.
// Writes are independent whole-object overwrites; there is no transaction
// spanning multiple keys.
type Storage interface {
	// Put writes an object, overwriting any existing one under the key
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Get reads a whole object, ErrObjectNotExist if the key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys of all objects under the given prefix
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the given objects; missing keys are not an error
	Delete(ctx context.Context, keys ...string) error
	// SignedURL returns a presigned GET URL for the object
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
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

func (s *storageClient) Put(ctx context.Context, key string, data []byte, contentType string) error {
	obj := s.client.Bucket(s.bucketName).Object(key)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write to storage", goerr.Value("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finish storage write", goerr.Value("key", key))
	}
	return nil
}

func (s *storageClient) Get(ctx context.Context, key string) ([]byte, error) {
	obj := s.client.Bucket(s.bucketName).Object(key)
	r, err := obj.NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, goerr.Wrap(ErrObjectNotExist, "no such object", goerr.Value("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.Value("key", key))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read object body", goerr.Value("key", key))
	}
	return data, nil
}

func (s *storageClient) List(ctx context.Context, prefix string) ([]string, error) {
	it := s.client.Bucket(s.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list objects", goerr.Value("prefix", prefix))
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (s *storageClient) Delete(ctx context.Context, keys ...string) error {
	bucket := s.client.Bucket(s.bucketName)
	for _, key := range keys {
		if err := bucket.Object(key).Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
			return goerr.Wrap(err, "failed to delete object", goerr.Value("key", key))
		}
	}
	return nil
}

func (s *storageClient) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.bucketName).SignedURL(key, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign URL", goerr.Value("key", key))
	}
	return url, nil
}
