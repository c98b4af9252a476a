package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Counter issues the next sequential defect number. Implementations differ
// in how far the increment is race-free; see each constructor.
type Counter interface {
	// Next returns the next number, persisting it as the last issued one
	Next(ctx context.Context) (int64, error)
}

// counterFilename is the singleton key (under the base prefix) holding the
// last issued number for the object-store backend.
const counterFilename = "last_id.txt"

// storageCounter keeps the last issued number in a single object-store key
// with read, +1, write semantics. The mutex serializes issuance within this
// process only; two processes sharing a bucket can still issue duplicates.
type storageCounter struct {
	mu      sync.Mutex
	storage adapter.Storage
	key     string
}

// NewStorageCounter creates the object-store backed counter. base is the
// same prefix the RecordStore uses.
func NewStorageCounter(storage adapter.Storage, base string) Counter {
	if base == "" {
		base = DefaultBasePrefix
	}
	return &storageCounter{
		storage: storage,
		key:     strings.Trim(base, "/") + "/" + counterFilename,
	}
}

func (c *storageCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var last int64
	data, err := c.storage.Get(ctx, c.key)
	switch {
	case err == nil:
		last, err = strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
		if err != nil {
			return 0, goerr.Wrap(err, "counter object holds a non-numeric value", goerr.V("key", c.key))
		}
	case errors.Is(err, adapter.ErrObjectNotExist):
		last = 0
	default:
		return 0, goerr.Wrap(err, "failed to read counter", goerr.V("key", c.key))
	}

	next := last + 1
	body := []byte(strconv.FormatInt(next, 10))
	if err := c.storage.Put(ctx, c.key, body, "text/plain; charset=utf-8"); err != nil {
		return 0, goerr.Wrap(err, "failed to save counter", goerr.V("key", c.key))
	}
	return next, nil
}

// firestoreCounter keeps the last issued number in one Firestore document
// and increments it inside a transaction, closing the duplicate-identifier
// race across processes.
type firestoreCounter struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
}

// counterField is the document field holding the last issued number.
const counterField = "last"

// NewFirestoreCounter creates the transactional counter backend.
func NewFirestoreCounter(ctx context.Context, projectID, databaseID string) (Counter, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &firestoreCounter{
		client: client,
		doc:    client.Collection("counters").Doc("defects"),
	}, nil
}

func (c *firestoreCounter) Next(ctx context.Context) (int64, error) {
	var next int64

	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var last int64

		snap, err := tx.Get(c.doc)
		switch {
		case err == nil:
			v, err := snap.DataAt(counterField)
			if err != nil {
				return goerr.Wrap(err, "counter document has no last field")
			}
			n, ok := v.(int64)
			if !ok {
				return goerr.New("counter field is not an integer", goerr.V("value", v))
			}
			last = n
		case status.Code(err) == codes.NotFound:
			last = 0
		default:
			return goerr.Wrap(err, "failed to read counter document")
		}

		next = last + 1
		return tx.Set(c.doc, map[string]any{counterField: next})
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to increment defect counter")
	}
	return next, nil
}
