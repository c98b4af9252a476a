package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrRecordNotFound is returned by Get for an unknown identifier.
	ErrRecordNotFound = goerr.New("defect record not found")
)

// DefaultBasePrefix is the top-level folder holding all defect records.
const DefaultBasePrefix = "defects"

// RecordStore persists defect records and their media in the object store.
//
// Layout, one folder per identifier:
//
//	<base>/<id>/data_<id>.json
//	<base>/<id>/photo_1.jpg
//	<base>/<id>/video_1.mp4
//	<base>/last_id.txt          (sequential counter singleton)
//
// Put is a whole-document overwrite with no concurrency token: concurrent
// editors of the same id clobber each other, last writer wins. Media
// replacement (DeleteMediaByPrefix then PutMedia) is not transactional.
type RecordStore struct {
	storage adapter.Storage
	base    string
}

// NewRecordStore creates a RecordStore on top of the given object storage.
// An empty base falls back to DefaultBasePrefix.
func NewRecordStore(storage adapter.Storage, base string) *RecordStore {
	if base == "" {
		base = DefaultBasePrefix
	}
	return &RecordStore{
		storage: storage,
		base:    strings.Trim(base, "/"),
	}
}

func (s *RecordStore) folder(id model.DefectID) string {
	return s.base + "/" + string(id)
}

func (s *RecordStore) docKey(id model.DefectID) string {
	return s.folder(id) + "/data_" + string(id) + ".json"
}

// CreateFolder creates the zero-byte folder marker for a record. Idempotent.
func (s *RecordStore) CreateFolder(ctx context.Context, id model.DefectID) error {
	key := s.folder(id) + "/"
	if err := s.storage.Put(ctx, key, nil, ""); err != nil {
		return goerr.Wrap(err, "failed to create defect folder", goerr.V("id", id))
	}
	return nil
}

// Put overwrites the record document as a whole.
func (s *RecordStore) Put(ctx context.Context, record *model.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to marshal defect record", goerr.V("id", record.ID))
	}

	if err := s.storage.Put(ctx, s.docKey(record.ID), data, "application/json; charset=utf-8"); err != nil {
		return goerr.Wrap(err, "failed to save defect record", goerr.V("id", record.ID))
	}
	return nil
}

// Get loads a record by identifier, ErrRecordNotFound for unknown ids.
func (s *RecordStore) Get(ctx context.Context, id model.DefectID) (*model.Record, error) {
	data, err := s.storage.Get(ctx, s.docKey(id))
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrRecordNotFound, "no document for defect", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to load defect record", goerr.V("id", id))
	}

	var record model.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal defect record", goerr.V("id", id))
	}
	return &record, nil
}

// PutMedia stores one media file inside the record's folder and returns the
// full object key.
func (s *RecordStore) PutMedia(ctx context.Context, id model.DefectID, filename string, data []byte, contentType string) (string, error) {
	key := s.folder(id) + "/" + filename
	if err := s.storage.Put(ctx, key, data, contentType); err != nil {
		return "", goerr.Wrap(err, "failed to save defect media", goerr.V("id", id), goerr.V("filename", filename))
	}
	return key, nil
}

// DeleteMediaByPrefix removes every file in the record's folder whose
// filename starts with the given prefix ("photo_" or "video_"). The caller
// re-uploads the replacement set afterwards; the two steps are not atomic.
func (s *RecordStore) DeleteMediaByPrefix(ctx context.Context, id model.DefectID, prefix string) error {
	folder := s.folder(id) + "/"
	keys, err := s.storage.List(ctx, folder)
	if err != nil {
		return goerr.Wrap(err, "failed to list defect media", goerr.V("id", id))
	}

	var doomed []string
	for _, key := range keys {
		filename := key[strings.LastIndex(key, "/")+1:]
		if strings.HasPrefix(filename, prefix) {
			doomed = append(doomed, key)
		}
	}
	if len(doomed) == 0 {
		return nil
	}

	if err := s.storage.Delete(ctx, doomed...); err != nil {
		return goerr.Wrap(err, "failed to delete defect media", goerr.V("id", id), goerr.V("prefix", prefix))
	}
	return nil
}

// SignedURL returns a presigned retrieval URL for one stored media file.
func (s *RecordStore) SignedURL(ctx context.Context, id model.DefectID, filename string, ttl time.Duration) (string, error) {
	url, err := s.storage.SignedURL(ctx, s.folder(id)+"/"+filename, ttl)
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign media URL", goerr.V("id", id), goerr.V("filename", filename))
	}
	return url, nil
}
