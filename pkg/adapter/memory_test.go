package adapter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/m-mizutani/gt"
)

func TestMemoryStoragePutGet(t *testing.T) {
	ctx := context.Background()
	s := adapter.NewMemoryStorage()

	gt.NoError(t, s.Put(ctx, "a/b.json", []byte(`{}`), "application/json"))

	data, err := s.Get(ctx, "a/b.json")
	gt.NoError(t, err)
	gt.Equal(t, data, []byte(`{}`))

	_, err = s.Get(ctx, "a/missing.json")
	gt.Error(t, err)
	gt.Equal(t, errors.Is(err, adapter.ErrObjectNotExist), true)
}

func TestMemoryStorageListIsSortedByPrefix(t *testing.T) {
	ctx := context.Background()
	s := adapter.NewMemoryStorage()

	gt.NoError(t, s.Put(ctx, "d/2.bin", nil, ""))
	gt.NoError(t, s.Put(ctx, "d/1.bin", nil, ""))
	gt.NoError(t, s.Put(ctx, "other/3.bin", nil, ""))

	keys, err := s.List(ctx, "d/")
	gt.NoError(t, err)
	gt.Equal(t, keys, []string{"d/1.bin", "d/2.bin"})
}

func TestMemoryStorageDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := adapter.NewMemoryStorage()

	gt.NoError(t, s.Put(ctx, "k", []byte{1}, ""))
	gt.NoError(t, s.Delete(ctx, "k", "never-existed"))

	_, err := s.Get(ctx, "k")
	gt.Error(t, err)
}

func TestMemoryStorageSignedURL(t *testing.T) {
	ctx := context.Background()
	s := adapter.NewMemoryStorage()

	gt.NoError(t, s.Put(ctx, "media/photo_1.jpg", []byte{0xff}, "image/jpeg"))

	url, err := s.SignedURL(ctx, "media/photo_1.jpg", time.Minute)
	gt.NoError(t, err)
	gt.Equal(t, url, "memory://media/photo_1.jpg")

	_, err = s.SignedURL(ctx, "media/none.jpg", time.Minute)
	gt.Error(t, err)
}
