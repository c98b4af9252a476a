package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/m-mizutani/gt"
)

func testRecord(id model.DefectID) *model.Record {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	return &model.Record{
		ID:             id,
		CreatedAt:      now,
		UpdatedAt:      now,
		UserID:         "user-1",
		Origin:         model.OriginCustomerReturn,
		Manufacturer:   "Acme",
		Model:          "AX-1",
		RawDescription: "The handle snapped off.",
		Photos:         []model.MediaItem{},
		Videos:         []model.MediaItem{},
	}
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	store := repository.NewRecordStore(adapter.NewMemoryStorage(), "")

	record := testRecord("D7")
	gt.NoError(t, store.Put(ctx, record))

	loaded, err := store.Get(ctx, "D7")
	gt.NoError(t, err)
	gt.Equal(t, loaded.ID, record.ID)
	gt.Equal(t, loaded.Origin, record.Origin)
	gt.Equal(t, loaded.RawDescription, record.RawDescription)
	gt.Equal(t, loaded.CreatedAt, record.CreatedAt)
}

func TestGetUnknownID(t *testing.T) {
	ctx := context.Background()
	store := repository.NewRecordStore(adapter.NewMemoryStorage(), "")

	_, err := store.Get(ctx, "D404")
	gt.Error(t, err)
	gt.Equal(t, errors.Is(err, repository.ErrRecordNotFound), true)
}

func TestPutOverwritesWholeDocument(t *testing.T) {
	ctx := context.Background()
	store := repository.NewRecordStore(adapter.NewMemoryStorage(), "")

	record := testRecord("D1")
	gt.NoError(t, store.Put(ctx, record))

	record.Manufacturer = "Borealis"
	gt.NoError(t, store.Put(ctx, record))

	loaded, err := store.Get(ctx, "D1")
	gt.NoError(t, err)
	gt.Equal(t, loaded.Manufacturer, "Borealis")
}

func TestMediaLayout(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewMemoryStorage()
	store := repository.NewRecordStore(storage, "")

	gt.NoError(t, store.CreateFolder(ctx, "D3"))

	key, err := store.PutMedia(ctx, "D3", "photo_1.jpg", []byte{0xff}, "image/jpeg")
	gt.NoError(t, err)
	gt.Equal(t, key, "defects/D3/photo_1.jpg")

	data, err := storage.Get(ctx, "defects/D3/photo_1.jpg")
	gt.NoError(t, err)
	gt.Equal(t, data, []byte{0xff})
}

func TestDeleteMediaByPrefixLeavesOtherKindAlone(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewMemoryStorage()
	store := repository.NewRecordStore(storage, "")

	gt.NoError(t, store.Put(ctx, testRecord("D5")))
	_, err := store.PutMedia(ctx, "D5", "photo_1.jpg", []byte{1}, "image/jpeg")
	gt.NoError(t, err)
	_, err = store.PutMedia(ctx, "D5", "photo_2.jpg", []byte{2}, "image/jpeg")
	gt.NoError(t, err)
	_, err = store.PutMedia(ctx, "D5", "video_1.mp4", []byte{3}, "video/mp4")
	gt.NoError(t, err)

	gt.NoError(t, store.DeleteMediaByPrefix(ctx, "D5", "photo_"))

	keys, err := storage.List(ctx, "defects/D5/")
	gt.NoError(t, err)
	gt.A(t, keys).Length(2) // the document and the video
	for _, key := range keys {
		gt.S(t, key).NotContains("photo_")
	}
}

func TestCustomBasePrefix(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewMemoryStorage()
	store := repository.NewRecordStore(storage, "intake/reports")

	gt.NoError(t, store.Put(ctx, testRecord("D9")))

	keys, err := storage.List(ctx, "intake/reports/D9/")
	gt.NoError(t, err)
	gt.A(t, keys).Length(1)
	gt.Equal(t, keys[0], "intake/reports/D9/data_D9.json")
}
