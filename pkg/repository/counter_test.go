package repository_test

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/m-mizutani/gt"
)

func TestStorageCounterStartsAtOne(t *testing.T) {
	ctx := context.Background()
	counter := repository.NewStorageCounter(adapter.NewMemoryStorage(), "")

	n, err := counter.Next(ctx)
	gt.NoError(t, err)
	gt.Equal(t, n, int64(1))

	n, err = counter.Next(ctx)
	gt.NoError(t, err)
	gt.Equal(t, n, int64(2))
}

func TestStorageCounterPersistsLastValue(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewMemoryStorage()

	gt.NoError(t, storage.Put(ctx, "defects/last_id.txt", []byte("41"), "text/plain"))

	counter := repository.NewStorageCounter(storage, "")
	n, err := counter.Next(ctx)
	gt.NoError(t, err)
	gt.Equal(t, n, int64(42))

	data, err := storage.Get(ctx, "defects/last_id.txt")
	gt.NoError(t, err)
	gt.Equal(t, string(data), "42")
}

func TestStorageCounterRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	storage := adapter.NewMemoryStorage()

	gt.NoError(t, storage.Put(ctx, "defects/last_id.txt", []byte("not a number"), "text/plain"))

	counter := repository.NewStorageCounter(storage, "")
	_, err := counter.Next(ctx)
	gt.Error(t, err)
}

func TestStorageCounterIsSerializedWithinProcess(t *testing.T) {
	ctx := context.Background()
	counter := repository.NewStorageCounter(adapter.NewMemoryStorage(), "")

	const workers = 20
	type result struct {
		n   int64
		err error
	}
	results := make(chan result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := counter.Next(ctx)
			results <- result{n: n, err: err}
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for r := range results {
		gt.NoError(t, r.err)
		if seen[r.n] {
			t.Fatalf("number issued twice: %s", strconv.FormatInt(r.n, 10))
		}
		seen[r.n] = true
	}
	gt.Equal(t, len(seen), workers)
}
