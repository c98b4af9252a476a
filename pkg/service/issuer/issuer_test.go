package issuer_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/defectdesk/defectdesk/pkg/adapter"
	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/defectdesk/defectdesk/pkg/service/issuer"
	"github.com/m-mizutani/gt"
)

func TestSequentialIssuesMonotonicIDs(t *testing.T) {
	ctx := context.Background()
	iss := issuer.NewSequential(repository.NewStorageCounter(adapter.NewMemoryStorage(), ""))

	for _, want := range []model.DefectID{"D1", "D2", "D3"} {
		id, err := iss.Issue(ctx)
		gt.NoError(t, err)
		gt.Equal(t, id, want)
	}
}

type failingCounter struct{}

func (failingCounter) Next(ctx context.Context) (int64, error) {
	return 0, context.DeadlineExceeded
}

func TestSequentialPropagatesCounterFailure(t *testing.T) {
	iss := issuer.NewSequential(failingCounter{})

	_, err := iss.Issue(context.Background())
	gt.Error(t, err)
}

func TestRandomIssuesWellFormedIDs(t *testing.T) {
	ctx := context.Background()
	iss := issuer.NewRandom()
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)

	seen := map[model.DefectID]bool{}
	for i := 0; i < 100; i++ {
		id, err := iss.Issue(ctx)
		gt.NoError(t, err)
		gt.Equal(t, pattern.MatchString(string(id)), true)
		seen[id] = true
	}
	// 100 draws from a 36^6 space should not collide
	gt.Equal(t, len(seen), 100)
}
