// Package issuer produces unique, human-speakable defect identifiers.
package issuer

import (
	"context"
	"crypto/rand"
	"strconv"

	"github.com/defectdesk/defectdesk/pkg/model"
	"github.com/defectdesk/defectdesk/pkg/repository"
	"github.com/m-mizutani/goerr/v2"
)

// Issuer issues a fresh defect identifier. It fails only when the backing
// counter or random source is unreachable.
type Issuer interface {
	Issue(ctx context.Context) (model.DefectID, error)
}

// sequential issues "D1", "D2", ... from a durable counter. Uniqueness is
// as strong as the counter backend: the object-store counter is safe only
// within one process, the Firestore counter across processes.
type sequential struct {
	counter repository.Counter
}

// NewSequential creates the counter-backed issuer
func NewSequential(counter repository.Counter) Issuer {
	return &sequential{counter: counter}
}

func (s *sequential) Issue(ctx context.Context) (model.DefectID, error) {
	n, err := s.counter.Next(ctx)
	if err != nil {
		return "", goerr.Wrap(err, "failed to issue defect ID")
	}
	return model.DefectID("D" + strconv.FormatInt(n, 10)), nil
}

const (
	randomAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	randomLength   = 6
)

// random issues a fixed-length uppercase-alphanumeric code. No uniqueness
// check is made against existing records; the collision probability is
// accepted as negligible but uniqueness is not guaranteed by construction.
type random struct{}

// NewRandom creates the random-code issuer
func NewRandom() Issuer {
	return &random{}
}

func (r *random) Issue(ctx context.Context) (model.DefectID, error) {
	buf := make([]byte, randomLength)
	if _, err := rand.Read(buf); err != nil {
		return "", goerr.Wrap(err, "failed to read random source")
	}
	for i, b := range buf {
		buf[i] = randomAlphabet[int(b)%len(randomAlphabet)]
	}
	return model.DefectID(buf), nil
}
