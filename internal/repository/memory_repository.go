package repository

import (
	"context"
	"sync"
	"time"

	"github.com/osvaldoandrade/repozip/pkg/domain"
)

type attemptKey struct{ subject, competition string }

type submissionMemoryRepo struct {
	mu       sync.Mutex
	attempts map[attemptKey]int
	records  map[string]domain.SubmissionRecord
	last     map[attemptKey]string
	counts   map[string]int64
}

// NewMemorySubmissionRepository keeps everything in process memory.
func NewMemorySubmissionRepository() SubmissionRepository {
	return &submissionMemoryRepo{
		attempts: map[attemptKey]int{},
		records:  map[string]domain.SubmissionRecord{},
		last:     map[attemptKey]string{},
		counts:   map[string]int64{},
	}
}

func key(subject, competition string) attemptKey {
	return attemptKey{subject: subject, competition: competitionKey(competition)}
}

func (r *submissionMemoryRepo) Reserve(_ context.Context, subject, competition string, maxAttempts int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(subject, competition)
	if r.attempts[k] >= maxAttempts {
		return maxAttempts, ErrAttemptsExhausted
	}
	r.attempts[k]++
	return r.attempts[k], nil
}

func (r *submissionMemoryRepo) Release(_ context.Context, subject, competition string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(subject, competition)
	if r.attempts[k] > 0 {
		r.attempts[k]--
	}
	return nil
}

func (r *submissionMemoryRepo) Used(_ context.Context, subject, competition string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts[key(subject, competition)], nil
}

func (r *submissionMemoryRepo) Save(_ context.Context, rec domain.SubmissionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
	r.last[key(rec.Subject, rec.CompetitionID)] = rec.ID
	r.counts[competitionKey(rec.CompetitionID)]++
	return nil
}

func (r *submissionMemoryRepo) Get(_ context.Context, id string) (*domain.SubmissionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *submissionMemoryRepo) Last(ctx context.Context, subject, competition string) (*domain.SubmissionRecord, error) {
	r.mu.Lock()
	id, ok := r.last[key(subject, competition)]
	r.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *submissionMemoryRepo) CountByCompetition(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out, nil
}
