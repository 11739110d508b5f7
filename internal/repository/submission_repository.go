package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/osvaldoandrade/repozip/pkg/domain"

	"github.com/go-redis/redis/v8"
)

var (
	ErrNotFound          = errors.New("not-found")
	ErrAttemptsExhausted = errors.New("no remaining attempts")
)

// DefaultCompetition keys submissions sent without a competition id.
const DefaultCompetition = "_default"

type SubmissionRepository interface {
	// Reserve takes one attempt from subject's budget for competition and
	// returns how many were used including this one.
	Reserve(ctx context.Context, subject, competition string, maxAttempts int) (int, error)
	// Release gives back an attempt taken by Reserve for a failed submission.
	Release(ctx context.Context, subject, competition string) error
	Used(ctx context.Context, subject, competition string) (int, error)
	Save(ctx context.Context, rec domain.SubmissionRecord) error
	Get(ctx context.Context, id string) (*domain.SubmissionRecord, error)
	Last(ctx context.Context, subject, competition string) (*domain.SubmissionRecord, error)
	CountByCompetition(ctx context.Context) (map[string]int64, error)
}

func competitionKey(id string) string {
	if id == "" {
		return DefaultCompetition
	}
	return id
}

type submissionRedisRepo struct {
	rdb *redis.Client
	tz  *time.Location
}

func NewSubmissionRepository(rdb *redis.Client, tz *time.Location) SubmissionRepository {
	if tz == nil {
		tz = time.UTC
	}
	return &submissionRedisRepo{rdb: rdb, tz: tz}
}

func (r *submissionRedisRepo) keySubmissionsHash() string { return "repozip:submissions" }
func (r *submissionRedisRepo) keyCounts() string          { return "repozip:counts" }
func (r *submissionRedisRepo) keyAttempts(subject, competition string) string {
	return fmt.Sprintf("repozip:attempts:%s:%s", competitionKey(competition), subject)
}
func (r *submissionRedisRepo) keyLast(subject, competition string) string {
	return fmt.Sprintf("repozip:last:%s:%s", competitionKey(competition), subject)
}

// reserveScript increments the attempt counter unless it already reached
// the budget.
//
// KEYS[1] = attempts counter
// ARGV[1] = max attempts
var reserveScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
local max = tonumber(ARGV[1])
if used >= max then
  return -1
end
return redis.call("INCR", KEYS[1])
`)

func (r *submissionRedisRepo) Reserve(ctx context.Context, subject, competition string, maxAttempts int) (int, error) {
	n, err := reserveScript.Run(ctx, r.rdb, []string{r.keyAttempts(subject, competition)}, maxAttempts).Int()
	if err != nil {
		return 0, fmt.Errorf("reserve attempt: %w", err)
	}
	if n < 0 {
		return maxAttempts, ErrAttemptsExhausted
	}
	return n, nil
}

// releaseScript decrements the attempt counter without going below zero.
var releaseScript = redis.NewScript(`
local used = tonumber(redis.call("GET", KEYS[1]) or "0")
if used <= 0 then
  return 0
end
return redis.call("DECR", KEYS[1])
`)

func (r *submissionRedisRepo) Release(ctx context.Context, subject, competition string) error {
	if err := releaseScript.Run(ctx, r.rdb, []string{r.keyAttempts(subject, competition)}).Err(); err != nil {
		return fmt.Errorf("release attempt: %w", err)
	}
	return nil
}

func (r *submissionRedisRepo) Used(ctx context.Context, subject, competition string) (int, error) {
	v, err := r.rdb.Get(ctx, r.keyAttempts(subject, competition)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis GET attempts: %w", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse attempts: %w", err)
	}
	return n, nil
}

func (r *submissionRedisRepo) Save(ctx context.Context, rec domain.SubmissionRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().In(r.tz)
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	pipe := r.rdb.TxPipeline()
	pipe.HSet(ctx, r.keySubmissionsHash(), rec.ID, string(b))
	pipe.Set(ctx, r.keyLast(rec.Subject, rec.CompetitionID), rec.ID, 0)
	pipe.HIncrBy(ctx, r.keyCounts(), competitionKey(rec.CompetitionID), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (r *submissionRedisRepo) Get(ctx context.Context, id string) (*domain.SubmissionRecord, error) {
	js, err := r.rdb.HGet(ctx, r.keySubmissionsHash(), id).Result()
	if err == redis.Nil || (err == nil && js == "") {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis HGET submission: %w", err)
	}
	var rec domain.SubmissionRecord
	if err := json.Unmarshal([]byte(js), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal submission: %w", err)
	}
	return &rec, nil
}

func (r *submissionRedisRepo) Last(ctx context.Context, subject, competition string) (*domain.SubmissionRecord, error) {
	id, err := r.rdb.Get(ctx, r.keyLast(subject, competition)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET last: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *submissionRedisRepo) CountByCompetition(ctx context.Context) (map[string]int64, error) {
	raw, err := r.rdb.HGetAll(ctx, r.keyCounts()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL counts: %w", err)
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
