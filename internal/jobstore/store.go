// Package jobstore persists job snapshots and cancellation flags in
// Redis. Each job has exactly one writer (the worker executing it), so
// last-writer-wins key updates are sufficient; cancellation flags are
// set-once and polled, never cleared. Records expire through TTLs rather
// than explicit cleanup.
package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aliskhannn/deck-generator/internal/config"
	"github.com/aliskhannn/deck-generator/internal/model"
)

// ErrJobNotFound indicates the job does not exist or has expired.
var ErrJobNotFound = errors.New("job not found")

const (
	jobKeyPrefix    = "job:"
	cancelKeyPrefix = "cancel:"
)

// Store is a Redis-backed job and cancellation-flag store.
type Store struct {
	client    *redis.Client
	jobTTL    time.Duration
	cancelTTL time.Duration
}

// New connects to Redis and verifies the connection.
func New(cfg config.Redis) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Store{
		client:    client,
		jobTTL:    cfg.JobTTL,
		cancelTTL: cfg.CancelTTL,
	}, nil
}

// Save writes the full job snapshot, refreshing its retention TTL.
func (s *Store) Save(ctx context.Context, job model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := s.client.Set(ctx, jobKeyPrefix+job.ID.String(), data, s.jobTTL).Err(); err != nil {
		return fmt.Errorf("save job: %w", err)
	}

	return nil
}

// Get returns the most recently written snapshot of the job.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (model.Job, error) {
	data, err := s.client.Get(ctx, jobKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Job{}, ErrJobNotFound
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("get job: %w", err)
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return model.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}

	return job, nil
}

// SetCancelled records a cancellation request for the job. Safe to call
// at any point in the job's life; calling it twice is the same as once.
func (s *Store) SetCancelled(ctx context.Context, id uuid.UUID) error {
	if err := s.client.Set(ctx, cancelKeyPrefix+id.String(), "1", s.cancelTTL).Err(); err != nil {
		return fmt.Errorf("set cancel flag: %w", err)
	}

	return nil
}

// Cancelled reports whether a cancellation has been requested for the job.
func (s *Store) Cancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := s.client.Exists(ctx, cancelKeyPrefix+id.String()).Result()
	if err != nil {
		return false, fmt.Errorf("check cancel flag: %w", err)
	}

	return n > 0, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
