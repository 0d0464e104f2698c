// Package deck provides the business logic behind the deck generation
// boundaries: submission, status, cancellation and artifact retrieval.
package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/aliskhannn/deck-generator/internal/model"
)

var (
	// ErrEmptyContent rejects a submission before any job is created.
	ErrEmptyContent = errors.New("content is empty")
	// ErrNotReady is wrapped into the retrieval error while the job has
	// not succeeded yet.
	ErrNotReady = errors.New("deck is not ready")
)

// jobStore defines the interface for job snapshots and cancellation flags.
type jobStore interface {
	Save(ctx context.Context, job model.Job) error
	Get(ctx context.Context, id uuid.UUID) (model.Job, error)
	SetCancelled(ctx context.Context, id uuid.UUID) error
}

// producer defines the interface for enqueueing tasks into the queue.
type producer interface {
	Enqueue(ctx context.Context, task model.Task) error
}

// runner defines the interface for executing a job's pipeline.
type runner interface {
	Run(ctx context.Context, task model.Task) error
}

// artifactStorage defines the interface for reading finished decks.
type artifactStorage interface {
	Load(ctx context.Context, subdir, filename string) (io.ReadCloser, error)
}

// Service provides deck generation operations over the job store, the
// queue and artifact storage.
type Service struct {
	store     jobStore
	producer  producer
	runner    runner
	artifacts artifactStorage
}

// NewService creates a new Service.
func NewService(store jobStore, p producer, r runner, a artifactStorage) *Service {
	return &Service{store: store, producer: p, runner: r, artifacts: a}
}

// Submit allocates a queued job for the content and schedules its
// execution, returning the job id immediately. The only validation here
// is non-emptiness; everything deeper surfaces later as a failed job.
func (s *Service) Submit(ctx context.Context, content string, maxSlides int) (uuid.UUID, error) {
	if strings.TrimSpace(content) == "" {
		return uuid.Nil, ErrEmptyContent
	}

	job := model.NewJob()
	if err := s.store.Save(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to save job: %w", err)
	}

	task := model.Task{
		JobID:     job.ID,
		Content:   content,
		MaxSlides: maxSlides,
	}
	if err := s.producer.Enqueue(ctx, task); err != nil {
		return uuid.Nil, fmt.Errorf("submit: failed to enqueue task: %w", err)
	}

	return job.ID, nil
}

// Status returns the most recently written snapshot of the job. Safe to
// call concurrently with the running job.
func (s *Service) Status(ctx context.Context, id uuid.UUID) (model.Job, error) {
	return s.store.Get(ctx, id)
}

// Cancel records a cancellation request for the job. It succeeds
// regardless of the job's current state, does not wait for the job to
// stop, and calling it twice has the same effect as calling it once.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.store.SetCancelled(ctx, id); err != nil {
		return fmt.Errorf("cancel: failed to set cancel flag: %w", err)
	}

	return nil
}

// Artifact returns the rendered deck bytes for a succeeded job. Any
// other state yields a not-ready error naming the current status.
func (s *Service) Artifact(ctx context.Context, id uuid.UUID) (string, io.ReadCloser, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}

	if job.Status != model.StatusSucceeded || job.Result == nil {
		return "", nil, fmt.Errorf("%w: job status is %s", ErrNotReady, job.Status)
	}

	reader, err := s.artifacts.Load(ctx, "", job.Result.Filename)
	if err != nil {
		return "", nil, fmt.Errorf("artifact: failed to load deck: %w", err)
	}

	return job.Result.Filename, reader, nil
}

// ProcessTask executes a dequeued generation task. Invoked by the queue
// consumer, at most once per job.
func (s *Service) ProcessTask(ctx context.Context, task model.Task) error {
	if err := s.runner.Run(ctx, task); err != nil {
		return fmt.Errorf("process task: %w", err)
	}

	return nil
}
