package deck

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/deck-generator/internal/model"
)

type memStore struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]model.Job
	cancelled map[uuid.UUID]int
}

func newMemStore() *memStore {
	return &memStore{
		jobs:      make(map[uuid.UUID]model.Job),
		cancelled: make(map[uuid.UUID]int),
	}
}

func (m *memStore) Save(_ context.Context, job model.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return model.Job{}, errors.New("job not found")
	}
	return job, nil
}

func (m *memStore) SetCancelled(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled[id]++
	return nil
}

type fakeProducer struct {
	tasks []model.Task
	err   error
}

func (f *fakeProducer) Enqueue(_ context.Context, task model.Task) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeRunner struct{ tasks []model.Task }

func (f *fakeRunner) Run(_ context.Context, task model.Task) error {
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeArtifacts struct{ decks map[string]string }

func (f *fakeArtifacts) Load(_ context.Context, _, filename string) (io.ReadCloser, error) {
	content, ok := f.decks[filename]
	if !ok {
		return nil, errors.New("no such artifact")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func newService() (*Service, *memStore, *fakeProducer, *fakeRunner, *fakeArtifacts) {
	store := newMemStore()
	p := &fakeProducer{}
	r := &fakeRunner{}
	a := &fakeArtifacts{decks: make(map[string]string)}
	return NewService(store, p, r, a), store, p, r, a
}

func TestSubmit(t *testing.T) {
	t.Run("rejects empty content before creating a job", func(t *testing.T) {
		s, store, p, _, _ := newService()

		_, err := s.Submit(context.Background(), "   \n\t ", 5)
		assert.ErrorIs(t, err, ErrEmptyContent)
		assert.Empty(t, store.jobs)
		assert.Empty(t, p.tasks)
	})

	t.Run("creates a queued job and enqueues the task", func(t *testing.T) {
		s, store, p, _, _ := newService()

		id, err := s.Submit(context.Background(), "1. Paris\n2. Tokyo", 5)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, id)

		job, err := store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusQueued, job.Status)

		require.Len(t, p.tasks, 1)
		assert.Equal(t, id, p.tasks[0].JobID)
		assert.Equal(t, "1. Paris\n2. Tokyo", p.tasks[0].Content)
		assert.Equal(t, 5, p.tasks[0].MaxSlides)
	})

	t.Run("enqueue failure surfaces", func(t *testing.T) {
		s, _, p, _, _ := newService()
		p.err = errors.New("broker unavailable")

		_, err := s.Submit(context.Background(), "content", 0)
		assert.Error(t, err)
	})
}

func TestCancel_Idempotent(t *testing.T) {
	s, store, _, _, _ := newService()
	id := uuid.New()

	require.NoError(t, s.Cancel(context.Background(), id))
	require.NoError(t, s.Cancel(context.Background(), id))

	// Setting the flag twice is indistinguishable from once.
	assert.Equal(t, 2, store.cancelled[id])
}

func TestArtifact(t *testing.T) {
	t.Run("not ready while running names the status", func(t *testing.T) {
		s, store, _, _, _ := newService()

		job := model.NewJob()
		job.Start()
		require.NoError(t, store.Save(context.Background(), job))

		_, _, err := s.Artifact(context.Background(), job.ID)
		require.ErrorIs(t, err, ErrNotReady)
		assert.Contains(t, err.Error(), "running")
	})

	t.Run("not ready for failed jobs", func(t *testing.T) {
		s, store, _, _, _ := newService()

		job := model.NewJob()
		job.Start()
		job.Finish(model.StatusFailed)
		require.NoError(t, store.Save(context.Background(), job))

		_, _, err := s.Artifact(context.Background(), job.ID)
		assert.ErrorIs(t, err, ErrNotReady)
	})

	t.Run("succeeded job streams the deck", func(t *testing.T) {
		s, store, _, _, a := newService()

		job := model.NewJob()
		job.Start()
		job.Result = &model.Result{Filename: "deck_ab12cd34.zip"}
		job.Finish(model.StatusSucceeded)
		require.NoError(t, store.Save(context.Background(), job))
		a.decks["deck_ab12cd34.zip"] = "deck-bytes"

		filename, reader, err := s.Artifact(context.Background(), job.ID)
		require.NoError(t, err)
		defer reader.Close()

		assert.Equal(t, "deck_ab12cd34.zip", filename)
		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "deck-bytes", string(content))
	})
}

func TestProcessTask_DelegatesToRunner(t *testing.T) {
	s, _, _, r, _ := newService()

	task := model.Task{JobID: uuid.New(), Content: "content", MaxSlides: 3}
	require.NoError(t, s.ProcessTask(context.Background(), task))

	require.Len(t, r.tasks, 1)
	assert.Equal(t, task, r.tasks[0])
}
