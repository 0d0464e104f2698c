// Package pipeline owns the end-to-end deck generation flow as a
// cancellable, progress-reporting unit of work. One job occupies one
// worker for its whole life; cancellation is cooperative, polled at fixed
// points between pipeline steps.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/deck-generator/internal/config"
	"github.com/aliskhannn/deck-generator/internal/model"
	"github.com/aliskhannn/deck-generator/internal/normalizer"
)

// jobStore defines the interface for job snapshots and cancellation flags.
type jobStore interface {
	Save(ctx context.Context, job model.Job) error
	Get(ctx context.Context, id uuid.UUID) (model.Job, error)
	Cancelled(ctx context.Context, id uuid.UUID) (bool, error)
}

// slideStructurer defines the interface for the slide structuring model.
type slideStructurer interface {
	Structure(ctx context.Context, content string, targetSlides int) (model.DeckOutline, error)
}

// visualResolver defines the interface for per-slide image resolution.
// Resolution never fails: an empty handle means "no image".
type visualResolver interface {
	Resolve(ctx context.Context, index int, query, accentColor string) string
}

// deckRenderer defines the interface for laying out the final deck.
type deckRenderer interface {
	Render(slides []model.SlideRecord, visuals []string, themeColor string) ([]byte, error)
}

// artifactStorage defines the interface for persisting finished decks.
type artifactStorage interface {
	Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error)
}

// Pipeline executes deck generation jobs.
type Pipeline struct {
	store      jobStore
	structurer slideStructurer
	resolver   visualResolver
	renderer   deckRenderer
	artifacts  artifactStorage
	content    config.Content
}

// New creates a Pipeline from its collaborators.
func New(
	store jobStore,
	s slideStructurer,
	r visualResolver,
	d deckRenderer,
	a artifactStorage,
	content config.Content,
) *Pipeline {
	return &Pipeline{
		store:      store,
		structurer: s,
		resolver:   r,
		renderer:   d,
		artifacts:  a,
		content:    content,
	}
}

// Run executes the job described by the task and records exactly one
// terminal state. Pipeline failures are absorbed into the job record;
// the returned error covers only store-level failures, for the queue
// layer to decide about redelivery.
func (p *Pipeline) Run(ctx context.Context, task model.Task) error {
	job, err := p.store.Get(ctx, task.JobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", task.JobID, err)
	}
	// Terminal states are absorbing; a redelivered task is a no-op.
	if job.Status.Terminal() {
		return nil
	}

	job.Start()
	if err := p.store.Save(ctx, job); err != nil {
		return fmt.Errorf("mark job %s running: %w", task.JobID, err)
	}

	status := p.execute(ctx, &job, task)
	job.Finish(status)

	// The terminal write must land even when ctx was cancelled mid-run,
	// otherwise the job would look running forever.
	if err := p.store.Save(context.WithoutCancel(ctx), job); err != nil {
		return fmt.Errorf("finish job %s: %w", task.JobID, err)
	}

	zlog.Logger.Info().
		Str("job_id", job.ID.String()).
		Str("status", string(job.Status)).
		Msg("job finished")

	return nil
}

// execute runs the pipeline steps and returns the terminal status. It is
// the single top-level handler for unexpected errors: failures from
// mandatory steps and panics become StatusFailed with the error recorded
// on the job, never a crashed worker.
func (p *Pipeline) execute(ctx context.Context, job *model.Job, task model.Task) (status model.Status) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Logger.Error().
				Str("job_id", job.ID.String()).
				Interface("panic", r).
				Msg("deck generation panicked")
			job.Error = fmt.Sprintf("internal error: %v", r)
			status = model.StatusFailed
		}
	}()

	// 1. Normalize.
	p.reportPhase(ctx, job, model.PhaseNormalizing)
	clean := normalizer.Truncate(normalizer.Clean(task.Content), p.content.MaxLength)

	if p.cancelled(ctx, job.ID) {
		return model.StatusCancelled
	}

	// 2. Numbered content takes precedence over the caller's hint: one
	// slide per enumerated item, capped so a pathological input cannot
	// request an unbounded deck.
	target := task.MaxSlides
	if target <= 0 {
		target = p.content.DefaultMaxSlides
	}
	if p.content.MaxSlidesCap > 0 && target > p.content.MaxSlidesCap {
		target = p.content.MaxSlidesCap
	}
	if n := normalizer.CountNumberedPoints(clean); n > 0 {
		target = n
		if p.content.MaxSlidesCap > 0 && target > p.content.MaxSlidesCap {
			target = p.content.MaxSlidesCap
		}
		zlog.Logger.Info().
			Str("job_id", job.ID.String()).
			Int("points", n).
			Int("target", target).
			Msg("numbered points detected, overriding slide count")
	}

	if p.cancelled(ctx, job.ID) {
		return model.StatusCancelled
	}

	// 3. Structure. Not retried here: an unparsable model response
	// aborts the job.
	p.reportPhase(ctx, job, model.PhaseStructuring)
	outline, err := p.structurer.Structure(ctx, clean, target)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("structuring failed")
		job.Error = fmt.Sprintf("structure content: %v", err)
		return model.StatusFailed
	}

	if p.cancelled(ctx, job.ID) {
		return model.StatusCancelled
	}

	// 4. Deduplicate visual queries before any image work.
	DedupVisualQueries(outline.Slides)

	// 5. Resolve visuals one at a time, in slide order. The resolver is
	// the slowest step, so cancellation is polled on both sides of it.
	total := len(outline.Slides)
	visuals := make([]string, 0, total)
	for i, slide := range outline.Slides {
		p.reportProgress(ctx, job, model.PhaseResolvingVisual, i+1, total)

		if p.cancelled(ctx, job.ID) {
			return model.StatusCancelled
		}

		handle := p.resolver.Resolve(ctx, i, slide.VisualQuery, slide.AccentColor)

		if p.cancelled(ctx, job.ID) {
			return model.StatusCancelled
		}

		visuals = append(visuals, handle)
	}

	// 6. Render.
	p.reportPhase(ctx, job, model.PhaseRendering)
	deck, err := p.renderer.Render(outline.Slides, visuals, outline.SuggestedBGColor)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("rendering failed")
		job.Error = fmt.Sprintf("render deck: %v", err)
		return model.StatusFailed
	}

	// 7. Persist under a fresh unique name.
	filename := fmt.Sprintf("deck_%s.zip", uuid.New().String()[:8])
	if _, err := p.artifacts.Save(ctx, "", filename, bytes.NewReader(deck)); err != nil {
		zlog.Logger.Error().Err(err).Str("job_id", job.ID.String()).Msg("persisting deck failed")
		job.Error = fmt.Sprintf("persist deck: %v", err)
		return model.StatusFailed
	}

	job.Result = &model.Result{Filename: filename}
	return model.StatusSucceeded
}

// cancelled is the poll point: it combines the externally settable flag
// with worker shutdown. A store error is treated as "not cancelled" so a
// flaky store cannot cancel jobs on its own.
func (p *Pipeline) cancelled(ctx context.Context, id uuid.UUID) bool {
	if ctx.Err() != nil {
		return true
	}

	set, err := p.store.Cancelled(ctx, id)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("job_id", id.String()).Msg("failed to poll cancel flag")
		return false
	}

	return set
}

// reportPhase publishes the current phase to concurrent status readers.
func (p *Pipeline) reportPhase(ctx context.Context, job *model.Job, phase string) {
	p.reportProgress(ctx, job, phase, 0, 0)
}

// reportProgress writes the job's observable progress through to the
// store immediately. Progress is advisory; write failures are logged and
// the pipeline moves on.
func (p *Pipeline) reportProgress(ctx context.Context, job *model.Job, phase string, current, total int) {
	job.Phase = phase
	job.Progress = model.Progress{Current: current, Total: total}

	if err := p.store.Save(ctx, *job); err != nil {
		zlog.Logger.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to report progress")
	}
}
