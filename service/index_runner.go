package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"legalrag-backend/models"
	"legalrag-backend/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrIndexRunInProgress = errors.New("an index run is already in progress")
	ErrIndexRunNotFound   = errors.New("index run not found")
	ErrRunCreationFailed  = errors.New("failed to create index run")
)

// IndexRunner tracks catalog indexing as runs that can be polled
type IndexRunner struct {
	indexer *Indexer
	runRepo repository.IndexRunRepository
	running atomic.Bool
}

// IndexRunnerOption is a functional option for IndexRunner
type IndexRunnerOption func(*IndexRunner)

// RunWithIndexer sets the indexer
func RunWithIndexer(indexer *Indexer) IndexRunnerOption {
	return func(r *IndexRunner) {
		r.indexer = indexer
	}
}

// RunWithRepository sets the run repository
func RunWithRepository(repo repository.IndexRunRepository) IndexRunnerOption {
	return func(r *IndexRunner) {
		r.runRepo = repo
	}
}

// NewIndexRunner creates a new index runner
func NewIndexRunner(opts ...IndexRunnerOption) *IndexRunner {
	r := &IndexRunner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.runRepo == nil {
		r.runRepo = repository.NewMemoryIndexRunRepository()
	}
	return r
}

// Start creates a run and processes it in the background.
// It returns immediately; poll Get for progress.
func (r *IndexRunner) Start(ctx context.Context, trigger string) (*models.IndexRun, error) {
	run, sources, err := r.create(ctx, trigger)
	if err != nil {
		return nil, err
	}
	go func() {
		defer r.running.Store(false)
		if err := r.process(context.Background(), run.ID, sources); err != nil {
			log.Error().Err(err).Str("run_id", run.ID.String()).Msg("index run failed")
		}
	}()
	return run, nil
}

// RunSync creates a run and processes it before returning
func (r *IndexRunner) RunSync(ctx context.Context, trigger string) (*models.IndexRun, error) {
	run, sources, err := r.create(ctx, trigger)
	if err != nil {
		return nil, err
	}
	defer r.running.Store(false)
	if err := r.process(ctx, run.ID, sources); err != nil {
		return nil, err
	}
	return r.Get(ctx, run.ID)
}

// Get retrieves the status of a run
func (r *IndexRunner) Get(ctx context.Context, id uuid.UUID) (*models.IndexRun, error) {
	run, err := r.runRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrIndexRunNotFound) {
			return nil, ErrIndexRunNotFound
		}
		return nil, err
	}
	return run, nil
}

// List returns recent runs, newest first
func (r *IndexRunner) List(ctx context.Context, limit int) ([]*models.IndexRun, error) {
	return r.runRepo.List(ctx, limit)
}

// Running reports whether a run is in progress
func (r *IndexRunner) Running() bool {
	return r.running.Load()
}

func (r *IndexRunner) create(ctx context.Context, trigger string) (*models.IndexRun, []models.LegalSource, error) {
	if r.indexer == nil {
		return nil, nil, errors.New("indexer not set")
	}
	if !r.running.CompareAndSwap(false, true) {
		return nil, nil, ErrIndexRunInProgress
	}

	sources := r.indexer.Sources()
	steps := make(models.IndexSteps, 0, len(sources))
	for _, src := range sources {
		steps = append(steps, models.IndexStep{
			Name:   src.Title,
			URL:    src.URL,
			Status: models.StepPending,
		})
	}

	run := &models.IndexRun{
		ID:      uuid.New(),
		Trigger: trigger,
		Status:  models.RunStatusPending,
		Steps:   steps,
	}
	if err := r.runRepo.Create(ctx, run); err != nil {
		r.running.Store(false)
		return nil, nil, fmt.Errorf("%w: %v", ErrRunCreationFailed, err)
	}
	return run, sources, nil
}

func (r *IndexRunner) process(ctx context.Context, id uuid.UUID, sources []models.LegalSource) error {
	if err := r.runRepo.UpdateStatus(ctx, id, models.RunStatusInProgress); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	run, err := r.runRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load index run: %w", err)
	}
	steps := run.Steps

	failed := 0
	for n, src := range sources {
		if ctx.Err() != nil {
			r.markRunFailed(id, "cancelled: "+ctx.Err().Error())
			return ctx.Err()
		}

		steps[n].Status = models.StepInProgress
		if err := r.runRepo.UpdateProgress(ctx, id, src.Title, steps); err != nil {
			log.Warn().Err(err).Msg("failed to update run progress")
		}

		report := r.indexer.IndexSource(ctx, src)
		steps[n].ChunksIndexed = report.ChunksIndexed
		steps[n].ChunksFailed = report.ChunksFailed
		switch {
		case report.Skipped:
			steps[n].Status = models.StepSkipped
			steps[n].Error = ErrEmptyScrape.Error()
			failed++
		case report.ChunksIndexed == 0 && report.ChunksFailed > 0:
			steps[n].Status = models.StepFailed
			steps[n].Error = "every chunk failed to index"
			failed++
		default:
			steps[n].Status = models.StepCompleted
		}

		if err := r.runRepo.UpdateProgress(ctx, id, src.Title, steps); err != nil {
			log.Warn().Err(err).Msg("failed to update run progress")
		}
	}

	if len(sources) > 0 && failed == len(sources) {
		r.markRunFailed(id, "no source could be indexed")
		return nil
	}
	return r.runRepo.Complete(ctx, id)
}

func (r *IndexRunner) markRunFailed(id uuid.UUID, msg string) {
	if err := r.runRepo.Fail(context.Background(), id, msg); err != nil {
		log.Error().Err(err).Str("run_id", id.String()).Msg("failed to mark index run failed")
	}
}
