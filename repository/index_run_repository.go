package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"legalrag-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrIndexRunNotFound is returned when no run has the requested id
var ErrIndexRunNotFound = errors.New("index run not found")

// IndexRunRepository persists index runs
type IndexRunRepository interface {
	Create(ctx context.Context, run *models.IndexRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.IndexRun, error)
	List(ctx context.Context, limit int) ([]*models.IndexRun, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.IndexRunStatus) error
	UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IndexSteps) error
	Complete(ctx context.Context, id uuid.UUID) error
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) error
}

// MemoryIndexRunRepository keeps runs in process memory
type MemoryIndexRunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*models.IndexRun
}

// NewMemoryIndexRunRepository creates an empty in-memory repository
func NewMemoryIndexRunRepository() *MemoryIndexRunRepository {
	return &MemoryIndexRunRepository{runs: make(map[uuid.UUID]*models.IndexRun)}
}

func (r *MemoryIndexRunRepository) Create(ctx context.Context, run *models.IndexRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Steps == nil {
		run.Steps = make(models.IndexSteps, 0)
	}
	r.runs[run.ID] = run.Clone()
	return nil
}

func (r *MemoryIndexRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IndexRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, ErrIndexRunNotFound
	}
	return run.Clone(), nil
}

func (r *MemoryIndexRunRepository) List(ctx context.Context, limit int) ([]*models.IndexRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	runs := make([]*models.IndexRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run.Clone())
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (r *MemoryIndexRunRepository) update(id uuid.UUID, fn func(run *models.IndexRun)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return ErrIndexRunNotFound
	}
	fn(run)
	run.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryIndexRunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IndexRunStatus) error {
	return r.update(id, func(run *models.IndexRun) { run.Status = status })
}

func (r *MemoryIndexRunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IndexSteps) error {
	return r.update(id, func(run *models.IndexRun) {
		run.CurrentStep = &currentStep
		run.Steps = append(models.IndexSteps(nil), steps...)
	})
}

func (r *MemoryIndexRunRepository) Complete(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(run *models.IndexRun) {
		now := time.Now()
		run.Status = models.RunStatusCompleted
		run.CompletedAt = &now
	})
}

func (r *MemoryIndexRunRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	return r.update(id, func(run *models.IndexRun) {
		now := time.Now()
		run.Status = models.RunStatusFailed
		run.ErrorMessage = &errorMessage
		run.CompletedAt = &now
	})
}

// PostgresIndexRunRepository stores runs in the index_runs table
type PostgresIndexRunRepository struct {
	db *pgxpool.Pool
}

// NewPostgresIndexRunRepository creates a new index run repository
func NewPostgresIndexRunRepository(db *pgxpool.Pool) *PostgresIndexRunRepository {
	return &PostgresIndexRunRepository{db: db}
}

// Create creates a new index run
func (r *PostgresIndexRunRepository) Create(ctx context.Context, run *models.IndexRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	query := `
		INSERT INTO index_runs (
			id, trigger, status, current_step, steps, error_message
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	return r.db.QueryRow(
		ctx, query,
		run.ID,
		run.Trigger,
		run.Status,
		run.CurrentStep,
		run.Steps,
		run.ErrorMessage,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
}

const selectIndexRun = `
		SELECT id, trigger, status, current_step, steps, error_message,
			created_at, updated_at, completed_at
		FROM index_runs`

func scanIndexRun(row pgx.Row) (*models.IndexRun, error) {
	run := &models.IndexRun{}
	err := row.Scan(
		&run.ID,
		&run.Trigger,
		&run.Status,
		&run.CurrentStep,
		&run.Steps,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.UpdatedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	if run.Steps == nil {
		run.Steps = make(models.IndexSteps, 0)
	}
	return run, nil
}

// GetByID retrieves an index run by ID
func (r *PostgresIndexRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.IndexRun, error) {
	run, err := scanIndexRun(r.db.QueryRow(ctx, selectIndexRun+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIndexRunNotFound
	}
	return run, err
}

// List returns the most recent runs first
func (r *PostgresIndexRunRepository) List(ctx context.Context, limit int) ([]*models.IndexRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx, selectIndexRun+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.IndexRun
	for rows.Next() {
		run, err := scanIndexRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateStatus updates the status of an index run
func (r *PostgresIndexRunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.IndexRunStatus) error {
	query := `
		UPDATE index_runs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// UpdateProgress updates the current step and step list of an index run
func (r *PostgresIndexRunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, currentStep string, steps models.IndexSteps) error {
	query := `
		UPDATE index_runs SET
			current_step = $2,
			steps = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, currentStep, steps)
	return err
}

// Complete marks an index run as completed
func (r *PostgresIndexRunRepository) Complete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE index_runs SET
			status = $2,
			completed_at = $3,
			updated_at = $3
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.RunStatusCompleted, now)
	return err
}

// Fail marks an index run as failed
func (r *PostgresIndexRunRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	now := time.Now()
	query := `
		UPDATE index_runs SET
			status = $2,
			error_message = $3,
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.RunStatusFailed, errorMessage, now)
	return err
}
