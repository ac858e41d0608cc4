package repository

import (
	"context"
	"errors"
	"time"

	"session-pacer/internal/core"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteRepository implements RepositoryPort using SQLite via GORM
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	config := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath), config)
	if err != nil {
		return nil, err
	}

	repo := &SQLiteRepository{db: db}

	if err := repo.Migrate(context.Background()); err != nil {
		return nil, err
	}

	return repo, nil
}

// Migrate runs database migrations
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&core.SessionRun{},
		&core.Interaction{},
	)
}

// CreateRun inserts a new run, defaulting its status and start time
func (r *SQLiteRepository) CreateRun(ctx context.Context, run *core.SessionRun) error {
	if run.Status == "" {
		run.Status = core.RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	return r.db.WithContext(ctx).Create(run).Error
}

// FinishRun marks a run completed, or failed when runErr is non-nil
func (r *SQLiteRepository) FinishRun(ctx context.Context, runID uint, completed int, runErr error) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":      core.RunStatusCompleted,
		"completed":   completed,
		"finished_at": &now,
	}
	if runErr != nil {
		updates["status"] = core.RunStatusFailed
		updates["error"] = runErr.Error()
	}

	result := r.db.WithContext(ctx).
		Model(&core.SessionRun{}).
		Where("id = ?", runID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// GetRun retrieves a run by ID, returning nil when it does not exist
func (r *SQLiteRepository) GetRun(ctx context.Context, runID uint) (*core.SessionRun, error) {
	var run core.SessionRun
	result := r.db.WithContext(ctx).First(&run, runID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &run, nil
}

// RecentRuns returns the newest runs first
func (r *SQLiteRepository) RecentRuns(ctx context.Context, limit int) ([]*core.SessionRun, error) {
	var runs []*core.SessionRun
	result := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs)
	if result.Error != nil {
		return nil, result.Error
	}

	return runs, nil
}

// RecordInteraction creates a new interaction record
func (r *SQLiteRepository) RecordInteraction(ctx context.Context, interaction *core.Interaction) error {
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now()
	}

	return r.db.WithContext(ctx).Create(interaction).Error
}

// CountInteractionsSince counts interactions at or after since
func (r *SQLiteRepository) CountInteractionsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).
		Model(&core.Interaction{}).
		Where("timestamp >= ?", since).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}

	return count, nil
}

// InteractionsForRun returns a run's interactions in the order they happened
func (r *SQLiteRepository) InteractionsForRun(ctx context.Context, runID uint) ([]*core.Interaction, error) {
	var interactions []*core.Interaction
	result := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("timestamp ASC, id ASC").
		Find(&interactions)
	if result.Error != nil {
		return nil, result.Error
	}

	return interactions, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
