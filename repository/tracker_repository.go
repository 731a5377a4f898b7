package repository

import (
	"context"
	"errors"
	"fmt"

	"tracksync/model"

	"gorm.io/gorm"
)

// ErrTrackerNotFound is returned when no row has the requested id.
var ErrTrackerNotFound = errors.New("tracker not found")

// TrackerRepository is the data access interface for trackers.
type TrackerRepository interface {
	List(ctx context.Context) ([]model.Tracker, error)
	GetByID(ctx context.Context, id int64) (*model.Tracker, error)
	Create(ctx context.Context, tracker *model.Tracker) error
	Update(ctx context.Context, id int64, changes model.TrackerChanges) (*model.Tracker, error)
	Delete(ctx context.Context, id int64) error
}

type gormTrackerRepository struct {
	db *gorm.DB
}

// NewGormTrackerRepository creates a GORM-backed TrackerRepository.
func NewGormTrackerRepository(db *gorm.DB) TrackerRepository {
	return &gormTrackerRepository{db: db}
}

// List returns every tracker, newest first.
func (r *gormTrackerRepository) List(ctx context.Context) ([]model.Tracker, error) {
	trackers := []model.Tracker{}
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&trackers).Error
	if err != nil {
		return nil, fmt.Errorf("list trackers: %w", err)
	}
	return trackers, nil
}

// GetByID returns ErrTrackerNotFound when the row does not exist.
func (r *gormTrackerRepository) GetByID(ctx context.Context, id int64) (*model.Tracker, error) {
	var tracker model.Tracker
	err := r.db.WithContext(ctx).First(&tracker, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrackerNotFound
		}
		return nil, fmt.Errorf("get tracker %d: %w", id, err)
	}
	return &tracker, nil
}

// Create inserts tracker and fills in its id and timestamps.
func (r *gormTrackerRepository) Create(ctx context.Context, tracker *model.Tracker) error {
	if err := r.db.WithContext(ctx).Create(tracker).Error; err != nil {
		return fmt.Errorf("create tracker: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of changes and returns the stored row.
func (r *gormTrackerRepository) Update(ctx context.Context, id int64, changes model.TrackerChanges) (*model.Tracker, error) {
	var updated *model.Tracker
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tracker model.Tracker
		if err := tx.First(&tracker, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTrackerNotFound
			}
			return err
		}

		if changes.Task != nil {
			tracker.Task = *changes.Task
		}
		if changes.StartTime != nil {
			tracker.StartTime = *changes.StartTime
		}
		if changes.EndTime != nil {
			end := *changes.EndTime
			tracker.EndTime = &end
		}

		if err := tx.Save(&tracker).Error; err != nil {
			return err
		}
		updated = &tracker
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrTrackerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update tracker %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes the row, or returns ErrTrackerNotFound.
func (r *gormTrackerRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Tracker{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete tracker %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTrackerNotFound
	}
	return nil
}
