package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"docuchat/internal/model"
)

type ResourceRepository struct {
	db *gorm.DB
}

func NewResourceRepository(db *gorm.DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// ResourceSummary is one row of the recent-resources listing: the resource
// annotated with its live chunk count.
type ResourceSummary struct {
	ID        string    `json:"resource_id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
	Chunks    int64     `json:"chunks"`
}

// CreateWithChunks inserts the resource and all its chunks in one
// transaction. Either everything commits or nothing does; an orphan resource
// with zero chunks is never left behind.
func (r *ResourceRepository) CreateWithChunks(resource *model.Resource, chunks []model.Chunk) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(resource).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		for i := range chunks {
			chunks[i].ResourceID = resource.ID
		}
		return tx.Create(&chunks).Error
	})
	if err != nil {
		return fmt.Errorf("create resource with chunks failed: %w", err)
	}
	return nil
}

func (r *ResourceRepository) Get(id string) (*model.Resource, error) {
	var resource model.Resource
	if err := r.db.Where("id = ?", id).First(&resource).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get resource failed: %w", err)
	}
	return &resource, nil
}

// ListAll returns id and filename for every resource; used to attach
// provenance to retrieval hits.
func (r *ResourceRepository) ListAll() ([]model.Resource, error) {
	var resources []model.Resource
	if err := r.db.Select("id", "filename").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("list resources failed: %w", err)
	}
	return resources, nil
}

// Delete removes the resource and cascades to its chunks. Returns false when
// the resource does not exist.
func (r *ResourceRepository) Delete(id string) (bool, error) {
	deleted := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resource_id = ?", id).Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Resource{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete resource failed: %w", err)
	}
	return deleted, nil
}

// ClearAll removes every resource and chunk, returning the number of
// resources removed.
func (r *ResourceRepository) ClearAll() (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Chunk{}).Error; err != nil {
			return err
		}
		result := tx.Where("1 = 1").Delete(&model.Resource{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("clear resources failed: %w", err)
	}
	return removed, nil
}

// ListRecent returns the newest resources first, each with its chunk count.
func (r *ResourceRepository) ListRecent(limit int) ([]ResourceSummary, error) {
	if limit <= 0 {
		limit = 12
	}
	if limit > 50 {
		limit = 50
	}
	var items []ResourceSummary
	err := r.db.Model(&model.Resource{}).
		Select("resources.id AS id, resources.filename AS filename, resources.created_at AS created_at, COUNT(chunks.id) AS chunks").
		Joins("LEFT JOIN chunks ON chunks.resource_id = resources.id").
		Group("resources.id").
		Order("resources.created_at DESC").
		Limit(limit).
		Scan(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list recent resources failed: %w", err)
	}
	return items, nil
}
