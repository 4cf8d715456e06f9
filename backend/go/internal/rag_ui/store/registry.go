package store

import (
	"RagDesk/backend/go/internal/models"
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FileRegistry keeps one row per uploaded file name.
type FileRegistry interface {
	Record(ctx context.Context, f *models.UploadedFile) error
	SetLastTask(ctx context.Context, name, taskID string) error
	Get(ctx context.Context, name string) (*models.UploadedFile, error)
}

// GormFileRegistry is a FileRegistry on a gorm database, MySQL in production.
type GormFileRegistry struct {
	db *gorm.DB
}

// NewGormFileRegistry migrates the uploaded_files table and returns the registry.
func NewGormFileRegistry(db *gorm.DB) (*GormFileRegistry, error) {
	if err := db.AutoMigrate(&models.UploadedFile{}); err != nil {
		return nil, fmt.Errorf("migrate uploaded files: %w", err)
	}
	return &GormFileRegistry{db: db}, nil
}

// Record inserts f, or updates size, type, object key and metadata when the name exists.
func (r *GormFileRegistry) Record(ctx context.Context, f *models.UploadedFile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"size", "mime_type", "object_key", "metadata", "updated_at"}),
	}).Create(f).Error
	if err != nil {
		return fmt.Errorf("record upload %s: %w", f.Name, err)
	}
	return nil
}

// SetLastTask stores the id of the latest processing task of name.
func (r *GormFileRegistry) SetLastTask(ctx context.Context, name, taskID string) error {
	res := r.db.WithContext(ctx).Model(&models.UploadedFile{}).Where("name = ?", name).Update("last_task_id", taskID)
	if res.Error != nil {
		return fmt.Errorf("set last task of %s: %w", name, res.Error)
	}
	return nil
}

// Get returns the row of name, or nil when there is none.
func (r *GormFileRegistry) Get(ctx context.Context, name string) (*models.UploadedFile, error) {
	var f models.UploadedFile
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
