package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"jurisrag/internal/model"
)

type DocumentVersionRepository struct {
	db *gorm.DB
}

func NewDocumentVersionRepository(db *gorm.DB) *DocumentVersionRepository {
	return &DocumentVersionRepository{db: db}
}

func (r *DocumentVersionRepository) Create(ctx context.Context, v *model.DocumentVersion) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return fmt.Errorf("create document version failed: %w", err)
	}
	return nil
}

func (r *DocumentVersionRepository) ListByDocumentID(ctx context.Context, documentID string) ([]model.DocumentVersion, error) {
	var list []model.DocumentVersion
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("version DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list document versions failed: %w", err)
	}
	return list, nil
}

// Get returns nil, nil when the version does not exist.
func (r *DocumentVersionRepository) Get(ctx context.Context, documentID string, version int) (*model.DocumentVersion, error) {
	var v model.DocumentVersion
	if err := r.db.WithContext(ctx).Where("document_id = ? AND version = ?", documentID, version).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document version failed: %w", err)
	}
	return &v, nil
}

func (r *DocumentVersionRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&model.DocumentVersion{}).Error; err != nil {
		return fmt.Errorf("delete document versions failed: %w", err)
	}
	return nil
}
