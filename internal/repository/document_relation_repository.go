package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"jurisrag/internal/model"
)

type DocumentRelationRepository struct {
	db *gorm.DB
}

func NewDocumentRelationRepository(db *gorm.DB) *DocumentRelationRepository {
	return &DocumentRelationRepository{db: db}
}

func (r *DocumentRelationRepository) Create(ctx context.Context, rel *model.DocumentRelation) error {
	if err := r.db.WithContext(ctx).Create(rel).Error; err != nil {
		return fmt.Errorf("create document relation failed: %w", err)
	}
	return nil
}

// ListBySource returns outgoing edges of sourceID, optionally of one type.
func (r *DocumentRelationRepository) ListBySource(ctx context.Context, sourceID string, typ model.RelationType) ([]model.DocumentRelation, error) {
	q := r.db.WithContext(ctx).Where("source_id = ?", sourceID)
	if typ != "" {
		q = q.Where("relation_type = ?", typ)
	}
	var list []model.DocumentRelation
	if err := q.Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list document relations failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRelationRepository) ListByTarget(ctx context.Context, targetID string) ([]model.DocumentRelation, error) {
	var list []model.DocumentRelation
	if err := r.db.WithContext(ctx).Where("target_id = ?", targetID).Order("id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list incoming document relations failed: %w", err)
	}
	return list, nil
}
