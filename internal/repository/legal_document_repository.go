package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"jurisrag/internal/model"
)

// DocumentFilter narrows List. Zero values are ignored. UpdatedBefore keeps
// documents last written before that instant.
type DocumentFilter struct {
	DocumentType  string
	Status        model.DocumentStatus
	OwnerID       string
	IsAbolished   *bool
	UpdatedBefore time.Time
	Offset        int
	Limit         int
}

type LegalDocumentRepository struct {
	db *gorm.DB
}

func NewLegalDocumentRepository(db *gorm.DB) *LegalDocumentRepository {
	return &LegalDocumentRepository{db: db}
}

func (r *LegalDocumentRepository) Create(ctx context.Context, doc *model.LegalDocument) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create legal document failed: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when the document does not exist.
func (r *LegalDocumentRepository) GetByID(ctx context.Context, id string) (*model.LegalDocument, error) {
	var doc model.LegalDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get legal document failed: %w", err)
	}
	return &doc, nil
}

func (r *LegalDocumentRepository) Update(ctx context.Context, doc *model.LegalDocument) error {
	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("update legal document failed: %w", err)
	}
	return nil
}

func (r *LegalDocumentRepository) UpdateStatus(ctx context.Context, id string, status model.DocumentStatus, errMsg string) error {
	res := r.db.WithContext(ctx).Model(&model.LegalDocument{}).Where("id = ?", id).
		Updates(map[string]any{"status": status, "error_message": errMsg})
	if res.Error != nil {
		return fmt.Errorf("update legal document status failed: %w", res.Error)
	}
	return nil
}

func (r *LegalDocumentRepository) MarkAbolished(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Model(&model.LegalDocument{}).Where("id = ?", id).
		Update("is_abolished", true).Error; err != nil {
		return fmt.Errorf("mark legal document abolished failed: %w", err)
	}
	return nil
}

// MarkUpdated flags id as updated and records an amends edge from updatedBy.
func (r *LegalDocumentRepository) MarkUpdated(ctx context.Context, id, updatedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.LegalDocument{}).Where("id = ?", id).Update("is_updated", true).Error; err != nil {
			return fmt.Errorf("mark legal document updated failed: %w", err)
		}
		rel := model.DocumentRelation{SourceID: updatedBy, TargetID: id, RelationType: model.RelationAmends}
		if err := tx.Create(&rel).Error; err != nil {
			return fmt.Errorf("create amends relation failed: %w", err)
		}
		return nil
	})
}

func (r *LegalDocumentRepository) List(ctx context.Context, f DocumentFilter) ([]model.LegalDocument, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.LegalDocument{})
	if f.DocumentType != "" {
		q = q.Where("document_type = ?", f.DocumentType)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.OwnerID != "" {
		q = q.Where("owner_id = ?", f.OwnerID)
	}
	if f.IsAbolished != nil {
		q = q.Where("is_abolished = ?", *f.IsAbolished)
	}
	if !f.UpdatedBefore.IsZero() {
		q = q.Where("updated_at < ?", f.UpdatedBefore)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count legal documents failed: %w", err)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var list []model.LegalDocument
	if err := q.Omit("content").Order("created_at DESC").Offset(f.Offset).Limit(limit).Find(&list).Error; err != nil {
		return nil, 0, fmt.Errorf("list legal documents failed: %w", err)
	}
	return list, total, nil
}

func (r *LegalDocumentRepository) ListChildren(ctx context.Context, parentID string) ([]model.LegalDocument, error) {
	var list []model.LegalDocument
	if err := r.db.WithContext(ctx).Where("parent_document_id = ?", parentID).Order("version ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list child documents failed: %w", err)
	}
	return list, nil
}

func (r *LegalDocumentRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.LegalDocument{}).Error; err != nil {
		return fmt.Errorf("delete legal document failed: %w", err)
	}
	return nil
}
