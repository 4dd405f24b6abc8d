package docpipeline

import (
	"context"

	"gorm.io/gorm"

	"pai-smart-go/internal/apperr"
	"pai-smart-go/internal/model"
)

// DocumentRepository persists DocumentMetadata. Adapted from the teacher's
// GORM repository style (internal/repository/*.go).
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.DocumentMetadata) error
	Update(ctx context.Context, doc *model.DocumentMetadata) error
	Get(ctx context.Context, id string) (*model.DocumentMetadata, error)
	List(ctx context.Context, userID uint, limit, offset int) ([]model.DocumentMetadata, error)
	Delete(ctx context.Context, id string) error
}

type gormDocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &gormDocumentRepository{db: db}
}

func (r *gormDocumentRepository) Create(ctx context.Context, doc *model.DocumentMetadata) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return apperr.Transient("failed to create document metadata", err)
	}
	return nil
}

func (r *gormDocumentRepository) Update(ctx context.Context, doc *model.DocumentMetadata) error {
	if err := r.db.WithContext(ctx).Save(doc).Error; err != nil {
		return apperr.Transient("failed to update document metadata", err)
	}
	return nil
}

func (r *gormDocumentRepository) Get(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	var doc model.DocumentMetadata
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("document not found")
		}
		return nil, apperr.Transient("failed to load document metadata", err)
	}
	return &doc, nil
}

func (r *gormDocumentRepository) List(ctx context.Context, userID uint, limit, offset int) ([]model.DocumentMetadata, error) {
	var docs []model.DocumentMetadata
	q := r.db.WithContext(ctx).Where("status != ?", model.DocStatusDeleted).Order("created_at desc")
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	if err := q.Find(&docs).Error; err != nil {
		return nil, apperr.Transient("failed to list documents", err)
	}
	return docs, nil
}

func (r *gormDocumentRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Model(&model.DocumentMetadata{}).Where("id = ?", id).Update("status", model.DocStatusDeleted).Error; err != nil {
		return apperr.Transient("failed to mark document deleted", err)
	}
	return nil
}
