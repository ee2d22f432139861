package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/echovisit/echovisit-web/internal/domain"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}
