package repository

import (
	"context"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Insert(ctx context.Context, record *entity.AuditRecord) error {
	query := `
		INSERT INTO audit_log (
			actor, action, target_type, target_id,
			before_value, after_value, risk, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		record.Actor,
		record.Action,
		record.TargetType,
		record.TargetID,
		record.Before,
		record.After,
		string(record.Risk),
		record.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	record.ID = uint64(id)
	return nil
}
