package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
)

// TierRepository reads the membership tier catalog. This core never writes it.
type TierRepository struct {
	db DBTX
}

func NewTierRepository(db DBTX) *TierRepository {
	return &TierRepository{db: db}
}

func (r *TierRepository) FindByID(ctx context.Context, id string) (*entity.MembershipTier, error) {
	query := `
		SELECT id, name, rank_order, privileges, created_at, updated_at
		FROM membership_tiers
		WHERE id = ?
	`

	item := &entity.MembershipTier{}
	var privileges []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&item.ID,
		&item.Name,
		&item.Rank,
		&privileges,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Unknown fields are dropped and missing fields stay at their zero
	// value, so a malformed privilege blob fails closed.
	if len(privileges) > 0 {
		if err := json.Unmarshal(privileges, &item.Privileges); err != nil {
			item.Privileges = entity.TierPrivileges{}
		}
	}

	return item, nil
}

func (r *TierRepository) List(ctx context.Context) ([]*entity.MembershipTier, error) {
	query := `
		SELECT id, name, rank_order, privileges, created_at, updated_at
		FROM membership_tiers
		ORDER BY rank_order ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.MembershipTier, 0)
	for rows.Next() {
		item := &entity.MembershipTier{}
		var privileges []byte
		if err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Rank,
			&privileges,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(privileges) > 0 {
			if err := json.Unmarshal(privileges, &item.Privileges); err != nil {
				item.Privileges = entity.TierPrivileges{}
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
