package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// PointsRepository owns the balance row and the append-only transaction log.
// It takes *sql.DB rather than DBTX because every mutation spans two
// statements inside one transaction.
type PointsRepository struct {
	db *sql.DB
}

func NewPointsRepository(db *sql.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

// Apply mutates the balance by txn.Amount and appends the ledger entry with
// before/after snapshots as one unit. A debit is applied through a
// conditional update whose predicate enforces sufficiency at mutation time,
// so two concurrent debits can never both succeed against a balance that
// covers only one of them.
func (r *PointsRepository) Apply(ctx context.Context, txn *entity.PointsTransaction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if txn.Amount >= 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO points_balances (user_id, balance, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE balance = balance + ?, updated_at = ?
		`, txn.UserID, txn.Amount, txn.CreatedAt, txn.CreatedAt, txn.Amount, txn.CreatedAt)
		if err != nil {
			return err
		}
	} else {
		debit := -txn.Amount
		result, err := tx.ExecContext(ctx, `
			UPDATE points_balances
			SET balance = balance - ?, updated_at = ?
			WHERE user_id = ? AND balance >= ?
		`, debit, txn.CreatedAt, txn.UserID, debit)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrInsufficientBalance
		}
	}

	var after int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM points_balances WHERE user_id = ?`, txn.UserID,
	).Scan(&after); err != nil {
		return err
	}
	txn.BalanceAfter = after
	txn.BalanceBefore = after - txn.Amount

	result, err := tx.ExecContext(ctx, `
		INSERT INTO points_transactions (
			user_id, amount, type, source, description,
			reference_type, reference_id, balance_before, balance_after, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.UserID,
		txn.Amount,
		string(txn.Type),
		txn.Source,
		txn.Description,
		nullableStringValue(txn.ReferenceType),
		nullableStringValue(txn.ReferenceID),
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	txn.ID = uint64(id)

	return tx.Commit()
}

// HasReference reports whether any ledger entry already references the given
// record. Grant paths use it to stay idempotent across redeliveries.
func (r *PointsRepository) HasReference(ctx context.Context, referenceType, referenceID string) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM points_transactions
		WHERE reference_type = ? AND reference_id = ?
	`, referenceType, referenceID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PointsRepository) Balance(ctx context.Context, userID uint64) (int64, error) {
	var balance int64
	err := r.db.QueryRowContext(ctx,
		`SELECT balance FROM points_balances WHERE user_id = ?`, userID,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *PointsRepository) History(ctx context.Context, userID uint64, limit, offset int) ([]*entity.PointsTransaction, error) {
	query := `
		SELECT id, user_id, amount, type, source, description,
		       reference_type, reference_id, balance_before, balance_after, created_at
		FROM points_transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PointsTransaction, 0)
	for rows.Next() {
		item := &entity.PointsTransaction{}
		var txnType string
		var refType, refID sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.Amount,
			&txnType,
			&item.Source,
			&item.Description,
			&refType,
			&refID,
			&item.BalanceBefore,
			&item.BalanceAfter,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.Type = entity.TransactionType(txnType)
		if refType.Valid {
			item.ReferenceType = &refType.String
		}
		if refID.Valid {
			item.ReferenceID = &refID.String
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}
