package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lumeo-sites/ms-go-entitlements/app/entity"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderConflict = errors.New("order number already exists")
)

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, order *entity.PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (
			order_no, user_id, amount_minor_units, product_type, product_id,
			product_name, period, status, nonce, trade_no,
			created_at, expires_at, paid_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var period interface{}
	if order.Period != nil {
		period = string(*order.Period)
	}

	result, err := r.db.ExecContext(ctx, query,
		order.OrderNo,
		order.UserID,
		order.AmountMinorUnits,
		string(order.ProductType),
		order.ProductID,
		order.ProductName,
		period,
		string(order.Status),
		order.Nonce,
		nullableStringValue(order.TradeNo),
		order.CreatedAt,
		order.ExpiresAt,
		nullableTimeValue(order.PaidAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderConflict
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = uint64(id)
	return nil
}

func (r *OrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*entity.PaymentOrder, error) {
	query := selectOrderColumns + ` WHERE order_no = ?`

	item := &entity.PaymentOrder{}
	if err := scanOrder(r.db.QueryRowContext(ctx, query, orderNo), item); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return item, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]*entity.PaymentOrder, error) {
	query := selectOrderColumns + `
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.PaymentOrder, 0)
	for rows.Next() {
		item := &entity.PaymentOrder{}
		if err := scanOrder(rows, item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// MarkPaid transitions a pending, unexpired order to paid in a single
// conditional statement. It returns false when the predicate matched no row,
// which callers must classify by re-reading the order.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderNo, tradeNo string, paidAt time.Time) (bool, error) {
	query := `
		UPDATE payment_orders
		SET status = ?, trade_no = ?, paid_at = ?
		WHERE order_no = ? AND status = ?
	`

	return r.execTransition(ctx, query,
		string(entity.OrderStatusPaid), tradeNo, paidAt, orderNo, string(entity.OrderStatusPending))
}

func (r *OrderRepository) MarkFailed(ctx context.Context, orderNo string) (bool, error) {
	query := `
		UPDATE payment_orders
		SET status = ?
		WHERE order_no = ? AND status = ?
	`

	return r.execTransition(ctx, query,
		string(entity.OrderStatusFailed), orderNo, string(entity.OrderStatusPending))
}

func (r *OrderRepository) Cancel(ctx context.Context, orderNo string) (bool, error) {
	query := `
		UPDATE payment_orders
		SET status = ?
		WHERE order_no = ? AND status = ?
	`

	return r.execTransition(ctx, query,
		string(entity.OrderStatusCancelled), orderNo, string(entity.OrderStatusPending))
}

func (r *OrderRepository) MarkRefunded(ctx context.Context, orderNo string) (bool, error) {
	query := `
		UPDATE payment_orders
		SET status = ?
		WHERE order_no = ? AND status = ?
	`

	return r.execTransition(ctx, query,
		string(entity.OrderStatusRefunded), orderNo, string(entity.OrderStatusPaid))
}

// ExpireStale marks every pending order past its expiry as expired. Rerunning
// with the same clock reading matches no additional rows.
func (r *OrderRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE payment_orders
		SET status = ?
		WHERE status = ? AND expires_at < ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(entity.OrderStatusExpired), string(entity.OrderStatusPending), now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *OrderRepository) execTransition(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

const selectOrderColumns = `
	SELECT id, order_no, user_id, amount_minor_units, product_type, product_id,
	       product_name, period, status, nonce, trade_no,
	       created_at, expires_at, paid_at
	FROM payment_orders`

func scanOrder(scanner rowScanner, item *entity.PaymentOrder) error {
	var productType, status string
	var period sql.NullString
	var tradeNo sql.NullString
	var paidAt sql.NullTime

	err := scanner.Scan(
		&item.ID,
		&item.OrderNo,
		&item.UserID,
		&item.AmountMinorUnits,
		&productType,
		&item.ProductID,
		&item.ProductName,
		&period,
		&status,
		&item.Nonce,
		&tradeNo,
		&item.CreatedAt,
		&item.ExpiresAt,
		&paidAt,
	)
	if err != nil {
		return err
	}

	item.ProductType = entity.ProductType(productType)
	item.Status = entity.OrderStatus(status)
	if period.Valid {
		p := entity.Period(period.String)
		item.Period = &p
	} else {
		item.Period = nil
	}
	if tradeNo.Valid {
		item.TradeNo = &tradeNo.String
	} else {
		item.TradeNo = nil
	}
	if paidAt.Valid {
		item.PaidAt = &paidAt.Time
	} else {
		item.PaidAt = nil
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}
