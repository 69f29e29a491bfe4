package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

const orderColumns = `id, user_id, order_no, amount, member_type, days, source_type, status, transaction_id, pay_time, created_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (*models.Order, error) {
	var o models.Order
	var txID sql.NullString
	var payTime sql.NullTime
	if err := row.Scan(&o.ID, &o.UserID, &o.OrderNo, &o.Amount, &o.MemberType, &o.Days,
		&o.SourceType, &o.Status, &txID, &payTime, &o.CreatedAt); err != nil {
		return nil, err
	}
	if txID.Valid {
		o.TransactionID = &txID.String
	}
	if payTime.Valid {
		t := payTime.Time
		o.PayTime = &t
	}
	return &o, nil
}

// CreateOrder сохраняет заказ и возвращает его ID.
// Повтор номера заказа возвращает ErrDuplicate и не прерывает внешнюю транзакцию.
func (s *Storage) CreateOrder(ctx context.Context, o models.Order) (int64, error) {
	const op = "storage.CreateOrder"

	query := `INSERT INTO orders (user_id, order_no, amount, member_type, days, source_type, status, transaction_id, pay_time)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  ON CONFLICT (order_no) DO NOTHING
			  RETURNING id`
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, query,
		o.UserID, o.OrderNo, o.Amount, o.MemberType, o.Days, o.SourceType, o.Status,
		o.TransactionID, o.PayTime).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return 0, fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetOrderByNo возвращает заказ по номеру.
func (s *Storage) GetOrderByNo(ctx context.Context, orderNo string) (*models.Order, error) {
	const op = "storage.GetOrderByNo"

	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_no = $1`, orderNo)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return o, nil
}

// LockOrderByNo читает заказ с блокировкой строки. Вызывать внутри WithinTx.
func (s *Storage) LockOrderByNo(ctx context.Context, orderNo string) (*models.Order, error) {
	const op = "storage.LockOrderByNo"

	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_no = $1 FOR UPDATE`, orderNo)
	o, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return o, nil
}

// MarkOrderPaid переводит неоплаченный заказ в оплаченный.
// Возвращает false, если заказ уже не в статусе «не оплачен».
func (s *Storage) MarkOrderPaid(ctx context.Context, orderNo, transactionID string, payTime time.Time) (bool, error) {
	const op = "storage.MarkOrderPaid"

	query := `UPDATE orders SET status = $1, transaction_id = $2, pay_time = $3
			  WHERE order_no = $4 AND status = $5`
	res, err := s.q(ctx).ExecContext(ctx, query,
		models.OrderStatusPaid, transactionID, payTime, orderNo, models.OrderStatusUnpaid)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
