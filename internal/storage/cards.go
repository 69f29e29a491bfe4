package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// GetCardByNo возвращает карту активации по номеру.
func (s *Storage) GetCardByNo(ctx context.Context, cardNo string) (*models.Card, error) {
	const op = "storage.GetCardByNo"

	query := `SELECT id, card_no, member_type, days, status, used_user_id, used_time, created_at
			  FROM cards WHERE card_no = $1`
	var c models.Card
	var usedBy sql.NullString
	var usedAt sql.NullTime
	err := s.q(ctx).QueryRowContext(ctx, query, cardNo).Scan(&c.ID, &c.CardNo, &c.MemberType, &c.Days,
		&c.Status, &usedBy, &usedAt, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	if usedBy.Valid {
		c.UsedUserID = &usedBy.String
	}
	if usedAt.Valid {
		t := usedAt.Time
		c.UsedTime = &t
	}
	return &c, nil
}

// UseCard помечает карту использованной, только если она ещё не использована.
// Возвращает false, если карту уже активировал кто-то другой.
func (s *Storage) UseCard(ctx context.Context, cardNo, userID string, at time.Time) (bool, error) {
	const op = "storage.UseCard"

	query := `UPDATE cards SET status = $1, used_user_id = $2, used_time = $3
			  WHERE card_no = $4 AND status = $5`
	res, err := s.q(ctx).ExecContext(ctx, query,
		models.CardStatusUsed, userID, at, cardNo, models.CardStatusUnused)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
