package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// HasShareRecord сообщает, был ли пользователь уже приглашён.
func (s *Storage) HasShareRecord(ctx context.Context, inviteeID string) (bool, error) {
	const op = "storage.HasShareRecord"

	var exists bool
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM share_records WHERE invitee_id = $1)`, inviteeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CountSharesSince считает приглашения пользователя с момента since.
func (s *Storage) CountSharesSince(ctx context.Context, sharerID string, since time.Time) (int, error) {
	const op = "storage.CountSharesSince"

	var n int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM share_records WHERE sharer_id = $1 AND created_at >= $2`,
		sharerID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// InsertShareRecord сохраняет приглашение. Повторное приглашение того же
// пользователя возвращает ErrDuplicate.
func (s *Storage) InsertShareRecord(ctx context.Context, rec models.ShareRecord) error {
	const op = "storage.InsertShareRecord"

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO share_records (sharer_id, invitee_id, reward_days, created_at) VALUES ($1, $2, $3, $4)`,
		rec.SharerID, rec.InviteeID, rec.RewardDays, created)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ShareTotals возвращает общее число приглашений, число приглашений с monthStart
// и сумму дней вознаграждения.
func (s *Storage) ShareTotals(ctx context.Context, sharerID string, monthStart time.Time) (total, month, rewardDays int, err error) {
	const op = "storage.ShareTotals"

	query := `SELECT COUNT(*),
			         COUNT(*) FILTER (WHERE created_at >= $2),
			         COALESCE(SUM(reward_days), 0)
			  FROM share_records
			  WHERE sharer_id = $1`
	if err = s.q(ctx).QueryRowContext(ctx, query, sharerID, monthStart).Scan(&total, &month, &rewardDays); err != nil {
		return 0, 0, 0, fmt.Errorf("%s: %w", op, err)
	}
	return total, month, rewardDays, nil
}
