package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// SumPointsSince суммирует положительные начисления указанного типа с момента since.
func (s *Storage) SumPointsSince(ctx context.Context, userID string, pointsType int, since time.Time) (int, error) {
	const op = "storage.SumPointsSince"

	query := `SELECT COALESCE(SUM(points), 0)
			  FROM points_records
			  WHERE user_id = $1 AND type = $2 AND points > 0 AND created_at >= $3`
	var sum int
	if err := s.q(ctx).QueryRowContext(ctx, query, userID, pointsType, since).Scan(&sum); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return sum, nil
}

// InsertPointsRecord добавляет запись в журнал баллов.
func (s *Storage) InsertPointsRecord(ctx context.Context, rec models.PointsRecord) error {
	const op = "storage.InsertPointsRecord"

	query := `INSERT INTO points_records (user_id, points, type, remark, created_at)
			  VALUES ($1, $2, $3, $4, $5)`
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := s.q(ctx).ExecContext(ctx, query, rec.UserID, rec.Points, rec.Type, rec.Remark, created); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPointsRecords возвращает страницу записей баллов, новые сначала, и общее их число.
func (s *Storage) ListPointsRecords(ctx context.Context, userID string, limit, offset int) ([]models.PointsRecord, int, error) {
	const op = "storage.ListPointsRecords"

	var total int
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points_records WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, user_id, points, type, remark, created_at
			  FROM points_records
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.q(ctx).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.PointsRecord, 0, limit)
	for rows.Next() {
		var r models.PointsRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Points, &r.Type, &r.Remark, &r.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}
