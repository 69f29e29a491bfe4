package storage

import (
	"context"
	"fmt"
	"time"
)

// InsertMembershipPeriod добавляет запись в историю выдачи членства.
func (s *Storage) InsertMembershipPeriod(ctx context.Context, userID string, memberType int, expire time.Time) error {
	const op = "storage.InsertMembershipPeriod"

	query := `INSERT INTO membership_periods (user_id, member_type, expire_time) VALUES ($1, $2, $3)`
	if _, err := s.q(ctx).ExecContext(ctx, query, userID, memberType, expire); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
