package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

const userColumns = `id, openid, phone, nickname, avatar, points, member_type, expire_time, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	var expire sql.NullTime
	if err := row.Scan(&u.ID, &u.OpenID, &u.Phone, &u.Nickname, &u.Avatar, &u.Points,
		&u.MemberType, &expire, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if expire.Valid {
		t := expire.Time
		u.ExpireTime = &t
	}
	return &u, nil
}

// CreateUser создаёт пользователя и возвращает его идентификатор.
// Повтор openid возвращает ErrDuplicate.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.CreateUser"

	query := `INSERT INTO users (openid, phone, nickname, avatar)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id`
	var id string
	err := s.q(ctx).QueryRowContext(ctx, query, user.OpenID, user.Phone, user.Nickname, user.Avatar).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s: %w", op, ErrDuplicate)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Storage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.GetUser"

	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return u, nil
}

// GetUserByOpenID возвращает пользователя по openid WeChat.
func (s *Storage) GetUserByOpenID(ctx context.Context, openID string) (*models.User, error) {
	const op = "storage.GetUserByOpenID"

	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE openid = $1`, openID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return u, nil
}

// LockUser читает пользователя с блокировкой строки до конца транзакции.
// Вызывать только внутри WithinTx.
func (s *Storage) LockUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.LockUser"

	row := s.q(ctx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return u, nil
}

// UpdateMembership записывает уровень и срок членства пользователя.
func (s *Storage) UpdateMembership(ctx context.Context, userID string, memberType int, expire time.Time) error {
	const op = "storage.UpdateMembership"

	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE users SET member_type = $1, expire_time = $2, updated_at = NOW() WHERE id = $3`,
		memberType, expire, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectRow(op, res)
}

// AddPoints увеличивает баланс баллов пользователя на delta.
func (s *Storage) AddPoints(ctx context.Context, userID string, delta int) error {
	const op = "storage.AddPoints"

	res, err := s.q(ctx).ExecContext(ctx,
		`UPDATE users SET points = points + $1, updated_at = NOW() WHERE id = $2`, delta, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectRow(op, res)
}

func expectRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
