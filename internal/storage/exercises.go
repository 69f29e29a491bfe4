package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

const exerciseColumns = `id, user_id, base_chars, difficulty, style, content,
	audio_url_1, audio_url_2, audio_url_3, audio_url_4, created_at`

func scanExercise(row interface{ Scan(dest ...any) error }) (*models.Exercise, error) {
	var e models.Exercise
	var content []byte
	if err := row.Scan(&e.ID, &e.UserID, &e.BaseChars, &e.Difficulty, &e.Style, &content,
		&e.AudioURLs[0], &e.AudioURLs[1], &e.AudioURLs[2], &e.AudioURLs[3], &e.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, &e.Content); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return &e, nil
}

// InsertExercise сохраняет упражнение и возвращает его ID.
func (s *Storage) InsertExercise(ctx context.Context, e models.Exercise) (string, error) {
	const op = "storage.InsertExercise"

	content, err := json.Marshal(e.Content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	query := `INSERT INTO exercises (user_id, base_chars, difficulty, style, content,
			      audio_url_1, audio_url_2, audio_url_3, audio_url_4)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	var id string
	err = s.q(ctx).QueryRowContext(ctx, query, e.UserID, e.BaseChars, e.Difficulty, e.Style, string(content),
		e.AudioURLs[0], e.AudioURLs[1], e.AudioURLs[2], e.AudioURLs[3]).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetExercise возвращает упражнение, принадлежащее пользователю.
func (s *Storage) GetExercise(ctx context.Context, id, userID string) (*models.Exercise, error) {
	const op = "storage.GetExercise"

	row := s.q(ctx).QueryRowContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises WHERE id = $1 AND user_id = $2`, id, userID)
	e, err := scanExercise(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	return e, nil
}

// UpdateExercise перезаписывает содержимое и аудио упражнения.
func (s *Storage) UpdateExercise(ctx context.Context, e models.Exercise) error {
	const op = "storage.UpdateExercise"

	content, err := json.Marshal(e.Content)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	query := `UPDATE exercises
			  SET content = $1, audio_url_1 = $2, audio_url_2 = $3, audio_url_3 = $4, audio_url_4 = $5
			  WHERE id = $6 AND user_id = $7`
	res, err := s.q(ctx).ExecContext(ctx, query, string(content),
		e.AudioURLs[0], e.AudioURLs[1], e.AudioURLs[2], e.AudioURLs[3], e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectRow(op, res)
}

// ListExercises возвращает страницу упражнений пользователя, новые сначала.
func (s *Storage) ListExercises(ctx context.Context, userID string, limit, offset int) ([]models.Exercise, int, error) {
	const op = "storage.ListExercises"

	var total int
	if err := s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM exercises WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := make([]models.Exercise, 0, limit)
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// DeleteExercise удаляет упражнение пользователя.
func (s *Storage) DeleteExercise(ctx context.Context, id, userID string) error {
	const op = "storage.DeleteExercise"

	res, err := s.q(ctx).ExecContext(ctx, `DELETE FROM exercises WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return expectRow(op, res)
}

// GetUnitChars возвращает иероглифы урока учебника.
func (s *Storage) GetUnitChars(ctx context.Context, unitID int) (string, error) {
	const op = "storage.GetUnitChars"

	var chars string
	err := s.q(ctx).QueryRowContext(ctx, `SELECT chars FROM textbook_units WHERE id = $1`, unitID).Scan(&chars)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, notFound(err))
	}
	return chars, nil
}
