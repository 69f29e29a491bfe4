// Package exercise генерирует упражнения через внешний сервис контента,
// озвучивает их и ведёт историю пользователя.
package exercise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
)

const (
	defaultDifficulty = 1
	defaultStyle      = 1
)

// Repository определяет методы хранилища упражнений.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUnitChars(ctx context.Context, unitID int) (string, error)
	InsertExercise(ctx context.Context, e models.Exercise) (string, error)
	GetExercise(ctx context.Context, id, userID string) (*models.Exercise, error)
	UpdateExercise(ctx context.Context, e models.Exercise) error
	ListExercises(ctx context.Context, userID string, limit, offset int) ([]models.Exercise, int, error)
	DeleteExercise(ctx context.Context, id, userID string) error
}

// PointsLedger проверяет лимит и начисляет баллы за генерацию.
type PointsLedger interface {
	Check(ctx context.Context, userID string) error
	CheckAndEarn(ctx context.Context, userID string, points, pointsType int, remark string) error
}

// ContentGenerator — внешний сервис генерации текста и речи.
type ContentGenerator interface {
	GenerateExercise(ctx context.Context, baseChars string, difficulty, style int) (models.ExerciseContent, error)
	GenerateAudio(ctx context.Context, lines []string) ([]byte, error)
}

// AudioStore сохраняет аудио и возвращает публичную ссылку.
type AudioStore interface {
	UploadAudio(ctx context.Context, data []byte) (string, error)
}

// GenerateRequest — параметры генерации.
type GenerateRequest struct {
	Type       int
	Chars      string
	UnitID     int
	Difficulty int
	Style      int
}

// Service реализует генерацию и историю упражнений.
type Service struct {
	repo    Repository
	points  PointsLedger
	content ContentGenerator
	audio   AudioStore
	metrics *metrics.Metrics
	log     *slog.Logger
	shuffle func(n int, swap func(i, j int))
}

// New создаёт Service.
func New(repo Repository, points PointsLedger, content ContentGenerator, audio AudioStore, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		points:  points,
		content: content,
		audio:   audio,
		metrics: m,
		log:     log,
		shuffle: rand.Shuffle,
	}
}

func (s *Service) baseChars(ctx context.Context, req GenerateRequest) (string, error) {
	switch req.Type {
	case models.GenerateByChars:
		chars := strings.TrimSpace(req.Chars)
		if chars == "" {
			return "", apperr.ErrEmptyChars
		}
		return chars, nil
	case models.GenerateByUnit:
		chars, err := s.repo.GetUnitChars(ctx, req.UnitID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", apperr.ErrUnitNotFound
			}
			return "", err
		}
		if strings.TrimSpace(chars) == "" {
			return "", apperr.ErrEmptyChars
		}
		return chars, nil
	default:
		return "", apperr.ErrInvalidGenerationType
	}
}

// Generate создаёт упражнение. Лимит баллов проверяется до обращения
// к внешним сервисам, а начисление и сохранение выполняются одной транзакцией.
func (s *Service) Generate(ctx context.Context, userID string, req GenerateRequest) (models.ExerciseView, error) {
	const op = "exercise.Generate"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	chars, err := s.baseChars(ctx, req)
	if err != nil {
		return models.ExerciseView{}, fmt.Errorf("%s: %w", op, err)
	}
	if req.Difficulty == 0 {
		req.Difficulty = defaultDifficulty
	}
	if req.Style == 0 {
		req.Style = defaultStyle
	}

	if err := s.points.Check(ctx, userID); err != nil {
		return models.ExerciseView{}, fmt.Errorf("%s: %w", op, err)
	}

	content, err := s.content.GenerateExercise(ctx, chars, req.Difficulty, req.Style)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("kouzi").Inc()
		log.Error("content generation failed", sl.Err(err))
		return models.ExerciseView{}, fmt.Errorf("%s: %w", op, apperr.Upstream("kouzi", err))
	}

	urls, err := s.voice(ctx, &content)
	if err != nil {
		log.Error("audio generation failed", sl.Err(err))
		return models.ExerciseView{}, fmt.Errorf("%s: %w", op, err)
	}

	e := models.Exercise{
		UserID:     userID,
		BaseChars:  chars,
		Difficulty: req.Difficulty,
		Style:      req.Style,
		Content:    content,
		AudioURLs:  urls,
	}
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.points.CheckAndEarn(ctx, userID, models.GenerationReward, models.PointsTypeGeneration, models.GenerationRemark); err != nil {
			return err
		}
		id, err := s.repo.InsertExercise(ctx, e)
		if err != nil {
			return err
		}
		e.ID = id
		return nil
	})
	if err != nil {
		return models.ExerciseView{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("exercise generated", slog.String("exercise_id", e.ID))
	return e.View(), nil
}

// voice синтезирует и загружает аудио четырёх уровней параллельно.
func (s *Service) voice(ctx context.Context, content *models.ExerciseContent) ([4]string, error) {
	var urls [4]string
	g, gctx := errgroup.WithContext(ctx)
	for i, level := range content.Levels() {
		lines := *level
		g.Go(func() error {
			data, err := s.content.GenerateAudio(gctx, lines)
			if err != nil {
				s.metrics.UpstreamErrors.WithLabelValues("kouzi").Inc()
				return apperr.Upstream("kouzi", fmt.Errorf("level %d: %w", i+1, err))
			}
			url, err := s.audio.UploadAudio(gctx, data)
			if err != nil {
				s.metrics.UpstreamErrors.WithLabelValues("oss").Inc()
				return apperr.Upstream("oss", fmt.Errorf("level %d: %w", i+1, err))
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return urls, err
	}
	return urls, nil
}

func (s *Service) ownedExercise(ctx context.Context, id, userID string) (*models.Exercise, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.ErrExerciseNotFound
	}
	e, err := s.repo.GetExercise(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.ErrExerciseNotFound
		}
		return nil, err
	}
	return e, nil
}

// Shuffle перемешивает строки каждого уровня, заново озвучивает их
// и сохраняет упражнение. Баллы не начисляются.
func (s *Service) Shuffle(ctx context.Context, userID, exerciseID string) (models.ExerciseView, error) {
	const op = "exercise.Shuffle"

	e, err := s.ownedExercise(ctx, exerciseID, userID)
	if err != nil {
		return models.ExerciseView{}, fmt.Errorf("%s: %w", op, err)
	}

	for _, level := range e.Content.Levels() {
		lines := *level
		s.shuffle(len(lines), func(i, j int) { lines[i], lines[j] = lines[j], lines[i] })
	}

	urls, err := s.voice(ctx, &e.Content)
	if err != nil {
		s.log.Error("audio generation failed", sl.Op(op), slog.String("exercise_id", exerciseID), sl.Err(err))
		return models.ExerciseView{}, fmt.Errorf("%s: %w", op, err)
	}
	e.AudioURLs = urls

	if err := s.repo.UpdateExercise(ctx, *e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.ExerciseView{}, fmt.Errorf("%s: %w", op, apperr.ErrExerciseNotFound)
		}
		return models.ExerciseView{}, fmt.Errorf("%s: %w", op, err)
	}

	v := e.View()
	v.ID, v.BaseChars, v.CreatedAt = "", "", nil
	return v, nil
}

// History возвращает страницу упражнений пользователя.
func (s *Service) History(ctx context.Context, userID string, p models.Pagination) (models.Page[models.ExerciseView], error) {
	const op = "exercise.History"

	list, total, err := s.repo.ListExercises(ctx, userID, p.Size, p.Offset())
	if err != nil {
		return models.Page[models.ExerciseView]{}, fmt.Errorf("%s: %w", op, err)
	}
	views := make([]models.ExerciseView, 0, len(list))
	for i := range list {
		views = append(views, list[i].View())
	}
	return models.Page[models.ExerciseView]{Total: total, List: views}, nil
}

// Delete удаляет упражнение пользователя.
func (s *Service) Delete(ctx context.Context, userID, exerciseID string) error {
	const op = "exercise.Delete"

	if _, err := uuid.Parse(exerciseID); err != nil {
		return fmt.Errorf("%s: %w", op, apperr.ErrExerciseNotFound)
	}
	if err := s.repo.DeleteExercise(ctx, exerciseID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, apperr.ErrExerciseNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
