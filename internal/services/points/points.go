// Package points ведёт журнал баллов: дневной лимит, проверку членства
// для повторных начислений и историю записей.
package points

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/period"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
)

// Repository определяет методы хранилища для журнала баллов.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	AfterCommit(ctx context.Context, fn func())
	GetUser(ctx context.Context, userID string) (*models.User, error)
	LockUser(ctx context.Context, userID string) (*models.User, error)
	SumPointsSince(ctx context.Context, userID string, pointsType int, since time.Time) (int, error)
	InsertPointsRecord(ctx context.Context, rec models.PointsRecord) error
	AddPoints(ctx context.Context, userID string, delta int) error
	ListPointsRecords(ctx context.Context, userID string, limit, offset int) ([]models.PointsRecord, int, error)
}

// ProfileCache сбрасывает закешированный профиль.
type ProfileCache interface {
	InvalidateProfile(ctx context.Context, userID string) error
}

// Service реализует начисление баллов.
type Service struct {
	repo    Repository
	cache   ProfileCache
	metrics *metrics.Metrics
	log     *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

// New создаёт Service. Сутки отсчитываются в часовом поясе loc.
func New(repo Repository, cache ProfileCache, m *metrics.Metrics, loc *time.Location, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		metrics: m,
		log:     log,
		loc:     loc,
		now:     time.Now,
	}
}

// gate применяет правила начисления к уже заработанному за сутки.
func gate(user *models.User, todayEarned int, now time.Time) error {
	if todayEarned >= models.DailyPointsCap {
		return apperr.ErrQuotaExceeded
	}
	if todayEarned > 0 && !user.IsMember(now) {
		return apperr.ErrMembershipRequired
	}
	return nil
}

func (s *Service) reject(err error) error {
	reason := "membership"
	if errors.Is(err, apperr.ErrQuotaExceeded) {
		reason = "quota"
	}
	s.metrics.PointsRejected.WithLabelValues(reason).Inc()
	return err
}

func userErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.ErrUserNotFound
	}
	return err
}

// Check проверяет, разрешено ли пользователю начисление сейчас, ничего не записывая.
// Вызывается до обращения к платным внешним сервисам.
func (s *Service) Check(ctx context.Context, userID string) error {
	const op = "points.Check"

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, userErr(err))
	}
	now := s.now()
	earned, err := s.repo.SumPointsSince(ctx, userID, models.PointsTypeGeneration, period.StartOfDay(now, s.loc))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := gate(user, earned, now); err != nil {
		return fmt.Errorf("%s: %w", op, s.reject(err))
	}
	return nil
}

// CheckAndEarn проверяет лимиты и начисляет points баллов одной транзакцией.
// Строка пользователя блокируется, поэтому параллельные начисления
// одному пользователю выполняются по очереди.
func (s *Service) CheckAndEarn(ctx context.Context, userID string, points, pointsType int, remark string) error {
	const op = "points.CheckAndEarn"

	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.repo.LockUser(ctx, userID)
		if err != nil {
			return userErr(err)
		}
		now := s.now()
		earned, err := s.repo.SumPointsSince(ctx, userID, models.PointsTypeGeneration, period.StartOfDay(now, s.loc))
		if err != nil {
			return err
		}
		if err := gate(user, earned, now); err != nil {
			return s.reject(err)
		}

		if err := s.repo.InsertPointsRecord(ctx, models.PointsRecord{
			UserID:    userID,
			Points:    points,
			Type:      pointsType,
			Remark:    remark,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		if err := s.repo.AddPoints(ctx, userID, points); err != nil {
			return err
		}

		s.repo.AfterCommit(ctx, func() {
			s.metrics.PointsEarned.Add(float64(points))
			if err := s.cache.InvalidateProfile(context.WithoutCancel(ctx), userID); err != nil {
				s.log.Warn("failed to invalidate profile", sl.Op(op), slog.String("user_id", userID), sl.Err(err))
			}
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Today возвращает баллы, заработанные за текущие сутки, и остаток до лимита.
func (s *Service) Today(ctx context.Context, userID string) (models.TodayPoints, error) {
	const op = "points.Today"

	earned, err := s.repo.SumPointsSince(ctx, userID, models.PointsTypeGeneration, period.StartOfDay(s.now(), s.loc))
	if err != nil {
		return models.TodayPoints{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.TodayPoints{
		TodayPoints:  earned,
		RemainPoints: max(0, models.DailyPointsCap-earned),
	}, nil
}

// Records возвращает страницу истории баллов, новые сначала.
func (s *Service) Records(ctx context.Context, userID string, p models.Pagination) (models.Page[models.PointsRecord], error) {
	const op = "points.Records"

	list, total, err := s.repo.ListPointsRecords(ctx, userID, p.Size, p.Offset())
	if err != nil {
		return models.Page[models.PointsRecord]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Page[models.PointsRecord]{Total: total, List: list}, nil
}
