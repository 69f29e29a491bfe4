// Package membership продлевает членство пользователя и ведёт историю выдач.
package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/period"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
)

// RoutingKeyGranted — ключ маршрутизации события выдачи членства.
const RoutingKeyGranted = "membership.granted"

// Repository определяет методы хранилища, нужные для выдачи членства.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	AfterCommit(ctx context.Context, fn func())
	LockUser(ctx context.Context, userID string) (*models.User, error)
	UpdateMembership(ctx context.Context, userID string, memberType int, expire time.Time) error
	InsertMembershipPeriod(ctx context.Context, userID string, memberType int, expire time.Time) error
}

// ProfileCache сбрасывает закешированный профиль.
type ProfileCache interface {
	InvalidateProfile(ctx context.Context, userID string) error
}

// Publisher публикует события журнала.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Service выдаёт членство.
type Service struct {
	repo      Repository
	cache     ProfileCache
	publisher Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	now       func() time.Time
}

// New создаёт Service. publisher может быть nil, тогда события не публикуются.
func New(repo Repository, cache ProfileCache, publisher Publisher, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Grant продлевает членство на days дней от max(now, текущий срок) и
// устанавливает уровень tier. Выполняется в транзакции вызывающего, если она есть.
// Уровень и дни не проверяются, это обязанность вызывающего.
func (s *Service) Grant(ctx context.Context, userID string, tier, days int) (time.Time, error) {
	const op = "membership.Grant"

	var expire time.Time
	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		user, err := s.repo.LockUser(ctx, userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.ErrUserNotFound
			}
			return err
		}

		expire = period.Extend(s.now(), user.ExpireTime, days)

		if err := s.repo.UpdateMembership(ctx, userID, tier, expire); err != nil {
			return err
		}
		if err := s.repo.InsertMembershipPeriod(ctx, userID, tier, expire); err != nil {
			return err
		}

		s.repo.AfterCommit(ctx, func() {
			s.afterGrant(context.WithoutCancel(ctx), models.GrantEvent{
				UserID: userID, MemberType: tier, Days: days, ExpireTime: expire,
			})
		})
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return expire, nil
}

func (s *Service) afterGrant(ctx context.Context, ev models.GrantEvent) {
	log := s.log.With(sl.Op("membership.afterGrant"), slog.String("user_id", ev.UserID))

	s.metrics.MembershipGrants.WithLabelValues(strconv.Itoa(ev.MemberType)).Inc()

	if err := s.cache.InvalidateProfile(ctx, ev.UserID); err != nil {
		log.Warn("failed to invalidate profile", sl.Err(err))
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, RoutingKeyGranted, ev); err != nil {
		log.Warn("failed to publish grant event", sl.Err(err))
	}
}
