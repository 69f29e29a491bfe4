// Package referral реализует приглашения: код приглашения, вознаграждение
// обеих сторон и статистику.
package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/period"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
)

// Repository определяет методы хранилища для приглашений.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	LockUser(ctx context.Context, userID string) (*models.User, error)
	HasShareRecord(ctx context.Context, inviteeID string) (bool, error)
	CountSharesSince(ctx context.Context, sharerID string, since time.Time) (int, error)
	InsertShareRecord(ctx context.Context, rec models.ShareRecord) error
	ShareTotals(ctx context.Context, sharerID string, monthStart time.Time) (total, month, rewardDays int, err error)
}

// Granter выдаёт членство.
type Granter interface {
	Grant(ctx context.Context, userID string, tier, days int) (time.Time, error)
}

// Service реализует реферальную программу.
type Service struct {
	repo    Repository
	granter Granter
	metrics *metrics.Metrics
	log     *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

// New создаёт Service. Месяц отсчитывается в часовом поясе loc.
func New(repo Repository, granter Granter, m *metrics.Metrics, loc *time.Location, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		granter: granter,
		metrics: m,
		log:     log,
		loc:     loc,
		now:     time.Now,
	}
}

// InviteCode возвращает код приглашения пользователя.
func (s *Service) InviteCode(userID string) string {
	return userID
}

// RedeemInvite применяет код приглашения code для пользователя inviteeID.
// Обе стороны получают по ReferralRewardDays дней членства первого уровня.
func (s *Service) RedeemInvite(ctx context.Context, inviteeID, code string) (models.InviteReward, error) {
	const op = "referral.RedeemInvite"

	reward, sharerID, err := s.redeem(ctx, inviteeID, code)
	if err != nil {
		s.metrics.Referrals.WithLabelValues(result(err)).Inc()
		return models.InviteReward{}, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.Referrals.WithLabelValues("accepted").Inc()
	s.log.Info("invite redeemed", sl.Op(op), slog.String("sharer_id", sharerID), slog.String("invitee_id", inviteeID))
	return reward, nil
}

// canonicalCode приводит код к каноническому виду UUID (нижний регистр, с дефисами):
// Postgres принимает любую запись UUID, сравнивать можно только каноническую.
func canonicalCode(code string) (string, bool) {
	parsed, err := uuid.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", false
	}
	return parsed.String(), true
}

func (s *Service) redeem(ctx context.Context, inviteeID, rawCode string) (models.InviteReward, string, error) {
	code, ok := canonicalCode(rawCode)
	if !ok || strings.EqualFold(code, inviteeID) {
		return models.InviteReward{}, "", apperr.ErrInvalidCode
	}
	sharer, err := s.repo.GetUser(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.InviteReward{}, "", apperr.ErrInvalidCode
		}
		return models.InviteReward{}, "", err
	}
	if strings.EqualFold(sharer.ID, inviteeID) {
		return models.InviteReward{}, "", apperr.ErrInvalidCode
	}
	code = sharer.ID

	invited, err := s.repo.HasShareRecord(ctx, inviteeID)
	if err != nil {
		return models.InviteReward{}, "", err
	}
	if invited {
		return models.InviteReward{}, "", apperr.ErrAlreadyInvited
	}

	now := s.now()
	monthCount, err := s.repo.CountSharesSince(ctx, code, period.StartOfMonth(now, s.loc))
	if err != nil {
		return models.InviteReward{}, "", err
	}
	if monthCount >= models.MonthlyReferralQuota {
		return models.InviteReward{}, "", apperr.ErrSharerQuotaExceeded
	}

	var expire time.Time
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		first, second := code, inviteeID
		if second < first {
			first, second = second, first
		}
		for _, id := range []string{first, second} {
			if _, err := s.repo.LockUser(ctx, id); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					if id == code {
						return apperr.ErrInvalidCode
					}
					return apperr.ErrUserNotFound
				}
				return err
			}
		}

		// Под блокировкой приглашающего счётчик месяца не меняется до коммита.
		monthCount, err := s.repo.CountSharesSince(ctx, code, period.StartOfMonth(now, s.loc))
		if err != nil {
			return err
		}
		if monthCount >= models.MonthlyReferralQuota {
			return apperr.ErrSharerQuotaExceeded
		}

		err = s.repo.InsertShareRecord(ctx, models.ShareRecord{
			SharerID:   code,
			InviteeID:  inviteeID,
			RewardDays: models.ReferralRewardDays,
			CreatedAt:  now,
		})
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return apperr.ErrAlreadyInvited
			}
			return err
		}

		if _, err := s.granter.Grant(ctx, code, models.ReferralRewardTier, models.ReferralRewardDays); err != nil {
			return err
		}
		expire, err = s.granter.Grant(ctx, inviteeID, models.ReferralRewardTier, models.ReferralRewardDays)
		return err
	})
	if err != nil {
		return models.InviteReward{}, "", err
	}
	return models.InviteReward{RewardDays: models.ReferralRewardDays, ExpireTime: expire}, code, nil
}

func result(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, apperr.ErrAlreadyInvited):
		return "already_invited"
	case errors.Is(err, apperr.ErrSharerQuotaExceeded):
		return "quota_exceeded"
	default:
		return "error"
	}
}

// Stats возвращает статистику приглашений пользователя.
func (s *Service) Stats(ctx context.Context, userID string) (models.ShareStats, error) {
	const op = "referral.Stats"

	total, month, days, err := s.repo.ShareTotals(ctx, userID, period.StartOfMonth(s.now(), s.loc))
	if err != nil {
		return models.ShareStats{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.ShareStats{
		TotalInvites:     total,
		MonthInvites:     month,
		TotalRewardDays:  days,
		MonthRemainTimes: max(0, models.MonthlyReferralQuota-month),
	}, nil
}
