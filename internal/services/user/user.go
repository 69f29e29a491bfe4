// Package user реализует вход через WeChat и профиль пользователя.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
	"github.com/magabrotheeeer/hanzi-trainer/internal/wechat"
)

// Repository определяет методы хранилища пользователей.
type Repository interface {
	CreateUser(ctx context.Context, user models.User) (string, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetUserByOpenID(ctx context.Context, openID string) (*models.User, error)
}

// IdentityProvider обменивает код авторизации на данные пользователя WeChat.
type IdentityProvider interface {
	ExchangeCode(ctx context.Context, code string) (*wechat.Token, error)
	UserInfo(ctx context.Context, accessToken, openID string) (*wechat.UserInfo, error)
}

// Inviter применяет код приглашения.
type Inviter interface {
	RedeemInvite(ctx context.Context, inviteeID, code string) (models.InviteReward, error)
}

// TokenMaker выпускает токены сессии.
type TokenMaker interface {
	GenerateToken(userID string) (string, error)
}

// ProfileCache хранит профили пользователей.
type ProfileCache interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, bool, error)
	SetProfile(ctx context.Context, userID string, p *models.Profile) error
}

// Service реализует вход и профиль.
type Service struct {
	repo     Repository
	identity IdentityProvider
	inviter  Inviter
	tokens   TokenMaker
	cache    ProfileCache
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт Service.
func New(repo Repository, identity IdentityProvider, inviter Inviter, tokens TokenMaker, cache ProfileCache, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		identity: identity,
		inviter:  inviter,
		tokens:   tokens,
		cache:    cache,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// Login выполняет вход по коду WeChat. Новый пользователь создаётся
// автоматически, и, если передан код приглашения, приглашение применяется.
// Ошибка приглашения не прерывает вход.
func (s *Service) Login(ctx context.Context, code, phone, inviteCode string) (*models.LoginResult, error) {
	const op = "user.Login"
	log := s.log.With(sl.Op(op))

	token, err := s.identity.ExchangeCode(ctx, code)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("wechat").Inc()
		log.Error("failed to exchange code", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, apperr.Upstream("wechat", err))
	}
	info, err := s.identity.UserInfo(ctx, token.AccessToken, token.OpenID)
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("wechat").Inc()
		log.Error("failed to load user info", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, apperr.Upstream("wechat", err))
	}

	user, isNew, err := s.findOrCreate(ctx, models.User{
		OpenID:   token.OpenID,
		Phone:    phone,
		Nickname: info.Nickname,
		Avatar:   info.HeadImgURL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if isNew && inviteCode != "" {
		if _, err := s.inviter.RedeemInvite(ctx, user.ID, inviteCode); err != nil {
			log.Warn("invite not applied", slog.String("user_id", user.ID), sl.Err(err))
		} else if user, err = s.repo.GetUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	jwtToken, err := s.tokens.GenerateToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("user_id", user.ID), slog.Bool("new", isNew))
	return &models.LoginResult{
		Token:     jwtToken,
		IsNewUser: isNew,
		UserInfo: models.LoginInfo{
			Nickname: user.Nickname,
			Avatar:   user.Avatar,
			Points:   user.Points,
			IsMember: user.IsMember(s.now()),
		},
	}, nil
}

func (s *Service) findOrCreate(ctx context.Context, u models.User) (*models.User, bool, error) {
	existing, err := s.repo.GetUserByOpenID(ctx, u.OpenID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	id, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		// Параллельный вход с тем же open id уже создал пользователя.
		if errors.Is(err, storage.ErrDuplicate) {
			existing, err := s.repo.GetUserByOpenID(ctx, u.OpenID)
			if err != nil {
				return nil, false, err
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	u.ID = id
	return &u, true, nil
}

// Profile возвращает профиль пользователя, сначала из кеша.
func (s *Service) Profile(ctx context.Context, userID string) (*models.Profile, error) {
	const op = "user.Profile"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	if p, ok, err := s.cache.GetProfile(ctx, userID); err != nil {
		log.Warn("profile cache read failed", sl.Err(err))
	} else if ok {
		return p, nil
	}

	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := &models.Profile{
		Nickname:   u.Nickname,
		Avatar:     u.Avatar,
		Points:     u.Points,
		Phone:      u.Phone,
		MemberType: u.MemberType,
		ExpireTime: u.ExpireTime,
	}
	if err := s.cache.SetProfile(ctx, userID, p); err != nil {
		log.Warn("profile cache write failed", sl.Err(err))
	}
	return p, nil
}
