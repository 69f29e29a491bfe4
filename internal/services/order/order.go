// Package order создаёт заказы на членство, проводит оплату по уведомлению
// шлюза и активирует карты.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/hanzi-trainer/internal/apperr"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/orderno"
	"github.com/magabrotheeeer/hanzi-trainer/internal/lib/sl"
	"github.com/magabrotheeeer/hanzi-trainer/internal/metrics"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
	"github.com/magabrotheeeer/hanzi-trainer/internal/paymentprovider"
	"github.com/magabrotheeeer/hanzi-trainer/internal/storage"
)

const orderNoAttempts = 3

// Repository определяет методы хранилища для заказов и карт.
type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetUser(ctx context.Context, userID string) (*models.User, error)
	CreateOrder(ctx context.Context, o models.Order) (int64, error)
	GetOrderByNo(ctx context.Context, orderNo string) (*models.Order, error)
	LockOrderByNo(ctx context.Context, orderNo string) (*models.Order, error)
	MarkOrderPaid(ctx context.Context, orderNo, transactionID string, payTime time.Time) (bool, error)
	GetCardByNo(ctx context.Context, cardNo string) (*models.Card, error)
	UseCard(ctx context.Context, cardNo, userID string, at time.Time) (bool, error)
}

// Granter выдаёт членство.
type Granter interface {
	Grant(ctx context.Context, userID string, tier, days int) (time.Time, error)
}

// PaymentGateway создаёт платёж во внешнем шлюзе.
type PaymentGateway interface {
	CreateJSAPIPayment(ctx context.Context, req paymentprovider.PrepayRequest) (*paymentprovider.PayParams, error)
}

// Service реализует заказы и карты.
type Service struct {
	repo    Repository
	granter Granter
	gateway PaymentGateway
	catalog models.Catalog
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
	orderNo func(time.Time) (string, error)
}

// New создаёт Service.
func New(repo Repository, granter Granter, gateway PaymentGateway, catalog models.Catalog, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		granter: granter,
		gateway: gateway,
		catalog: catalog,
		metrics: m,
		log:     log,
		now:     time.Now,
		orderNo: orderno.Generate,
	}
}

// insertOrder сохраняет заказ с новым номером, повторяя попытку при совпадении номера.
func (s *Service) insertOrder(ctx context.Context, o models.Order) (models.Order, error) {
	var lastErr error
	for range orderNoAttempts {
		no, err := s.orderNo(s.now())
		if err != nil {
			return o, err
		}
		o.OrderNo = no
		if _, err := s.repo.CreateOrder(ctx, o); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				lastErr = err
				continue
			}
			return o, err
		}
		return o, nil
	}
	return o, lastErr
}

// CreateOrder создаёт неоплаченный заказ по каталогу и запрашивает у шлюза
// параметры оплаты. Членство не выдаётся до уведомления об оплате.
func (s *Service) CreateOrder(ctx context.Context, userID string, memberType int) (*models.CreatedOrder, error) {
	const op = "order.CreateOrder"
	log := s.log.With(sl.Op(op), slog.String("user_id", userID))

	tier, ok := s.catalog.Lookup(memberType)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidTier)
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o, err := s.insertOrder(ctx, models.Order{
		UserID:     userID,
		Amount:     tier.Amount,
		MemberType: tier.MemberType,
		Days:       tier.Days,
		SourceType: models.OrderSourcePurchase,
		Status:     models.OrderStatusUnpaid,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.OrdersCreated.Inc()

	params, err := s.gateway.CreateJSAPIPayment(ctx, paymentprovider.PrepayRequest{
		OrderNo:     o.OrderNo,
		Description: "购买" + tier.Name,
		AmountFen:   tier.AmountFen(),
		OpenID:      user.OpenID,
	})
	if err != nil {
		s.metrics.UpstreamErrors.WithLabelValues("wechatpay").Inc()
		log.Error("payment gateway failed", slog.String("order_no", o.OrderNo), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, apperr.Upstream("wechatpay", err))
	}

	return &models.CreatedOrder{
		OrderNo:    o.OrderNo,
		Amount:     o.Amount,
		MemberType: o.MemberType,
		Days:       o.Days,
		PayParams:  params,
	}, nil
}

// QueryOrder возвращает статус заказа пользователя и, если он оплачен,
// текущий срок членства.
func (s *Service) QueryOrder(ctx context.Context, userID, orderNo string) (models.OrderState, error) {
	const op = "order.QueryOrder"

	o, err := s.repo.GetOrderByNo(ctx, orderNo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.OrderState{}, fmt.Errorf("%s: %w", op, apperr.ErrOrderNotFound)
		}
		return models.OrderState{}, fmt.Errorf("%s: %w", op, err)
	}
	if o.UserID != userID {
		return models.OrderState{}, fmt.Errorf("%s: %w", op, apperr.ErrOrderNotFound)
	}

	state := models.OrderState{Status: o.Status, MemberType: o.MemberType}
	if o.Status == models.OrderStatusPaid {
		user, err := s.repo.GetUser(ctx, userID)
		if err != nil {
			return models.OrderState{}, fmt.Errorf("%s: %w", op, err)
		}
		state.ExpireTime = user.ExpireTime
	}
	return state, nil
}

// SettlePayment переводит заказ в оплаченный и выдаёт членство одной транзакцией.
// Повторное уведомление по тому же заказу возвращает ErrAlreadySettled.
func (s *Service) SettlePayment(ctx context.Context, orderNo, transactionID string) error {
	const op = "order.SettlePayment"

	err := s.repo.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.LockOrderByNo(ctx, orderNo)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return apperr.ErrOrderNotFound
			}
			return err
		}
		if o.Status != models.OrderStatusUnpaid {
			return apperr.ErrAlreadySettled
		}
		updated, err := s.repo.MarkOrderPaid(ctx, orderNo, transactionID, s.now())
		if err != nil {
			return err
		}
		if !updated {
			return apperr.ErrAlreadySettled
		}
		_, err = s.granter.Grant(ctx, o.UserID, o.MemberType, o.Days)
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.OrdersSettled.Inc()
	return nil
}

// ExchangeCard активирует карту: помечает её использованной, выдаёт членство
// и записывает оплаченный заказ с источником «карта».
func (s *Service) ExchangeCard(ctx context.Context, userID, cardNo string) (models.Exchanged, error) {
	const op = "order.ExchangeCard"

	card, err := s.repo.GetCardByNo(ctx, cardNo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Exchanged{}, fmt.Errorf("%s: %w", op, apperr.ErrCardNotFound)
		}
		return models.Exchanged{}, fmt.Errorf("%s: %w", op, err)
	}
	if card.Status != models.CardStatusUnused {
		return models.Exchanged{}, fmt.Errorf("%s: %w", op, apperr.ErrCardAlreadyUsed)
	}

	var expire time.Time
	err = s.repo.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		used, err := s.repo.UseCard(ctx, cardNo, userID, now)
		if err != nil {
			return err
		}
		if !used {
			return apperr.ErrCardAlreadyUsed
		}
		expire, err = s.granter.Grant(ctx, userID, card.MemberType, card.Days)
		if err != nil {
			return err
		}
		_, err = s.insertOrder(ctx, models.Order{
			UserID:     userID,
			Amount:     decimal.Zero,
			MemberType: card.MemberType,
			Days:       card.Days,
			SourceType: models.OrderSourceCard,
			Status:     models.OrderStatusPaid,
			PayTime:    &now,
		})
		return err
	})
	if err != nil {
		return models.Exchanged{}, fmt.Errorf("%s: %w", op, err)
	}
	s.metrics.CardsExchanged.Inc()

	return models.Exchanged{MemberType: card.MemberType, Days: card.Days, ExpireTime: expire}, nil
}

// CardInfo возвращает уровень, дни и статус карты.
func (s *Service) CardInfo(ctx context.Context, cardNo string) (models.CardInfo, error) {
	const op = "order.CardInfo"

	card, err := s.repo.GetCardByNo(ctx, cardNo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.CardInfo{}, fmt.Errorf("%s: %w", op, apperr.ErrCardNotFound)
		}
		return models.CardInfo{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.CardInfo{MemberType: card.MemberType, Days: card.Days, Status: card.Status}, nil
}
