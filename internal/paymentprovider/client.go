// Package paymentprovider — клиент WeChat Pay API v3: создание JSAPI-платежа,
// подпись параметров для мини-программы, проверка и расшифровка уведомлений.
package paymentprovider

import (
	"bytes"
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/jsapi"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"

	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
)

// ErrInvalidNotification — уведомление не прошло проверку подписи, метки времени
// или не расшифровалось ключом APIv3.
var ErrInvalidNotification = errors.New("paymentprovider: invalid notification")

// Options — параметры клиента.
type Options struct {
	AppID    string
	MchID    string
	SerialNo string
	// PrivateKey — ключ мерчанта, которым подписываются запросы и paySign.
	PrivateKey *rsa.PrivateKey
	// PlatformKeyID и PlatformKey — идентификатор и публичный ключ WeChat Pay
	// для проверки подписи ответов и уведомлений.
	PlatformKeyID string
	PlatformKey   *rsa.PublicKey
	APIv3Key      string
	NotifyURL     string
	// BaseURL переопределяет хост API (стенд, тесты). Пусто — боевой хост.
	BaseURL string
	Timeout time.Duration
}

// Client — клиент WeChat Pay.
type Client struct {
	opts   Options
	jsapi  jsapi.JsapiApiService
	notify *notify.Handler
}

// NewClient создаёт клиент по конфигу, читая ключи из PEM-файлов.
func NewClient(ctx context.Context, cfg config.WeChatPay) (*Client, error) {
	const op = "paymentprovider.NewClient"

	privateKey, err := utils.LoadPrivateKeyWithPath(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	platformKey, err := utils.LoadPublicKeyWithPath(cfg.PlatformPublicPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c, err := New(ctx, Options{
		AppID:         cfg.AppID,
		MchID:         cfg.MchID,
		SerialNo:      cfg.SerialNo,
		PrivateKey:    privateKey,
		PlatformKeyID: cfg.PlatformPublicKeyID,
		PlatformKey:   platformKey,
		APIv3Key:      cfg.APIv3Key,
		NotifyURL:     cfg.NotifyURL,
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// New создаёт клиент с готовыми ключами.
func New(ctx context.Context, opts Options) (*Client, error) {
	const op = "paymentprovider.New"

	if opts.PrivateKey == nil || opts.PlatformKey == nil {
		return nil, fmt.Errorf("%s: merchant and platform keys are required", op)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("%s: base url: %w", op, err)
		}
		httpClient.Transport = hostRewrite{base: base, next: http.DefaultTransport}
	}

	apiClient, err := core.NewClient(ctx,
		option.WithWechatPayPublicKeyAuthCipher(opts.MchID, opts.SerialNo, opts.PrivateKey, opts.PlatformKeyID, opts.PlatformKey),
		option.WithHTTPClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	handler, err := notify.NewRSANotifyHandler(opts.APIv3Key,
		verifiers.NewSHA256WithRSAPubkeyVerifier(opts.PlatformKeyID, *opts.PlatformKey))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Client{
		opts:   opts,
		jsapi:  jsapi.JsapiApiService{Client: apiClient},
		notify: handler,
	}, nil
}

// CreateJSAPIPayment создаёт предоплату и возвращает подписанные параметры для клиента.
func (c *Client) CreateJSAPIPayment(ctx context.Context, req PrepayRequest) (*PayParams, error) {
	const op = "paymentprovider.CreateJSAPIPayment"

	resp, _, err := c.jsapi.PrepayWithRequestPayment(ctx, jsapi.PrepayRequest{
		Appid:       core.String(c.opts.AppID),
		Mchid:       core.String(c.opts.MchID),
		Description: core.String(req.Description),
		OutTradeNo:  core.String(req.OrderNo),
		NotifyUrl:   core.String(c.opts.NotifyURL),
		Amount:      &jsapi.Amount{Total: core.Int64(req.AmountFen), Currency: core.String("CNY")},
		Payer:       &jsapi.Payer{Openid: core.String(req.OpenID)},
	})
	if err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s: status %d: %s %s", op, apiErr.StatusCode, apiErr.Code, apiErr.Message)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if deref(resp.PrepayId) == "" {
		return nil, fmt.Errorf("%s: empty prepay_id", op)
	}

	return &PayParams{
		AppID:     deref(resp.Appid),
		TimeStamp: deref(resp.TimeStamp),
		NonceStr:  deref(resp.NonceStr),
		Package:   deref(resp.Package),
		SignType:  deref(resp.SignType),
		PaySign:   deref(resp.PaySign),
	}, nil
}

// ParseNotification проверяет подпись уведомления по заголовкам Wechatpay-*
// и расшифровывает данные платежа.
func (c *Client) ParseNotification(header http.Header, body []byte) (*Transaction, error) {
	const op = "paymentprovider.ParseNotification"

	req, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header = header.Clone()

	var tx payments.Transaction
	if _, err := c.notify.ParseNotifyRequest(context.Background(), req, &tx); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidNotification, err)
	}
	return fromPayments(&tx), nil
}

func fromPayments(tx *payments.Transaction) *Transaction {
	out := &Transaction{
		OutTradeNo:    deref(tx.OutTradeNo),
		TransactionID: deref(tx.TransactionId),
		TradeState:    deref(tx.TradeState),
		SuccessTime:   deref(tx.SuccessTime),
	}
	if tx.Amount != nil {
		if tx.Amount.Total != nil {
			out.Amount.Total = *tx.Amount.Total
		}
		out.Amount.Currency = deref(tx.Amount.Currency)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// hostRewrite направляет запросы SDK на BaseURL вместо api.mch.weixin.qq.com.
type hostRewrite struct {
	base *url.URL
	next http.RoundTripper
}

func (h hostRewrite) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = h.base.Scheme
	r.URL.Host = h.base.Host
	r.Host = h.base.Host
	return h.next.RoundTrip(r)
}
