// Package wechat — клиент OAuth WeChat: обмен кода на openid и чтение профиля.
package wechat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
)

// Token — результат обмена кода авторизации.
type Token struct {
	AccessToken string `json:"access_token"`
	OpenID      string `json:"openid"`
}

// UserInfo — публичный профиль пользователя WeChat.
type UserInfo struct {
	OpenID     string `json:"openid"`
	Nickname   string `json:"nickname"`
	HeadImgURL string `json:"headimgurl"`
}

type apiError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Client — клиент OAuth API WeChat.
type Client struct {
	appID      string
	appSecret  string
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент по конфигу.
func NewClient(cfg config.WeChat) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ExchangeCode меняет код авторизации на access token и openid.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	const op = "wechat.ExchangeCode"

	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("secret", c.appSecret)
	q.Set("code", code)
	q.Set("grant_type", "authorization_code")

	var out struct {
		Token
		apiError
	}
	if err := c.get(ctx, "/sns/oauth2/access_token", q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out.ErrCode != 0 {
		return nil, fmt.Errorf("%s: errcode %d: %s", op, out.ErrCode, out.ErrMsg)
	}
	if out.OpenID == "" {
		return nil, fmt.Errorf("%s: empty openid", op)
	}
	return &out.Token, nil
}

// UserInfo читает профиль пользователя.
func (c *Client) UserInfo(ctx context.Context, accessToken, openID string) (*UserInfo, error) {
	const op = "wechat.UserInfo"

	q := url.Values{}
	q.Set("access_token", accessToken)
	q.Set("openid", openID)
	q.Set("lang", "zh_CN")

	var out struct {
		UserInfo
		apiError
	}
	if err := c.get(ctx, "/sns/userinfo", q, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out.ErrCode != 0 {
		return nil, fmt.Errorf("%s: errcode %d: %s", op, out.ErrCode, out.ErrMsg)
	}
	return &out.UserInfo, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
