// Package cache — кеш профилей пользователей в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

// ProfileTTL — время жизни закешированного профиля.
const ProfileTTL = 10 * time.Minute

// Cache оборачивает клиент Redis.
type Cache struct {
	DB *redis.Client
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{DB: db}, nil
}

// Get читает значение по ключу в result. false — ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.DB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(val, result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в JSON.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.DB.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.DB.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache.Invalidate: %w", err)
	}
	return nil
}

// ProfileKey возвращает ключ профиля пользователя.
func ProfileKey(userID string) string {
	return "user:" + userID
}

// GetProfile читает профиль пользователя.
func (c *Cache) GetProfile(ctx context.Context, userID string) (*models.Profile, bool, error) {
	var p models.Profile
	found, err := c.Get(ctx, ProfileKey(userID), &p)
	if err != nil || !found {
		return nil, false, err
	}
	return &p, true, nil
}

// SetProfile кеширует профиль на ProfileTTL.
func (c *Cache) SetProfile(ctx context.Context, userID string, p *models.Profile) error {
	return c.Set(ctx, ProfileKey(userID), p, ProfileTTL)
}

// InvalidateProfile сбрасывает профиль после изменения баллов или членства.
func (c *Cache) InvalidateProfile(ctx context.Context, userID string) error {
	return c.Invalidate(ctx, ProfileKey(userID))
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	return c.DB.Close()
}
