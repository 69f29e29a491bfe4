// Package oss загружает сгенерированное аудио в S3-совместимое хранилище.
package oss

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
)

// Client — загрузчик объектов.
type Client struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

// New создаёт клиент и при необходимости создаёт бакет.
func New(ctx context.Context, cfg config.OSS) (*Client, error) {
	const op = "oss.New"

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		if err := mc.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}

	return &Client{mc: mc, bucket: cfg.Bucket, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

// AudioKey возвращает уникальный ключ объекта для аудиофайла.
func AudioKey(now time.Time) string {
	return fmt.Sprintf("audio/%d-%s.mp3", now.UnixMilli(), uuid.NewString()[:8])
}

// UploadAudio загружает mp3 и возвращает публичный URL объекта.
func (c *Client) UploadAudio(ctx context.Context, data []byte) (string, error) {
	const op = "oss.UploadAudio"

	key := AudioKey(time.Now())
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "audio/mpeg"})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return c.publicURL + "/" + key, nil
}
