package oss

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
)

func TestAudioKey(t *testing.T) {
	now := time.UnixMilli(1735689600123)
	key := AudioKey(now)
	assert.Regexp(t, regexp.MustCompile(`^audio/1735689600123-[0-9a-f-]{8}\.mp3$`), key)
	assert.NotEqual(t, key, AudioKey(now))
}

func setupMinio(ctx context.Context, t *testing.T) string {
	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "minioadmin",
			"MINIO_ROOT_PASSWORD": "minioadmin",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").WithStartupTimeout(2 * time.Minute),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestClient_UploadAudio(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping minio integration test")
	}
	ctx := context.Background()
	endpoint := setupMinio(ctx, t)

	c, err := New(ctx, config.OSS{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "hanzi-audio",
	})
	require.NoError(t, err)

	url, err := c.UploadAudio(ctx, []byte("ID3-fake-mp3"))
	require.NoError(t, err)
	prefix := "http://" + endpoint + "/hanzi-audio/audio/"
	require.True(t, strings.HasPrefix(url, prefix), url)

	obj, err := c.mc.GetObject(ctx, "hanzi-audio", strings.TrimPrefix(url, "http://"+endpoint+"/hanzi-audio/"), minio.GetObjectOptions{})
	require.NoError(t, err)
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "ID3-fake-mp3", string(data))

	info, err := obj.Stat()
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", info.ContentType)

	// Повторный New не падает на уже существующем бакете.
	_, err = New(ctx, config.OSS{Endpoint: endpoint, AccessKey: "minioadmin", SecretKey: "minioadmin", Bucket: "hanzi-audio"})
	require.NoError(t, err)
}
