// Package kouzi — клиент API генерации упражнений и озвучки.
package kouzi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/hanzi-trainer/internal/config"
	"github.com/magabrotheeeer/hanzi-trainer/internal/models"
)

const maxAudioSize = 20 << 20

// Client — клиент API контента.
type Client struct {
	baseURL    string
	apiKey     string
	voiceType  int
	httpClient *http.Client
}

// NewClient создаёт клиент по конфигу.
func NewClient(cfg config.Kouzi) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	voice := cfg.VoiceType
	if voice == 0 {
		voice = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		voiceType:  voice,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	BaseChars  string `json:"base_chars"`
	Difficulty int    `json:"difficulty"`
	Style      int    `json:"style"`
}

type audioRequest struct {
	Text      string `json:"text"`
	VoiceType int    `json:"voice_type"`
}

// GenerateExercise запрашивает четыре уровня упражнения по базовым иероглифам.
func (c *Client) GenerateExercise(ctx context.Context, baseChars string, difficulty, style int) (models.ExerciseContent, error) {
	const op = "kouzi.GenerateExercise"

	var content models.ExerciseContent
	resp, err := c.post(ctx, "/exercise/generate", generateRequest{
		BaseChars: baseChars, Difficulty: difficulty, Style: style,
	})
	if err != nil {
		return content, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return content, fmt.Errorf("%s: %w", op, err)
	}
	for i, level := range content.Levels() {
		if *level == nil {
			return content, fmt.Errorf("%s: level %d missing", op, i+1)
		}
	}
	return content, nil
}

// GenerateAudio синтезирует речь для строк уровня и возвращает аудио в mp3.
func (c *Client) GenerateAudio(ctx context.Context, lines []string) ([]byte, error) {
	const op = "kouzi.GenerateAudio"

	resp, err := c.post(ctx, "/audio/generate", audioRequest{
		Text: strings.Join(lines, "\n"), VoiceType: c.voiceType,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(audio) > maxAudioSize {
		return nil, fmt.Errorf("%s: audio exceeds %d bytes", op, maxAudioSize)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%s: empty audio", op)
	}
	return audio, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return resp, nil
}
