// Package stt converts recorded speech to text.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrTranscription wraps every failure to obtain a transcript, including an
// empty one.
var ErrTranscription = errors.New("transcription failed")

// Transcriber maps audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

const DefaultClovaEndpoint = "https://naveropenapi.apigw.ntruss.com/recog/v1/stt"

// ClovaTranscriber calls the NAVER CLOVA Speech Recognition API.
type ClovaTranscriber struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Language     string
	Client       *http.Client
}

var _ Transcriber = &ClovaTranscriber{}

func NewClovaTranscriber(clientID, clientSecret string) *ClovaTranscriber {
	return &ClovaTranscriber{
		Endpoint:     DefaultClovaEndpoint,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Language:     "Kor",
		Client:       &http.Client{Timeout: 30 * time.Second},
	}
}

type clovaResponse struct {
	Text string `json:"text"`
}

func (c *ClovaTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrTranscription)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+"?lang="+c.Language, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	req.Header.Set("X-NCP-APIGW-API-KEY-ID", c.ClientID)
	req.Header.Set("X-NCP-APIGW-API-KEY", c.ClientSecret)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscription, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: clova status %d: %s", ErrTranscription, resp.StatusCode, string(body))
	}

	var out clovaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscription, err)
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrTranscription)
	}
	return text, nil
}
