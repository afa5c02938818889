// Package ttsengine talks to the external voice-cloning daemon and runs the
// generation worker pool that feeds it.
package ttsengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrEngineUnavailable = errors.New("tts engine unavailable")
	ErrEngineTimeout     = errors.New("tts engine timeout")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrEmptyModelPath    = errors.New("model path cannot be empty")
)

// EngineError is a non-2xx reply from the daemon.
type EngineError struct {
	StatusCode int
	Message    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("tts engine error (status %d): %s", e.StatusCode, e.Message)
}

// SynthesizeRequest is the msgpack body sent to the daemon's /v1/synthesize
// endpoint.
type SynthesizeRequest struct {
	Text       string                 `msgpack:"text"`
	ModelPath  string                 `msgpack:"model_path"`
	SampleRate int                    `msgpack:"sample_rate"`
	Format     string                 `msgpack:"format"`
	Params     map[string]interface{} `msgpack:"params,omitempty"`
}

// SynthesizeResult carries the generated audio and the daemon's quality
// self-assessment.
type SynthesizeResult struct {
	Audio        []byte
	Duration     float64
	QualityScore float64
}

type synthesizeResponse struct {
	Audio        []byte  `msgpack:"audio"`
	Duration     float64 `msgpack:"duration"`
	QualityScore float64 `msgpack:"quality_score"`
}

// Client is an HTTP client for the voice-clone daemon. Bodies are msgpack in
// both directions.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		endpoint: endpoint,
	}
}

// Health checks whether the daemon is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts engine unhealthy: status %d", resp.StatusCode)
	}

	return nil
}

// Synthesize asks the daemon to render text with the given cloned voice
// model and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResult, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}
	if req.ModelPath == "" {
		return nil, ErrEmptyModelPath
	}
	if req.SampleRate <= 0 {
		req.SampleRate = 22050
	}
	if req.Format == "" {
		req.Format = "wav"
	}

	body, err := msgpack.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/msgpack")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrEngineTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, &EngineError{StatusCode: resp.StatusCode, Message: string(msg)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var decoded synthesizeResponse
	if err := msgpack.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &SynthesizeResult{
		Audio:        decoded.Audio,
		Duration:     decoded.Duration,
		QualityScore: decoded.QualityScore,
	}, nil
}
