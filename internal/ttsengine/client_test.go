package ttsengine_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ars-backend/internal/ttsengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestClientSynthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/synthesize", r.URL.Path)
		require.Equal(t, "application/msgpack", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req ttsengine.SynthesizeRequest
		require.NoError(t, msgpack.Unmarshal(raw, &req))
		assert.Equal(t, "Hello, thanks for calling", req.Text)
		assert.Equal(t, "/models/actor_1/base_v1.0.pth", req.ModelPath)
		// Defaults applied by the client.
		assert.Equal(t, 22050, req.SampleRate)
		assert.Equal(t, "wav", req.Format)

		resp, err := msgpack.Marshal(map[string]interface{}{
			"audio":         []byte("RIFF-fake-wav"),
			"duration":      2.4,
			"quality_score": 0.91,
		})
		require.NoError(t, err)
		w.Write(resp)
	}))
	defer server.Close()

	client := ttsengine.NewClient(server.URL, 5*time.Second)
	result, err := client.Synthesize(context.Background(), &ttsengine.SynthesizeRequest{
		Text:      "Hello, thanks for calling",
		ModelPath: "/models/actor_1/base_v1.0.pth",
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("RIFF-fake-wav"), result.Audio)
	assert.InDelta(t, 2.4, result.Duration, 0.001)
	assert.InDelta(t, 0.91, result.QualityScore, 0.001)
}

func TestClientSynthesizeValidation(t *testing.T) {
	client := ttsengine.NewClient("http://127.0.0.1:1", time.Second)

	_, err := client.Synthesize(context.Background(), &ttsengine.SynthesizeRequest{
		ModelPath: "/models/x.pth",
	})
	assert.ErrorIs(t, err, ttsengine.ErrEmptyText)

	_, err = client.Synthesize(context.Background(), &ttsengine.SynthesizeRequest{
		Text: "hello",
	})
	assert.ErrorIs(t, err, ttsengine.ErrEmptyModelPath)
}

func TestClientSynthesizeEngineError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("model not loaded"))
	}))
	defer server.Close()

	client := ttsengine.NewClient(server.URL, 5*time.Second)
	_, err := client.Synthesize(context.Background(), &ttsengine.SynthesizeRequest{
		Text:      "hello",
		ModelPath: "/models/x.pth",
	})

	var engineErr *ttsengine.EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, http.StatusUnprocessableEntity, engineErr.StatusCode)
	assert.Equal(t, "model not loaded", engineErr.Message)
}

func TestClientSynthesizeUnreachable(t *testing.T) {
	client := ttsengine.NewClient("http://127.0.0.1:1", time.Second)

	_, err := client.Synthesize(context.Background(), &ttsengine.SynthesizeRequest{
		Text:      "hello",
		ModelPath: "/models/x.pth",
	})
	assert.ErrorIs(t, err, ttsengine.ErrEngineUnavailable)
}

func TestClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := ttsengine.NewClient(server.URL, time.Second)
	assert.NoError(t, client.Health(context.Background()))
}
