package middleware_test

import (
	"testing"
	"time"

	"ars-backend/internal/http/middleware"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitKeySameWindow(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 5, 0, 0, time.UTC)

	a := middleware.RateLimitKey("tts", "user:42", base)
	b := middleware.RateLimitKey("tts", "user:42", base.Add(50*time.Minute))

	// Both timestamps fall inside the same hour window.
	assert.Equal(t, a, b)
}

func TestRateLimitKeyWindowRollover(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 59, 0, 0, time.UTC)

	a := middleware.RateLimitKey("tts", "user:42", base)
	b := middleware.RateLimitKey("tts", "user:42", base.Add(2*time.Minute))

	assert.NotEqual(t, a, b)
}

func TestRateLimitKeySeparatesScopesAndSubjects(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	assert.NotEqual(t,
		middleware.RateLimitKey("tts", "user:1", now),
		middleware.RateLimitKey("upload", "user:1", now),
	)
	assert.NotEqual(t,
		middleware.RateLimitKey("tts", "user:1", now),
		middleware.RateLimitKey("tts", "user:2", now),
	)
	assert.Equal(t,
		"ratelimit:tts:user:1:"+"1773482400",
		middleware.RateLimitKey("tts", "user:1", now),
	)
}
