package ttsengine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ars-backend/internal/ttsengine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockSynthesize = errors.New("mock synthesize error")

type mockStore struct {
	mu        sync.Mutex
	jobs      map[int64]*ttsengine.Job
	completed map[int64]string
	failed    map[int64]string
}

func newMockStore(jobs ...*ttsengine.Job) *mockStore {
	s := &mockStore{
		jobs:      map[int64]*ttsengine.Job{},
		completed: map[int64]string{},
		failed:    map[int64]string{},
	}
	for _, j := range jobs {
		s.jobs[j.GenerationID] = j
	}
	return s
}

func (s *mockStore) Job(id int64) (*ttsengine.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ttsengine.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *mockStore) setStatus(id int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id].Status = status
}

// The Mark* methods mirror the guarded UPDATEs of the SQL store: a transition
// from the wrong previous status reports false.
func (s *mockStore) MarkProcessing(id int64, startedAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs[id].Status != "pending" {
		return false, nil
	}
	s.jobs[id].Status = "processing"
	return true, nil
}

func (s *mockStore) MarkCompleted(id int64, audioPath string, fileSize int64, duration, quality float64, completedAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs[id].Status != "processing" {
		return false, nil
	}
	s.jobs[id].Status = "completed"
	s.completed[id] = audioPath
	return true, nil
}

func (s *mockStore) MarkFailed(id int64, errMsg string, completedAt int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs[id].Status != "processing" {
		return false, nil
	}
	s.jobs[id].Status = "failed"
	s.failed[id] = errMsg
	return true, nil
}

type mockSynthesizer struct {
	shouldFail   bool
	onSynthesize func()
}

func (m *mockSynthesizer) Synthesize(_ context.Context, req *ttsengine.SynthesizeRequest) (*ttsengine.SynthesizeResult, error) {
	if m.onSynthesize != nil {
		m.onSynthesize()
	}
	if m.shouldFail {
		return nil, errMockSynthesize
	}
	return &ttsengine.SynthesizeResult{
		Audio:        []byte("fake audio for: " + req.Text),
		Duration:     1.5,
		QualityScore: 0.88,
	}, nil
}

func collectEvents() (func(ttsengine.Event), func() []ttsengine.Event) {
	var mu sync.Mutex
	var events []ttsengine.Event

	notify := func(e ttsengine.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}
	snapshot := func() []ttsengine.Event {
		mu.Lock()
		defer mu.Unlock()
		out := make([]ttsengine.Event, len(events))
		copy(out, events)
		return out
	}
	return notify, snapshot
}

func waitForStatus(t *testing.T, store *mockStore, id int64, want string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		status := store.jobs[id].Status
		store.mu.Unlock()
		if status == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("generation %d never reached status %q", id, want)
}

func TestPoolProcessesJob(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "tts")
	store := newMockStore(&ttsengine.Job{
		GenerationID: 7,
		Status:       "pending",
		Text:         "Welcome to support",
		ModelPath:    "/models/actor_1/base_v1.0.pth",
		SampleRate:   22050,
	})
	notify, snapshot := collectEvents()

	pool := ttsengine.NewPool(store, &mockSynthesizer{}, ttsengine.PoolConfig{
		Workers:   1,
		QueueSize: 4,
		OutputDir: outputDir,
		Timeout:   time.Second,
	}, notify)

	require.NoError(t, pool.Enqueue(7))
	waitForStatus(t, store, 7, "completed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	store.mu.Lock()
	audioPath := store.completed[7]
	store.mu.Unlock()
	require.NotEmpty(t, audioPath)

	audio, err := os.ReadFile(audioPath)
	require.NoError(t, err)
	assert.Equal(t, "fake audio for: Welcome to support", string(audio))

	events := snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, "processing", events[0].Status)
	assert.Equal(t, "completed", events[1].Status)
}

func TestPoolMarksFailedOnSynthesisError(t *testing.T) {
	store := newMockStore(&ttsengine.Job{
		GenerationID: 3,
		Status:       "pending",
		Text:         "hello",
		ModelPath:    "/models/x.pth",
	})
	notify, snapshot := collectEvents()

	pool := ttsengine.NewPool(store, &mockSynthesizer{shouldFail: true}, ttsengine.PoolConfig{
		Workers:   1,
		OutputDir: t.TempDir(),
	}, notify)

	require.NoError(t, pool.Enqueue(3))
	waitForStatus(t, store, 3, "failed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	store.mu.Lock()
	assert.Contains(t, store.failed[3], "mock synthesize error")
	store.mu.Unlock()

	events := snapshot()
	last := events[len(events)-1]
	assert.Equal(t, "failed", last.Status)
	assert.NotEmpty(t, last.Error)
}

func TestPoolSkipsCancelledJob(t *testing.T) {
	store := newMockStore(&ttsengine.Job{
		GenerationID: 5,
		Status:       "cancelled",
		Text:         "hello",
		ModelPath:    "/models/x.pth",
	})
	notify, snapshot := collectEvents()

	pool := ttsengine.NewPool(store, &mockSynthesizer{}, ttsengine.PoolConfig{
		Workers:   1,
		OutputDir: t.TempDir(),
	}, notify)

	require.NoError(t, pool.Enqueue(5))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	store.mu.Lock()
	assert.Equal(t, "cancelled", store.jobs[5].Status)
	store.mu.Unlock()
	assert.Empty(t, snapshot())
}

func TestPoolDiscardsResultWhenCancelledMidSynthesis(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "tts")
	store := newMockStore(&ttsengine.Job{
		GenerationID: 9,
		Status:       "pending",
		Text:         "too late",
		ModelPath:    "/models/x.pth",
	})
	notify, snapshot := collectEvents()

	// The cancel lands while the engine call is in flight.
	synth := &mockSynthesizer{onSynthesize: func() {
		store.setStatus(9, "cancelled")
	}}

	pool := ttsengine.NewPool(store, synth, ttsengine.PoolConfig{
		Workers:   1,
		OutputDir: outputDir,
	}, notify)

	require.NoError(t, pool.Enqueue(9))
	waitForStatus(t, store, 9, "cancelled")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	store.mu.Lock()
	assert.Equal(t, "cancelled", store.jobs[9].Status)
	assert.Empty(t, store.completed)
	store.mu.Unlock()

	for _, e := range snapshot() {
		assert.NotEqual(t, "completed", e.Status)
	}
	_, err := os.Stat(filepath.Join(outputDir, "tts_9.wav"))
	assert.True(t, os.IsNotExist(err))
}

func TestPoolEnqueueDuringShutdown(t *testing.T) {
	store := newMockStore()
	pool := ttsengine.NewPool(store, &mockSynthesizer{}, ttsengine.PoolConfig{
		Workers:   1,
		QueueSize: 1,
		OutputDir: t.TempDir(),
	}, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			err := pool.Enqueue(int64(i))
			if errors.Is(err, ttsengine.ErrShutdown) {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))
	<-done

	assert.ErrorIs(t, pool.Enqueue(99), ttsengine.ErrShutdown)
}

func TestPoolEnqueueAfterShutdown(t *testing.T) {
	store := newMockStore()
	pool := ttsengine.NewPool(store, &mockSynthesizer{}, ttsengine.PoolConfig{
		Workers:   1,
		OutputDir: t.TempDir(),
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(ctx))

	assert.ErrorIs(t, pool.Enqueue(1), ttsengine.ErrShutdown)
}
