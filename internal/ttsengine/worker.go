package ttsengine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("generation queue full")
	ErrShutdown  = errors.New("generation pool shut down")
)

// Job is everything a worker needs to render one generation.
type Job struct {
	GenerationID int64
	Status       string
	Text         string
	ModelPath    string
	SampleRate   int
	Params       map[string]interface{}
}

// Store abstracts the persistence side of a generation job so the pool can
// be exercised without a database.
// The Mark* methods report whether the status transition actually happened;
// false means the job was cancelled underneath the worker and the result must
// be discarded.
type Store interface {
	Job(id int64) (*Job, error)
	MarkProcessing(id int64, startedAt int64) (bool, error)
	MarkCompleted(id int64, audioPath string, fileSize int64, duration, quality float64, completedAt int64) (bool, error)
	MarkFailed(id int64, errMsg string, completedAt int64) (bool, error)
}

// Synthesizer is implemented by Client.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResult, error)
}

// Event describes a generation status change. The server broadcasts these
// over the websocket hub.
type Event struct {
	GenerationID int64  `json:"generation_id"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

type PoolConfig struct {
	Workers   int
	QueueSize int
	OutputDir string
	Timeout   time.Duration
}

// Pool renders queued TTS generations on a fixed set of workers.
type Pool struct {
	store  Store
	synth  Synthesizer
	cfg    PoolConfig
	notify func(Event)

	jobs chan int64
	wg   sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

func NewPool(store Store, synth Synthesizer, cfg PoolConfig, notify func(Event)) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if notify == nil {
		notify = func(Event) {}
	}

	p := &Pool{
		store:  store,
		synth:  synth,
		cfg:    cfg,
		notify: notify,
		jobs:   make(chan int64, cfg.QueueSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// Enqueue queues a pending generation for processing. Non-blocking: a full
// queue is reported to the caller instead of stalling the request.
func (p *Pool) Enqueue(generationID int64) error {
	// The mutex keeps the send ordered against Shutdown's close of the jobs
	// channel; without it a concurrent shutdown panics the sender.
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.shutdown {
		return ErrShutdown
	}

	select {
	case p.jobs <- generationID:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops intake and waits for in-flight jobs up to the context
// deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.shutdown {
		p.shutdown = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for id := range p.jobs {
		p.process(id)
	}
}

func (p *Pool) process(id int64) {
	job, err := p.store.Job(id)
	if err != nil {
		log.Printf("[tts] generation %d: failed to load job: %v", id, err)
		return
	}

	// Cancelled while still queued.
	if job.Status != "pending" {
		log.Printf("[tts] generation %d: skipped, status is %s", id, job.Status)
		return
	}

	claimed, err := p.store.MarkProcessing(id, time.Now().Unix())
	if err != nil {
		log.Printf("[tts] generation %d: failed to mark processing: %v", id, err)
		return
	}
	if !claimed {
		log.Printf("[tts] generation %d: skipped, no longer pending", id)
		return
	}
	p.notify(Event{GenerationID: id, Status: "processing"})

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
	defer cancel()

	result, err := p.synth.Synthesize(ctx, &SynthesizeRequest{
		Text:       job.Text,
		ModelPath:  job.ModelPath,
		SampleRate: job.SampleRate,
		Params:     job.Params,
	})
	if err != nil {
		p.fail(id, err)
		return
	}

	audioPath, err := p.writeAudio(id, result.Audio)
	if err != nil {
		p.fail(id, err)
		return
	}

	recorded, err := p.store.MarkCompleted(id, audioPath, int64(len(result.Audio)), result.Duration, result.QualityScore, time.Now().Unix())
	if err != nil {
		log.Printf("[tts] generation %d: failed to mark completed: %v", id, err)
		return
	}
	if !recorded {
		// Cancelled mid-synthesis; the result is discarded.
		log.Printf("[tts] generation %d: cancelled during synthesis, discarding %s", id, audioPath)
		if err := os.Remove(audioPath); err != nil {
			log.Printf("[tts] generation %d: failed to remove discarded audio: %v", id, err)
		}
		return
	}

	log.Printf("[tts] generation %d completed: %s (%d bytes)", id, audioPath, len(result.Audio))
	p.notify(Event{GenerationID: id, Status: "completed"})
}

func (p *Pool) fail(id int64, cause error) {
	log.Printf("[tts] generation %d failed: %v", id, cause)

	recorded, err := p.store.MarkFailed(id, cause.Error(), time.Now().Unix())
	if err != nil {
		log.Printf("[tts] generation %d: failed to mark failed: %v", id, err)
		return
	}
	if !recorded {
		return
	}
	p.notify(Event{GenerationID: id, Status: "failed", Error: cause.Error()})
}

func (p *Pool) writeAudio(id int64, audio []byte) (string, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(p.cfg.OutputDir, fmt.Sprintf("tts_%d.wav", id))
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}

	return path, nil
}
