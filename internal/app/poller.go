package app

import (
	"context"
	"image"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"bookfold/internal/detect"
)

// DetectFunc finds page corners in a frame.
type DetectFunc func(image.Image) (*detect.Corners, bool)

// Poller runs detection on the latest frame at a fixed interval. A tick is
// skipped while the previous detection is still running. Every result is
// tagged with the generation the poller was started with.
type Poller struct {
	interval time.Duration
	frame    func() image.Image
	detect   DetectFunc
	publish  func(gen uint64, c *detect.Corners)
	logger   *slog.Logger

	busy    atomic.Bool
	skipped atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	loop    sync.WaitGroup
	running sync.WaitGroup
}

// NewPoller creates a stopped poller.
func NewPoller(interval time.Duration, frame func() image.Image, fn DetectFunc,
	publish func(gen uint64, c *detect.Corners), logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{interval: interval, frame: frame, detect: fn, publish: publish, logger: logger}
}

// Start begins polling for generation gen. It returns a func that stops the
// poller and waits for any detection in flight.
func (p *Poller) Start(ctx context.Context, gen uint64) (stop func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.loop.Add(1)
	go p.run(ctx, gen)
	p.logger.Debug("detection poller started", "generation", gen, "interval", p.interval)

	var once sync.Once
	return func() { once.Do(func() { p.stop(cancel) }) }
}

func (p *Poller) stop(cancel context.CancelFunc) {
	cancel()
	p.loop.Wait()
	p.running.Wait()
	p.mu.Lock()
	p.cancel = nil
	p.mu.Unlock()
	p.logger.Debug("detection poller stopped", "skipped_ticks", p.skipped.Load())
}

// Skipped returns how many ticks were dropped because a detection was busy.
func (p *Poller) Skipped() int64 { return p.skipped.Load() }

func (p *Poller) run(ctx context.Context, gen uint64) {
	defer p.loop.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, gen)
		}
	}
}

// tick is a no-op while the previous detection has not finished.
func (p *Poller) tick(ctx context.Context, gen uint64) {
	if !p.busy.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		return
	}
	img := p.frame()
	if img == nil {
		p.busy.Store(false)
		return
	}
	p.running.Add(1)
	go func() {
		defer p.running.Done()
		defer p.busy.Store(false)
		defer recoverLog(p.logger, "detection")

		c, ok := p.detect(img)
		if ctx.Err() != nil {
			return
		}
		if !ok {
			c = nil
		}
		p.publish(gen, c)
	}()
}

// recoverLog logs a recovered panic with its stack.
func recoverLog(logger *slog.Logger, where string) {
	if r := recover(); r != nil {
		logger.Error("panic recovered", "where", where, "panic", r, "stack", string(debug.Stack()))
	}
}
