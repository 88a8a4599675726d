package services

import (
	"context"
	"log"
	"sync"
	"time"

	"train-live-viewer/metrics"
	"train-live-viewer/models"
)

// LiveFetcher returns the current live status of a train
type LiveFetcher interface {
	GetLive(ctx context.Context, trainNo string) (*models.LiveSnapshot, error)
}

type PollerOptions struct {
	// Interval between refreshes (default 30s)
	Interval time.Duration
	// Tick is the countdown resolution (default 1s)
	Tick time.Duration
	// OnRefresh runs after each applied refresh, outside the poller lock
	OnRefresh func(trainNo string, snap *models.LiveSnapshot)
	Metrics   *metrics.Collector
}

// PollerState is a copy of the poller's observable state
type PollerState struct {
	Snapshot    *models.LiveSnapshot
	Countdown   int
	Polling     bool
	LastRefresh time.Time
	LastError   string
}

// Poller refreshes the live status of one train on a fixed interval and
// keeps a countdown to the next refresh. A failed refresh stops polling.
type Poller struct {
	trainNo string
	fetcher LiveFetcher
	opts    PollerOptions
	full    int

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	snapshot    *models.LiveSnapshot
	countdown   int
	polling     bool
	stopped     bool
	lastRefresh time.Time
	lastErr     string
	issued      uint64
	applied     uint64

	wg sync.WaitGroup
}

func NewPoller(trainNo string, fetcher LiveFetcher, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	full := int(opts.Interval / opts.Tick)
	if full < 1 {
		full = 1
	}
	return &Poller{
		trainNo: trainNo,
		fetcher: fetcher,
		opts:    opts,
		full:    full,
	}
}

// Start begins polling from an already fetched snapshot
func (p *Poller) Start(initial *models.LiveSnapshot) {
	p.mu.Lock()
	if p.stopped || p.cancel != nil {
		p.mu.Unlock()
		return
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.snapshot = initial
	p.countdown = p.full
	p.polling = true
	p.lastRefresh = time.Now()
	ctx := p.ctx
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.loop(ctx)
	}()
}

func (p *Poller) loop(ctx context.Context) {
	refresh := time.NewTicker(p.opts.Interval)
	defer refresh.Stop()
	countdown := time.NewTicker(p.opts.Tick)
	defer countdown.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refresh.C:
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.refresh()
			}()
		case <-countdown.C:
			p.tick()
		}
	}
}

// tick advances the countdown; it never drops below 1
func (p *Poller) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.polling && p.countdown > 1 {
		p.countdown--
	}
}

// refresh fetches a new snapshot. Responses that arrive after Stop, or
// after a later request has already been applied, are discarded.
func (p *Poller) refresh() {
	p.mu.Lock()
	if !p.polling {
		p.mu.Unlock()
		return
	}
	p.issued++
	seq := p.issued
	ctx := p.ctx
	p.mu.Unlock()

	snap, err := p.fetcher.GetLive(ctx, p.trainNo)

	p.mu.Lock()
	if p.stopped || ctx.Err() != nil || seq < p.applied {
		p.mu.Unlock()
		p.opts.Metrics.LiveRefresh("stale")
		return
	}
	if err != nil {
		p.polling = false
		p.lastErr = err.Error()
		p.cancel()
		p.mu.Unlock()
		p.opts.Metrics.LiveRefresh("error")
		log.Printf("Live refresh for train %s failed, polling stopped: %v", p.trainNo, err)
		return
	}
	p.applied = seq
	p.snapshot = snap
	p.countdown = p.full
	p.lastRefresh = time.Now()
	p.lastErr = ""
	p.mu.Unlock()

	p.opts.Metrics.LiveRefresh("ok")
	if p.opts.OnRefresh != nil {
		p.opts.OnRefresh(p.trainNo, snap)
	}
}

// Stop ends polling and waits for in-flight work. Safe to call more than once.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.polling = false
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	p.wg.Wait()
}

// State returns a copy of the current state
func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PollerState{
		Snapshot:    p.snapshot,
		Countdown:   p.countdown,
		Polling:     p.polling,
		LastRefresh: p.lastRefresh,
		LastError:   p.lastErr,
	}
}
