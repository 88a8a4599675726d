package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"train-live-viewer/metrics"
	"train-live-viewer/models"
)

// NameSource resolves station ids to names
type NameSource interface {
	NameMap(ctx context.Context) (map[string]string, error)
}

// LivePublisher forwards refreshed timetables to subscribers
type LivePublisher interface {
	PublishLiveStatus(trainNo string, updated time.Time, rows []models.TimetableRow) error
}

// LiveView is one open train page: static detail, a live poller and the
// formation navigation state
type LiveView struct {
	ID        string
	TrainNo   string
	CreatedAt time.Time
	Detail    *models.TripDetail
	Names     map[string]string
	Poller    *Poller
	Formation *FormationView

	lastAccess atomic.Int64
}

func (v *LiveView) touch(t time.Time) {
	v.lastAccess.Store(t.UnixNano())
}

// LastAccess is the last time the view was opened or read
func (v *LiveView) LastAccess() time.Time {
	return time.Unix(0, v.lastAccess.Load())
}

// ViewResponse is the current state of a live view
type ViewResponse struct {
	ID          string               `json:"id"`
	Train       models.TrainResponse `json:"train"`
	Countdown   int                  `json:"countdown"`
	Polling     bool                 `json:"polling"`
	LastRefresh time.Time            `json:"last_refresh"`
	LastError   string               `json:"last_error,omitempty"`
}

// Response renders the view at the given time
func (v *LiveView) Response(now time.Time) ViewResponse {
	st := v.Poller.State()
	return ViewResponse{
		ID:          v.ID,
		Train:       BuildTrainResponse(v.TrainNo, v.Detail, v.Names, st.Snapshot, now),
		Countdown:   st.Countdown,
		Polling:     st.Polling,
		LastRefresh: st.LastRefresh,
		LastError:   st.LastError,
	}
}

type ViewRegistryOptions struct {
	PollInterval time.Duration
	PollTick     time.Duration
	// IdleTTL closes views that have not been read for this long (0 keeps them open)
	IdleTTL time.Duration
	// ReapInterval is how often idle views are looked for (default IdleTTL/2, at most 1m)
	ReapInterval time.Duration
	Location     *time.Location
	Publisher    LivePublisher
	Metrics      *metrics.Collector
}

// ViewRegistry owns the open live views
type ViewRegistry struct {
	trains     TrainSource
	names      NameSource
	formations FormationReader
	opts       ViewRegistryOptions

	mu    sync.Mutex
	views map[string]*LiveView

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewViewRegistry creates a registry. With a positive IdleTTL it also starts
// a reaper that runs until CloseAll.
func NewViewRegistry(trains TrainSource, names NameSource, formations FormationReader, opts ViewRegistryOptions) *ViewRegistry {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	r := &ViewRegistry{
		trains:     trains,
		names:      names,
		formations: formations,
		opts:       opts,
		views:      make(map[string]*LiveView),
		stop:       make(chan struct{}),
	}
	if opts.IdleTTL > 0 {
		every := opts.ReapInterval
		if every <= 0 {
			every = opts.IdleTTL / 2
			if every > time.Minute {
				every = time.Minute
			}
		}
		r.wg.Add(1)
		go r.reapLoop(every)
	}
	return r
}

func (r *ViewRegistry) reapLoop(every time.Duration) {
	defer r.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.reap(now)
		}
	}
}

// reap closes every view last read before now minus the idle TTL
func (r *ViewRegistry) reap(now time.Time) {
	cutoff := now.Add(-r.opts.IdleTTL).UnixNano()

	r.mu.Lock()
	var idle []string
	for id, v := range r.views {
		if v.lastAccess.Load() < cutoff {
			idle = append(idle, id)
		}
	}
	r.mu.Unlock()

	for _, id := range idle {
		// a concurrent Close may have won
		if err := r.Close(id); err == nil {
			log.Printf("Closed idle live view %s", id)
		}
	}
}

// Open fetches a train and starts polling its live status
func (r *ViewRegistry) Open(ctx context.Context, trainNo string) (*LiveView, error) {
	detail, snap, err := FetchTrain(ctx, r.trains, trainNo)
	if err != nil {
		return nil, err
	}

	names, err := r.names.NameMap(ctx)
	if err != nil {
		log.Printf("Error loading station names for train %s: %v", trainNo, err)
		names = map[string]string{}
	}

	view := &LiveView{
		ID:        uuid.NewString(),
		TrainNo:   trainNo,
		CreatedAt: time.Now(),
		Detail:    detail,
		Names:     names,
		Formation: NewFormationView(r.formations, r.opts.Metrics),
	}
	view.touch(view.CreatedAt)
	view.Poller = NewPoller(trainNo, r.trains, PollerOptions{
		Interval:  r.opts.PollInterval,
		Tick:      r.opts.PollTick,
		Metrics:   r.opts.Metrics,
		OnRefresh: r.publishFunc(view),
	})

	r.mu.Lock()
	r.views[view.ID] = view
	r.mu.Unlock()

	view.Poller.Start(snap)
	r.opts.Metrics.ViewOpened()
	log.Printf("Opened live view %s for train %s", view.ID, trainNo)
	return view, nil
}

func (r *ViewRegistry) publishFunc(view *LiveView) func(string, *models.LiveSnapshot) {
	if r.opts.Publisher == nil {
		return nil
	}
	return func(trainNo string, snap *models.LiveSnapshot) {
		rows := BuildTimetable(trainNo, view.Detail, view.Names, snap, time.Now().In(r.opts.Location))
		if err := r.opts.Publisher.PublishLiveStatus(trainNo, snap.UpdateTime, rows); err != nil {
			log.Printf("Error publishing live status for train %s: %v", trainNo, err)
		}
	}
}

// Get returns an open view and marks it as read
func (r *ViewRegistry) Get(id string) (*LiveView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return nil, fmt.Errorf("view %s: %w", id, ErrViewNotFound)
	}
	v.touch(time.Now())
	return v, nil
}

// List returns the open views, oldest first
func (r *ViewRegistry) List() []*LiveView {
	r.mu.Lock()
	out := make([]*LiveView, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, v)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Close stops the poller of a view and forgets it
func (r *ViewRegistry) Close(id string) error {
	r.mu.Lock()
	v, ok := r.views[id]
	delete(r.views, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("view %s: %w", id, ErrViewNotFound)
	}

	v.Poller.Stop()
	r.opts.Metrics.ViewClosed()
	log.Printf("Closed live view %s", id)
	return nil
}

// CloseAll stops the idle reaper and every open view
func (r *ViewRegistry) CloseAll() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*LiveView)
	r.mu.Unlock()

	for _, v := range views {
		v.Poller.Stop()
		r.opts.Metrics.ViewClosed()
	}
	if len(views) > 0 {
		log.Printf("Closed %d live views", len(views))
	}
}

// Now returns the current time in the service time zone
func (r *ViewRegistry) Now() time.Time {
	return time.Now().In(r.opts.Location)
}
