package request

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage is the lifecycle position of a tracked outbound call.
type Stage string

const (
	StagePreparing  Stage = "preparing"
	StageGeocoding  Stage = "geocoding"
	StageNetwork    Stage = "network"
	StageProcessing Stage = "processing"
	StageComplete   Stage = "complete"
	StageFailed     Stage = "failed"
)

const (
	maxRecords      = 10
	watchdogTimeout = 30 * time.Second
	slowThreshold   = 3000 * time.Millisecond
	recentWindow    = 10
)

// Record tracks one outbound network call. The cancellation context is
// process-local and never serialized.
type Record struct {
	ID              string
	URL             string
	Method          string
	Stage           Stage
	StartedAt       time.Time
	GeocodeDuration time.Duration
	NetworkDuration time.Duration
	TotalDuration   time.Duration
	Error           string

	ctx      context.Context
	cancel   context.CancelFunc
	watchdog *time.Timer
}

func (r *Record) terminal() bool {
	return r.Stage == StageComplete || r.Stage == StageFailed
}

// Tracker assigns an ID to every outbound call, tracks elapsed time per
// phase, supports cancellation, and estimates connection quality from the
// rolling average of recent completions. Construct one per application
// instance and pass it by reference.
type Tracker struct {
	logger *zap.Logger

	mu           sync.Mutex
	records      map[string]*Record
	order        []string
	recentTotals []time.Duration
}

func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		logger:  logger,
		records: make(map[string]*Record),
	}
}

// Start allocates a record in stage "preparing" with a fresh cancellation
// handle and a hard watchdog that aborts the request if no terminal stage is
// reached in time. Returns the request ID.
func (t *Tracker) Start(url, method string) string {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	rec := &Record{
		ID:        id,
		URL:       url,
		Method:    method,
		Stage:     StagePreparing,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
	rec.watchdog = time.AfterFunc(watchdogTimeout, func() {
		t.Abort(id, "timed out")
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[id] = rec
	t.order = append(t.order, id)
	for len(t.order) > maxRecords {
		oldest := t.order[0]
		t.order = t.order[1:]
		if old, ok := t.records[oldest]; ok {
			if !old.terminal() {
				t.failLocked(old, "evicted")
			}
			delete(t.records, oldest)
		}
	}
	return id
}

// Advance moves a request to the given stage, capturing phase durations.
// Entering "network" records the geocoding phase, entering "processing"
// records the network phase, and a terminal stage records the total, clears
// the watchdog and emits a performance event. Unknown IDs are a no-op.
func (t *Tracker) Advance(id string, stage Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok || rec.terminal() {
		return
	}

	now := time.Now()
	switch stage {
	case StageNetwork:
		rec.GeocodeDuration = now.Sub(rec.StartedAt)
	case StageProcessing:
		rec.NetworkDuration = now.Sub(rec.StartedAt) - rec.GeocodeDuration
	case StageComplete:
		rec.TotalDuration = now.Sub(rec.StartedAt)
		rec.watchdog.Stop()
		rec.cancel()
		t.recentTotals = append(t.recentTotals, rec.TotalDuration)
		if len(t.recentTotals) > recentWindow {
			t.recentTotals = t.recentTotals[1:]
		}
		t.logger.Info("request complete",
			zap.String("requestId", rec.ID),
			zap.String("url", rec.URL),
			zap.Duration("geocode", rec.GeocodeDuration),
			zap.Duration("network", rec.NetworkDuration),
			zap.Duration("total", rec.TotalDuration),
		)
	case StageFailed:
		t.failLocked(rec, rec.Error)
	}
	rec.Stage = stage
}

// Abort cancels the request's context, forces the record into "failed" with
// the given reason, and emits an abandoned-request event. Unknown or already
// terminal IDs are a no-op.
func (t *Tracker) Abort(id, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok || rec.terminal() {
		return
	}
	t.failLocked(rec, reason)
}

// failLocked finalizes a record as failed. Caller must hold t.mu.
func (t *Tracker) failLocked(rec *Record, reason string) {
	rec.watchdog.Stop()
	rec.cancel()
	rec.Stage = StageFailed
	rec.Error = reason
	rec.TotalDuration = time.Since(rec.StartedAt)
	t.logger.Warn("request abandoned",
		zap.String("requestId", rec.ID),
		zap.String("url", rec.URL),
		zap.String("reason", reason),
		zap.Duration("total", rec.TotalDuration),
	)
}

// Context returns the cancellation context for a request so a collaborator
// can pass it into its own network call. Unknown IDs get a background
// context.
func (t *Tracker) Context(id string) context.Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[id]; ok {
		return rec.ctx
	}
	return context.Background()
}

// Lookup returns a snapshot of a tracked record.
func (t *Tracker) Lookup(id string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// SlowConnection reports whether the average total duration of recent
// completed requests exceeds the slow threshold. Needs at least two
// completions to judge.
func (t *Tracker) SlowConnection() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.recentTotals) < 2 {
		return false
	}
	var sum time.Duration
	for _, d := range t.recentTotals {
		sum += d
	}
	return sum/time.Duration(len(t.recentTotals)) > slowThreshold
}
