package orchestrator

import (
    "sync"
    "time"

    "github.com/example/blueprint-engine/internal/models"
)

const (
    subscriberBuffer = 256
    flushInterval    = 100 * time.Millisecond
)

// Hub fans run events out to subscribers. Streamed chunks are coalesced per
// run and flushed on a short interval, and always before the next non-chunk
// event, so subscribers see events in emission order.
type Hub struct {
    mu   sync.RWMutex
    subs map[string]map[chan models.Event]struct{}

    bufMu   sync.Mutex
    pending map[string][]models.Event
    loops   map[string]*flusher

    interval time.Duration
}

type flusher struct {
    stop chan struct{}
    done chan struct{}
}

func NewHub() *Hub {
    return &Hub{
        subs:     map[string]map[chan models.Event]struct{}{},
        pending:  map[string][]models.Event{},
        loops:    map[string]*flusher{},
        interval: flushInterval,
    }
}

// Subscribe returns the event channel for runID and the func that ends the
// subscription and closes the channel.
func (h *Hub) Subscribe(runID string) (<-chan models.Event, func()) {
    ch := make(chan models.Event, subscriberBuffer)
    h.mu.Lock()
    set := h.subs[runID]
    if set == nil { set = map[chan models.Event]struct{}{}; h.subs[runID] = set }
    set[ch] = struct{}{}
    h.mu.Unlock()
    var once sync.Once
    return ch, func() {
        once.Do(func() {
            h.mu.Lock()
            if set, ok := h.subs[runID]; ok {
                delete(set, ch)
                if len(set) == 0 { delete(h.subs, runID) }
            }
            close(ch)
            h.mu.Unlock()
        })
    }
}

// Publish delivers ev to every subscriber of runID. Slow subscribers miss
// events rather than block the run.
func (h *Hub) Publish(runID string, ev models.Event) {
    ev.RunID = runID
    h.mu.RLock()
    for ch := range h.subs[runID] {
        select {
        case ch <- ev:
        default:
        }
    }
    h.mu.RUnlock()
}

// Emitter returns the models.Emitter a run reports through.
func (h *Hub) Emitter(runID string) models.Emitter {
    return func(ev models.Event) {
        if ev.Chunk {
            h.appendChunk(runID, ev)
            return
        }
        h.bufMu.Lock()
        h.flushLocked(runID)
        h.Publish(runID, ev)
        h.bufMu.Unlock()
    }
}

func (h *Hub) appendChunk(runID string, ev models.Event) {
    h.bufMu.Lock()
    defer h.bufMu.Unlock()
    buf := h.pending[runID]
    if n := len(buf); n > 0 && buf[n-1].Type == ev.Type && buf[n-1].Step == ev.Step {
        buf[n-1].Content += ev.Content
    } else {
        h.pending[runID] = append(buf, ev)
    }
    if _, ok := h.loops[runID]; !ok {
        f := &flusher{stop: make(chan struct{}), done: make(chan struct{})}
        h.loops[runID] = f
        go h.flushLoop(runID, f)
    }
}

func (h *Hub) flushLoop(runID string, f *flusher) {
    defer close(f.done)
    ticker := time.NewTicker(h.interval)
    defer ticker.Stop()
    for {
        select {
        case <-f.stop:
            return
        case <-ticker.C:
            h.bufMu.Lock()
            h.flushLocked(runID)
            h.bufMu.Unlock()
        }
    }
}

func (h *Hub) flushLocked(runID string) {
    buf := h.pending[runID]
    if len(buf) == 0 { return }
    delete(h.pending, runID)
    for _, ev := range buf { h.Publish(runID, ev) }
}

// Close stops the coalescer of runID and flushes what it still holds.
func (h *Hub) Close(runID string) {
    h.bufMu.Lock()
    f := h.loops[runID]
    delete(h.loops, runID)
    h.flushLocked(runID)
    h.bufMu.Unlock()
    if f != nil {
        close(f.stop)
        <-f.done
    }
}
