package app

import (
	"sync"
)

// hubSet fans refresh progress out to every load request subscribed to a
// run. Progress is advisory: a subscriber whose channel is full misses an
// update rather than stalling the refresh. Terminal messages never travel
// through the hub.
type hubSet struct {
	mu   sync.Mutex
	subs map[string]map[int]subscriber
	next int
}

type subscriber struct {
	reqID string
	ch    chan<- Message
}

func newHubSet() *hubSet {
	return &hubSet{subs: make(map[string]map[int]subscriber)}
}

// subscribe registers a request channel for a run and returns its handle.
func (h *hubSet) subscribe(runID, reqID string, ch chan<- Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[int]subscriber)
	}
	h.next++
	h.subs[runID][h.next] = subscriber{reqID: reqID, ch: ch}
	return h.next
}

// unsubscribe removes a handle, dropping the run's entry when it empties.
func (h *hubSet) unsubscribe(runID string, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[runID], id)
	if len(h.subs[runID]) == 0 {
		delete(h.subs, runID)
	}
}

// publish delivers a progress update to every subscriber of a run.
func (h *hubSet) publish(runID string, p Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[runID] {
		msg := Message{Kind: KindProgress, RequestID: sub.reqID, RunID: runID, Progress: &p}
		select {
		case sub.ch <- msg:
		default:
			// Slow consumer; skip this update.
		}
	}
}
