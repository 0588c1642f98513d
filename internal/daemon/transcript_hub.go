package daemon

import (
	"sync"

	"callconsole/internal/logging"
	"callconsole/internal/types"
)

const hubBuffer = 64

// TranscriptHub fans appended segments out to the live streams watching a
// call.
type TranscriptHub struct {
	mu     sync.Mutex
	subs   map[string]map[*hubSubscriber]struct{}
	logger logging.Logger
}

type hubSubscriber struct {
	ch chan types.TranscriptEntry
}

func NewTranscriptHub(logger logging.Logger) *TranscriptHub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &TranscriptHub{subs: map[string]map[*hubSubscriber]struct{}{}, logger: logger}
}

// Subscribe returns a channel of segments for callID. The channel closes
// when the returned cancel is called or the call ends.
func (h *TranscriptHub) Subscribe(callID string) (<-chan types.TranscriptEntry, func()) {
	sub := &hubSubscriber{ch: make(chan types.TranscriptEntry, hubBuffer)}
	h.mu.Lock()
	if h.subs[callID] == nil {
		h.subs[callID] = map[*hubSubscriber]struct{}{}
	}
	h.subs[callID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.removeLocked(callID, sub)
		})
	}
}

// Publish delivers entry to every subscriber of its call. A subscriber whose
// buffer is full misses the segment.
func (h *TranscriptHub) Publish(entry types.TranscriptEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[entry.CallID] {
		select {
		case sub.ch <- entry:
		default:
			h.logger.Warn("transcript_subscriber_slow", logging.Call(entry.CallID))
		}
	}
}

// Close ends every stream watching callID.
func (h *TranscriptHub) Close(callID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[callID] {
		h.removeLocked(callID, sub)
	}
}

// CloseAll ends every stream.
func (h *TranscriptHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for callID, subs := range h.subs {
		for sub := range subs {
			h.removeLocked(callID, sub)
		}
	}
}

func (h *TranscriptHub) Subscribers(callID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[callID])
}

func (h *TranscriptHub) removeLocked(callID string, sub *hubSubscriber) {
	subs := h.subs[callID]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.ch)
	if len(subs) == 0 {
		delete(h.subs, callID)
	}
}
