package session

import (
	"sort"
	"sync"

	"callconsole/internal/types"
)

// Slice names one independently loaded sub-domain of a CallState.
type Slice int

const (
	SliceNotes Slice = iota
	SliceChat
	SliceTranscript
)

var allSlices = []Slice{SliceNotes, SliceChat, SliceTranscript}

func (s Slice) String() string {
	switch s {
	case SliceNotes:
		return "notes"
	case SliceChat:
		return "chat"
	case SliceTranscript:
		return "transcript"
	default:
		return "unknown"
	}
}

// Patch is a shallow update: only non-nil fields are applied. Sequence
// fields replace the whole slice, so appends must go through Update.
type Patch struct {
	Notes         *[]types.StickyNote
	DocumentNotes *string
	NotesLoaded   *bool
	NotesLoading  *bool
	NotesError    *string

	AIChatMessages         *[]types.ChatMessage
	AIChatLoaded           *bool
	AIChatLoading          *bool
	AIChatError            *string
	IsAITyping             *bool
	IsGeneratingSuggestion *bool
	QuickSuggestion        *string

	Transcript        *[]types.TranscriptEntry
	TranscriptLoaded  *bool
	TranscriptLoading *bool
	TranscriptError   *string
}

func Bool(v bool) *bool       { return &v }
func String(v string) *string { return &v }

func (p Patch) apply(s types.CallState) types.CallState {
	if p.Notes != nil {
		s.Notes = types.CloneNotes(*p.Notes)
	}
	if p.DocumentNotes != nil {
		s.DocumentNotes = *p.DocumentNotes
	}
	if p.NotesLoaded != nil {
		s.NotesLoaded = *p.NotesLoaded
	}
	if p.NotesLoading != nil {
		s.NotesLoading = *p.NotesLoading
	}
	if p.NotesError != nil {
		s.NotesError = *p.NotesError
	}
	if p.AIChatMessages != nil {
		s.AIChatMessages = types.CloneChatMessages(*p.AIChatMessages)
	}
	if p.AIChatLoaded != nil {
		s.AIChatLoaded = *p.AIChatLoaded
	}
	if p.AIChatLoading != nil {
		s.AIChatLoading = *p.AIChatLoading
	}
	if p.AIChatError != nil {
		s.AIChatError = *p.AIChatError
	}
	if p.IsAITyping != nil {
		s.IsAITyping = *p.IsAITyping
	}
	if p.IsGeneratingSuggestion != nil {
		s.IsGeneratingSuggestion = *p.IsGeneratingSuggestion
	}
	if p.QuickSuggestion != nil {
		s.QuickSuggestion = *p.QuickSuggestion
	}
	if p.Transcript != nil {
		s.Transcript = types.CloneTranscript(*p.Transcript)
	}
	if p.TranscriptLoaded != nil {
		s.TranscriptLoaded = *p.TranscriptLoaded
	}
	if p.TranscriptLoading != nil {
		s.TranscriptLoading = *p.TranscriptLoading
	}
	if p.TranscriptError != nil {
		s.TranscriptError = *p.TranscriptError
	}
	return s
}

// Reducer computes the next state of one call from its current snapshot.
type Reducer func(types.CallState) types.CallState

// flag is a boolean field of CallState that stays set while at least one
// operation holding it is in flight.
type flag int

const (
	flagNotes flag = iota
	flagChat
	flagTranscript
	flagTyping
	flagSuggesting
	flagCount
)

func sliceFlag(slice Slice) flag {
	return flag(slice)
}

type registryEntry struct {
	state    types.CallState
	epoch    uint64
	inflight [flagCount]int
	// loadFailed marks slices whose initial load failed. Errors left by
	// other operations on the slice do not set it.
	loadFailed [SliceTranscript + 1]bool
}

// Registry is the keyed store of per-call state. Every mutation runs a
// reducer against the snapshot current at commit time, so two operations
// on the same call never lose each other's appends.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]*registryEntry
	epochs     uint64
	generation uint64
	subs       map[uint64]chan struct{}
	nextSub    uint64
}

func NewRegistry() *Registry {
	return &Registry{
		entries: map[string]*registryEntry{},
		subs:    map[uint64]chan struct{}{},
	}
}

// Get returns a copy of the call's state, or a fresh empty state for an
// unknown call. It never inserts.
func (r *Registry) Get(callID string) types.CallState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[callID]; ok {
		return e.state.Clone()
	}
	return types.NewCallState(callID)
}

func (r *Registry) Has(callID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[callID]
	return ok
}

// Ensure inserts an empty state for callID if absent.
func (r *Registry) Ensure(callID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[callID]; ok {
		return
	}
	r.insertLocked(callID)
	r.changedLocked()
}

func (r *Registry) Merge(callID string, patch Patch) types.CallState {
	return r.Update(callID, patch.apply)
}

// Update applies fn to the current snapshot, creating the call first if
// needed, and returns the committed state.
func (r *Registry) Update(callID string, fn Reducer) types.CallState {
	_, next := r.apply(callID, fn)
	return next.Clone()
}

func (r *Registry) apply(callID string, fn Reducer) (uint64, types.CallState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok {
		e = r.insertLocked(callID)
	}
	next := fn(e.state.Clone())
	next.CallID = callID
	e.state = next
	r.changedLocked()
	return e.epoch, next
}

// commit applies fn only if the call still holds the incarnation identified
// by epoch. Late results for a removed (or removed and recreated) call are
// dropped rather than resurrecting it.
func (r *Registry) commit(callID string, epoch uint64, fn Reducer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok || e.epoch != epoch {
		return false
	}
	next := fn(e.state.Clone())
	next.CallID = callID
	e.state = next
	r.changedLocked()
	return true
}

// UpdateIfPresent applies fn only to a call that already exists.
func (r *Registry) UpdateIfPresent(callID string, fn Reducer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok {
		return false
	}
	next := fn(e.state.Clone())
	next.CallID = callID
	e.state = next
	r.changedLocked()
	return true
}

// ensureEpoch inserts the call if absent and returns its incarnation.
func (r *Registry) ensureEpoch(callID string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[callID]; ok {
		return e.epoch
	}
	e := r.insertLocked(callID)
	r.changedLocked()
	return e.epoch
}

// begin raises f, applies fn and returns the incarnation to finish against.
// The call is created if absent.
func (r *Registry) begin(callID string, f flag, fn Reducer) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok {
		e = r.insertLocked(callID)
	}
	e.inflight[f]++
	next := e.state.Clone()
	if fn != nil {
		next = fn(next)
	}
	next.CallID = callID
	e.state = setFlag(next, f, true)
	r.changedLocked()
	return e.epoch
}

// finish releases f and applies fn. The flag is cleared once the last
// operation holding it completes.
func (r *Registry) finish(callID string, epoch uint64, f flag, fn Reducer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok || e.epoch != epoch {
		return false
	}
	if e.inflight[f] > 0 {
		e.inflight[f]--
	}
	next := e.state.Clone()
	if fn != nil {
		next = fn(next)
	}
	next.CallID = callID
	e.state = setFlag(next, f, e.inflight[f] > 0)
	r.changedLocked()
	return true
}

// failLoad finishes a load of slice that failed: it releases the loading
// flag, records errText and keeps the reconciler off the slice until
// clearLoadFailures.
func (r *Registry) failLoad(callID string, epoch uint64, slice Slice, errText string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok || e.epoch != epoch {
		return false
	}
	f := sliceFlag(slice)
	if e.inflight[f] > 0 {
		e.inflight[f]--
	}
	next := setSliceError(e.state.Clone(), slice, errText)
	next.CallID = callID
	e.state = setFlag(next, f, e.inflight[f] > 0)
	e.loadFailed[slice] = true
	r.changedLocked()
	return true
}

// clearLoadFailures clears the load failure and error of every slice of
// callID that has neither loaded nor is loading.
func (r *Registry) clearLoadFailures(callID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok {
		return false
	}
	next := e.state.Clone()
	for _, slice := range allSlices {
		if sliceLoaded(next, slice) || e.inflight[sliceFlag(slice)] > 0 {
			continue
		}
		e.loadFailed[slice] = false
		next = setSliceError(next, slice, "")
	}
	e.state = next
	r.changedLocked()
	return true
}

// claim atomically marks slice as loading when it has not been loaded, is
// not in flight and its last load did not fail.
func (r *Registry) claim(callID string, slice Slice) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[callID]
	if !ok || e.loadFailed[slice] || !needsLoad(e.state, slice) {
		return 0, false
	}
	f := sliceFlag(slice)
	e.inflight[f]++
	e.state = setFlag(e.state, f, true)
	r.changedLocked()
	return e.epoch, true
}

func (r *Registry) Remove(callID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[callID]; !ok {
		return false
	}
	delete(r.entries, callID)
	r.changedLocked()
	return true
}

// Clear drops every call, as on agent sign-out.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return
	}
	r.entries = map[string]*registryEntry{}
	r.changedLocked()
}

// All returns a detached snapshot of every call.
func (r *Registry) All() map[string]types.CallState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]types.CallState, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.state.Clone()
	}
	return out
}

func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Generation increases on every committed change.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

// Subscribe returns a channel that receives a signal after changes.
// Signals coalesce: a slow reader sees one pending signal, not one per
// change.
func (r *Registry) Subscribe() (<-chan struct{}, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	ch := make(chan struct{}, 1)
	r.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Registry) insertLocked(callID string) *registryEntry {
	r.epochs++
	e := &registryEntry{state: types.NewCallState(callID), epoch: r.epochs}
	r.entries[callID] = e
	return e
}

func (r *Registry) changedLocked() {
	r.generation++
	for _, ch := range r.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func needsLoad(s types.CallState, slice Slice) bool {
	switch slice {
	case SliceNotes:
		return !s.NotesLoaded && !s.NotesLoading
	case SliceChat:
		return !s.AIChatLoaded && !s.AIChatLoading
	case SliceTranscript:
		return !s.TranscriptLoaded && !s.TranscriptLoading
	}
	return false
}

func sliceLoaded(s types.CallState, slice Slice) bool {
	switch slice {
	case SliceNotes:
		return s.NotesLoaded
	case SliceChat:
		return s.AIChatLoaded
	case SliceTranscript:
		return s.TranscriptLoaded
	}
	return false
}

func setSliceError(s types.CallState, slice Slice, errText string) types.CallState {
	switch slice {
	case SliceNotes:
		s.NotesError = errText
	case SliceChat:
		s.AIChatError = errText
	case SliceTranscript:
		s.TranscriptError = errText
	}
	return s
}

func setFlag(s types.CallState, f flag, on bool) types.CallState {
	switch f {
	case flagNotes:
		s.NotesLoading = on
	case flagChat:
		s.AIChatLoading = on
	case flagTranscript:
		s.TranscriptLoading = on
	case flagTyping:
		s.IsAITyping = on
	case flagSuggesting:
		s.IsGeneratingSuggestion = on
	}
	return s
}
