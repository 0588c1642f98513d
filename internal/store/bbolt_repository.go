package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"callconsole/internal/types"
)

var (
	bucketCalls       = []byte("calls")
	bucketNotes       = []byte("notes")
	bucketChat        = []byte("chat")
	bucketTranscripts = []byte("transcripts")
)

type bboltRepository struct {
	db          *bolt.DB
	calls       CallStore
	notes       NoteStore
	chat        ChatStore
	transcripts TranscriptStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:          db,
		calls:       &bboltCallStore{db: db},
		notes:       &bboltNoteStore{db: db},
		chat:        &bboltChatStore{db: db},
		transcripts: &bboltTranscriptStore{db: db},
	}, nil
}

func (r *bboltRepository) Calls() CallStore {
	return r.calls
}

func (r *bboltRepository) Notes() NoteStore {
	return r.notes
}

func (r *bboltRepository) Chat() ChatStore {
	return r.chat
}

func (r *bboltRepository) Transcripts() TranscriptStore {
	return r.transcripts
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketCalls, bucketNotes, bucketChat, bucketTranscripts} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
}

type bboltCallStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func (s *bboltCallStore) List(ctx context.Context) ([]*types.CallRecord, error) {
	out := make([]*types.CallRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCalls)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var record types.CallRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			out = append(out, cloneCall(&record))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *bboltCallStore) Get(ctx context.Context, callID string) (*types.CallRecord, bool, error) {
	var (
		out *types.CallRecord
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCalls)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(callID))
		if len(raw) == 0 {
			return nil
		}
		var record types.CallRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		out = cloneCall(&record)
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

func (s *bboltCallStore) Create(ctx context.Context, record *types.CallRecord) (*types.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := normalizeCall(record)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCalls)
		if b == nil {
			return errors.New("calls bucket missing")
		}
		key := []byte(normalized.CallID)
		if b.Get(key) != nil {
			return ErrCallExists
		}
		return b.Put(key, raw)
	}); err != nil {
		return nil, err
	}
	return cloneCall(normalized), nil
}

func (s *bboltCallStore) Update(ctx context.Context, callID string, fn func(*types.CallRecord) error) (*types.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out *types.CallRecord
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCalls)
		if b == nil {
			return errors.New("calls bucket missing")
		}
		key := []byte(callID)
		raw := b.Get(key)
		if len(raw) == 0 {
			return ErrCallNotFound
		}
		var record types.CallRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return err
		}
		if err := fn(&record); err != nil {
			return err
		}
		record.CallID = callID
		next, err := json.Marshal(&record)
		if err != nil {
			return err
		}
		out = cloneCall(&record)
		return b.Put(key, next)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type bboltNoteStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func (s *bboltNoteStore) ListByCall(ctx context.Context, callID string) ([]*types.StickyNote, error) {
	out := make([]*types.StickyNote, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var note types.StickyNote
			if err := json.Unmarshal(v, &note); err != nil {
				return err
			}
			if note.CallID != callID {
				return nil
			}
			out = append(out, cloneNote(&note))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	// Creation order is display order.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *bboltNoteStore) Get(ctx context.Context, noteID string) (*types.StickyNote, bool, error) {
	var (
		note *types.StickyNote
		ok   bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(noteID))
		if len(raw) == 0 {
			return nil
		}
		var item types.StickyNote
		if err := json.Unmarshal(raw, &item); err != nil {
			return err
		}
		note = cloneNote(&item)
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return note, ok, nil
}

func (s *bboltNoteStore) Upsert(ctx context.Context, note *types.StickyNote) (*types.StickyNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note == nil {
		return nil, errors.New("note is required")
	}
	var existing *types.StickyNote
	if note.ID != "" {
		found, ok, err := s.Get(ctx, note.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			existing = found
		}
	}
	normalized, err := normalizeNote(note, existing)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b == nil {
			return errors.New("notes bucket missing")
		}
		return b.Put([]byte(normalized.ID), raw)
	}); err != nil {
		return nil, err
	}
	return cloneNote(normalized), nil
}

func (s *bboltNoteStore) Delete(ctx context.Context, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b == nil {
			return errors.New("notes bucket missing")
		}
		key := []byte(noteID)
		if b.Get(key) == nil {
			return ErrNoteNotFound
		}
		return b.Delete(key)
	})
}

func (s *bboltNoteStore) DeleteByCall(ctx context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNotes)
		if b == nil {
			return errors.New("notes bucket missing")
		}
		var keys [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			var note types.StickyNote
			if err := json.Unmarshal(v, &note); err != nil {
				return err
			}
			if note.CallID == callID {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, key := range keys {
			if err := b.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// Chat messages and transcript segments live in one nested bucket per call,
// keyed by the bucket sequence so iteration order is append order.

type bboltChatStore struct {
	db *bolt.DB
}

func (s *bboltChatStore) List(ctx context.Context, callID string) ([]*types.ChatMessage, error) {
	out := make([]*types.ChatMessage, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return forEachInCall(tx, bucketChat, callID, func(v []byte) error {
			var msg types.ChatMessage
			if err := json.Unmarshal(v, &msg); err != nil {
				return err
			}
			out = append(out, cloneMessage(&msg))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Append is idempotent on message id.
func (s *bboltChatStore) Append(ctx context.Context, msg *types.ChatMessage) (*types.ChatMessage, error) {
	normalized, err := normalizeMessage(msg)
	if err != nil {
		return nil, err
	}
	var out *types.ChatMessage
	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := callBucket(tx, bucketChat, normalized.CallID)
		if err != nil {
			return err
		}
		if err := b.ForEach(func(_, v []byte) error {
			var existing types.ChatMessage
			if err := json.Unmarshal(v, &existing); err != nil {
				return err
			}
			if existing.ID == normalized.ID {
				out = cloneMessage(&existing)
			}
			return nil
		}); err != nil {
			return err
		}
		if out != nil {
			return nil
		}
		raw, err := json.Marshal(normalized)
		if err != nil {
			return err
		}
		out = cloneMessage(normalized)
		return putNext(b, raw)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type bboltTranscriptStore struct {
	db *bolt.DB
}

func (s *bboltTranscriptStore) List(ctx context.Context, callID string) ([]*types.TranscriptEntry, error) {
	out := make([]*types.TranscriptEntry, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return forEachInCall(tx, bucketTranscripts, callID, func(v []byte) error {
			var entry types.TranscriptEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			out = append(out, &entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *bboltTranscriptStore) Append(ctx context.Context, entry *types.TranscriptEntry) (*types.TranscriptEntry, error) {
	normalized, err := normalizeSegment(entry)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := callBucket(tx, bucketTranscripts, normalized.CallID)
		if err != nil {
			return err
		}
		return putNext(b, raw)
	}); err != nil {
		return nil, err
	}
	copy := *normalized
	return &copy, nil
}

func callBucket(tx *bolt.Tx, root []byte, callID string) (*bolt.Bucket, error) {
	parent := tx.Bucket(root)
	if parent == nil {
		return nil, errors.New(string(root) + " bucket missing")
	}
	return parent.CreateBucketIfNotExists([]byte(callID))
}

func forEachInCall(tx *bolt.Tx, root []byte, callID string, fn func(v []byte) error) error {
	parent := tx.Bucket(root)
	if parent == nil {
		return nil
	}
	b := parent.Bucket([]byte(callID))
	if b == nil {
		return nil
	}
	return b.ForEach(func(_, v []byte) error {
		return fn(v)
	})
}

func putNext(b *bolt.Bucket, raw []byte) error {
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return b.Put(key, raw)
}
