// Package notesstore holds the authoritative in-memory note collection and
// the active-note selection, mirrored to persistent storage on every
// mutation. Persistence is write-through: there is nothing to flush on
// shutdown.
package notesstore

import (
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mrshanahan/notes-local/internal/utils"
	"github.com/mrshanahan/notes-local/pkg/notes"
)

// ErrNoActiveNote is returned by DeleteActive when no note is selected.
var ErrNoActiveNote = errors.New("no active note")

// DefaultAutosaveDelay is the quiet period after the last field change
// before a scheduled update commits.
const DefaultAutosaveDelay = 500 * time.Millisecond

// Storage is the key-value persistence boundary. The store keeps the whole
// collection under a single key as a JSON array.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key string, value string) error
}

type pendingFields struct {
	Title   string
	Content string
}

type Store struct {
	mu            sync.Mutex
	storage       Storage
	key           string
	collection    []*notes.Note
	activeID      string
	autosaveDelay time.Duration
	pendingTimer  *time.Timer
	pending       *pendingFields
}

func New(storage Storage, key string) *Store {
	return &Store{
		storage:       storage,
		key:           key,
		collection:    []*notes.Note{},
		autosaveDelay: DefaultAutosaveDelay,
	}
}

// SetAutosaveDelay overrides the debounce quiet period.
func (s *Store) SetAutosaveDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autosaveDelay = d
}

// Load reads the persisted collection. Missing or corrupt data is treated
// as an empty collection and logged; Load never fails past this boundary.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collection = []*notes.Note{}
	raw, found, err := s.storage.Get(s.key)
	if err != nil {
		slog.Error("failed to read persisted notes, starting with empty collection",
			"key", s.key,
			"err", err)
		return
	}
	if !found {
		return
	}

	var loaded []*notes.Note
	if err := json.Unmarshal([]byte(raw), &loaded); err != nil {
		slog.Error("persisted notes are corrupt, starting with empty collection",
			"key", s.key,
			"err", err)
		return
	}
	if loaded != nil {
		s.collection = loaded
	}
}

// Save persists the current collection immediately.
func (s *Store) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persist()
}

// Create appends a new empty note, makes it active, persists, and returns
// the new note's id.
func (s *Store) Create() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPending()
	n := notes.NewNote("", "")
	s.collection = append(s.collection, n)
	s.activeID = n.ID
	s.persist()
	return n.ID
}

// SetActive selects the note to bind edits to. Unknown ids are a no-op;
// the return value reports whether the id existed.
func (s *Store) SetActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lookup(id) == nil {
		return false
	}
	if id != s.activeID {
		// A pending commit holds field values for the previous selection;
		// letting it fire would write them over the new one.
		s.cancelPending()
	}
	s.activeID = id
	return true
}

// ActiveID returns the currently selected note id, or "" when none.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a copy of the active note, or nil when none is selected.
func (s *Store) Active() *notes.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(s.activeID)
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// Get returns a copy of the note with the given id, or nil.
func (s *Store) Get(id string) *notes.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.lookup(id)
	if n == nil {
		return nil
	}
	c := *n
	return &c
}

// UpdateActiveFromFields is the central mutation. With no active note it
// creates one from the fields, unless both are blank (idle autosave ticks
// must not litter the collection with empty notes). With an active note it
// overwrites title and content unconditionally: editing an existing note
// down to empty fields is a valid state. Returns the affected note's id
// and whether anything was committed.
func (s *Store) UpdateActiveFromFields(title string, content string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		if utils.IsBlank(title) && utils.IsBlank(content) {
			return "", false
		}
		n := notes.NewNote(title, content)
		s.collection = append(s.collection, n)
		s.activeID = n.ID
		s.persist()
		return n.ID, true
	}

	n := s.lookup(s.activeID)
	if n == nil {
		// Active id points at a deleted note; treat as no selection.
		s.activeID = ""
		return "", false
	}
	n.Title = title
	n.Content = content
	n.Updated = notes.Now()
	s.persist()
	return n.ID, true
}

// ScheduleUpdate debounces UpdateActiveFromFields: any previously pending
// commit is cancelled, never executed, and a single new commit is scheduled
// for the configured quiet period with these field values.
func (s *Store) ScheduleUpdate(title string, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
	}
	s.pending = &pendingFields{Title: title, Content: content}
	var timer *time.Timer
	timer = time.AfterFunc(s.autosaveDelay, func() {
		s.mu.Lock()
		if s.pendingTimer != timer {
			// Superseded or flushed between firing and running; the
			// cancelled commit must never execute.
			s.mu.Unlock()
			return
		}
		s.pendingTimer = nil
		s.pending = nil
		s.mu.Unlock()
		s.UpdateActiveFromFields(title, content)
	})
	s.pendingTimer = timer
}

// Flush commits a pending scheduled update immediately, if there is one.
// Export calls this so the file reflects the latest keystrokes.
func (s *Store) Flush() {
	s.mu.Lock()
	if s.pendingTimer == nil {
		s.mu.Unlock()
		return
	}
	s.pendingTimer.Stop()
	fields := *s.pending
	s.pendingTimer = nil
	s.pending = nil
	s.mu.Unlock()

	s.UpdateActiveFromFields(fields.Title, fields.Content)
}

// DeleteActive removes the selected note and clears the selection. The
// confirmation step lives with the caller; by the time this runs the user
// has already agreed.
func (s *Store) DeleteActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeID == "" {
		return ErrNoActiveNote
	}
	// A pending commit for the deleted note must not fire afterwards: with
	// no selection left it would recreate the note from the captured
	// fields.
	s.cancelPending()
	s.collection = removeNote(s.activeID, s.collection)
	s.activeID = ""
	s.persist()
	return nil
}

// ClearAll empties the collection, drops the selection and any pending
// autosave, and persists the empty state.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelPending()
	s.collection = []*notes.Note{}
	s.activeID = ""
	s.persist()
}

// Search returns a lazy, restartable sequence of notes whose title or
// content contains query, case-insensitively. An empty query yields the
// whole collection in insertion order. Each range over the sequence scans
// a fresh snapshot; the store is never mutated.
func (s *Store) Search(query string) iter.Seq[*notes.Note] {
	q := strings.ToLower(query)
	return func(yield func(*notes.Note) bool) {
		for _, n := range s.List() {
			if q != "" &&
				!strings.Contains(strings.ToLower(n.Title), q) &&
				!strings.Contains(strings.ToLower(n.Content), q) {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// AppendBatch appends imported drafts (each already carrying a fresh id
// and timestamp) and persists once for the whole batch.
func (s *Store) AppendBatch(drafts []*notes.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(drafts) == 0 {
		return
	}
	s.collection = append(s.collection, drafts...)
	s.persist()
}

// List returns a copy of the collection in insertion order.
func (s *Store) List() []*notes.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make([]*notes.Note, len(s.collection))
	for i, n := range s.collection {
		c := *n
		snapshot[i] = &c
	}
	return snapshot
}

// Len reports the number of notes in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collection)
}

// Private

// persist writes the full collection under the store's key. Write failures
// are logged and swallowed: the in-memory state remains the source of
// truth for the rest of the session. Callers must hold the lock.
func (s *Store) persist() {
	encoded, err := json.Marshal(s.collection)
	if err != nil {
		slog.Error("failed to encode notes for persistence", "err", err)
		return
	}
	if err := s.storage.Set(s.key, string(encoded)); err != nil {
		slog.Error("failed to persist notes, in-memory state remains authoritative",
			"key", s.key,
			"err", err)
	}
}

// cancelPending drops any scheduled commit without executing it. Callers
// must hold the lock.
func (s *Store) cancelPending() {
	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
		s.pendingTimer = nil
		s.pending = nil
	}
}

func (s *Store) lookup(id string) *notes.Note {
	if id == "" {
		return nil
	}
	for _, n := range s.collection {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func removeNote(id string, collection []*notes.Note) []*notes.Note {
	var foundIdx int = -1
	for i, n := range collection {
		if n.ID == id {
			foundIdx = i
			break
		}
	}
	if foundIdx >= 0 {
		collection = append(collection[:foundIdx], collection[foundIdx+1:]...)
	}
	return collection
}
