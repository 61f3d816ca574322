package notesstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrshanahan/notes-local/pkg/notes"
)

// MockStorage implements Storage in memory and records writes.
type MockStorage struct {
	values   map[string]string
	setCalls int
	getErr   error
	setErr   error
}

func NewMockStorage() *MockStorage {
	return &MockStorage{values: map[string]string{}}
}

func (m *MockStorage) Get(key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MockStorage) Set(key string, value string) error {
	m.setCalls++
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func newTestStore() (*Store, *MockStorage) {
	storage := NewMockStorage()
	s := New(storage, "test_notes")
	s.Load()
	return s, storage
}

func TestStore_CreateMakesActive(t *testing.T) {
	s, storage := newTestStore()

	id := s.Create()
	require.NotEmpty(t, id)
	assert.Equal(t, id, s.ActiveID())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, storage.setCalls)

	n := s.Active()
	require.NotNil(t, n)
	assert.Equal(t, "", n.Title)
	assert.Equal(t, "", n.Content)
	assert.NotZero(t, n.Updated)
}

func TestStore_IDsStayUnique(t *testing.T) {
	s, _ := newTestStore()

	for i := 0; i < 20; i++ {
		s.Create()
		s.UpdateActiveFromFields("title", "content")
		if i%3 == 0 {
			require.NoError(t, s.DeleteActive())
		}
	}

	seen := map[string]bool{}
	for _, n := range s.List() {
		assert.False(t, seen[n.ID], "duplicate id: %s", n.ID)
		seen[n.ID] = true
	}
}

func TestStore_LoadRoundTrip(t *testing.T) {
	s, storage := newTestStore()
	s.Create()
	s.UpdateActiveFromFields("A", "x")

	reloaded := New(storage, "test_notes")
	reloaded.Load()
	require.Equal(t, 1, reloaded.Len())
	n := reloaded.List()[0]
	assert.Equal(t, "A", n.Title)
	assert.Equal(t, "x", n.Content)
	assert.Equal(t, "", reloaded.ActiveID(), "selection is not persisted")
}

func TestStore_LoadCorruptDataStartsEmpty(t *testing.T) {
	storage := NewMockStorage()
	storage.values["test_notes"] = "{not json"

	s := New(storage, "test_notes")
	s.Load()
	assert.Equal(t, 0, s.Len())
}

func TestStore_LoadReadErrorStartsEmpty(t *testing.T) {
	storage := NewMockStorage()
	storage.getErr = errors.New("storage unavailable")

	s := New(storage, "test_notes")
	s.Load()
	assert.Equal(t, 0, s.Len())
}

func TestStore_PersistFailureKeepsMemoryState(t *testing.T) {
	s, storage := newTestStore()
	storage.setErr = errors.New("quota exceeded")

	id := s.Create()
	assert.Equal(t, 1, s.Len(), "in-memory state survives a failed write")
	assert.Equal(t, id, s.ActiveID())

	// Once storage recovers, an explicit save lands the full state.
	storage.setErr = nil
	s.Save()
	reloaded := New(storage, "test_notes")
	reloaded.Load()
	assert.Equal(t, 1, reloaded.Len())
}

func TestStore_SetActiveUnknownIDIsNoop(t *testing.T) {
	s, _ := newTestStore()
	id := s.Create()

	assert.False(t, s.SetActive("nope"))
	assert.Equal(t, id, s.ActiveID())
}

func TestStore_UpdateActiveFromFields_NoActiveBlankFieldsDoesNothing(t *testing.T) {
	s, storage := newTestStore()

	_, committed := s.UpdateActiveFromFields("", "   \n\t")
	assert.False(t, committed)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, storage.setCalls, "no persistence write for an idle tick")
}

func TestStore_UpdateActiveFromFields_NoActiveCreatesNote(t *testing.T) {
	s, _ := newTestStore()

	id, committed := s.UpdateActiveFromFields("Hello", "")
	assert.True(t, committed)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, id, s.ActiveID())
	assert.Equal(t, "Hello", s.Active().Title)
}

func TestStore_UpdateActiveFromFields_ActiveAllowsEmptyFields(t *testing.T) {
	s, _ := newTestStore()
	s.Create()
	s.UpdateActiveFromFields("A", "x")
	before := s.Active().Updated

	time.Sleep(2 * time.Millisecond)
	_, committed := s.UpdateActiveFromFields("", "")
	assert.True(t, committed, "existing note may be edited down to empty")
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "", s.Active().Title)
	assert.GreaterOrEqual(t, s.Active().Updated, before)
}

func TestStore_DeleteActive(t *testing.T) {
	s, _ := newTestStore()
	s.Create()
	require.NoError(t, s.DeleteActive())

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.ActiveID())

	err := s.DeleteActive()
	assert.ErrorIs(t, err, ErrNoActiveNote)
}

func TestStore_ClearAll(t *testing.T) {
	s, _ := newTestStore()
	s.Create()
	s.Create()
	s.ClearAll()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, "", s.ActiveID())
}

func TestStore_Search(t *testing.T) {
	s, _ := newTestStore()
	s.AppendBatch([]*notes.Note{
		notes.NewNote("Groceries", "milk and eggs"),
		notes.NewNote("Work", "quarterly REPORT"),
		notes.NewNote("Ideas", "report on milk futures"),
	})

	collect := func(q string) []string {
		titles := []string{}
		for n := range s.Search(q) {
			titles = append(titles, n.Title)
		}
		return titles
	}

	assert.Equal(t, []string{"Groceries", "Work", "Ideas"}, collect(""))
	assert.Equal(t, []string{"Groceries", "Ideas"}, collect("MILK"))
	assert.Equal(t, []string{"Work", "Ideas"}, collect("report"))
	assert.Equal(t, []string{}, collect("nothing matches this"))

	// The sequence restarts cleanly.
	seq := s.Search("milk")
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	assert.Equal(t, first, second)
}

func TestStore_AppendBatchPersistsOnce(t *testing.T) {
	s, storage := newTestStore()

	s.AppendBatch([]*notes.Note{
		notes.NewNote("A", "x"),
		notes.NewNote("B", "y"),
		notes.NewNote("C", "z"),
	})
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, storage.setCalls)

	s.AppendBatch(nil)
	assert.Equal(t, 1, storage.setCalls, "empty batch does not persist")
}

func TestStore_ScheduleUpdateDebounces(t *testing.T) {
	s, _ := newTestStore()
	s.SetAutosaveDelay(100 * time.Millisecond)

	s.ScheduleUpdate("first", "draft")
	time.Sleep(50 * time.Millisecond)
	s.ScheduleUpdate("second", "draft")

	// 120ms after the first schedule: the first commit was cancelled and
	// the second is still pending.
	time.Sleep(70 * time.Millisecond)
	assert.Equal(t, 0, s.Len())

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, s.Len(), "exactly one commit fires")
	assert.Equal(t, "second", s.List()[0].Title)
}

func TestStore_DeleteActiveCancelsPendingCommit(t *testing.T) {
	s, _ := newTestStore()
	s.SetAutosaveDelay(50 * time.Millisecond)

	s.Create()
	s.ScheduleUpdate("Ghost", "haunted content")
	require.NoError(t, s.DeleteActive())

	// The pending commit captured non-blank fields; firing it with no
	// selection would recreate the deleted note.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, s.Len(), "a confirmed delete must not resurrect the note")
	assert.Equal(t, "", s.ActiveID())
}

func TestStore_SetActiveCancelsPendingCommit(t *testing.T) {
	s, _ := newTestStore()
	s.SetAutosaveDelay(50 * time.Millisecond)

	idA := s.Create()
	s.UpdateActiveFromFields("A", "x")
	idB := s.Create()
	s.UpdateActiveFromFields("B", "y")

	require.True(t, s.SetActive(idA))
	s.ScheduleUpdate("A edited", "x2")
	require.True(t, s.SetActive(idB))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "B", s.Get(idB).Title, "pending edits for A must not land on B")
	assert.Equal(t, "y", s.Get(idB).Content)
	assert.Equal(t, "A", s.Get(idA).Title, "cancelled commit must not execute at all")
	assert.Equal(t, 2, s.Len())
}

func TestStore_SetActiveSameNoteKeepsPendingCommit(t *testing.T) {
	s, _ := newTestStore()
	s.SetAutosaveDelay(50 * time.Millisecond)

	id := s.Create()
	s.ScheduleUpdate("Kept", "still mine")
	require.True(t, s.SetActive(id))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "Kept", s.Get(id).Title, "re-selecting the same note is not a transition")
}

func TestStore_CreateCancelsPendingCommit(t *testing.T) {
	s, _ := newTestStore()
	s.SetAutosaveDelay(50 * time.Millisecond)

	s.ScheduleUpdate("Draft", "typed before creating")
	id := s.Create()

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "", s.Get(id).Title, "pending fields must not overwrite the fresh note")
	assert.Equal(t, "", s.Get(id).Content)
}

func TestStore_ClearAllCancelsPendingCommit(t *testing.T) {
	s, _ := newTestStore()
	s.SetAutosaveDelay(50 * time.Millisecond)

	s.Create()
	s.ScheduleUpdate("Gone", "everything")
	s.ClearAll()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, s.Len())
}

func TestStore_FlushCommitsPendingImmediately(t *testing.T) {
	s, _ := newTestStore()
	s.SetAutosaveDelay(200 * time.Millisecond)

	s.ScheduleUpdate("pending", "body")
	s.Flush()
	require.Equal(t, 1, s.Len())
	assert.Equal(t, "pending", s.List()[0].Title)

	// The cancelled timer must not fire a second commit.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, s.Len())

	// Flush with nothing pending is a no-op.
	s.Flush()
	assert.Equal(t, 1, s.Len())
}
