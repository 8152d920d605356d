package report

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore is an in-memory backing store that counts loads.
type countingStore struct {
	mu    sync.Mutex
	runs  map[string]*Run
	loads int
}

func newCountingStore() *countingStore {
	return &countingStore{runs: make(map[string]*Run)}
}

func (s *countingStore) Save(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *countingStore) Load(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	run, ok := s.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return run, nil
}

func newRun(kind Kind) *Run {
	return &Run{ID: uuid.New().String(), Kind: kind, Status: StatusPass}
}

func TestDiskStore_SaveLoad(t *testing.T) {
	s := NewDiskStore(t.TempDir())

	run := newRun(Single)
	run.Line = `add "Settings" screen`
	run.Model = "llama3:latest"
	run.Artifact = "done"

	require.NoError(t, s.Save(run))

	got, err := s.Load(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Line, got.Line)
	assert.Equal(t, run.Artifact, got.Artifact)
	assert.Equal(t, Single, got.Kind)
}

func TestDiskStore_LazyTempDir(t *testing.T) {
	s := NewDiskStore("")
	run := newRun(Single)
	require.NoError(t, s.Save(run))

	dir, err := s.Dir()
	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.FileExists(t, dir+"/"+run.ID+".json")
}

func TestDiskStore_NotFound(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	_, err := s.Load(uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiskStore_RejectsPathLikeIDs(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	_, err := s.Load("../../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid run id")
}

func TestLRUStore_HitAvoidsBackingStore(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	run := newRun(Single)
	require.NoError(t, s.Save(run))

	got, err := s.Load(run.ID)
	require.NoError(t, err)
	assert.Same(t, run, got)
	assert.Equal(t, 0, back.loads)
}

func TestLRUStore_EvictsLeastRecentlyUsed(t *testing.T) {
	back := newCountingStore()
	s := NewLRUStore(2, back)

	a, b, c := newRun(Single), newRun(Single), newRun(Queue)
	require.NoError(t, s.Save(a))
	require.NoError(t, s.Save(b))

	// Touch a so b becomes the eviction candidate.
	_, err := s.Load(a.ID)
	require.NoError(t, err)

	require.NoError(t, s.Save(c))
	assert.Equal(t, 2, s.Len())

	_, err = s.Load(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, back.loads, "a should still be cached")

	_, err = s.Load(b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, back.loads, "b should have been evicted")
}

func TestLRUStore_MissPropagatesError(t *testing.T) {
	s := NewLRUStore(1, newCountingStore())
	_, err := s.Load(uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestNewLRUStore_MinimumCapacity(t *testing.T) {
	s := NewLRUStore(0, newCountingStore())
	require.NoError(t, s.Save(newRun(Single)))
	require.NoError(t, s.Save(newRun(Single)))
	assert.Equal(t, 1, s.Len())
}

func TestSection(t *testing.T) {
	run := newRun(Single)
	run.Line = "schema for users"
	run.Command = `/s/run_sprint.sh "schema for users" mistral:latest`
	run.Stdout = "out"
	run.Stderr = "err"
	run.Artifact = "done"
	run.Warning = "output artifact not found"

	for name, want := range map[string]string{
		"command":  run.Command,
		"stdout":   "out",
		"stderr":   "err",
		"artifact": "done",
	} {
		got, err := Section(run, name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}

	summary, err := Section(run, "")
	require.NoError(t, err)
	assert.Contains(t, summary, "Line: schema for users")
	assert.Contains(t, summary, "Warning: output artifact not found")

	_, err = Section(run, "diff")
	assert.Error(t, err)
}

func TestSummary_Queue(t *testing.T) {
	run := newRun(Queue)
	run.Status = StatusFail
	run.Entries = []QueueEntry{
		{Line: "first", Status: StatusPass},
		{Line: "second", Status: StatusFail, ExitCode: 3, Detail: "exit code 3"},
		{Line: "third", Status: StatusSkipped},
	}

	got := Summary(run)
	assert.Contains(t, got, "Lines: 3 (1 fail, 1 pass, 1 skipped)")
	assert.Contains(t, got, "second (exit code 3)")
}

func TestRun_Expect(t *testing.T) {
	run := newRun(Queue)
	assert.NoError(t, run.Expect(Queue))
	assert.Error(t, run.Expect(Single))
}

func TestDiskStore_List(t *testing.T) {
	s := NewDiskStore(t.TempDir())
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var ids []string
	for i := range 3 {
		run := newRun(Single)
		run.Started = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Save(run))
		ids = append(ids, run.ID)
	}

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID, "most recent first")
	assert.Equal(t, ids[0], runs[2].ID)

	runs, err = s.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestLRUStore_ListDelegates(t *testing.T) {
	disk := NewDiskStore(t.TempDir())
	s := NewLRUStore(1, disk)
	require.NoError(t, s.Save(newRun(Single)))
	require.NoError(t, s.Save(newRun(Queue)))

	runs, err := s.List(0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	_, err = NewLRUStore(1, newCountingStore()).List(0)
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSQLiteStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.FileExists(t, dir+"/"+DBFile)

	older := newRun(Single)
	older.Line = "first"
	older.Started = time.Now().Add(-time.Hour)
	newer := newRun(Queue)
	newer.Started = time.Now()
	newer.Entries = []QueueEntry{{Line: "a", Status: StatusPass}}

	require.NoError(t, s.Save(older))
	require.NoError(t, s.Save(newer))

	got, err := s.Load(older.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Line)

	// Saving again replaces the row.
	older.Status = StatusFail
	require.NoError(t, s.Save(older))
	got, err = s.Load(older.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFail, got.Status)

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Len(t, runs[0].Entries, 1)

	runs, err = s.List(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = s.Load(uuid.New().String())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Load("not-a-uuid")
	assert.Error(t, err)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenSQLiteStore(dir)
	require.NoError(t, err)
	run := newRun(Single)
	require.NoError(t, s.Save(run))
	require.NoError(t, s.Close())

	s, err = OpenSQLiteStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, err = s.Load(run.ID)
	assert.NoError(t, err)
}

func TestList(t *testing.T) {
	assert.Equal(t, "No runs recorded.\n", List(nil))

	single := newRun(Single)
	single.Line = "build login"
	queue := newRun(Queue)
	queue.Status = StatusFail
	queue.Entries = []QueueEntry{{Line: "a"}, {Line: "b"}}

	got := List([]*Run{single, queue})
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], single.ID))
	assert.True(t, strings.HasSuffix(lines[0], "build login"))
	assert.Contains(t, lines[1], "fail")
	assert.True(t, strings.HasSuffix(lines[1], "2 lines"))
}
