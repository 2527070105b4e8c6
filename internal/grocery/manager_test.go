package grocery_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/grocer/internal/grocery"
	"github.com/calvinalkan/grocer/internal/store"
)

var start = time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)

// clock hands out monotonically increasing timestamps, one second apart.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(time.Second)

	return c.now
}

type sequence struct {
	mu sync.Mutex
	n  int
}

func (s *sequence) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.n++

	return fmt.Sprintf("id-%03d", s.n)
}

func newManager(t *testing.T, kv store.KV) *grocery.Manager {
	t.Helper()

	c := &clock{now: start}
	ids := &sequence{}

	return grocery.NewManager(kv, "alice",
		grocery.WithClock(c.Now),
		grocery.WithIDs(ids.Next),
		grocery.WithLocation(time.UTC),
	)
}

func countActive(lists []grocery.List) int {
	n := 0

	for _, l := range lists {
		if l.Status == grocery.StatusActive {
			n++
		}
	}

	return n
}

func TestAddItemsEmptyIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()
	m := newManager(t, kv)

	res, err := m.AddItems(ctx)
	require.NoError(t, err)
	require.False(t, res.Created)
	require.Zero(t, kv.Writes())

	_, err = m.AddItems(ctx, "", "   ")
	require.NoError(t, err)
	require.Zero(t, kv.Writes())

	lists, err := m.Lists(ctx)
	require.NoError(t, err)
	require.Empty(t, lists)

	first, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	_, err = m.AddItems(ctx)
	require.NoError(t, err)

	current, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first.List.UpdatedAt, current.UpdatedAt)
	require.Equal(t, 1, kv.Writes())
}

func TestAddItemsCreatesListThenAppends(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	first, err := m.AddItems(ctx, "milk", " eggs ", "milk")
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, []string{"milk", "eggs"}, first.List.ItemNames())
	require.Equal(t, []string{"milk"}, first.Skipped)
	require.Equal(t, grocery.StatusActive, first.List.Status)
	require.Equal(t, "alice", first.List.OwnerID)
	require.Equal(t, "Grocery List - Mar 14, 2024", first.List.Title)

	second, err := m.AddItems(ctx, "bread", "eggs", "Milk")
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.List.ID, second.List.ID)
	require.Equal(t, []string{"milk", "eggs", "bread", "Milk"}, second.List.ItemNames())
	require.Equal(t, []string{"eggs"}, second.Skipped)
	require.True(t, second.List.UpdatedAt.After(first.List.UpdatedAt))

	ids := map[string]bool{}
	for _, it := range second.List.Items {
		require.False(t, ids[it.ID], "duplicate item id %s", it.ID)
		ids[it.ID] = true
	}
}

func TestAddItemsAllDuplicatesWritesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()
	m := newManager(t, kv)

	_, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	res, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)
	require.Empty(t, res.Added)
	require.Equal(t, []string{"milk"}, res.Skipped)
	require.Equal(t, 1, kv.Writes())
}

func TestAddEntriesKeepsCategory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	res, err := m.AddEntries(ctx, []grocery.Entry{
		{Name: "apples", Category: "Produce"},
		{Name: "widget"},
	})
	require.NoError(t, err)
	require.Equal(t, "Produce", res.Added[0].Category)
	require.Empty(t, res.Added[1].Category)
}

func TestCreateNewListSupersedesActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	old, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	created, err := m.CreateNewList(ctx, "  Weekend BBQ ")
	require.NoError(t, err)
	require.Equal(t, "Weekend BBQ", created.Title)
	require.Equal(t, grocery.StatusActive, created.Status)
	require.Empty(t, created.Items)

	prev, err := m.Get(ctx, old.List.ID)
	require.NoError(t, err)
	require.Equal(t, grocery.StatusCompleted, prev.Status)
	require.NotNil(t, prev.CompletedAt)
	require.Equal(t, created.CreatedAt, *prev.CompletedAt)

	current, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, created.ID, current.ID)

	lists, err := m.Lists(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, countActive(lists))
	require.Equal(t, created.ID, lists[0].ID, "newest list first")
}

func TestAtMostOneActiveListAfterRandomOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())
	rng := rand.New(rand.NewPCG(1, 2))

	for i := range 200 {
		switch rng.IntN(4) {
		case 0:
			_, err := m.CreateNewList(ctx, "")
			require.NoError(t, err)
		case 1, 2:
			_, err := m.AddItems(ctx, fmt.Sprintf("item-%d", rng.IntN(20)))
			require.NoError(t, err)
		case 3:
			_, err := m.CompleteList(ctx)
			if err != nil {
				require.ErrorIs(t, err, grocery.ErrNoActiveList)
			}
		}

		lists, err := m.Lists(ctx)
		require.NoError(t, err)
		require.LessOrEqual(t, countActive(lists), 1, "after op %d", i)
	}
}

func TestConcurrentAddItemsCreateOneList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	const workers = 20

	var wg sync.WaitGroup

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := m.AddItems(ctx, fmt.Sprintf("item-%d", i))
			require.NoError(t, err)
		}()
	}

	wg.Wait()

	lists, err := m.Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	require.Len(t, lists[0].Items, workers)
}

func TestConcurrentManagersShareFileStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	const workers = 8

	var wg sync.WaitGroup

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			// Separate stores and managers, as separate processes would have.
			kv, err := store.OpenFile(dir)
			require.NoError(t, err)

			m := grocery.NewManager(kv, "alice")

			_, err = m.AddItems(ctx, fmt.Sprintf("item-%d", i))
			require.NoError(t, err)
		}()
	}

	wg.Wait()

	kv, err := store.OpenFile(dir)
	require.NoError(t, err)

	lists, err := grocery.NewManager(kv, "alice").Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	require.Len(t, lists[0].Items, workers)
}

func TestToggleItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	_, err := m.ToggleItem(ctx, "nope")
	require.ErrorIs(t, err, grocery.ErrNoActiveList)

	res, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	item, err := m.ToggleItem(ctx, res.Added[0].ID)
	require.NoError(t, err)
	require.True(t, item.IsCompleted)

	item, err = m.ToggleItem(ctx, res.Added[0].ID)
	require.NoError(t, err)
	require.False(t, item.IsCompleted)

	_, err = m.ToggleItem(ctx, "nope")
	require.ErrorIs(t, err, grocery.ErrItemNotFound)
}

func TestToggleItemOnlyTouchesActiveList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	old, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	_, err = m.CreateNewList(ctx, "")
	require.NoError(t, err)

	_, err = m.ToggleItem(ctx, old.Added[0].ID)
	require.ErrorIs(t, err, grocery.ErrItemNotFound)
}

func TestCompleteList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	_, err := m.CompleteList(ctx)
	require.ErrorIs(t, err, grocery.ErrNoActiveList)

	res, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	done, err := m.CompleteList(ctx)
	require.NoError(t, err)
	require.Equal(t, res.List.ID, done.ID)
	require.Equal(t, grocery.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = m.CompleteList(ctx)
	require.ErrorIs(t, err, grocery.ErrNoActiveList)
}

func TestArchiveCurrentThenAddCreatesNewList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	res, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	archived, err := m.ArchiveList(ctx, res.List.ID)
	require.NoError(t, err)
	require.Equal(t, grocery.StatusArchived, archived.Status)
	require.Nil(t, archived.CompletedAt, "archiving directly from active sets no completion time")

	_, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	next, err := m.AddItems(ctx, "eggs")
	require.NoError(t, err)
	require.True(t, next.Created)
	require.NotEqual(t, res.List.ID, next.List.ID)

	still, err := m.Get(ctx, res.List.ID)
	require.NoError(t, err)
	require.Equal(t, grocery.StatusArchived, still.Status)
	require.Equal(t, []string{"milk"}, still.ItemNames())
}

func TestArchiveList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	first, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	second, err := m.CreateNewList(ctx, "")
	require.NoError(t, err)

	archived, err := m.ArchiveList(ctx, first.List.ID)
	require.NoError(t, err)
	require.NotNil(t, archived.CompletedAt, "completed lists keep their completion time")

	current, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok, "archiving another list keeps the current one")
	require.Equal(t, second.ID, current.ID)

	_, err = m.ArchiveList(ctx, first.List.ID)
	require.ErrorIs(t, err, grocery.ErrListArchived)

	_, err = m.ArchiveList(ctx, "missing")
	require.ErrorIs(t, err, grocery.ErrListNotFound)

	_, err = m.ArchiveList(ctx, "")
	require.ErrorIs(t, err, grocery.ErrIDRequired)
}

func TestDeleteList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()
	m := newManager(t, kv)

	res, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	deleted, err := m.DeleteList(ctx, res.List.ID)
	require.NoError(t, err)
	require.Equal(t, res.List.ID, deleted.ID)

	lists, err := m.Lists(ctx)
	require.NoError(t, err)
	require.Empty(t, lists)

	raw, err := kv.Load(ctx, m.Key())
	require.NoError(t, err)
	require.NotContains(t, string(raw), res.List.ID)

	_, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = m.DeleteList(ctx, res.List.ID)
	require.ErrorIs(t, err, grocery.ErrListNotFound)

	_, err = m.Get(ctx, res.List.ID)
	require.ErrorIs(t, err, grocery.ErrListNotFound)
}

func TestRenameList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	res, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	_, err = m.RenameList(ctx, res.List.ID, "   ")
	require.ErrorIs(t, err, grocery.ErrEmptyTitle)

	_, err = m.RenameList(ctx, "missing", "Party")
	require.ErrorIs(t, err, grocery.ErrListNotFound)

	renamed, err := m.RenameList(ctx, res.List.ID, " Party ")
	require.NoError(t, err)
	require.Equal(t, "Party", renamed.Title)
	require.True(t, renamed.UpdatedAt.After(res.List.UpdatedAt))
}

func TestAddItemRejectsDuplicates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()
	m := newManager(t, kv)

	_, err := m.AddItem(ctx, "  ")
	require.ErrorIs(t, err, grocery.ErrEmptyName)

	item, err := m.AddItem(ctx, "milk")
	require.NoError(t, err)
	require.Equal(t, "milk", item.Name)

	writes := kv.Writes()

	_, err = m.AddItem(ctx, " milk ")
	require.ErrorIs(t, err, grocery.ErrDuplicateItem)
	require.Equal(t, writes, kv.Writes(), "rejected add writes nothing")

	current, _, err := m.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"milk"}, current.ItemNames())
}

func TestRemoveAndRenameItem(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	res, err := m.AddItems(ctx, "milk", "eggs")
	require.NoError(t, err)

	_, err = m.RenameItem(ctx, res.Added[0].ID, "eggs")
	require.ErrorIs(t, err, grocery.ErrDuplicateItem)

	renamed, err := m.RenameItem(ctx, res.Added[0].ID, "oat milk")
	require.NoError(t, err)
	require.Equal(t, "oat milk", renamed.Name)
	require.Equal(t, res.Added[0].ID, renamed.ID)

	removed, err := m.RemoveItem(ctx, res.Added[1].ID)
	require.NoError(t, err)
	require.Equal(t, "eggs", removed.Name)

	current, _, err := m.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"oat milk"}, current.ItemNames())

	_, err = m.RemoveItem(ctx, res.Added[1].ID)
	require.ErrorIs(t, err, grocery.ErrItemNotFound)
}

func TestAddEntriesToList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	old, err := m.AddItems(ctx, "flour")
	require.NoError(t, err)

	_, err = m.CompleteList(ctx)
	require.NoError(t, err)

	res, err := m.AddEntriesToList(ctx, old.List.ID, []grocery.Entry{
		{Name: "flour", Category: "Pantry"},
		{Name: "sugar", Category: "Pantry"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"flour", "sugar"}, res.List.ItemNames())
	require.Equal(t, []string{"flour"}, res.Skipped)
	require.Equal(t, grocery.StatusCompleted, res.List.Status)

	_, err = m.ArchiveList(ctx, old.List.ID)
	require.NoError(t, err)

	_, err = m.AddEntriesToList(ctx, old.List.ID, []grocery.Entry{{Name: "salt"}})
	require.ErrorIs(t, err, grocery.ErrListArchived)

	_, err = m.AddEntriesToList(ctx, "missing", []grocery.Entry{{Name: "salt"}})
	require.ErrorIs(t, err, grocery.ErrListNotFound)
}

func TestListsOnAndBetween(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()

	day := func(d int) time.Time { return time.Date(2024, time.May, d, 18, 0, 0, 0, time.UTC) }

	var created []grocery.List

	for _, d := range []int{1, 2, 2, 5} {
		m := grocery.NewManager(kv, "alice",
			grocery.WithClock(func() time.Time { return day(d) }),
			grocery.WithLocation(time.UTC),
		)

		l, err := m.CreateNewList(ctx, "")
		require.NoError(t, err)

		created = append(created, l)
	}

	m := grocery.NewManager(kv, "alice", grocery.WithLocation(time.UTC))

	on, err := m.ListsOn(ctx, time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, on, 2)

	between, err := m.ListsBetween(ctx, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, between, 3, "range bounds are inclusive")

	none, err := m.ListsOn(ctx, day(3))
	require.NoError(t, err)
	require.Empty(t, none)

	// In a zone far enough east, the 18:00 UTC lists fall on the next day.
	tokyo := time.FixedZone("JST", 9*60*60)
	east := grocery.NewManager(kv, "alice", grocery.WithLocation(tokyo))

	shifted, err := east.ListsOn(ctx, time.Date(2024, time.May, 6, 12, 0, 0, 0, tokyo))
	require.NoError(t, err)
	require.Len(t, shifted, 1)
	require.Equal(t, created[3].ID, shifted[0].ID)
}

func TestStats(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newManager(t, store.NewMemory())

	_, err := m.AddItems(ctx, "milk", "eggs")
	require.NoError(t, err)

	_, err = m.CreateNewList(ctx, "")
	require.NoError(t, err)

	_, err = m.AddItems(ctx, "bread")
	require.NoError(t, err)

	stats, err := m.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, grocery.Stats{TotalLists: 2, TotalItems: 3, CompletedLists: 1}, stats)
}

func TestOwnersAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()

	alice := grocery.NewManager(kv, "alice")
	guest := grocery.NewManager(kv, "")

	require.Equal(t, store.GuestOwner, guest.Owner())

	_, err := alice.AddItems(ctx, "milk")
	require.NoError(t, err)

	res, err := guest.AddItems(ctx, "eggs")
	require.NoError(t, err)
	require.True(t, res.Created)
	require.Equal(t, store.GuestOwner, res.List.OwnerID)

	lists, err := alice.Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	require.Equal(t, []string{"milk"}, lists[0].ItemNames())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()
	m := newManager(t, kv)

	res, err := m.AddEntries(ctx, []grocery.Entry{{Name: "apples", Category: "Produce"}, {Name: "milk"}})
	require.NoError(t, err)

	_, err = m.ToggleItem(ctx, res.Added[0].ID)
	require.NoError(t, err)

	_, err = m.CreateNewList(ctx, "Second")
	require.NoError(t, err)

	_, err = m.ArchiveList(ctx, res.List.ID)
	require.NoError(t, err)

	lists, err := m.Lists(ctx)
	require.NoError(t, err)

	data, err := grocery.Encode(lists)
	require.NoError(t, err)

	decoded, err := grocery.Decode(data)
	require.NoError(t, err)

	if diff := cmp.Diff(lists, decoded); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	for _, field := range []string{`"user_id"`, `"isCompleted"`, `"addedAt"`, `"created_at"`, `"updated_at"`, `"completed_at"`, `"status"`, `"category"`} {
		require.Contains(t, string(data), field)
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	lists, err := grocery.Decode(nil)
	require.NoError(t, err)
	require.Empty(t, lists)

	_, err = grocery.Decode([]byte("{not json"))
	require.Error(t, err)

	_, err = grocery.Decode([]byte(`[{"id":"x","status":"paused"}]`))
	require.Error(t, err)

	data, err := grocery.Encode(nil)
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestDecodeRepairsMultipleActiveOnCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()

	raw := `[
		{"id":"a","user_id":"alice","title":"A","items":[],"created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z","status":"active"},
		{"id":"b","user_id":"alice","title":"B","items":[],"created_at":"2024-01-02T00:00:00Z","updated_at":"2024-01-02T00:00:00Z","status":"active"}
	]`
	require.NoError(t, kv.Update(ctx, store.Key("alice"), func([]byte) ([]byte, error) {
		return []byte(strings.TrimSpace(raw)), nil
	}))

	m := newManager(t, kv)

	current, ok, err := m.Current(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "a", current.ID)

	_, err = m.CreateNewList(ctx, "")
	require.NoError(t, err)

	lists, err := m.Lists(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, countActive(lists))
}

func TestFailedOperationWritesNothing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemory()
	m := newManager(t, kv)

	_, err := m.AddItems(ctx, "milk")
	require.NoError(t, err)

	before, err := kv.Load(ctx, m.Key())
	require.NoError(t, err)

	writes := kv.Writes()

	_, err = m.ToggleItem(ctx, "missing")
	require.Error(t, err)
	_, err = m.RenameList(ctx, "missing", "x")
	require.Error(t, err)
	_, err = m.DeleteList(ctx, "missing")
	require.Error(t, err)
	_, err = m.RemoveItem(ctx, "missing")
	require.Error(t, err)

	after, err := kv.Load(ctx, m.Key())
	require.NoError(t, err)
	require.Equal(t, string(before), string(after))
	require.Equal(t, writes, kv.Writes())
}

func TestCanceledContextFailsMutation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := newManager(t, store.NewMemory())

	_, err := m.AddItems(ctx, "milk")
	require.ErrorIs(t, err, context.Canceled)
}
