package collection

import (
	"errors"
	"sync"
	"testing"

	"copacabana/pkg/models"
	"copacabana/pkg/store"
)

// recorder captures published events per namespace for assertions.
type recorder struct {
	mu     sync.Mutex
	events map[string][]models.ChangeEvent
}

func newRecorder() *recorder {
	return &recorder{events: map[string][]models.ChangeEvent{}}
}

func (r *recorder) Publish(namespace string, ev models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[namespace] = append(r.events[namespace], ev)
}

func (r *recorder) in(namespace string) []models.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChangeEvent(nil), r.events[namespace]...)
}

func setup(t *testing.T) (*Store, *recorder) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("store.Close: %v", err)
		}
	})
	rec := newRecorder()
	return New(rec), rec
}

func mustCreate(t *testing.T, s *Store, ns, coll string, res models.Resource) models.Resource {
	t.Helper()
	out, err := s.Create(ns, coll, "", res)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return out
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	s, _ := setup(t)

	for want := int64(1); want <= 5; want++ {
		got := mustCreate(t, s, "app", "todo", models.Resource{"title": "x"})
		if got.ID() != want {
			t.Fatalf("create #%d assigned id %d", want, got.ID())
		}
	}
}

func TestCreateConcurrentIDsUnique(t *testing.T) {
	s, _ := setup(t)

	const n = 32
	var wg sync.WaitGroup
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := s.Create("app", "todo", "", models.Resource{"n": i})
			if err != nil {
				t.Errorf("Create: %v", err)
				return
			}
			ids[i] = out.ID()
		}(i)
	}
	wg.Wait()
	seen := map[int64]bool{}
	for _, id := range ids {
		if id < 1 || id > n {
			t.Fatalf("id %d out of range", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestCreateRejectsInvalidShapes(t *testing.T) {
	s, rec := setup(t)

	for _, bad := range []models.Resource{nil, {}} {
		if _, err := s.Create("app", "todo", "", bad); !errors.Is(err, ErrInvalidResource) {
			t.Fatalf("Create(%v) err = %v; want ErrInvalidResource", bad, err)
		}
	}
	if len(rec.in("app")) != 0 {
		t.Fatal("rejected create must not publish")
	}
	// no id was burned by the rejected creates
	got := mustCreate(t, s, "app", "todo", models.Resource{"title": "a"})
	if got.ID() != 1 {
		t.Fatalf("first valid create got id %d; want 1", got.ID())
	}
}

func TestGetAfterCreateRoundTrips(t *testing.T) {
	s, _ := setup(t)

	created := mustCreate(t, s, "app", "todo", models.Resource{"title": "a", "done": false})
	got, err := s.Get("app", "todo", created.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID() != created.ID() || got["title"] != "a" || got["done"] != false {
		t.Fatalf("round trip mismatch: %v", got)
	}
}

// Retrieval must not depend on a deleted resource's former position.
func TestGetSurvivesEarlierDeletion(t *testing.T) {
	s, _ := setup(t)

	mustCreate(t, s, "app", "todo", models.Resource{"title": "a"}) // id 1
	b := mustCreate(t, s, "app", "todo", models.Resource{"title": "b"})
	c := mustCreate(t, s, "app", "todo", models.Resource{"title": "c"})

	if err := s.Delete("app", "todo", 1, ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err := s.Get("app", "todo", b.ID())
	if err != nil {
		t.Fatalf("Get(2): %v", err)
	}
	if got["title"] != "b" {
		t.Fatalf("Get(2) returned %v; want title b", got)
	}
	got, err = s.Get("app", "todo", c.ID())
	if err != nil {
		t.Fatalf("Get(3): %v", err)
	}
	if got["title"] != "c" {
		t.Fatalf("Get(3) returned %v; want title c", got)
	}
}

func TestDeleteThenGetNotFound(t *testing.T) {
	s, _ := setup(t)

	r := mustCreate(t, s, "app", "todo", models.Resource{"title": "a"})
	if err := s.Delete("app", "todo", r.ID(), ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("app", "todo", r.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete err = %v; want ErrNotFound", err)
	}
	// deleting an absent id fails the same way, it does not succeed
	if err := s.Delete("app", "todo", r.ID(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete err = %v; want ErrNotFound", err)
	}
}

func TestListShowsGapsInOrder(t *testing.T) {
	s, _ := setup(t)

	const n = 6
	for i := 0; i < n; i++ {
		mustCreate(t, s, "app", "todo", models.Resource{"n": i})
	}
	for _, id := range []int64{2, 5} {
		if err := s.Delete("app", "todo", id, ""); err != nil {
			t.Fatalf("Delete(%d): %v", id, err)
		}
	}
	out, err := s.List("app", "todo")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []int64{1, 3, 4, 6}
	if len(out) != len(want) {
		t.Fatalf("List returned %d resources; want %d", len(out), len(want))
	}
	for i, r := range out {
		if r.ID() != want[i] {
			t.Fatalf("List[%d].id = %d; want %d", i, r.ID(), want[i])
		}
	}
}

func TestListEmptyCollection(t *testing.T) {
	s, _ := setup(t)

	out, err := s.List("never", "written")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected empty list; got %d", len(out))
	}
}

func TestUpdateForcesPathID(t *testing.T) {
	s, _ := setup(t)

	r := mustCreate(t, s, "app", "todo", models.Resource{"title": "a"})
	updated, err := s.Update("app", "todo", r.ID(), "", models.Resource{"id": 99, "title": "b"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.ID() != r.ID() {
		t.Fatalf("updated id = %d; want %d", updated.ID(), r.ID())
	}
	got, err := s.Get("app", "todo", r.ID())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["title"] != "b" || got.ID() != r.ID() {
		t.Fatalf("stored %v; want title b with id %d", got, r.ID())
	}
}

func TestUpdateAbsentNotFound(t *testing.T) {
	s, rec := setup(t)

	if _, err := s.Update("app", "todo", 7, "", models.Resource{"title": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update absent err = %v; want ErrNotFound", err)
	}
	if len(rec.in("app")) != 0 {
		t.Fatal("failed update must not publish")
	}
}

func TestDeletedIDsNeverReused(t *testing.T) {
	s, _ := setup(t)

	// the reference scenario: a, b; delete 1; list; get; create c
	mustCreate(t, s, "app", "todo", models.Resource{"title": "a"})
	mustCreate(t, s, "app", "todo", models.Resource{"title": "b"})
	if err := s.Delete("app", "todo", 1, ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	out, err := s.List("app", "todo")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 1 || out[0].ID() != 2 || out[0]["title"] != "b" {
		t.Fatalf("List = %v; want [{id:2,title:b}]", out)
	}
	if _, err := s.Get("app", "todo", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(1) err = %v; want ErrNotFound", err)
	}
	c := mustCreate(t, s, "app", "todo", models.Resource{"title": "c"})
	if c.ID() != 3 {
		t.Fatalf("create after delete assigned id %d; want 3", c.ID())
	}
}

func TestCollectionsAreIndependent(t *testing.T) {
	s, _ := setup(t)

	a := mustCreate(t, s, "app", "todo", models.Resource{"title": "a"})
	b := mustCreate(t, s, "app", "notes", models.Resource{"title": "n"})
	c := mustCreate(t, s, "other", "todo", models.Resource{"title": "o"})
	if a.ID() != 1 || b.ID() != 1 || c.ID() != 1 {
		t.Fatalf("counters leaked across collections: %d %d %d", a.ID(), b.ID(), c.ID())
	}
}

func TestEventsPerMutation(t *testing.T) {
	s, rec := setup(t)

	r := mustCreate(t, s, "app", "todo", models.Resource{"title": "a"})
	if _, err := s.Update("app", "todo", r.ID(), "tok-1", models.Resource{"title": "b"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Delete("app", "todo", r.ID(), ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	evs := rec.in("app")
	if len(evs) != 3 {
		t.Fatalf("expected 3 events; got %d", len(evs))
	}
	if evs[0].Method != "POST" || evs[0].Collection != "todo" {
		t.Fatalf("create event = %+v", evs[0])
	}
	if evs[1].Method != "PUT" || evs[1].Token != "tok-1" {
		t.Fatalf("update event = %+v", evs[1])
	}
	if evs[2].Method != "DELETE" {
		t.Fatalf("delete event = %+v", evs[2])
	}
	// delete events carry the removed id
	data, ok := evs[2].Data.(models.Resource)
	if !ok || data.ID() != r.ID() {
		t.Fatalf("delete event data = %v; want id %d", evs[2].Data, r.ID())
	}
	// nothing was published for other namespaces
	if len(rec.in("other")) != 0 {
		t.Fatal("events leaked to another namespace")
	}
}

func TestInvalidNamesRejected(t *testing.T) {
	s, _ := setup(t)

	if _, err := s.List("a:b", "todo"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("List err = %v; want ErrInvalidName", err)
	}
	if _, err := s.Create("app", "", "", models.Resource{"x": 1}); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("Create err = %v; want ErrInvalidName", err)
	}
}

func TestNilBroadcasterIsSafe(t *testing.T) {
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	s := New(nil)
	if _, err := s.Create("app", "todo", "", models.Resource{"x": 1}); err != nil {
		t.Fatalf("Create with nil broadcaster: %v", err)
	}
}
