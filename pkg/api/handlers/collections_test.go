package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"copacabana/pkg/collection"
	"copacabana/pkg/models"
	"copacabana/pkg/store"
)

type recorder struct {
	mu     sync.Mutex
	events []models.ChangeEvent
}

func (r *recorder) Publish(_ string, ev models.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) last(t *testing.T) models.ChangeEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		t.Fatal("no events recorded")
	}
	return r.events[len(r.events)-1]
}

func setup(t *testing.T, envelope bool) (*httptest.Server, *recorder) {
	t.Helper()
	if err := store.Open(t.TempDir()); err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	rec := &recorder{}
	r := mux.NewRouter()
	Register(r, New(collection.New(rec), envelope))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, rec
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, url, nil)
	} else {
		req, err = http.NewRequest(method, url, strings.NewReader(body))
	}
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf
}

func TestGreeting(t *testing.T) {
	srv, _ := setup(t, false)
	resp, body := do(t, http.MethodGet, srv.URL+"/", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if string(body) != "Hello Copacabana !" {
		t.Fatalf("body = %q", body)
	}
}

func TestCreateAndGet(t *testing.T) {
	srv, _ := setup(t, false)

	resp, body := do(t, http.MethodPost, srv.URL+"/app/todo", `{"title":"a"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", resp.StatusCode, body)
	}
	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if created["id"] != float64(1) || created["title"] != "a" {
		t.Fatalf("created = %v", created)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/app/todo/1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["title"] != "a" || got["id"] != float64(1) {
		t.Fatalf("got = %v", got)
	}
}

func TestCreateInvalidBody(t *testing.T) {
	srv, _ := setup(t, false)

	for _, bad := range []string{"", "null", "[]", `{}`, `"str"`, "not json"} {
		resp, body := do(t, http.MethodPost, srv.URL+"/app/todo", bad)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", bad, resp.StatusCode)
		}
		var e map[string]string
		if err := json.Unmarshal(body, &e); err != nil {
			t.Fatalf("unmarshal error body: %v", err)
		}
		if e["code"] != "resource-shape invalid" {
			t.Fatalf("code = %q", e["code"])
		}
	}
}

func TestGetNotFound(t *testing.T) {
	srv, _ := setup(t, false)

	resp, body := do(t, http.MethodGet, srv.URL+"/app/todo/9", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var e map[string]string
	_ = json.Unmarshal(body, &e)
	if e["code"] != "resource not found" {
		t.Fatalf("code = %q", e["code"])
	}
}

func TestUpdateFlow(t *testing.T) {
	srv, _ := setup(t, false)

	do(t, http.MethodPost, srv.URL+"/app/todo", `{"title":"a"}`)
	resp, body := do(t, http.MethodPut, srv.URL+"/app/todo/1", `{"id":42,"title":"b"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d body=%s", resp.StatusCode, body)
	}
	var got map[string]any
	_ = json.Unmarshal(body, &got)
	if got["id"] != float64(1) || got["title"] != "b" {
		t.Fatalf("updated = %v; id must be forced to the path id", got)
	}

	resp, _ = do(t, http.MethodPut, srv.URL+"/app/todo/9", `{"title":"x"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("update absent status = %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodPut, srv.URL+"/app/todo/1", `{}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("update empty status = %d", resp.StatusCode)
	}
}

func TestDeleteFlow(t *testing.T) {
	srv, _ := setup(t, false)

	do(t, http.MethodPost, srv.URL+"/app/todo", `{"title":"a"}`)
	resp, body := do(t, http.MethodDelete, srv.URL+"/app/todo/1", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	if len(body) != 0 {
		t.Fatalf("delete body = %q; want empty", body)
	}
	resp, _ = do(t, http.MethodDelete, srv.URL+"/app/todo/1", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d", resp.StatusCode)
	}
}

func TestListAfterMutations(t *testing.T) {
	srv, _ := setup(t, false)

	do(t, http.MethodPost, srv.URL+"/app/todo", `{"title":"a"}`)
	do(t, http.MethodPost, srv.URL+"/app/todo", `{"title":"b"}`)
	do(t, http.MethodDelete, srv.URL+"/app/todo/1", "")

	resp, body := do(t, http.MethodGet, srv.URL+"/app/todo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list []map[string]any
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list) != 1 || list[0]["id"] != float64(2) || list[0]["title"] != "b" {
		t.Fatalf("list = %v", list)
	}
}

func TestTokenPassthrough(t *testing.T) {
	srv, rec := setup(t, false)

	do(t, http.MethodPost, srv.URL+"/app/todo?token=abc123", `{"title":"a"}`)
	ev := rec.last(t)
	if ev.Method != "POST" || ev.Token != "abc123" || ev.Collection != "todo" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestEnvelopeMode(t *testing.T) {
	srv, _ := setup(t, true)

	_, body := do(t, http.MethodPost, srv.URL+"/app/todo", `{"title":"a"}`)
	var wrapped map[string]map[string]any
	if err := json.Unmarshal(body, &wrapped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data, ok := wrapped["success"]["data"].(map[string]any)
	if !ok || data["title"] != "a" {
		t.Fatalf("wrapped body = %s", body)
	}
}

func TestInvalidIDSegment(t *testing.T) {
	srv, _ := setup(t, false)

	// non-numeric id does not match the id route; it reads as a
	// collection named "todo" in namespace "app" containing nothing
	resp, _ := do(t, http.MethodGet, srv.URL+"/app/todo/abc", "")
	if resp.StatusCode == http.StatusOK {
		t.Fatal("non-numeric id should not resolve a resource")
	}
}
