package supabasestore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/codesensei/internal/chat"
)

// fakeREST is a tiny in-memory PostgREST serving one table.
type fakeREST struct {
	mu   sync.Mutex
	rows []map[string]any
	reqs []string
}

func (f *fakeREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, r.Method+" "+r.URL.Path)

	if !strings.HasSuffix(r.URL.Path, "/rest/v1/"+messagesTable) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	filter := strings.TrimPrefix(r.URL.Query().Get("session_id"), "eq.")
	switch r.Method {
	case http.MethodPost:
		var body any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var added []map[string]any
		switch v := body.(type) {
		case map[string]any:
			added = append(added, v)
		case []any:
			for _, it := range v {
				added = append(added, it.(map[string]any))
			}
		}
		f.rows = append(f.rows, added...)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(added)
	case http.MethodGet:
		q := r.URL.Query()
		sessions := map[string]bool{filter: true}
		if in, ok := strings.CutPrefix(q.Get("session_id"), "in.("); ok {
			sessions = map[string]bool{}
			for _, id := range strings.Split(strings.TrimSuffix(in, ")"), ",") {
				sessions[id] = true
			}
		}
		needle := strings.ToLower(strings.Trim(strings.TrimPrefix(q.Get("content"), "ilike."), "*"))
		out := []map[string]any{}
		for _, row := range f.rows {
			if !sessions[row["session_id"].(string)] {
				continue
			}
			if needle != "" && !strings.Contains(strings.ToLower(row["content"].(string)), needle) {
				continue
			}
			out = append(out, row)
		}
		if strings.HasPrefix(q.Get("order"), "created_at.desc") {
			slices.Reverse(out)
		}
		if n, err := strconv.Atoi(q.Get("limit")); err == nil && n < len(out) {
			out = out[:n]
		}
		_ = json.NewEncoder(w).Encode(out)
	case http.MethodDelete:
		kept := f.rows[:0]
		for _, row := range f.rows {
			if row["session_id"] != filter {
				kept = append(kept, row)
			}
		}
		f.rows = kept
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T) (*MessageStore, *fakeREST) {
	t.Helper()
	fake := &fakeREST{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := New(Config{URL: srv.URL, APIKey: "service-key"})
	require.NoError(t, err)
	return store, fake
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://localhost"})
	assert.Error(t, err)
}

func TestAppendListDelete(t *testing.T) {
	ctx := context.Background()
	store, fake := newTestStore(t)

	first, err := store.Append(ctx, "s1", chat.RoleUser, "hello")
	require.NoError(t, err)
	assert.Len(t, first.ID, 26)
	assert.Equal(t, chat.RoleUser, first.Role)

	_, err = store.Append(ctx, "s1", chat.RoleModel, "hi there")
	require.NoError(t, err)
	_, err = store.Append(ctx, "s2", chat.RoleUser, "other session")
	require.NoError(t, err)

	msgs, err := store.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "hi there", msgs[1].Content)

	require.NoError(t, store.DeleteBySession(ctx, "s1"))
	msgs, err = store.ListBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	msgs, err = store.ListBySession(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	assert.NotEmpty(t, fake.reqs)
}

func TestCanceledContext(t *testing.T) {
	store, fake := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Append(ctx, "s1", chat.RoleUser, "hello")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.reqs)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	for _, m := range []struct{ session, content string }{
		{"s1", "How do Goroutines work?"},
		{"s1", "unrelated"},
		{"s2", "goroutine leak"},
		{"s3", "goroutines elsewhere"},
	} {
		_, err := store.Append(ctx, m.session, chat.RoleUser, m.content)
		require.NoError(t, err)
	}

	hits, err := store.Search(ctx, []string{"s1", "s2"}, "goroutine", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "goroutine leak", hits[0].Content)

	hits, err = store.Search(ctx, []string{"s1", "s2"}, "goroutine", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestIlikeEscaping(t *testing.T) {
	assert.Equal(t, `100\% \_x\*`, ilikeEscaper.Replace(`100% _x*`))
}
