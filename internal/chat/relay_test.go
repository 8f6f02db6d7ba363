package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/codesensei/internal/ai"
)

var errClientGone = errors.New("client gone")

type recordingSink struct {
	mu     sync.Mutex
	events []string
	// fail makes every write after the given number of chunks return an error.
	failAfter int
	chunks    int
	onChunk   func()
}

func (s *recordingSink) add(e string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Chunk(c string) error {
	s.mu.Lock()
	s.chunks++
	n := s.chunks
	s.mu.Unlock()
	if s.failAfter > 0 && n > s.failAfter {
		return errClientGone
	}
	_ = s.add("chunk:" + c)
	if s.onChunk != nil {
		s.onChunk()
	}
	return nil
}

func (s *recordingSink) Error(m string) error { return s.add("error:" + m) }
func (s *recordingSink) Done() error          { return s.add("done") }
func (s *recordingSink) Heartbeat() error     { return s.add("ping") }

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// memStore is an in-memory MessageStore.
type memStore struct {
	mu       sync.Mutex
	msgs     []Message
	failRole Role
}

func (m *memStore) Append(ctx context.Context, sessionID string, role Role, content string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRole == role {
		return nil, errors.New("db down")
	}
	msg := Message{ID: fmt.Sprintf("m%d", len(m.msgs)+1), SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Now()}
	m.msgs = append(m.msgs, msg)
	return &msg, nil
}

func (m *memStore) ListBySession(ctx context.Context, sessionID string) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Message
	for _, msg := range m.msgs {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) DeleteBySession(ctx context.Context, sessionID string) error { return nil }

func (m *memStore) byRole(role Role) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.msgs {
		if msg.Role == role {
			out = append(out, msg.Content)
		}
	}
	return out
}

func newTurn(client ai.Client, sessionID string) *Turn {
	return &Turn{
		UserID:      1,
		SessionID:   sessionID,
		UserContent: "Hi",
		Provider:    ai.DeepSeek,
		Client:      client,
		Request:     ai.ChatRequest{Messages: []ai.Message{{Role: "user", Content: "Hi"}}},
	}
}

func TestRelay_ForwardsInOrderThenDone(t *testing.T) {
	chunks := make([]string, 50)
	want := make([]string, 0, 51)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("f%d ", i)
		want = append(want, "chunk:"+chunks[i])
	}
	want = append(want, "done")

	store := &memStore{}
	sink := &recordingSink{}
	res := NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(&fakeClient{chunks: chunks}, "s1"), sink)

	assert.Equal(t, want, sink.snapshot())
	assert.Equal(t, StateClosed, res.State)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.ModelMessageID)
}

func TestRelay_AccumulationSkipsEmptyFragments(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{}
	fc := &fakeClient{chunks: []string{"Hel", "", "lo, ", "", "world"}}

	res := NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(fc, "s1"), sink)

	assert.Equal(t, "Hello, world", res.Content)
	assert.Equal(t, []string{"Hello, world"}, store.byRole(RoleModel))
	assert.Equal(t, []string{"chunk:Hel", "chunk:lo, ", "chunk:world", "done"}, sink.snapshot())
}

func TestRelay_EmptyStreamPersistsNoModelTurn(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{}

	res := NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(&fakeClient{}, "s1"), sink)

	assert.Empty(t, res.Content)
	assert.Empty(t, store.byRole(RoleModel))
	assert.Equal(t, []string{"Hi"}, store.byRole(RoleUser))
	assert.Equal(t, []string{"done"}, sink.snapshot())
}

func TestRelay_ErrorAfterFragments(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{}
	fc := &fakeClient{chunks: []string{"Hel", "lo"}, err: &ai.UpstreamError{Provider: ai.DeepSeek, Status: 500, Message: "upstream exploded"}}

	res := NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(fc, "s1"), sink)

	assert.Equal(t, []string{"chunk:Hel", "chunk:lo", "error:upstream exploded"}, sink.snapshot())
	require.Error(t, res.Err)
	assert.Equal(t, StateClosed, res.State)
	// a partial but non-empty reply is kept
	assert.Equal(t, []string{"Hello"}, store.byRole(RoleModel))
}

func TestRelay_ErrorBeforeAnyFragment(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{}
	fc := &fakeClient{err: errors.New("dial tcp: connection refused")}

	res := NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(fc, "s1"), sink)

	assert.Equal(t, []string{"error:dial tcp: connection refused"}, sink.snapshot())
	require.Error(t, res.Err)
	assert.Empty(t, store.byRole(RoleModel))
	assert.Equal(t, []string{"Hi"}, store.byRole(RoleUser))
}

func TestRelay_UserTurnFailureDoesNotAbort(t *testing.T) {
	store := &memStore{failRole: RoleUser}
	sink := &recordingSink{}

	res := NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(&fakeClient{chunks: []string{"ok"}}, "s1"), sink)

	assert.NoError(t, res.Err)
	assert.Equal(t, []string{"chunk:ok", "done"}, sink.snapshot())
	assert.Equal(t, []string{"ok"}, store.byRole(RoleModel))
}

func TestRelay_ModelTurnFailureStillCompletes(t *testing.T) {
	store := &memStore{failRole: RoleModel}
	sink := &recordingSink{}

	res := NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(&fakeClient{chunks: []string{"ok"}}, "s1"), sink)

	assert.NoError(t, res.Err)
	assert.Empty(t, res.ModelMessageID)
	assert.Equal(t, []string{"chunk:ok", "done"}, sink.snapshot())
}

func TestRelay_EphemeralPersistsNothing(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{}

	NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(&fakeClient{chunks: []string{"a", "b"}}, ""), sink)

	assert.Empty(t, store.msgs)
	assert.Equal(t, []string{"chunk:a", "chunk:b", "done"}, sink.snapshot())
}

func TestRelay_SinkWriteFailureStopsForwarding(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{failAfter: 1}

	res := NewRelay(store, nil, RelayConfig{}).Run(context.Background(), newTurn(&fakeClient{chunks: []string{"a", "b", "c"}}, "s1"), sink)

	assert.True(t, res.ClientGone)
	assert.Equal(t, []string{"chunk:a"}, sink.snapshot())
	assert.Equal(t, []string{"abc"}, store.byRole(RoleModel))
}

func TestRelay_ClientDisconnectPersistsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &memStore{}
	sink := &recordingSink{}
	sink.onChunk = cancel
	fc := &fakeClient{chunks: []string{"Hel"}, block: true}

	res := NewRelay(store, nil, RelayConfig{}).Run(ctx, newTurn(fc, "s1"), sink)

	assert.True(t, res.ClientGone)
	assert.Equal(t, []string{"chunk:Hel"}, sink.snapshot())
	assert.Equal(t, []string{"Hel"}, store.byRole(RoleModel))
}

func TestRelay_TimeoutEmitsError(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{}
	fc := &fakeClient{chunks: []string{"par"}, block: true}

	res := NewRelay(store, nil, RelayConfig{Timeout: 50 * time.Millisecond}).Run(context.Background(), newTurn(fc, "s1"), sink)

	require.Error(t, res.Err)
	assert.Equal(t, errStreamTimedOut, res.Err.Error())
	assert.Equal(t, []string{"chunk:par", "error:stream timed out"}, sink.snapshot())
	assert.Equal(t, []string{"par"}, store.byRole(RoleModel))
}

func TestRelay_Heartbeat(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{}
	fc := &fakeClient{block: true}

	NewRelay(store, nil, RelayConfig{Timeout: 120 * time.Millisecond, Heartbeat: 20 * time.Millisecond}).
		Run(context.Background(), newTurn(fc, "s1"), sink)

	events := sink.snapshot()
	require.NotEmpty(t, events)
	assert.Equal(t, "ping", events[0])
	assert.Equal(t, "error:stream timed out", events[len(events)-1])
}

// Scenario: a fresh session, a three-fragment reply, both turns stored in order.
func TestService_StreamStoresConversation(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, &fakeClient{chunks: []string{"Hel", "lo", "!"}})
	sess := mustCreateSession(t, svc, 1, "Test")

	turn, err := svc.Prepare(ctx, 1, ChatInput{
		SessionID: sess.ID,
		Messages:  []ai.Message{{Role: "user", Content: "Hi"}},
		Provider:  "deepseek",
		APIKey:    "k",
	})
	require.NoError(t, err)

	sink := &recordingSink{}
	res := svc.Stream(ctx, turn, sink)
	require.NoError(t, res.Err)

	msgs, err := repo.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "Hi", msgs[0].Content)
	assert.Equal(t, RoleModel, msgs[1].Role)
	assert.Equal(t, "Hello!", msgs[1].Content)
	assert.Equal(t, []string{"chunk:Hel", "chunk:lo", "chunk:!", "done"}, sink.snapshot())
}
