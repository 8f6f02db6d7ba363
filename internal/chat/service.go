package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// PersonaResolver maps a persona id (preset or the user's own) to its system prompt.
type PersonaResolver interface {
	SystemPrompt(ctx context.Context, userID uint64, personaID string) (string, bool)
}

type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

type Service struct {
	repo             *Repo
	messages         MessageStore
	externalMessages bool
	clients          *ClientResolver
	personas         PersonaResolver
	publisher        JobPublisher
	relay            *Relay
	log              *zap.Logger

	contextWindowSize int
}

type Option func(*Service)

// WithMessageStore keeps messages outside the session database.
func WithMessageStore(ms MessageStore) Option {
	return func(s *Service) {
		s.messages = ms
		s.externalMessages = true
	}
}

func WithClientResolver(r *ClientResolver) Option {
	return func(s *Service) { s.clients = r }
}

func WithPersonas(p PersonaResolver) Option {
	return func(s *Service) { s.personas = p }
}

func WithPublisher(p JobPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithRelayConfig(cfg RelayConfig) Option {
	return func(s *Service) { s.relay = NewRelay(s.messages, s.log, cfg) }
}

func WithContextWindow(n int) Option {
	return func(s *Service) { s.contextWindowSize = n }
}

func NewService(repo *Repo, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		repo:              repo,
		messages:          repo,
		log:               log,
		contextWindowSize: 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clients == nil {
		s.clients = NewClientResolver(nil, nil, log)
	}
	if s.relay == nil {
		s.relay = NewRelay(s.messages, log, RelayConfig{})
	}
	// the store may have changed after the relay option ran
	s.relay.store = s.messages
	if s.contextWindowSize <= 0 || s.contextWindowSize > 100 {
		s.contextWindowSize = 20
	}
	return s
}

func (s *Service) Clients() *ClientResolver { return s.clients }

type CreateSessionInput struct {
	Title                string           `json:"title"`
	PersonaID            string           `json:"persona_id"`
	CustomPersona        *PersonaSnapshot `json:"custom_persona"`
	Tags                 []string         `json:"tags"`
	SystemPromptOverride *string          `json:"system_prompt_override"`
	ModelParams          *ModelParams     `json:"model_params"`
}

func (s *Service) CreateSession(ctx context.Context, userID uint64, in CreateSessionInput) (*Session, error) {
	title := strings.TrimSpace(in.Title)
	personaID := strings.TrimSpace(in.PersonaID)
	if title == "" || personaID == "" {
		return nil, common.Invalid("title and persona_id are required")
	}

	next := 0
	top, ok, err := s.repo.MaxOrderIndex(ctx, userID)
	if err != nil {
		return nil, common.FromDB(err, "session")
	}
	if ok {
		next = top + 1
	}

	sess := &Session{
		ID:                   uuid.NewString(),
		UserID:               userID,
		Title:                title,
		PersonaID:            personaID,
		Tags:                 datatypes.JSONSlice[string](nonNilTags(in.Tags)),
		SystemPromptOverride: in.SystemPromptOverride,
		OrderIndex:           next,
	}
	if in.ModelParams != nil {
		sess.ModelParams = datatypes.NewJSONType(*in.ModelParams)
	}
	if in.CustomPersona != nil {
		raw, err := json.Marshal(in.CustomPersona)
		if err != nil {
			return nil, common.Invalid("invalid custom_persona")
		}
		sess.CustomPersona = datatypes.JSON(raw)
	}

	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, common.FromDB(err, "session")
	}
	return sess, nil
}

// OwnedSession loads a session and checks it belongs to userID. A missing
// session is not_found, a foreign one is authorization.
func (s *Service) OwnedSession(ctx context.Context, userID uint64, sessionID string) (*Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, common.Invalid("session id is required")
	}
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, common.FromDB(err, "session")
	}
	if sess.UserID != userID {
		return nil, common.Forbidden("you do not have access to this session")
	}
	return sess, nil
}

type SessionWithMessages struct {
	*Session
	Messages []Message `json:"messages,omitempty"`
}

type SessionPage struct {
	Sessions []SessionWithMessages `json:"sessions"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
}

func (s *Service) ListSessions(ctx context.Context, userID uint64, page, pageSize int, includeMessages bool) (*SessionPage, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	rows, total, err := s.repo.ListSessions(ctx, userID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, common.FromDB(err, "session")
	}

	out := &SessionPage{Sessions: make([]SessionWithMessages, 0, len(rows)), Total: total, Page: page, PageSize: pageSize}
	for i := range rows {
		item := SessionWithMessages{Session: &rows[i]}
		if includeMessages {
			msgs, err := s.messages.ListBySession(ctx, rows[i].ID)
			if err != nil {
				return nil, common.FromDB(err, "message")
			}
			item.Messages = msgs
		}
		out.Sessions = append(out.Sessions, item)
	}
	return out, nil
}

func (s *Service) GetSession(ctx context.Context, userID uint64, sessionID string) (*SessionWithMessages, error) {
	sess, err := s.OwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, common.FromDB(err, "message")
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return &SessionWithMessages{Session: sess, Messages: msgs}, nil
}

func (s *Service) ListMessages(ctx context.Context, userID uint64, sessionID string) ([]Message, error) {
	if _, err := s.OwnedSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, common.FromDB(err, "message")
	}
	return msgs, nil
}

// SessionPatch is a partial update. Omitted fields are left untouched; an explicit
// null clears the nullable ones.
type SessionPatch struct {
	Title                common.Optional[string]          `json:"title"`
	PersonaID            common.Optional[string]          `json:"persona_id"`
	CustomPersona        common.Optional[PersonaSnapshot] `json:"custom_persona"`
	Tags                 common.Optional[[]string]        `json:"tags"`
	SystemPromptOverride common.Optional[string]          `json:"system_prompt_override"`
	ModelParams          common.Optional[ModelParams]     `json:"model_params"`
	OrderIndex           common.Optional[int]             `json:"order_index"`
}

func (s *Service) UpdateSession(ctx context.Context, userID uint64, sessionID string, patch SessionPatch) (*Session, error) {
	sess, err := s.OwnedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}

	if patch.Title.Set {
		if patch.Title.Null || strings.TrimSpace(patch.Title.Value) == "" {
			return nil, common.Invalid("title cannot be empty")
		}
		updates["title"] = strings.TrimSpace(patch.Title.Value)
	}
	if patch.PersonaID.Set {
		if patch.PersonaID.Null || strings.TrimSpace(patch.PersonaID.Value) == "" {
			return nil, common.Invalid("persona_id cannot be empty")
		}
		updates["persona_id"] = strings.TrimSpace(patch.PersonaID.Value)
	}
	if patch.CustomPersona.Set {
		if patch.CustomPersona.Null {
			updates["custom_persona"] = nil
		} else {
			raw, err := json.Marshal(patch.CustomPersona.Value)
			if err != nil {
				return nil, common.Invalid("invalid custom_persona")
			}
			updates["custom_persona"] = datatypes.JSON(raw)
		}
	}
	if patch.Tags.Set {
		var tags []string
		if !patch.Tags.Null {
			tags = patch.Tags.Value
		}
		updates["tags"] = datatypes.JSONSlice[string](nonNilTags(tags))
	}
	if patch.SystemPromptOverride.Set {
		updates["system_prompt_override"] = patch.SystemPromptOverride.Ptr()
	}
	if patch.ModelParams.Set {
		var mp ModelParams
		if !patch.ModelParams.Null {
			mp = patch.ModelParams.Value
		}
		updates["model_params"] = datatypes.NewJSONType(mp)
	}
	if patch.OrderIndex.Set {
		if patch.OrderIndex.Null {
			return nil, common.Invalid("order_index cannot be null")
		}
		if patch.OrderIndex.Value != sess.OrderIndex {
			taken, err := s.repo.OrderIndexTaken(ctx, userID, patch.OrderIndex.Value, sess.ID)
			if err != nil {
				return nil, common.FromDB(err, "session")
			}
			if taken {
				return nil, common.Invalid("order_index is already used by another session")
			}
		}
		updates["order_index"] = patch.OrderIndex.Value
	}

	if err := s.repo.UpdateSession(ctx, sess.ID, updates); err != nil {
		return nil, common.FromDB(err, "session")
	}
	updated, err := s.repo.GetSession(ctx, sess.ID)
	if err != nil {
		return nil, common.FromDB(err, "session")
	}
	return updated, nil
}

// DeleteSession removes the session and every message it owns.
func (s *Service) DeleteSession(ctx context.Context, userID uint64, sessionID string) error {
	sess, err := s.OwnedSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if s.externalMessages {
		if err := s.messages.DeleteBySession(ctx, sess.ID); err != nil {
			return common.FromDB(err, "message")
		}
	}
	if err := s.repo.DeleteSession(ctx, sess.ID, !s.externalMessages); err != nil {
		return common.FromDB(err, "session")
	}
	return nil
}

// ReorderSessions applies a batch of order index changes atomically. Indices must be
// distinct within the batch and must not collide with the user's other sessions.
func (s *Service) ReorderSessions(ctx context.Context, userID uint64, updates []OrderUpdate) error {
	if len(updates) == 0 {
		return common.Invalid("updates are required")
	}
	ids := make([]string, 0, len(updates))
	seenID := map[string]bool{}
	seenIdx := map[int]bool{}
	for _, u := range updates {
		if u.ID == "" {
			return common.Invalid("session id is required")
		}
		if seenID[u.ID] {
			return common.Invalid("duplicate session id in updates")
		}
		if seenIdx[u.OrderIndex] {
			return common.Invalid("order_index values must be distinct")
		}
		seenID[u.ID] = true
		seenIdx[u.OrderIndex] = true
		ids = append(ids, u.ID)
	}

	found, err := s.repo.SessionsByIDs(ctx, ids)
	if err != nil {
		return common.FromDB(err, "session")
	}
	if len(found) != len(ids) {
		return common.NotFound("session not found")
	}
	for _, sess := range found {
		if sess.UserID != userID {
			return common.Forbidden("you do not have access to this session")
		}
	}

	others, err := s.repo.IndicesOutside(ctx, userID, ids)
	if err != nil {
		return common.FromDB(err, "session")
	}
	for _, idx := range others {
		if seenIdx[idx] {
			return common.Invalid("order_index is already used by another session")
		}
	}

	if err := s.repo.Reorder(ctx, userID, updates); err != nil {
		return common.FromDB(err, "session")
	}
	return nil
}

func nonNilTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (s *Service) persist(ctx context.Context, sessionID string, role Role, content string) (*Message, error) {
	return s.relay.append(ctx, sessionID, role, content)
}
