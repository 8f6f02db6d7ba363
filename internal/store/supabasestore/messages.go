// Package supabasestore keeps chat messages in a Supabase project through PostgREST.
package supabasestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const messagesTable = "chat_messages"

type Config struct {
	URL    string
	APIKey string
}

// MessageStore implements chat.MessageStore. The PostgREST client has no
// context support, so ctx is only checked before each request.
type MessageStore struct {
	client *supabase.Client
	table  string
}

var (
	_ chat.MessageStore    = (*MessageStore)(nil)
	_ chat.MessageSearcher = (*MessageStore)(nil)
)

func New(cfg Config) (*MessageStore, error) {
	if cfg.URL == "" {
		return nil, errors.New("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("supabase API key is required")
	}
	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &MessageStore{client: client, table: messagesTable}, nil
}

func (s *MessageStore) Append(ctx context.Context, sessionID string, role chat.Role, content string) (*chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	row := chat.Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	var inserted []chat.Message
	_, err = s.client.From(s.table).
		Insert(row, false, "", "representation", "").
		ExecuteTo(&inserted)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if len(inserted) == 0 {
		return &row, nil
	}
	return &inserted[0], nil
}

func (s *MessageStore) ListBySession(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []chat.Message
	_, err := s.client.From(s.table).
		Select("*", "", false).
		Eq("session_id", sessionID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&out)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if out == nil {
		out = []chat.Message{}
	}
	return out, nil
}

func (s *MessageStore) DeleteBySession(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(s.table).
		Delete("", "").
		Eq("session_id", sessionID).
		Execute()
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	return nil
}

// Search runs a case-insensitive content match across the sessions, newest first.
func (s *MessageStore) Search(ctx context.Context, sessionIDs []string, query string, limit int) ([]chat.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []chat.Message
	_, err := s.client.From(s.table).
		Select("*", "", false).
		In("session_id", sessionIDs).
		Ilike("content", "*"+ilikeEscaper.Replace(query)+"*").
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Order("id", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&out)
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	if out == nil {
		out = []chat.Message{}
	}
	return out, nil
}

// ilikeEscaper keeps the user's text literal inside a PostgREST ilike pattern.
var ilikeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`, "*", `\*`)
