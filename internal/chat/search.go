package chat

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/suPer8Hu/codesensei/internal/common"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 200
)

// SearchMessages finds the user's messages containing query, newest first.
// A non-empty sessionID narrows the search to that session.
func (s *Service) SearchMessages(ctx context.Context, userID uint64, query, sessionID string, limit int) ([]Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, common.Invalid("q is required")
	}
	if utf8.RuneCountInString(query) > 200 {
		return nil, common.Invalid("q must be at most 200 characters")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	searcher, ok := s.messages.(MessageSearcher)
	if !ok {
		return nil, common.Unavailable("message search is not supported by this message store", nil)
	}

	var ids []string
	if sessionID != "" {
		if _, err := s.OwnedSession(ctx, userID, sessionID); err != nil {
			return nil, err
		}
		ids = []string{sessionID}
	} else {
		var err error
		if ids, err = s.repo.SessionIDs(ctx, userID); err != nil {
			return nil, common.FromDB(err, "session")
		}
	}
	if len(ids) == 0 {
		return []Message{}, nil
	}

	out, err := searcher.Search(ctx, ids, query, limit)
	if err != nil {
		return nil, common.FromDB(err, "message")
	}
	if out == nil {
		out = []Message{}
	}
	return out, nil
}

// MessageCount counts a session's messages in whichever store holds them.
func (s *Service) MessageCount(ctx context.Context, userID uint64, sessionID string) (int, error) {
	msgs, err := s.ListMessages(ctx, userID, sessionID)
	if err != nil {
		return 0, err
	}
	return len(msgs), nil
}
