package nav

import (
	"context"
	"fmt"

	"github.com/suPer8Hu/codesensei/internal/common"
)

const maxBatch = 500

// Import creates every item or none. Errors name the offending position.
func (s *Service) Import(ctx context.Context, userID uint64, in []Input) ([]Item, error) {
	if len(in) == 0 {
		return nil, common.Invalid("items must not be empty")
	}
	if len(in) > maxBatch {
		return nil, common.Invalid(fmt.Sprintf("at most %d items per import", maxBatch))
	}
	out := make([]Item, 0, len(in))
	for i, raw := range in {
		it, err := newItem(userID, raw)
		if err != nil {
			return nil, common.Invalid(fmt.Sprintf("item %d: %s", i, common.MessageOf(err)))
		}
		out = append(out, *it)
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&out, 100).Error; err != nil {
		return nil, common.FromDB(err, "nav item")
	}
	return out, nil
}

// Export returns the user's bookmarks without ids or timestamps, in Import's shape.
func (s *Service) Export(ctx context.Context, userID uint64) ([]Input, error) {
	items, err := s.List(ctx, userID, "", "")
	if err != nil {
		return nil, err
	}
	out := make([]Input, len(items))
	for i, it := range items {
		out[i] = Input{Title: it.Title, Description: it.Description, URL: it.URL, IconURL: it.IconURL, Category: it.Category}
	}
	return out, nil
}

type Statistics struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"by_category"`
}

func (s *Service) Statistics(ctx context.Context, userID uint64) (*Statistics, error) {
	var rows []struct {
		Category string
		N        int64
	}
	err := s.db.WithContext(ctx).Model(&Item{}).
		Select("category, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, common.FromDB(err, "nav item")
	}
	st := &Statistics{ByCategory: make(map[string]int64, len(rows))}
	for _, r := range rows {
		st.ByCategory[r.Category] = r.N
		st.Total += r.N
	}
	return st, nil
}
