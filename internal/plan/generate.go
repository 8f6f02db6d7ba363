package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/suPer8Hu/codesensei/internal/ai"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
)

const defaultStageDays = 7

var jsonArray = regexp.MustCompile(`(?s)\[.*\]`)

type GenerateInput struct {
	Topic string `json:"topic" binding:"required"`
	Level string `json:"level"`
	chat.ProviderRequest
}

// stage is one element of the model's JSON answer.
type stage struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	DurationDays int    `json:"duration_days"`
}

func generatePrompt(topic, level string) string {
	if level == "" {
		level = "beginner"
	}
	return fmt.Sprintf(`Create a learning plan about %q for someone whose current level is %q.
Produce 3-5 key learning stages.
Return a JSON array; each element has the fields: title (string), description (string), category (one of 'frontend', 'backend', 'algorithm', 'soft-skills'), duration_days (number).
Return only the JSON array and nothing else.`, topic, level)
}

// Generate asks the model for plan stages and stores them back to back starting today.
// An answer without a parseable JSON array yields no plans.
func (s *Service) Generate(ctx context.Context, userID uint64, in GenerateInput) ([]Plan, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return nil, common.Invalid("topic is required")
	}
	if s.clients == nil {
		return nil, common.Unavailable("plan generation is not configured", nil)
	}
	client, cfg, err := s.clients.ClientFor(ctx, userID, in.ProviderRequest)
	if err != nil {
		return nil, err
	}

	temp := 0.7
	resp, err := client.Chat(ctx, ai.ChatRequest{
		Messages:    []ai.Message{{Role: "user", Content: generatePrompt(topic, strings.TrimSpace(in.Level))}},
		Temperature: &temp,
	})
	if err != nil {
		return nil, common.Upstream(err.Error(), err)
	}

	stages, ok := parseStages(resp.Content)
	if !ok {
		s.log.Warn("plan answer is not a JSON array",
			zap.Uint64("user_id", userID),
			zap.String("provider", string(cfg.Provider)),
		)
		return []Plan{}, nil
	}

	day := s.now()
	out := make([]Plan, 0, len(stages))
	for _, st := range stages {
		days := st.DurationDays
		if days <= 0 {
			days = defaultStageDays
		}
		end := day.AddDate(0, 0, days)
		title := strings.TrimSpace(st.Title)
		if title == "" {
			title = topic
		}
		p := &Plan{
			ID:          uuid.NewString(),
			UserID:      userID,
			Title:       title,
			Description: strings.TrimSpace(st.Description),
			Category:    normalizeCategory(st.Category),
			Status:      StatusPending,
			StartDate:   day.Format(dateLayout),
			EndDate:     end.Format(dateLayout),
		}
		if err := s.repo.Create(ctx, p); err != nil {
			return nil, common.FromDB(err, "plan")
		}
		out = append(out, *p)
		day = end
	}
	return out, nil
}

func parseStages(content string) ([]stage, bool) {
	raw := jsonArray.FindString(content)
	if raw == "" {
		return nil, false
	}
	var stages []stage
	if err := json.Unmarshal([]byte(raw), &stages); err != nil {
		return nil, false
	}
	return stages, true
}
