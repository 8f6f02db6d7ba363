package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/suPer8Hu/codesensei/internal/ai"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AnalyzeInput struct {
	QuestionID    string `json:"questionId"`
	QuestionTitle string `json:"questionTitle"`
	chat.ProviderRequest
}

func analysisPrompt(title string) string {
	return fmt.Sprintf(`I am a senior frontend engineer. In an interview I was asked %q and answered it wrong.
Write a short technical analysis report in Markdown.

The report should contain:
1. 💡 **Core concept**: what is this question really testing?
2. ⚠️ **Common pitfalls**: why is it easy to get wrong?
3. 🔑 **Model answer**: list the key technical points.
4. 📚 **Further reading**: relevant APIs or source locations.

Keep it concise and suitable for review.`, title)
}

// Analyze produces a Markdown analysis of a missed question. With a question id the
// question must be in the caller's mistake log and the analysis is stored on the record.
func (s *Service) Analyze(ctx context.Context, userID uint64, in AnalyzeInput) (string, error) {
	var record *MistakeRecord
	title := strings.TrimSpace(in.QuestionTitle)

	if id := strings.TrimSpace(in.QuestionID); id != "" {
		m, err := s.repo.MistakeByQuestion(ctx, userID, id)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", common.Invalid("question is not in your mistake log")
		}
		if err != nil {
			return "", common.FromDB(err, "mistake record")
		}
		record = m
		if title == "" {
			q, err := s.repo.GetQuestion(ctx, id)
			if err != nil {
				return "", common.FromDB(err, "question")
			}
			title = q.Title
		}
	}
	if title == "" {
		return "", common.Invalid("questionTitle is required")
	}
	if s.clients == nil {
		return "", common.Unavailable("analysis is not configured", nil)
	}

	client, _, err := s.clients.ClientFor(ctx, userID, in.ProviderRequest)
	if err != nil {
		return "", err
	}
	resp, err := client.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{{Role: "user", Content: analysisPrompt(title)}},
	})
	if err != nil {
		return "", common.Upstream(err.Error(), err)
	}

	if record != nil && resp.Content != "" {
		if err := s.repo.SetAnalysis(ctx, record.ID, resp.Content); err != nil {
			s.log.Error("store mistake analysis failed",
				zap.String("mistake_id", record.ID),
				zap.Error(err),
			)
			return "", common.FromDB(err, "mistake record")
		}
	}
	return resp.Content, nil
}
