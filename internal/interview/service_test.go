package interview

import (
	"context"
	"fmt"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/codesensei/internal/ai"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type answerClient struct {
	content string
	calls   int
	prompt  string
}

func (c *answerClient) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	c.calls++
	c.prompt = req.Messages[0].Content
	return &ai.ChatResponse{ID: "x", Content: c.content}, nil
}

func (c *answerClient) StreamChat(ctx context.Context, req ai.ChatRequest) (<-chan string, <-chan error) {
	out := make(chan string)
	errs := make(chan error, 1)
	close(errs)
	close(out)
	return out, errs
}

type staticSource struct{ client ai.Client }

func (s staticSource) ClientFor(ctx context.Context, userID uint64, req chat.ProviderRequest) (ai.Client, ai.ProviderConfig, error) {
	return s.client, ai.ProviderConfig{Provider: ai.DeepSeek}, nil
}

func newTestService(t *testing.T, client ai.Client) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Question{}, &MistakeRecord{}))
	return NewService(NewRepo(db), staticSource{client: client}, zap.NewNop())
}

func mustQuestion(t *testing.T, svc *Service, uid uint64, category, title string) *Question {
	t.Helper()
	q, err := svc.CreateQuestion(context.Background(), uid, QuestionInput{Category: category, Title: title})
	require.NoError(t, err)
	return q
}

func TestQuestions_FiltersAndCategories(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)

	mustQuestion(t, svc, 1, "React", "What is Fiber?")
	mustQuestion(t, svc, 1, "JavaScript", "Explain the event loop")
	_, err := svc.CreateQuestion(ctx, 1, QuestionInput{Category: "JavaScript", Title: "Closures", Difficulty: "Hard"})
	require.NoError(t, err)
	mustQuestion(t, svc, 2, "Go", "Not yours")

	_, err = svc.CreateQuestion(ctx, 1, QuestionInput{Category: "x", Title: "y", Difficulty: "Trivial"})
	assert.True(t, common.IsKind(err, common.KindValidation))

	js, err := svc.ListQuestions(ctx, 1, QuestionFilter{Category: "JavaScript"})
	require.NoError(t, err)
	assert.Len(t, js, 2)

	hard, err := svc.ListQuestions(ctx, 1, QuestionFilter{Difficulty: Hard})
	require.NoError(t, err)
	require.Len(t, hard, 1)
	assert.Equal(t, "Closures", hard[0].Title)

	found, err := svc.ListQuestions(ctx, 1, QuestionFilter{Query: "EVENT"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	cats, err := svc.Categories(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"JavaScript", "React"}, cats)

	empty, err := svc.Categories(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{}, empty)
}

func TestQuestions_UpdateAndOwnership(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	q := mustQuestion(t, svc, 1, "React", "Hooks")

	_, err := svc.UpdateQuestion(ctx, 2, q.ID, QuestionPatch{Title: common.Some("mine now")})
	assert.True(t, common.IsKind(err, common.KindAuthorization))

	got, err := svc.UpdateQuestion(ctx, 1, q.ID, QuestionPatch{Difficulty: common.Some("Easy")})
	require.NoError(t, err)
	assert.Equal(t, Easy, got.Difficulty)
	assert.Equal(t, "Hooks", got.Title)

	assert.True(t, common.IsKind(svc.DeleteQuestion(ctx, 1, uuid.NewString()), common.KindNotFound))
}

func TestMistakes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, nil)
	q := mustQuestion(t, svc, 1, "React", "Hooks")
	other := mustQuestion(t, svc, 2, "Go", "Channels")

	_, _, err := svc.AddMistake(ctx, 1, other.ID)
	assert.True(t, common.IsKind(err, common.KindAuthorization))

	m, created, err := svc.AddMistake(ctx, 1, q.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Zero(t, m.ReviewCount)

	again, created, err := svc.AddMistake(ctx, 1, q.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, again.ID)

	reviewed, err := svc.Review(ctx, 1, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reviewed.ReviewCount)
	reviewed, err = svc.Review(ctx, 1, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reviewed.ReviewCount)

	list, err := svc.ListMistakes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Question)
	assert.Equal(t, "Hooks", list[0].Question.Title)

	_, err = svc.Review(ctx, 2, m.ID)
	assert.True(t, common.IsKind(err, common.KindAuthorization))

	require.NoError(t, svc.DeleteQuestion(ctx, 1, q.ID))
	list, err = svc.ListMistakes(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAnalyze_RequiresMistakeLogEntry(t *testing.T) {
	ctx := context.Background()
	client := &answerClient{content: "## Core concept\nclosures"}
	svc := newTestService(t, client)
	q := mustQuestion(t, svc, 1, "JavaScript", "Closures")

	_, err := svc.Analyze(ctx, 1, AnalyzeInput{QuestionID: q.ID})
	assert.True(t, common.IsKind(err, common.KindValidation))
	assert.Zero(t, client.calls)

	m, _, err := svc.AddMistake(ctx, 1, q.ID)
	require.NoError(t, err)

	out, err := svc.Analyze(ctx, 1, AnalyzeInput{QuestionID: q.ID})
	require.NoError(t, err)
	assert.Equal(t, "## Core concept\nclosures", out)
	assert.Contains(t, client.prompt, `"Closures"`)

	stored, err := svc.ownedMistake(ctx, 1, m.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AIAnalysis)
	assert.Equal(t, out, *stored.AIAnalysis)
}

func TestAnalyze_FreeTitle(t *testing.T) {
	client := &answerClient{content: "report"}
	svc := newTestService(t, client)

	out, err := svc.Analyze(context.Background(), 1, AnalyzeInput{QuestionTitle: "What is a goroutine?"})
	require.NoError(t, err)
	assert.Equal(t, "report", out)

	_, err = svc.Analyze(context.Background(), 1, AnalyzeInput{})
	assert.True(t, common.IsKind(err, common.KindValidation))
}

// hookClient runs before answering, to change the store under the service.
type hookClient struct {
	answerClient
	before func()
}

func (c *hookClient) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	c.before()
	return c.answerClient.Chat(ctx, req)
}

func TestAnalyze_StoreFailureIsReported(t *testing.T) {
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Question{}, &MistakeRecord{}))

	client := &hookClient{answerClient: answerClient{content: "analysis"}}
	client.before = func() { require.NoError(t, db.Migrator().DropTable(&MistakeRecord{})) }
	svc := NewService(NewRepo(db), staticSource{client: client}, zap.NewNop())

	q := mustQuestion(t, svc, 1, "Go", "Channels")
	_, _, err = svc.AddMistake(ctx, 1, q.ID)
	require.NoError(t, err)

	out, err := svc.Analyze(ctx, 1, AnalyzeInput{QuestionID: q.ID})
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 500, common.StatusOf(err))
	assert.Equal(t, 1, client.calls)
}
