package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/codesensei/internal/ai"
	"github.com/suPer8Hu/codesensei/internal/common"
)

type fakePublisher struct {
	published []string
	err       error
}

func (p *fakePublisher) PublishJob(ctx context.Context, jobID string) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, jobID)
	return nil
}

func TestEnqueueChat_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, repo, _ := newTestService(t, &fakeClient{}, WithPublisher(pub))
	sess := mustCreateSession(t, svc, 1, "Test")

	in := EnqueueInput{SessionID: sess.ID, Message: "Hi", Provider: "deepseek", IdempotencyKey: "abc"}
	first, created, err := svc.EnqueueChat(ctx, 1, in)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, JobQueued, first.Status)

	second, created, err := svc.EnqueueChat(ctx, 1, in)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, []string{first.ID}, pub.published)
	msgs, err := repo.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	// the same key from another user is independent
	other := mustCreateSession(t, svc, 2, "Other")
	third, created, err := svc.EnqueueChat(ctx, 2, EnqueueInput{SessionID: other.ID, Message: "Yo", Provider: "deepseek", IdempotencyKey: "abc"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestEnqueueChat_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &fakeClient{}, WithPublisher(&fakePublisher{}))
	sess := mustCreateSession(t, svc, 1, "Test")

	_, _, err := svc.EnqueueChat(ctx, 1, EnqueueInput{SessionID: sess.ID, Message: "  "})
	assert.True(t, common.IsKind(err, common.KindValidation))

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'k'
	}
	_, _, err = svc.EnqueueChat(ctx, 1, EnqueueInput{SessionID: sess.ID, Message: "Hi", IdempotencyKey: string(long)})
	assert.True(t, common.IsKind(err, common.KindValidation))

	_, _, err = svc.EnqueueChat(ctx, 2, EnqueueInput{SessionID: sess.ID, Message: "Hi", Provider: "deepseek"})
	assert.True(t, common.IsKind(err, common.KindAuthorization))

	noQueue, _, _ := newTestService(t, &fakeClient{})
	_, _, err = noQueue.EnqueueChat(ctx, 1, EnqueueInput{SessionID: sess.ID, Message: "Hi"})
	assert.True(t, common.IsKind(err, common.KindUnavailable))
}

func TestEnqueueChat_PublishFailureMarksJobFailed(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t, &fakeClient{}, WithPublisher(&fakePublisher{err: errors.New("broker down")}))
	sess := mustCreateSession(t, svc, 1, "Test")

	_, _, err := svc.EnqueueChat(ctx, 1, EnqueueInput{SessionID: sess.ID, Message: "Hi", Provider: "deepseek"})
	assert.True(t, common.IsKind(err, common.KindUnavailable))

	var jobs []Job
	require.NoError(t, repo.db.Find(&jobs).Error)
	require.Len(t, jobs, 1)
	assert.Equal(t, JobFailed, jobs[0].Status)
}

func TestGetJob_HidesOtherUsers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, &fakeClient{}, WithPublisher(&fakePublisher{}))
	sess := mustCreateSession(t, svc, 1, "Test")

	job, _, err := svc.EnqueueChat(ctx, 1, EnqueueInput{SessionID: sess.ID, Message: "Hi", Provider: "deepseek"})
	require.NoError(t, err)

	got, err := svc.GetJob(ctx, 1, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.GetJob(ctx, 2, job.ID)
	assert.True(t, common.IsKind(err, common.KindNotFound))

	_, err = svc.GetJob(ctx, 1, "missing")
	assert.True(t, common.IsKind(err, common.KindNotFound))
}

func TestCompleteJob_StoresReply(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "env-key")
	ctx := context.Background()
	fc := &fakeClient{resp: &ai.ChatResponse{Content: "Hello!"}}
	svc, repo, _ := newTestService(t, fc, WithPublisher(&fakePublisher{}), WithPersonas(stubPersonas{"mentor": "be kind"}))
	sess := mustCreateSession(t, svc, 1, "Test")

	_, err := repo.Append(ctx, sess.ID, RoleUser, "earlier")
	require.NoError(t, err)
	_, err = repo.Append(ctx, sess.ID, RoleModel, "earlier reply")
	require.NoError(t, err)

	job, _, err := svc.EnqueueChat(ctx, 1, EnqueueInput{SessionID: sess.ID, Message: "Hi", Provider: "deepseek"})
	require.NoError(t, err)

	msgID, err := svc.CompleteJob(ctx, job.ID, false)
	require.NoError(t, err)

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobSucceeded, got.Status)
	require.NotNil(t, got.ResultMessageID)
	assert.Equal(t, msgID, *got.ResultMessageID)

	req := fc.request()
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "earlier", req.Messages[0].Content)
	assert.Equal(t, "model", req.Messages[1].Role)
	assert.Equal(t, "Hi", req.Messages[2].Content)
	assert.Equal(t, "be kind", req.SystemPrompt)

	msgs, err := repo.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "Hello!", msgs[3].Content)
}

func TestCompleteJob_FailureRecorded(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "env-key")
	ctx := context.Background()
	fc := &fakeClient{chatErr: &ai.UpstreamError{Provider: ai.DeepSeek, Status: 429, Message: "quota exceeded"}}
	svc, repo, _ := newTestService(t, fc, WithPublisher(&fakePublisher{}))
	sess := mustCreateSession(t, svc, 1, "Test")

	job, _, err := svc.EnqueueChat(ctx, 1, EnqueueInput{SessionID: sess.ID, Message: "Hi", Provider: "deepseek"})
	require.NoError(t, err)

	_, err = svc.CompleteJob(ctx, job.ID, false)
	require.Error(t, err)
	assert.True(t, Transient(err))

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobRunning, got.Status)
	assert.Nil(t, got.Error)

	_, err = svc.CompleteJob(ctx, job.ID, true)
	require.Error(t, err)

	got, err = repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "quota exceeded", *got.Error)
	assert.Nil(t, got.ResultMessageID)
}

func TestCompleteJob_RedeliveryDoesNotRepeat(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "env-key")
	ctx := context.Background()
	fc := &fakeClient{resp: &ai.ChatResponse{Content: "Hello!"}}
	svc, repo, cf := newTestService(t, fc, WithPublisher(&fakePublisher{}))
	sess := mustCreateSession(t, svc, 1, "Test")

	job, _, err := svc.EnqueueChat(ctx, 1, EnqueueInput{SessionID: sess.ID, Message: "Hi", Provider: "deepseek"})
	require.NoError(t, err)

	first, err := svc.CompleteJob(ctx, job.ID, false)
	require.NoError(t, err)
	again, err := svc.CompleteJob(ctx, job.ID, false)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, cf.calls)

	msgs, err := repo.ListBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	_, err = svc.CompleteJob(ctx, "missing", false)
	assert.True(t, common.IsKind(err, common.KindNotFound))
}
