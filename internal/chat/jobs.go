package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/suPer8Hu/codesensei/internal/ai"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxIdempotencyKeyLen = 128

type EnqueueInput struct {
	SessionID      string
	Message        string
	Provider       string
	Model          string
	IdempotencyKey string
}

// EnqueueChat stores the user turn and queues a job to produce the reply.
// A repeated idempotency key returns the original job without storing or publishing again.
func (s *Service) EnqueueChat(ctx context.Context, userID uint64, in EnqueueInput) (*Job, bool, error) {
	if s.publisher == nil {
		return nil, false, common.Unavailable("chat queue is not configured", nil)
	}
	content := strings.TrimSpace(in.Message)
	if content == "" {
		return nil, false, common.Invalid("message is required")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return nil, false, common.Invalid("idempotency key too long")
	}
	provider, err := ParseProvider(in.Provider)
	if err != nil {
		return nil, false, err
	}
	sess, err := s.OwnedSession(ctx, userID, in.SessionID)
	if err != nil {
		return nil, false, err
	}

	var keyPtr *string
	if key != "" {
		keyPtr = &key
		existing, err := s.repo.GetJobByUserAndIdempotencyKey(ctx, userID, key)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, common.FromDB(err, "job")
		}
	}

	jobID, err := common.NewULID()
	if err != nil {
		return nil, false, err
	}

	if _, err := s.messages.Append(ctx, sess.ID, RoleUser, content); err != nil {
		return nil, false, common.FromDB(err, "message")
	}

	job, created, err := s.repo.CreateJobOrGetExisting(ctx, &Job{
		ID:             jobID,
		UserID:         userID,
		SessionID:      sess.ID,
		Prompt:         content,
		Provider:       string(provider),
		Model:          strings.TrimSpace(in.Model),
		IdempotencyKey: keyPtr,
		Status:         JobQueued,
	})
	if err != nil {
		return nil, false, common.FromDB(err, "job")
	}

	// Enqueue only when a new job was created
	if created {
		if err := s.publisher.PublishJob(ctx, job.ID); err != nil {
			s.log.Error("publish job failed", zap.String("job_id", job.ID), zap.Error(err))
			_ = s.repo.MarkJobFailed(context.WithoutCancel(ctx), job.ID, "enqueue failed")
			return nil, false, common.Unavailable("enqueue failed", err)
		}
	}
	return job, created, nil
}

// GetJob hides jobs of other users behind not_found.
func (s *Service) GetJob(ctx context.Context, userID uint64, jobID string) (*Job, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return nil, common.FromDB(err, "job")
	}
	if j.UserID != userID {
		return nil, common.NotFound("job not found")
	}
	return j, nil
}

// CompleteJob produces and stores the model reply for a queued job. It is called by the worker.
// Finished jobs are not run again. A transient failure leaves the job running unless lastAttempt
// is set, so a redelivery can pick it up.
func (s *Service) CompleteJob(ctx context.Context, jobID string, lastAttempt bool) (string, error) {
	j, err := s.repo.GetJobByID(ctx, jobID)
	if err != nil {
		return "", common.FromDB(err, "job")
	}
	switch j.Status {
	case JobSucceeded:
		if j.ResultMessageID != nil {
			return *j.ResultMessageID, nil
		}
		return "", nil
	case JobFailed:
		return "", nil
	}
	if err := s.repo.UpdateJobStatusRunning(ctx, jobID); err != nil {
		return "", common.FromDB(err, "job")
	}

	msgID, err := s.generateReply(ctx, j)
	if err != nil {
		if !lastAttempt && Transient(err) {
			s.log.Warn("job attempt failed", zap.String("job_id", jobID), zap.Error(err))
			return "", err
		}
		if ferr := s.repo.MarkJobFailed(context.WithoutCancel(ctx), jobID, common.MessageOf(err)); ferr != nil {
			s.log.Error("mark job failed", zap.String("job_id", jobID), zap.Error(ferr))
		}
		return "", err
	}
	if err := s.repo.MarkJobSucceeded(ctx, jobID, msgID); err != nil {
		return "", common.FromDB(err, "job")
	}
	return msgID, nil
}

// Transient reports whether a job failure may succeed on a later attempt.
func Transient(err error) bool {
	return common.IsKind(err, common.KindUpstream) || common.IsKind(err, common.KindUnavailable)
}

func (s *Service) generateReply(ctx context.Context, j *Job) (string, error) {
	sess, err := s.repo.GetSession(ctx, j.SessionID)
	if err != nil {
		return "", common.FromDB(err, "session")
	}
	if sess.UserID != j.UserID {
		return "", common.Forbidden("you do not have access to this session")
	}

	provider, err := ParseProvider(j.Provider)
	if err != nil {
		return "", err
	}
	client, _, err := s.clients.Client(ctx, j.UserID, ai.ProviderConfig{Provider: provider, Model: j.Model})
	if err != nil {
		return "", err
	}

	history, err := s.messages.ListBySession(ctx, sess.ID)
	if err != nil {
		return "", common.FromDB(err, "message")
	}
	if len(history) > s.contextWindowSize {
		history = history[len(history)-s.contextWindowSize:]
	}
	msgs := make([]ai.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, ai.Message{Role: string(m.Role), Content: m.Content})
	}

	req := ai.ChatRequest{
		Messages:     msgs,
		SystemPrompt: s.systemPrompt(ctx, j.UserID, sess, ""),
	}
	applySampling(&req, sess)

	resp, err := client.Chat(ctx, req)
	if err != nil {
		return "", common.Upstream(err.Error(), err)
	}
	if resp.Content == "" {
		return "", common.Upstream("empty response from provider", nil)
	}

	m, err := s.persist(ctx, sess.ID, RoleModel, resp.Content)
	if err != nil {
		return "", common.FromDB(err, "message")
	}
	return m.ID, nil
}
