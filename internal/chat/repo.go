package chat

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/suPer8Hu/codesensei/internal/common"
	"gorm.io/gorm"
)

// MessageStore is the append-only message log the chat pipeline writes to.
type MessageStore interface {
	Append(ctx context.Context, sessionID string, role Role, content string) (*Message, error)
	// ListBySession returns messages oldest first.
	ListBySession(ctx context.Context, sessionID string) ([]Message, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

// MessageSearcher is implemented by stores that can search message content.
type MessageSearcher interface {
	Search(ctx context.Context, sessionIDs []string, query string, limit int) ([]Message, error)
}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

var (
	_ MessageStore    = (*Repo)(nil)
	_ MessageSearcher = (*Repo)(nil)
)

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSessions returns a page of the user's sessions, highest order index first.
func (r *Repo) ListSessions(ctx context.Context, userID uint64, offset, limit int) ([]Session, int64, error) {
	q := r.db.WithContext(ctx).Model(&Session{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []Session
	if err := q.Order("order_index DESC").Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MaxOrderIndex reports the highest order index among the user's sessions.
// ok is false when the user has none.
func (r *Repo) MaxOrderIndex(ctx context.Context, userID uint64) (int, bool, error) {
	var v sql.NullInt64
	if err := r.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ?", userID).
		Select("MAX(order_index)").
		Row().Scan(&v); err != nil {
		return 0, false, err
	}
	if !v.Valid {
		return 0, false, nil
	}
	return int(v.Int64), true, nil
}

// OrderIndexTaken reports whether another session of the user already uses idx.
func (r *Repo) OrderIndexTaken(ctx context.Context, userID uint64, idx int, excludeID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Session{}).
		Where("user_id = ? AND order_index = ? AND id <> ?", userID, idx, excludeID).
		Count(&n).Error
	return n > 0, err
}

func (r *Repo) UpdateSession(ctx context.Context, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteSession removes the session and, when cascade is set, its messages in the same transaction.
func (r *Repo) DeleteSession(ctx context.Context, id string, cascade bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cascade {
			if err := tx.Where("session_id = ?", id).Delete(&Message{}).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&Session{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

type OrderUpdate struct {
	ID         string `json:"id" binding:"required"`
	OrderIndex int    `json:"order_index"`
}

// Reorder applies every update or none.
func (r *Repo) Reorder(ctx context.Context, userID uint64, updates []OrderUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, u := range updates {
			res := tx.Model(&Session{}).
				Where("id = ? AND user_id = ?", u.ID, userID).
				Updates(map[string]any{"order_index": u.OrderIndex, "updated_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

func (r *Repo) SessionsByIDs(ctx context.Context, ids []string) ([]Session, error) {
	var out []Session
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IndicesOutside returns the order indices the user's sessions use, excluding the given ids.
func (r *Repo) IndicesOutside(ctx context.Context, userID uint64, ids []string) ([]int, error) {
	var out []int
	q := r.db.WithContext(ctx).Model(&Session{}).Where("user_id = ?", userID)
	if len(ids) > 0 {
		q = q.Where("id NOT IN ?", ids)
	}
	if err := q.Pluck("order_index", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Messages

func (r *Repo) Append(ctx context.Context, sessionID string, role Role, content string) (*Message, error) {
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	m := &Message{
		ID:        id,
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

func (r *Repo) ListBySession(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) DeleteBySession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&Message{}).Error
}

// Search returns messages in the given sessions whose content contains query, newest first.
func (r *Repo) Search(ctx context.Context, sessionIDs []string, query string, limit int) ([]Message, error) {
	like := "%" + strings.ToLower(query) + "%"
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id IN ?", sessionIDs).
		Where("LOWER(content) LIKE ?", like).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *Repo) SessionIDs(ctx context.Context, userID uint64) ([]string, error) {
	var out []string
	err := r.db.WithContext(ctx).Model(&Session{}).Where("user_id = ?", userID).Pluck("id", &out).Error
	return out, err
}

// Job CRUD
func (r *Repo) CreateJob(ctx context.Context, job *Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repo) GetJobByID(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) UpdateJobStatusRunning(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, JobQueued).
		Update("status", JobRunning).Error
}

func (r *Repo) MarkJobSucceeded(ctx context.Context, id string, modelMsgID string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobSucceeded,
			"result_message_id": modelMsgID,
			"error":             nil,
		}).Error
}

func (r *Repo) MarkJobFailed(ctx context.Context, id string, errMsg string) error {
	return r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":            JobFailed,
			"error":             errMsg,
			"result_message_id": nil,
		}).Error
}

func (r *Repo) GetJobByUserAndIdempotencyKey(ctx context.Context, userID uint64, key string) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJobOrGetExisting creates job, or returns the job already holding
// (user_id, idempotency_key). created is false in the second case.
func (r *Repo) CreateJobOrGetExisting(ctx context.Context, job *Job) (*Job, bool, error) {
	if job.IdempotencyKey == nil || *job.IdempotencyKey == "" {
		job.IdempotencyKey = nil
		if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
			return nil, false, err
		}
		return job, true, nil
	}

	err := r.db.WithContext(ctx).Create(job).Error
	if err == nil {
		return job, true, nil
	}

	existing, getErr := r.GetJobByUserAndIdempotencyKey(ctx, job.UserID, *job.IdempotencyKey)
	if getErr == nil {
		return existing, false, nil
	}

	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}
