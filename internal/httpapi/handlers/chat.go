package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"go.uber.org/zap"
)

func (h *Handler) Chat(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req chat.ChatInput
	if !bindJSON(c, &req) {
		return
	}

	turn, err := h.ChatSvc.Prepare(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp, err := h.ChatSvc.Chat(c.Request.Context(), turn)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, resp)
}

// sseSink writes relay events as server-sent events:
//
//	data: {"content":"..."}
//	data: {"error":"..."}
//	data: [DONE]
//	: ping
type sseSink struct {
	w gin.ResponseWriter
}

func (s *sseSink) write(frame string) error {
	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func (s *sseSink) data(payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.write("data: " + string(b) + "\n\n")
}

func (s *sseSink) Chunk(content string) error { return s.data(gin.H{"content": content}) }
func (s *sseSink) Error(message string) error { return s.data(gin.H{"error": message}) }
func (s *sseSink) Done() error                { return s.write("data: [DONE]\n\n") }
func (s *sseSink) Heartbeat() error           { return s.write(": ping\n\n") }

// ChatStream validates the request as JSON first; only a request that can reach
// the provider switches the response to an event stream.
func (h *Handler) ChatStream(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req chat.ChatInput
	if !bindJSON(c, &req) {
		return
	}

	turn, err := h.ChatSvc.Prepare(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	res := h.ChatSvc.Stream(c.Request.Context(), turn, &sseSink{w: c.Writer})
	if res.Err != nil && !res.ClientGone {
		h.Log.Warn("chat stream ended with error",
			zap.Uint64("user_id", uid),
			zap.String("session_id", turn.SessionID),
			zap.String("provider", string(turn.Provider)),
			zap.Error(res.Err),
		)
	}
}

type enqueueReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
	Provider  string `json:"provider" binding:"provider"`
	Model     string `json:"model"`
}

func (h *Handler) EnqueueChat(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req enqueueReq
	if !bindJSON(c, &req) {
		return
	}

	j, created, err := h.ChatSvc.EnqueueChat(c.Request.Context(), uid, chat.EnqueueInput{
		SessionID:      req.SessionID,
		Message:        req.Message,
		Provider:       req.Provider,
		Model:          req.Model,
		IdempotencyKey: strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if created {
		c.JSON(http.StatusAccepted, gin.H{"job_id": j.ID, "status": j.Status})
		return
	}
	common.OK(c, gin.H{"job_id": j.ID, "status": j.Status})
}

func (h *Handler) GetChatJob(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	j, err := h.ChatSvc.GetJob(c.Request.Context(), uid, c.Param("job_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"job": j})
}
