package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
)

func queryInt(c *gin.Context, key string, def int) int {
	if n, err := strconv.Atoi(c.Query(key)); err == nil {
		return n
	}
	return def
}

func (h *Handler) ListSessions(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	page, err := h.ChatSvc.ListSessions(c.Request.Context(), uid,
		queryInt(c, "page", 1),
		queryInt(c, "pageSize", 20),
		c.Query("includeMessages") == "true",
	)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, page)
}

func (h *Handler) CreateSession(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req chat.CreateSessionInput
	if !bindJSON(c, &req) {
		return
	}
	sess, err := h.ChatSvc.CreateSession(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"session": sess})
}

func (h *Handler) GetSession(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	sess, err := h.ChatSvc.GetSession(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"session": sess})
}

func (h *Handler) UpdateSession(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var patch chat.SessionPatch
	if !bindJSON(c, &patch) {
		return
	}
	sess, err := h.ChatSvc.UpdateSession(c.Request.Context(), uid, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"session": sess})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	if err := h.ChatSvc.DeleteSession(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"success": true})
}

type reorderReq struct {
	Updates []chat.OrderUpdate `json:"updates" binding:"required,min=1,dive"`
}

func (h *Handler) ReorderSessions(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req reorderReq
	if !bindJSON(c, &req) {
		return
	}
	if err := h.ChatSvc.ReorderSessions(c.Request.Context(), uid, req.Updates); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"success": true})
}

func (h *Handler) ListSessionMessages(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) SearchMessages(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	msgs, err := h.ChatSvc.SearchMessages(c.Request.Context(), uid, c.Query("q"), c.Query("session_id"), queryInt(c, "limit", 0))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"messages": msgs})
}

func (h *Handler) SessionStatistics(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	n, err := h.ChatSvc.MessageCount(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"message_count": n})
}
