package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/user"
)

func (h *Handler) CreateUser(c *gin.Context) {
	var req user.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	u, token, err := h.UserSvc.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"user": u, "token": token})
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if !bindJSON(c, &req) {
		return
	}
	u, token, err := h.UserSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"user": u, "token": token})
}

func (h *Handler) Me(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	u, err := h.UserSvc.Get(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"user_id": u.ID, "email": u.Email, "username": u.Username})
}

func (h *Handler) GetProfile(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	u, err := h.UserSvc.Get(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"user": u})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var patch user.ProfilePatch
	if !bindJSON(c, &patch) {
		return
	}
	u, err := h.UserSvc.UpdateProfile(c.Request.Context(), uid, patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"user": u})
}
