package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/settings"
)

func (h *Handler) GetSettings(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	v, err := h.SettingsSvc.Get(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"settings": v})
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req settings.UpdateInput
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.SettingsSvc.Update(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"settings": v})
}
