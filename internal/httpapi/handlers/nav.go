package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/nav"
)

func (h *Handler) ListNav(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	items, err := h.NavSvc.List(c.Request.Context(), uid, c.Query("category"), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if items == nil {
		items = []nav.Item{}
	}
	common.OK(c, gin.H{"items": items})
}

func (h *Handler) NavCategories(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	cats, err := h.NavSvc.Categories(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"categories": cats})
}

func (h *Handler) CreateNav(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req nav.Input
	if !bindJSON(c, &req) {
		return
	}
	it, err := h.NavSvc.Create(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"item": it})
}

func (h *Handler) UpdateNav(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var patch nav.Patch
	if !bindJSON(c, &patch) {
		return
	}
	it, err := h.NavSvc.Update(c.Request.Context(), uid, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"item": it})
}

func (h *Handler) DeleteNav(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	if err := h.NavSvc.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"success": true})
}

func (h *Handler) ImportNav(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req struct {
		Items []nav.Input `json:"items" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	items, err := h.NavSvc.Import(c.Request.Context(), uid, req.Items)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"items": items, "imported": len(items)})
}

func (h *Handler) ExportNav(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	items, err := h.NavSvc.Export(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"items": items})
}

func (h *Handler) NavStatistics(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	st, err := h.NavSvc.Statistics(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"statistics": st})
}
