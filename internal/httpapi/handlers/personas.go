package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/persona"
)

func (h *Handler) ListPresets(c *gin.Context) {
	common.OK(c, gin.H{"presets": h.PersonaSvc.Presets()})
}

func (h *Handler) ListPersonas(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	list, err := h.PersonaSvc.Search(c.Request.Context(), uid, c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []persona.Persona{}
	}
	common.OK(c, gin.H{"personas": list})
}

func (h *Handler) CreatePersona(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req persona.Input
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.PersonaSvc.Create(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"persona": p})
}

func (h *Handler) GetPersona(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	p, err := h.PersonaSvc.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"persona": p})
}

func (h *Handler) UpdatePersona(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var patch persona.Patch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.PersonaSvc.Update(c.Request.Context(), uid, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"persona": p})
}

func (h *Handler) DeletePersona(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	if err := h.PersonaSvc.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"success": true})
}

func (h *Handler) PersonaUsage(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	u, err := h.PersonaSvc.Usage(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"usage": u})
}

func (h *Handler) DuplicatePersona(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	p, err := h.PersonaSvc.Duplicate(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"persona": p})
}

func (h *Handler) ExportPersona(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	out, err := h.PersonaSvc.Export(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"persona": out})
}

func (h *Handler) ImportPersona(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req persona.Input
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.PersonaSvc.Import(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"persona": p})
}
