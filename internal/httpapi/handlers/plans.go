package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/plan"
)

func (h *Handler) ListPlans(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	plans, err := h.PlanSvc.List(c.Request.Context(), uid, c.Query("status"), c.Query("category"), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	common.OK(c, gin.H{"plans": plans})
}

func (h *Handler) CreatePlan(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req plan.CreateInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.PlanSvc.Create(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"plan": p})
}

func (h *Handler) UpdatePlan(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var patch plan.Patch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := h.PlanSvc.Update(c.Request.Context(), uid, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"plan": p})
}

func (h *Handler) DeletePlan(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	if err := h.PlanSvc.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"success": true})
}

func (h *Handler) GeneratePlan(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req plan.GenerateInput
	if !bindJSON(c, &req) {
		return
	}
	plans, err := h.PlanSvc.Generate(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"plans": plans})
}

func (h *Handler) SetPlanProgress(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req struct {
		Progress *int `json:"progress" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.PlanSvc.SetProgress(c.Request.Context(), uid, c.Param("id"), *req.Progress)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"plan": p})
}

func (h *Handler) CompletePlan(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	p, err := h.PlanSvc.Complete(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"plan": p})
}

func (h *Handler) RestorePlan(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	p, err := h.PlanSvc.Restore(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"plan": p})
}

func (h *Handler) PurgePlan(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	if err := h.PlanSvc.Purge(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"success": true})
}

func (h *Handler) PlanStatistics(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	st, err := h.PlanSvc.Statistics(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"statistics": st})
}

func (h *Handler) UpcomingPlans(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	plans, err := h.PlanSvc.Upcoming(c.Request.Context(), uid, queryInt(c, "days", 0))
	if err != nil {
		h.fail(c, err)
		return
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	common.OK(c, gin.H{"plans": plans})
}

func (h *Handler) OverduePlans(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	plans, err := h.PlanSvc.Overdue(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	common.OK(c, gin.H{"plans": plans})
}
