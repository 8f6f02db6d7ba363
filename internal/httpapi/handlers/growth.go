package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/growth"
)

func (h *Handler) GetStatistics(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	st, err := h.GrowthSvc.Statistics(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"statistics": st})
}

func (h *Handler) Leaderboard(c *gin.Context) {
	if _, okk := currentUser(c); !okk {
		return
	}
	board, err := h.GrowthSvc.Leaderboard(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"leaderboard": board})
}

func (h *Handler) AddXP(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req struct {
		Amount int64 `json:"amount" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.GrowthSvc.AddXP(c.Request.Context(), uid, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"progress": p})
}

func (h *Handler) SetStreak(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req struct {
		Days *int `json:"streak_days" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.GrowthSvc.SetStreak(c.Request.Context(), uid, *req.Days)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"progress": p})
}

func (h *Handler) ListAchievements(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var (
		list []growth.Achievement
		err  error
	)
	if c.Query("recent") == "true" {
		list, err = h.GrowthSvc.RecentAchievements(c.Request.Context(), uid, queryInt(c, "limit", 0))
	} else {
		list, err = h.GrowthSvc.Achievements(c.Request.Context(), uid, 0)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []growth.Achievement{}
	}
	common.OK(c, gin.H{"achievements": list})
}

func (h *Handler) UnlockAchievement(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req growth.UnlockInput
	if !bindJSON(c, &req) {
		return
	}
	a, created, err := h.GrowthSvc.Unlock(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	if created {
		common.Created(c, gin.H{"achievement": a, "unlocked": true})
		return
	}
	common.OK(c, gin.H{"achievement": a, "unlocked": false})
}

func (h *Handler) CheckAchievement(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	has, err := h.GrowthSvc.HasAchievement(c.Request.Context(), uid, c.Param("achievement_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"unlocked": has})
}

type focusRequest struct {
	Date  string   `json:"date"`
	Hours *float64 `json:"hours" binding:"required"`
}

// RecordFocus adds to the day by default; ?mode=set replaces it.
func (h *Handler) RecordFocus(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req focusRequest
	if !bindJSON(c, &req) {
		return
	}
	var (
		day *growth.FocusDay
		err error
	)
	switch c.DefaultQuery("mode", "add") {
	case "add":
		day, err = h.GrowthSvc.AddFocus(c.Request.Context(), uid, req.Date, *req.Hours)
	case "set":
		day, err = h.GrowthSvc.SetFocus(c.Request.Context(), uid, req.Date, *req.Hours)
	default:
		common.Fail(c, http.StatusBadRequest, 10001, "mode must be add or set")
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"focus": day})
}

// FocusTrends takes either from/to or days.
func (h *Handler) FocusTrends(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var (
		days []growth.FocusDay
		err  error
	)
	if from, to := c.Query("from"), c.Query("to"); from != "" || to != "" {
		days, err = h.GrowthSvc.Trends(c.Request.Context(), uid, from, to)
	} else {
		days, err = h.GrowthSvc.RecentTrends(c.Request.Context(), uid, queryInt(c, "days", 0))
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if days == nil {
		days = []growth.FocusDay{}
	}
	common.OK(c, gin.H{"trends": days})
}

func (h *Handler) FocusSummary(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	sum, err := h.GrowthSvc.FocusSummary(c.Request.Context(), uid, queryInt(c, "days", 0))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"focus": sum})
}
