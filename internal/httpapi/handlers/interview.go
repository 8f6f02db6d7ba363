package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/interview"
)

func (h *Handler) ListQuestions(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	qs, err := h.InterviewSvc.ListQuestions(c.Request.Context(), uid, interview.QuestionFilter{
		Category:   c.Query("category"),
		Difficulty: interview.Difficulty(c.Query("difficulty")),
		Query:      c.Query("q"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	if qs == nil {
		qs = []interview.Question{}
	}
	common.OK(c, gin.H{"questions": qs})
}

func (h *Handler) QuestionCategories(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	cats, err := h.InterviewSvc.Categories(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"categories": cats})
}

func (h *Handler) CreateQuestion(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req interview.QuestionInput
	if !bindJSON(c, &req) {
		return
	}
	q, err := h.InterviewSvc.CreateQuestion(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.Created(c, gin.H{"question": q})
}

func (h *Handler) UpdateQuestion(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var patch interview.QuestionPatch
	if !bindJSON(c, &patch) {
		return
	}
	q, err := h.InterviewSvc.UpdateQuestion(c.Request.Context(), uid, c.Param("id"), patch)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"question": q})
}

func (h *Handler) DeleteQuestion(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	if err := h.InterviewSvc.DeleteQuestion(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"success": true})
}

func (h *Handler) ListMistakes(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	list, err := h.InterviewSvc.ListMistakes(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	if list == nil {
		list = []interview.MistakeRecord{}
	}
	common.OK(c, gin.H{"mistakes": list})
}

type addMistakeReq struct {
	QuestionID string `json:"question_id" binding:"required"`
}

func (h *Handler) AddMistake(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req addMistakeReq
	if !bindJSON(c, &req) {
		return
	}
	m, created, err := h.InterviewSvc.AddMistake(c.Request.Context(), uid, req.QuestionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	if created {
		common.Created(c, gin.H{"mistake": m})
		return
	}
	common.OK(c, gin.H{"mistake": m})
}

func (h *Handler) DeleteMistake(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	if err := h.InterviewSvc.DeleteMistake(c.Request.Context(), uid, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"success": true})
}

func (h *Handler) ReviewMistake(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	m, err := h.InterviewSvc.Review(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"mistake": m})
}

func (h *Handler) Analyze(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	var req interview.AnalyzeInput
	if !bindJSON(c, &req) {
		return
	}
	out, err := h.InterviewSvc.Analyze(c.Request.Context(), uid, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"analysis": out})
}

func (h *Handler) QuestionStatistics(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	st, err := h.InterviewSvc.QuestionStats(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"statistics": st})
}

func (h *Handler) MistakeStatistics(c *gin.Context) {
	uid, okk := currentUser(c)
	if !okk {
		return
	}
	st, err := h.InterviewSvc.MistakeStats(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	common.OK(c, gin.H{"statistics": st})
}
