package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/codesensei/internal/chat"
	"github.com/suPer8Hu/codesensei/internal/common"
	"github.com/suPer8Hu/codesensei/internal/growth"
	"github.com/suPer8Hu/codesensei/internal/httpapi/middleware"
	"github.com/suPer8Hu/codesensei/internal/interview"
	"github.com/suPer8Hu/codesensei/internal/nav"
	"github.com/suPer8Hu/codesensei/internal/persona"
	"github.com/suPer8Hu/codesensei/internal/plan"
	"github.com/suPer8Hu/codesensei/internal/settings"
	"github.com/suPer8Hu/codesensei/internal/user"
	"go.uber.org/zap"
)

type Handler struct {
	UserSvc      *user.Service
	ChatSvc      *chat.Service
	SettingsSvc  *settings.Service
	PersonaSvc   *persona.Service
	PlanSvc      *plan.Service
	InterviewSvc *interview.Service
	NavSvc       *nav.Service
	GrowthSvc    *growth.Service
	Log          *zap.Logger
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// currentUser writes a 401 and returns false when the request is not authenticated.
func currentUser(c *gin.Context) (uint64, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
	}
	return uid, ok
}

// fail renders err, logging it when it is a server-side failure.
func (h *Handler) fail(c *gin.Context, err error) {
	if common.StatusOf(err) >= http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.Error(err),
		)
	}
	common.FailErr(c, err)
}
