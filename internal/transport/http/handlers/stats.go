package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// StatsHandler exposes the reading dashboard counters.
type StatsHandler struct {
	stats *usecase.StatsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *usecase.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// RegisterRoutes binds the stats route.
func (h *StatsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/stats", middleware.RequirePermission(ability.ActionRead, ability.SubjectStats), h.overview)
}

func (h *StatsHandler) overview(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	stats, err := h.stats.Overview(c.Request.Context(), ab, c.Query("user_id"))
	if err != nil {
		RespondWithMappedError(c, err, permissionCases, http.StatusInternalServerError, "stats lookup failed")
		return
	}

	c.JSON(http.StatusOK, stats)
}
