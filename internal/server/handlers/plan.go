package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/application/investservice"
)

type PlanHandler struct {
	investSvc investservice.IInvestService
	logger    zerolog.Logger
}

func NewPlanHandler(investSvc investservice.IInvestService, logger zerolog.Logger) *PlanHandler {
	return &PlanHandler{
		investSvc: investSvc,
		logger:    logger,
	}
}

func (h *PlanHandler) List(c *gin.Context) {
	includeInactive := c.GetBool("is_admin") && c.Query("all") == "true"

	plans, err := h.investSvc.ListPlans(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.investSvc.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}
