package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/application/investservice"
)

type InvestmentHandler struct {
	investSvc investservice.IInvestService
	logger    zerolog.Logger
}

func NewInvestmentHandler(investSvc investservice.IInvestService, logger zerolog.Logger) *InvestmentHandler {
	return &InvestmentHandler{
		investSvc: investSvc,
		logger:    logger,
	}
}

type purchaseRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

func (h *InvestmentHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	investment, err := h.investSvc.Purchase(c.Request.Context(), c.GetString("user_id"), req.PlanID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"investment": investment})
}

func (h *InvestmentHandler) List(c *gin.Context) {
	investments, err := h.investSvc.ListInvestments(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"investments": investments})
}
