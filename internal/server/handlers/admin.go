package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/uuakee/xotc/internal/application/earningsservice"
	"github.com/uuakee/xotc/internal/application/investservice"
	"github.com/uuakee/xotc/internal/application/paymentservice"
	"github.com/uuakee/xotc/internal/domain"
)

type AdminHandler struct {
	investSvc   investservice.IInvestService
	earningsSvc earningsservice.IEarningsService
	paymentSvc  paymentservice.IPaymentService
	logger      zerolog.Logger
}

func NewAdminHandler(
	investSvc investservice.IInvestService,
	earningsSvc earningsservice.IEarningsService,
	paymentSvc paymentservice.IPaymentService,
	logger zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		investSvc:   investSvc,
		earningsSvc: earningsSvc,
		paymentSvc:  paymentSvc,
		logger:      logger,
	}
}

type planRequest struct {
	Name       string `json:"name" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"required"`
	Days       int    `json:"days" binding:"required"`
	ProfitPct  string `json:"profit_pct" binding:"required"`
	MaxBuy     int    `json:"max_buy"`
	Level      string `json:"level"`
	IsActive   *bool  `json:"is_active"`
}

func (r *planRequest) toPlan(id string) (*domain.Plan, error) {
	profit, err := decimal.NewFromString(r.ProfitPct)
	if err != nil {
		return nil, domain.NewError(domain.ErrInvalidState, "profit_pct must be a decimal string")
	}

	plan := &domain.Plan{
		ID:         id,
		Name:       r.Name,
		PriceCents: r.PriceCents,
		Days:       r.Days,
		ProfitPct:  profit,
		MaxBuy:     r.MaxBuy,
		Level:      domain.UserLevel(r.Level),
		IsActive:   true,
	}
	if r.IsActive != nil {
		plan.IsActive = *r.IsActive
	}
	return plan, nil
}

func (h *AdminHandler) CreatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	plan, err := req.toPlan("")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.investSvc.CreatePlan(c.Request.Context(), plan); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plan": plan})
}

func (h *AdminHandler) UpdatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	plan, err := req.toPlan(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.investSvc.UpdatePlan(c.Request.Context(), plan); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (h *AdminHandler) DeactivatePlan(c *gin.Context) {
	if err := h.investSvc.DeactivatePlan(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

// RunEarnings triggers one scheduler pass immediately.
func (h *AdminHandler) RunEarnings(c *gin.Context) {
	result, err := h.earningsSvc.ProcessScheduled(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) PayInvestment(c *gin.Context) {
	if err := h.earningsSvc.PayInvestmentEarnings(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

func (h *AdminHandler) ExpireInvestment(c *gin.Context) {
	if err := h.investSvc.Expire(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "expired"})
}

func (h *AdminHandler) ListPendingWithdrawals(c *gin.Context) {
	txns, err := h.paymentSvc.ListPendingWithdrawals(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": txns})
}

func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	err := h.paymentSvc.ApproveWithdrawal(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

type walletAdjustmentRequest struct {
	SubAccount string `json:"sub_account" binding:"required"`
	DeltaCents int64  `json:"delta_cents" binding:"required"`
}

var adjustableSubAccounts = map[string]domain.SubAccount{
	"balance":            domain.SubAccountBalance,
	"balance_withdrawal": domain.SubAccountWithdrawal,
	"balance_commission": domain.SubAccountCommission,
}

// AdjustWallet manually credits or debits one of a user's sub-accounts.
func (h *AdminHandler) AdjustWallet(c *gin.Context) {
	var req walletAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	sub, ok := adjustableSubAccounts[req.SubAccount]
	if !ok {
		respondError(c, domain.Errorf(domain.ErrInvalidState, "unknown sub-account %s", req.SubAccount))
		return
	}

	err := h.paymentSvc.AdjustWallet(c.Request.Context(), c.GetString("user_id"), c.Param("id"), sub, req.DeltaCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "adjusted"})
}

type commissionLevelRequest struct {
	Level        string `json:"level" binding:"required"`
	Percentage   string `json:"percentage" binding:"required"`
	MinReferrals int    `json:"min_referrals"`
}

// UpdateCommissionLevels replaces the cascade percentages for the given levels.
func (h *AdminHandler) UpdateCommissionLevels(c *gin.Context) {
	var reqs []commissionLevelRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	levels := make([]*domain.CommissionLevel, 0, len(reqs))
	for _, req := range reqs {
		pct, err := decimal.NewFromString(req.Percentage)
		if err != nil {
			respondError(c, domain.NewError(domain.ErrInvalidState, "percentage must be a decimal string"))
			return
		}
		levels = append(levels, &domain.CommissionLevel{
			Level:        domain.UserLevel(req.Level),
			Percentage:   pct,
			MinReferrals: req.MinReferrals,
		})
	}

	if err := h.investSvc.SetCommissionLevels(c.Request.Context(), levels); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "levels": len(levels)})
}

type gatewayRequest struct {
	BaseURL   string `json:"base_url"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// UpdateGateway hot-swaps the payment provider credentials.
func (h *AdminHandler) UpdateGateway(c *gin.Context) {
	var req gatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	h.paymentSvc.UpdateGatewayCredentials(req.BaseURL, req.PublicKey, req.SecretKey)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
