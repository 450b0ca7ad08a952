package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/application/paymentservice"
	"github.com/uuakee/xotc/internal/domain"
)

type PaymentHandler struct {
	paymentSvc paymentservice.IPaymentService
	logger     zerolog.Logger
}

func NewPaymentHandler(paymentSvc paymentservice.IPaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentSvc: paymentSvc,
		logger:     logger,
	}
}

type depositRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

func (h *PaymentHandler) CreateDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	intent, err := h.paymentSvc.CreateDeposit(c.Request.Context(), c.GetString("user_id"), req.AmountCents)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, intent)
}

type withdrawalRequest struct {
	AmountCents int64  `json:"amount_cents" binding:"required"`
	PixKey      string `json:"pix_key" binding:"required"`
	PixType     string `json:"pix_type" binding:"required"`
}

func (h *PaymentHandler) RequestWithdrawal(c *gin.Context) {
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	txn, err := h.paymentSvc.RequestWithdrawal(
		c.Request.Context(),
		c.GetString("user_id"),
		req.AmountCents,
		req.PixKey,
		domain.PixType(req.PixType),
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"withdrawal": txn})
}

func (h *PaymentHandler) ListDeposits(c *gin.Context) {
	txns, err := h.paymentSvc.ListDeposits(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deposits": txns})
}

func (h *PaymentHandler) ListWithdrawals(c *gin.Context) {
	txns, err := h.paymentSvc.ListWithdrawals(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": txns})
}

func (h *PaymentHandler) DepositCallback(c *gin.Context) {
	cb, ok := h.parseCallback(c)
	if !ok {
		return
	}

	err := h.paymentSvc.HandleDepositCallback(c.Request.Context(), cb)
	h.ackCallback(c, err)
}

func (h *PaymentHandler) WithdrawalCallback(c *gin.Context) {
	cb, ok := h.parseCallback(c)
	if !ok {
		return
	}

	err := h.paymentSvc.HandleWithdrawalCallback(c.Request.Context(), cb)
	h.ackCallback(c, err)
}

// parseCallback tolerates both a bare payload and the provider's
// {"data": {...}} envelope, keeping the raw body for the audit trail.
func (h *PaymentHandler) parseCallback(c *gin.Context) (*domain.GatewayCallback, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "failed to read callback body",
		})
		return nil, false
	}

	payload := body
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		payload = envelope.Data
	}

	var cb domain.GatewayCallback
	if err := json.Unmarshal(payload, &cb); err != nil {
		h.logger.Warn().Err(err).Msg("Malformed gateway callback")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "malformed callback payload",
		})
		return nil, false
	}
	cb.Raw = body
	return &cb, true
}

// ackCallback answers the provider. Replays are acknowledged with 200 so the
// provider stops retrying a postback we already applied.
func (h *PaymentHandler) ackCallback(c *gin.Context, err error) {
	if err != nil {
		if domain.IsKind(err, domain.ErrReplayConflict) {
			h.logger.Info().Err(err).Msg("Gateway callback replay ignored")
			c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
