package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/application/accountservice"
)

type AccountHandler struct {
	accountSvc accountservice.IAccountService
	logger     zerolog.Logger
}

func NewAccountHandler(accountSvc accountservice.IAccountService, logger zerolog.Logger) *AccountHandler {
	return &AccountHandler{
		accountSvc: accountSvc,
		logger:     logger,
	}
}

type registerRequest struct {
	RealName     string `json:"real_name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	CPF          string `json:"cpf" binding:"required"`
	Password     string `json:"password" binding:"required"`
	ReferralCode string `json:"referral_code"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	user, err := h.accountSvc.Register(c.Request.Context(), &accountservice.RegisterInput{
		RealName:     req.RealName,
		Phone:        req.Phone,
		CPF:          req.CPF,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Phone    string `json:"phone" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	token, user, err := h.accountSvc.Login(c.Request.Context(), req.Phone, req.Password)
	if err != nil {
		// do not leak which part of the credentials failed
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "Unauthorized",
			"message": "invalid credentials",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

func (h *AccountHandler) Profile(c *gin.Context) {
	user, err := h.accountSvc.GetProfile(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AccountHandler) Balance(c *gin.Context) {
	wallet, err := h.accountSvc.GetBalance(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

func (h *AccountHandler) ReferralStats(c *gin.Context) {
	stats, err := h.accountSvc.GetReferralStats(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
