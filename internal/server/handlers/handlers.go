package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/application/accountservice"
	"github.com/uuakee/xotc/internal/application/earningsservice"
	"github.com/uuakee/xotc/internal/application/investservice"
	"github.com/uuakee/xotc/internal/application/paymentservice"
	"github.com/uuakee/xotc/internal/domain/interfaces"
	"github.com/uuakee/xotc/internal/server/middleware"
	"github.com/uuakee/xotc/pkg/config"
)

type Handlers struct {
	AccountSvc  accountservice.IAccountService
	InvestSvc   investservice.IInvestService
	EarningsSvc earningsservice.IEarningsService
	PaymentSvc  paymentservice.IPaymentService
	WsManager   interfaces.WebSocketManager
	Logger      zerolog.Logger
	Config      *config.Config
}

func New(
	accountSvc accountservice.IAccountService,
	investSvc investservice.IInvestService,
	earningsSvc earningsservice.IEarningsService,
	paymentSvc paymentservice.IPaymentService,
	wsManager interfaces.WebSocketManager,
	logger zerolog.Logger,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		AccountSvc:  accountSvc,
		InvestSvc:   investSvc,
		EarningsSvc: earningsSvc,
		PaymentSvc:  paymentSvc,
		WsManager:   wsManager,
		Logger:      logger,
		Config:      cfg,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.Config.JWT.Secret, h.Logger)
	mw.SetupMiddleware(router)

	accountHandler := NewAccountHandler(h.AccountSvc, h.Logger)
	planHandler := NewPlanHandler(h.InvestSvc, h.Logger)
	investmentHandler := NewInvestmentHandler(h.InvestSvc, h.Logger)
	paymentHandler := NewPaymentHandler(h.PaymentSvc, h.Logger)
	adminHandler := NewAdminHandler(h.InvestSvc, h.EarningsSvc, h.PaymentSvc, h.Logger)
	wsHandler := NewWebSocketHandler(h.WsManager)
	healthHandler := NewHealthHandler(h.WsManager)

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket endpoint for ledger events
	router.GET("/status", wsHandler.HandleConnection)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", accountHandler.Register)
			auth.POST("/login", accountHandler.Login)
		}

		// gateway postbacks, authenticated by correlation metadata
		payments := v1.Group("/payments")
		{
			payments.POST("/callback", paymentHandler.DepositCallback)
			payments.POST("/withdraw/callback", paymentHandler.WithdrawalCallback)
		}

		authed := v1.Group("")
		authed.Use(mw.AuthMiddleware())
		{
			authed.GET("/me", accountHandler.Profile)
			authed.GET("/me/balance", accountHandler.Balance)
			authed.GET("/me/referrals", accountHandler.ReferralStats)

			authed.GET("/plans", planHandler.List)
			authed.GET("/plans/:id", planHandler.Get)

			authed.POST("/investments", investmentHandler.Purchase)
			authed.GET("/investments", investmentHandler.List)

			authed.POST("/payments/deposit", paymentHandler.CreateDeposit)
			authed.GET("/payments/deposits", paymentHandler.ListDeposits)
			authed.POST("/payments/withdraw", paymentHandler.RequestWithdrawal)
			authed.GET("/payments/withdrawals", paymentHandler.ListWithdrawals)
		}

		admin := v1.Group("/admin")
		admin.Use(mw.AuthMiddleware(), mw.AdminMiddleware())
		{
			admin.POST("/plans", adminHandler.CreatePlan)
			admin.PUT("/plans/:id", adminHandler.UpdatePlan)
			admin.DELETE("/plans/:id", adminHandler.DeactivatePlan)

			admin.POST("/earnings/run", adminHandler.RunEarnings)
			admin.POST("/investments/:id/pay", adminHandler.PayInvestment)
			admin.POST("/investments/:id/expire", adminHandler.ExpireInvestment)

			admin.GET("/withdrawals", adminHandler.ListPendingWithdrawals)
			admin.PUT("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)

			admin.PUT("/users/:id/wallet", adminHandler.AdjustWallet)
			admin.PUT("/commission-levels", adminHandler.UpdateCommissionLevels)

			admin.PUT("/gateway", adminHandler.UpdateGateway)
		}
	}
}
