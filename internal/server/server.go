package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/application/accountservice"
	"github.com/uuakee/xotc/internal/application/earningsservice"
	"github.com/uuakee/xotc/internal/application/investservice"
	"github.com/uuakee/xotc/internal/application/paymentservice"
	"github.com/uuakee/xotc/internal/domain/interfaces"
	"github.com/uuakee/xotc/internal/scheduler"
	"github.com/uuakee/xotc/internal/server/handlers"
	"github.com/uuakee/xotc/pkg/config"
)

type Server struct {
	AccountSvc  accountservice.IAccountService
	InvestSvc   investservice.IInvestService
	EarningsSvc earningsservice.IEarningsService
	PaymentSvc  paymentservice.IPaymentService
	WsManager   interfaces.WebSocketManager
	Scheduler   *scheduler.Scheduler
	Cfg         *config.Config
	Logger      zerolog.Logger
	Router      *gin.Engine
	httpServer  *http.Server
}

func New(
	cfg *config.Config,
	accountSvc accountservice.IAccountService,
	investSvc investservice.IInvestService,
	earningsSvc earningsservice.IEarningsService,
	paymentSvc paymentservice.IPaymentService,
	wsManager interfaces.WebSocketManager,
	sched *scheduler.Scheduler,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Cfg:         cfg,
		AccountSvc:  accountSvc,
		InvestSvc:   investSvc,
		EarningsSvc: earningsSvc,
		PaymentSvc:  paymentSvc,
		WsManager:   wsManager,
		Scheduler:   sched,
		Logger:      logger,
		Router:      router,
	}
}

func (s *Server) SetupRouter() {
	handler := handlers.New(
		s.AccountSvc,
		s.InvestSvc,
		s.EarningsSvc,
		s.PaymentSvc,
		s.WsManager,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	schedCtx, stopScheduler := context.WithCancel(context.Background())
	if s.Scheduler != nil {
		go s.Scheduler.Run(schedCtx)
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
