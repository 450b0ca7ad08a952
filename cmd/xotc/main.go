package main

import (
	"github.com/uuakee/xotc/internal/application/accountservice"
	"github.com/uuakee/xotc/internal/application/earningsservice"
	"github.com/uuakee/xotc/internal/application/investservice"
	"github.com/uuakee/xotc/internal/application/paymentservice"
	"github.com/uuakee/xotc/internal/application/walletservice"
	"github.com/uuakee/xotc/internal/infrastructure/database"
	"github.com/uuakee/xotc/internal/infrastructure/http/clients"
	"github.com/uuakee/xotc/internal/repositories/investmentrepo"
	"github.com/uuakee/xotc/internal/repositories/planrepo"
	"github.com/uuakee/xotc/internal/repositories/referralrepo"
	"github.com/uuakee/xotc/internal/repositories/transactionrepo"
	"github.com/uuakee/xotc/internal/repositories/userrepo"
	"github.com/uuakee/xotc/internal/repositories/walletrepo"
	"github.com/uuakee/xotc/internal/scheduler"
	"github.com/uuakee/xotc/internal/server"
	"github.com/uuakee/xotc/internal/server/websocket"
	"github.com/uuakee/xotc/pkg/config"
	"github.com/uuakee/xotc/pkg/logger"
	"github.com/uuakee/xotc/pkg/metrics"
)

func main() {
	logger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	m := metrics.New()

	userRepo := userrepo.New(db.Db)
	walletRepo := walletrepo.New(db.Db)
	planRepo := planrepo.New(db.Db)
	investmentRepo := investmentrepo.New(db.Db)
	transactionRepo := transactionrepo.New(db.Db)
	referralRepo := referralrepo.New(db.Db)

	gatewayClient := clients.NewClyptClient(cfg.Gateway, logger)
	wsManager := websocket.NewManager(cfg.WebSocket)

	walletSvc := walletservice.New(walletRepo, logger)
	accountSvc := accountservice.New(db, userRepo, referralRepo, walletSvc, cfg.JWT.Secret, logger)
	investSvc := investservice.New(
		db,
		planRepo,
		investmentRepo,
		transactionRepo,
		userRepo,
		referralRepo,
		walletSvc,
		wsManager,
		m,
		logger,
	)
	earningsSvc := earningsservice.New(db, investmentRepo, walletSvc, wsManager, m, logger)
	paymentSvc := paymentservice.New(
		db,
		transactionRepo,
		userRepo,
		walletSvc,
		gatewayClient,
		wsManager,
		m,
		logger,
	)

	sched := scheduler.New(earningsSvc, cfg.Earnings, logger)

	srv := server.New(cfg, accountSvc, investSvc, earningsSvc, paymentSvc, wsManager, sched, logger)
	srv.Start()
}
