package investservice

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/application/walletservice"
	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/domain/interfaces"
	"github.com/uuakee/xotc/internal/infrastructure/database"
	"github.com/uuakee/xotc/internal/repositories/investmentrepo"
	"github.com/uuakee/xotc/internal/repositories/planrepo"
	"github.com/uuakee/xotc/internal/repositories/referralrepo"
	"github.com/uuakee/xotc/internal/repositories/transactionrepo"
	"github.com/uuakee/xotc/internal/repositories/userrepo"
	"github.com/uuakee/xotc/pkg/metrics"
	"github.com/uuakee/xotc/pkg/money"
)

type IInvestService interface {
	ListPlans(ctx context.Context, includeInactive bool) ([]*domain.Plan, error)
	GetPlan(ctx context.Context, id string) (*domain.Plan, error)
	CreatePlan(ctx context.Context, plan *domain.Plan) error
	UpdatePlan(ctx context.Context, plan *domain.Plan) error
	DeactivatePlan(ctx context.Context, id string) error

	// Purchase buys one unit of the plan at its current price. The debit,
	// the holding, the transaction record, the first scheduled earning and
	// the inviter's commission all commit or roll back together.
	Purchase(ctx context.Context, userID, planID string) (*domain.Investment, error)
	// Expire retires an investment whose term has passed. Idempotent.
	Expire(ctx context.Context, investmentID string) error
	ListInvestments(ctx context.Context, userID string) ([]*domain.Investment, error)

	// SetCommissionLevels replaces the cascade configuration for the given
	// levels. Takes effect on the next purchase.
	SetCommissionLevels(ctx context.Context, levels []*domain.CommissionLevel) error
}

type investService struct {
	dbManager       *database.DBManager
	planRepo        planrepo.IPlanRepository
	investmentRepo  investmentrepo.IInvestmentRepository
	transactionRepo transactionrepo.ITransactionRepository
	userRepo        userrepo.IUserRepository
	referralRepo    referralrepo.IReferralRepository
	walletService   walletservice.IWalletService
	broadcaster     interfaces.Broadcaster
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

func New(
	dbManager *database.DBManager,
	planRepo planrepo.IPlanRepository,
	investmentRepo investmentrepo.IInvestmentRepository,
	transactionRepo transactionrepo.ITransactionRepository,
	userRepo userrepo.IUserRepository,
	referralRepo referralrepo.IReferralRepository,
	walletService walletservice.IWalletService,
	broadcaster interfaces.Broadcaster,
	m *metrics.Metrics,
	logger zerolog.Logger,
) IInvestService {
	return &investService{
		dbManager:       dbManager,
		planRepo:        planRepo,
		investmentRepo:  investmentRepo,
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		referralRepo:    referralRepo,
		walletService:   walletService,
		broadcaster:     broadcaster,
		metrics:         m,
		logger:          logger,
	}
}

func (s *investService) ListPlans(ctx context.Context, includeInactive bool) ([]*domain.Plan, error) {
	plans, err := s.planRepo.List(ctx, !includeInactive)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to list plans", err)
	}
	return plans, nil
}

func (s *investService) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to load plan", err)
	}
	if plan == nil {
		return nil, domain.NewError(domain.ErrNotFound, "plan not found")
	}
	return plan, nil
}

func (s *investService) CreatePlan(ctx context.Context, plan *domain.Plan) error {
	if plan.PriceCents <= 0 {
		return domain.NewError(domain.ErrInvalidAmount, "plan price must be positive")
	}
	if plan.Days <= 0 {
		return domain.NewError(domain.ErrInvalidState, "plan term must be at least one day")
	}
	if plan.ID == "" {
		plan.ID = uuid.New().String()
	}
	if plan.Level == "" {
		plan.Level = domain.Level5
	}
	if err := s.planRepo.Create(ctx, plan); err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to create plan", err)
	}
	return nil
}

func (s *investService) UpdatePlan(ctx context.Context, plan *domain.Plan) error {
	if plan.PriceCents <= 0 {
		return domain.NewError(domain.ErrInvalidAmount, "plan price must be positive")
	}
	if err := s.planRepo.Update(ctx, plan); err != nil {
		if err == sql.ErrNoRows {
			return domain.NewError(domain.ErrNotFound, "plan not found")
		}
		return domain.WrapError(domain.ErrInternal, "failed to update plan", err)
	}
	return nil
}

func (s *investService) DeactivatePlan(ctx context.Context, id string) error {
	active, err := s.investmentRepo.CountActiveByPlan(ctx, id)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to count plan holdings", err)
	}
	if active > 0 {
		return domain.NewError(domain.ErrInvalidState, "plan still has active investments")
	}

	if err := s.planRepo.Deactivate(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return domain.NewError(domain.ErrNotFound, "plan not found")
		}
		return domain.WrapError(domain.ErrInternal, "failed to deactivate plan", err)
	}
	return nil
}

func (s *investService) SetCommissionLevels(ctx context.Context, levels []*domain.CommissionLevel) error {
	if len(levels) == 0 {
		return domain.NewError(domain.ErrInvalidState, "no commission levels given")
	}
	for _, cl := range levels {
		if !cl.Level.Valid() {
			return domain.Errorf(domain.ErrInvalidState, "unknown level %s", cl.Level)
		}
		if cl.Percentage.IsNegative() {
			return domain.Errorf(domain.ErrInvalidAmount, "negative percentage for %s", cl.Level)
		}
	}

	for _, cl := range levels {
		if err := s.referralRepo.UpsertCommissionLevel(ctx, cl); err != nil {
			return domain.WrapError(domain.ErrInternal, "failed to store commission level", err)
		}
	}

	s.logger.Info().Int("levels", len(levels)).Msg("Commission levels updated")
	return nil
}

func (s *investService) Purchase(ctx context.Context, userID, planID string) (*domain.Investment, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to load user", err)
	}
	if user == nil {
		return nil, domain.NewError(domain.ErrNotFound, "user not found")
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to load plan", err)
	}
	if plan == nil {
		return nil, domain.NewError(domain.ErrNotFound, "plan not found")
	}
	if !plan.IsActive {
		return nil, domain.NewError(domain.ErrInvalidState, "plan is no longer available")
	}
	if !user.Level.CanAccess(plan.Level) {
		return nil, domain.Errorf(domain.ErrInsufficientLevel, "plan requires level %s", plan.Level)
	}

	var investment *domain.Investment
	err = s.dbManager.RunInTx(ctx, func(tx *sql.Tx) error {
		investmentRepo := s.investmentRepo.WithTx(tx)
		transactionRepo := s.transactionRepo.WithTx(tx)

		active, err := investmentRepo.CountActiveByUserAndPlan(ctx, userID, planID)
		if err != nil {
			return domain.WrapError(domain.ErrInternal, "failed to count holdings", err)
		}
		if plan.MaxBuy > 0 && active >= plan.MaxBuy {
			return domain.Errorf(domain.ErrPurchaseLimitExceeded, "plan limited to %d active holdings", plan.MaxBuy)
		}

		if err := s.walletService.Debit(ctx, tx, userID, domain.SubAccountBalance, plan.PriceCents); err != nil {
			return err
		}

		now := time.Now()
		investment = &domain.Investment{
			ID:          uuid.New().String(),
			UserID:      userID,
			PlanID:      planID,
			AmountCents: plan.PriceCents,
			ProfitPct:   plan.ProfitPct,
			IsActive:    true,
			ExpiresAt:   now.Add(time.Duration(plan.Days) * 24 * time.Hour),
		}
		if err := investmentRepo.Create(ctx, investment); err != nil {
			return domain.WrapError(domain.ErrInternal, "failed to create investment", err)
		}

		txn := &domain.Transaction{
			ID:          uuid.New().String(),
			UserID:      userID,
			PlanID:      &planID,
			Kind:        domain.KindInvestment,
			Status:      domain.StatusCompleted,
			AmountCents: plan.PriceCents,
		}
		if err := transactionRepo.Create(ctx, txn); err != nil {
			return domain.WrapError(domain.ErrInternal, "failed to record investment transaction", err)
		}

		if err := s.walletService.BumpCounter(ctx, tx, userID, domain.CounterInvestment, plan.PriceCents); err != nil {
			return err
		}

		earning := &domain.InvestmentEarning{
			ID:           uuid.New().String(),
			InvestmentID: investment.ID,
			UserID:       userID,
			PlanID:       planID,
			AmountCents:  money.Percent(plan.PriceCents, plan.ProfitPct),
			Status:       domain.EarningScheduled,
		}
		if err := investmentRepo.CreateEarning(ctx, earning); err != nil {
			return domain.WrapError(domain.ErrInternal, "failed to schedule first earning", err)
		}

		return s.payCommission(ctx, tx, user, plan)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.InvestmentsCreated.Inc()
	s.logger.Info().
		Str("user_id", userID).
		Str("plan_id", planID).
		Str("investment_id", investment.ID).
		Int64("amount", plan.PriceCents).
		Msg("Investment purchased")

	s.broadcast(&domain.LedgerEvent{
		Type:         "investment_created",
		UserID:       userID,
		InvestmentID: investment.ID,
		AmountCents:  plan.PriceCents,
		Message:      "Investimento criado: " + plan.Name,
		Timestamp:    time.Now(),
	})

	return investment, nil
}

// payCommission pays the purchaser's inviter a single-hop commission at the
// percentage configured for the inviter's level. A missing inviter or a zero
// rate skips silently; a failed credit aborts the whole purchase.
func (s *investService) payCommission(ctx context.Context, tx *sql.Tx, buyer *domain.User, plan *domain.Plan) error {
	if buyer.InvitedByID == nil {
		return nil
	}

	inviter, err := s.userRepo.WithTx(tx).GetByID(ctx, *buyer.InvitedByID)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to load inviter", err)
	}
	if inviter == nil || !inviter.IsActive {
		return nil
	}

	cl, err := s.referralRepo.WithTx(tx).GetCommissionLevel(ctx, inviter.Level)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to load commission level", err)
	}
	if cl == nil || !cl.Percentage.IsPositive() {
		return nil
	}

	commission := money.Percent(plan.PriceCents, cl.Percentage)
	if commission <= 0 {
		return nil
	}

	if err := s.walletService.Credit(ctx, tx, inviter.ID, domain.SubAccountCommission, commission); err != nil {
		return err
	}
	if err := s.walletService.BumpCounter(ctx, tx, inviter.ID, domain.CounterCommission, commission); err != nil {
		return err
	}

	txn := &domain.Transaction{
		ID:          uuid.New().String(),
		UserID:      inviter.ID,
		ByUserID:    &buyer.ID,
		PlanID:      &plan.ID,
		Kind:        domain.KindCommission,
		Status:      domain.StatusCompleted,
		AmountCents: commission,
	}
	if err := s.transactionRepo.WithTx(tx).Create(ctx, txn); err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to record commission transaction", err)
	}

	s.logger.Info().
		Str("inviter_id", inviter.ID).
		Str("buyer_id", buyer.ID).
		Int64("commission", commission).
		Msg("Referral commission paid")
	return nil
}

func (s *investService) Expire(ctx context.Context, investmentID string) error {
	return s.dbManager.RunInTx(ctx, func(tx *sql.Tx) error {
		repo := s.investmentRepo.WithTx(tx)
		investment, err := repo.GetByIDForUpdate(ctx, investmentID)
		if err != nil {
			return domain.WrapError(domain.ErrInternal, "failed to load investment", err)
		}
		if investment == nil {
			return domain.NewError(domain.ErrNotFound, "investment not found")
		}
		if !investment.IsActive {
			return nil
		}
		if !investment.Expired(time.Now()) {
			return domain.NewError(domain.ErrInvalidState, "investment has not reached its term")
		}
		if err := repo.Deactivate(ctx, investmentID); err != nil {
			return domain.WrapError(domain.ErrInternal, "failed to deactivate investment", err)
		}
		return nil
	})
}

func (s *investService) ListInvestments(ctx context.Context, userID string) ([]*domain.Investment, error) {
	investments, err := s.investmentRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to list investments", err)
	}
	return investments, nil
}

func (s *investService) broadcast(event *domain.LedgerEvent) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.Warn().Err(err).Str("type", event.Type).Msg("Failed to broadcast ledger event")
	}
}
