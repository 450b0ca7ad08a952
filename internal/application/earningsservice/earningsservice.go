package earningsservice

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
	"github.com/uuakee/xotc/pkg/metrics"
	"github.com/uuakee/xotc/pkg/money"
)

// DefaultBatchSize bounds how many due installments one run will touch.
const DefaultBatchSize = 500

// BatchResult summarizes one scheduler pass. Failed counts installments
// whose transaction rolled back; they stay SCHEDULED and the next pass
// retries them.
type BatchResult struct {
	Processed   int `json:"processed"`
	Paid        int `json:"paid"`
	Unvalidated int `json:"unvalidated"`
	Failed      int `json:"failed"`
}

type IEarningsService interface {
	// ProcessScheduled pays every due SCHEDULED installment. Each
	// installment settles in its own transaction so one failure never
	// poisons the batch.
	ProcessScheduled(ctx context.Context) (*BatchResult, error)
	// PayInvestmentEarnings settles one investment's pending installment
	// immediately, ignoring the due cutoff.
	PayInvestmentEarnings(ctx context.Context, investmentID string) error
}

type earningsService struct {
	dbManager      *database.DBManager
	investmentRepo investmentrepo.IInvestmentRepository
	walletService  walletservice.IWalletService
	broadcaster    interfaces.Broadcaster
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

func New(
	dbManager *database.DBManager,
	investmentRepo investmentrepo.IInvestmentRepository,
	walletService walletservice.IWalletService,
	broadcaster interfaces.Broadcaster,
	m *metrics.Metrics,
	logger zerolog.Logger,
) IEarningsService {
	return &earningsService{
		dbManager:      dbManager,
		investmentRepo: investmentRepo,
		walletService:  walletService,
		broadcaster:    broadcaster,
		metrics:        m,
		logger:         logger,
	}
}

func (s *earningsService) ProcessScheduled(ctx context.Context) (*BatchResult, error) {
	due, err := s.investmentRepo.ListScheduledDue(ctx, DefaultBatchSize)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to list due earnings", err)
	}

	result := &BatchResult{}
	for _, earning := range due {
		result.Processed++
		paid, err := s.settleOne(ctx, earning)
		switch {
		case err != nil:
			result.Failed++
			s.metrics.EarningsFailed.Inc()
			s.logger.Error().Err(err).
				Str("earning_id", earning.ID).
				Str("investment_id", earning.InvestmentID).
				Msg("Failed to settle earning")
		case paid:
			result.Paid++
			s.metrics.EarningsPaid.Inc()
		default:
			result.Unvalidated++
			s.metrics.EarningsUnvalidated.Inc()
		}
	}

	s.logger.Info().
		Int("processed", result.Processed).
		Int("paid", result.Paid).
		Int("unvalidated", result.Unvalidated).
		Int("failed", result.Failed).
		Msg("Earnings batch complete")
	return result, nil
}

func (s *earningsService) PayInvestmentEarnings(ctx context.Context, investmentID string) error {
	earning, err := s.investmentRepo.GetScheduledByInvestment(ctx, investmentID)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to load scheduled earning", err)
	}
	if earning == nil {
		return domain.NewError(domain.ErrNotFound, "no scheduled earning for investment")
	}
	if _, err := s.settleOne(ctx, earning); err != nil {
		return err
	}
	return nil
}

// settleOne decides pay or invalidate for one installment inside its own
// transaction. Returns true when the wallet was credited. An installment
// whose investment is gone, retired, or past its term dies UNVALIDATED
// without moving money, and an expired investment is retired in the same
// unit.
func (s *earningsService) settleOne(ctx context.Context, earning *domain.InvestmentEarning) (bool, error) {
	var paid bool
	err := s.dbManager.RunInTx(ctx, func(tx *sql.Tx) error {
		repo := s.investmentRepo.WithTx(tx)

		investment, err := repo.GetByIDForUpdate(ctx, earning.InvestmentID)
		if err != nil {
			return err
		}

		if investment == nil || !investment.IsActive || investment.Expired(time.Now()) {
			if err := repo.MarkEarningUnvalidated(ctx, earning.ID); err != nil {
				if err == sql.ErrNoRows {
					// another run already settled it
					return nil
				}
				return err
			}
			if investment != nil && investment.IsActive {
				return repo.Deactivate(ctx, investment.ID)
			}
			return nil
		}

		if err := repo.MarkEarningPaid(ctx, earning.ID); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return err
		}

		if err := s.walletService.Credit(ctx, tx, earning.UserID, domain.SubAccountBalance, earning.AmountCents); err != nil {
			return err
		}
		if err := repo.AddEarnings(ctx, investment.ID, earning.AmountCents); err != nil {
			return err
		}

		next := &domain.InvestmentEarning{
			ID:           uuid.New().String(),
			InvestmentID: investment.ID,
			UserID:       investment.UserID,
			PlanID:       investment.PlanID,
			AmountCents:  money.Percent(investment.AmountCents, investment.ProfitPct),
			Status:       domain.EarningScheduled,
		}
		if err := repo.CreateEarning(ctx, next); err != nil && err != investmentrepo.ErrDuplicateScheduled {
			return err
		}

		paid = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if paid {
		s.broadcast(&domain.LedgerEvent{
			Type:         "earning_paid",
			UserID:       earning.UserID,
			InvestmentID: earning.InvestmentID,
			AmountCents:  earning.AmountCents,
			Message:      "Rendimento creditado: " + money.Format(earning.AmountCents),
			Timestamp:    time.Now(),
		})
	}
	return paid, nil
}

func (s *earningsService) broadcast(event *domain.LedgerEvent) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.Warn().Err(err).Str("type", event.Type).Msg("Failed to broadcast ledger event")
	}
}
