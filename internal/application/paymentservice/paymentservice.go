package paymentservice

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
	"github.com/uuakee/xotc/internal/repositories/transactionrepo"
	"github.com/uuakee/xotc/internal/repositories/userrepo"
	"github.com/uuakee/xotc/pkg/metrics"
	"github.com/uuakee/xotc/pkg/money"
)

// MinDepositCents is the smallest accepted deposit.
const MinDepositCents = 2000

// MinWithdrawalCents is the smallest accepted withdrawal request.
const MinWithdrawalCents = 3000

// DepositIntent is what the user needs to pay a pending deposit.
type DepositIntent struct {
	TransactionID string `json:"transaction_id"`
	AmountCents   int64  `json:"amount_cents"`
	PixQRCode     string `json:"pix_qrcode"`
	PixKey        string `json:"pix_key"`
}

type IPaymentService interface {
	// CreateDeposit opens a PENDING deposit and asks the gateway for a PIX
	// charge. The gateway call happens outside any open transaction.
	CreateDeposit(ctx context.Context, userID string, amountCents int64) (*DepositIntent, error)
	HandleDepositCallback(ctx context.Context, cb *domain.GatewayCallback) error

	// RequestWithdrawal debits the withdrawable balance up front and opens
	// a PENDING withdrawal awaiting admin approval.
	RequestWithdrawal(ctx context.Context, userID string, amountCents int64, pixKey string, pixType domain.PixType) (*domain.Transaction, error)
	ApproveWithdrawal(ctx context.Context, adminID, transactionID string) error
	HandleWithdrawalCallback(ctx context.Context, cb *domain.GatewayCallback) error

	// AdjustWallet is the administrative sub-account correction. The delta
	// may be negative; the paired transaction records the approver.
	AdjustWallet(ctx context.Context, adminID, userID string, sub domain.SubAccount, deltaCents int64) error

	ListDeposits(ctx context.Context, userID string) ([]*domain.Transaction, error)
	ListWithdrawals(ctx context.Context, userID string) ([]*domain.Transaction, error)
	ListPendingWithdrawals(ctx context.Context) ([]*domain.Transaction, error)
	UpdateGatewayCredentials(baseURL, publicKey, secretKey string)
}

type paymentService struct {
	dbManager       *database.DBManager
	transactionRepo transactionrepo.ITransactionRepository
	userRepo        userrepo.IUserRepository
	walletService   walletservice.IWalletService
	gateway         interfaces.GatewayClient
	broadcaster     interfaces.Broadcaster
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

func New(
	dbManager *database.DBManager,
	transactionRepo transactionrepo.ITransactionRepository,
	userRepo userrepo.IUserRepository,
	walletService walletservice.IWalletService,
	gateway interfaces.GatewayClient,
	broadcaster interfaces.Broadcaster,
	m *metrics.Metrics,
	logger zerolog.Logger,
) IPaymentService {
	return &paymentService{
		dbManager:       dbManager,
		transactionRepo: transactionRepo,
		userRepo:        userRepo,
		walletService:   walletService,
		gateway:         gateway,
		broadcaster:     broadcaster,
		metrics:         m,
		logger:          logger,
	}
}

func (s *paymentService) CreateDeposit(ctx context.Context, userID string, amountCents int64) (*DepositIntent, error) {
	if amountCents < MinDepositCents {
		return nil, domain.Errorf(domain.ErrInvalidAmount, "minimum deposit is %s", money.Format(MinDepositCents))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to load user", err)
	}
	if user == nil {
		return nil, domain.NewError(domain.ErrNotFound, "user not found")
	}

	txn := &domain.Transaction{
		ID:          uuid.New().String(),
		UserID:      userID,
		Kind:        domain.KindDeposit,
		Status:      domain.StatusPending,
		AmountCents: amountCents,
	}
	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to record deposit", err)
	}

	charge, err := s.gateway.CreateCharge(ctx, &domain.ChargeRequest{
		UserID:        userID,
		TransactionID: txn.ID,
		AmountCents:   amountCents,
		CustomerName:  user.RealName,
		CustomerCPF:   user.CPF,
	})
	if err != nil {
		s.metrics.GatewayErrors.WithLabelValues("create_charge").Inc()
		// the row stays PENDING so the caller can retry charge creation
		s.logger.Warn().Err(err).Str("transaction_id", txn.ID).Msg("Deposit charge creation failed")
		return nil, err
	}

	if err := s.transactionRepo.SetGatewayRef(ctx, txn.ID, charge.ExternalID, nil); err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to store gateway reference", err)
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("transaction_id", txn.ID).
		Int64("amount", amountCents).
		Msg("Deposit charge created")

	return &DepositIntent{
		TransactionID: txn.ID,
		AmountCents:   amountCents,
		PixQRCode:     charge.PixQRCode,
		PixKey:        charge.PixKey,
	}, nil
}

func (s *paymentService) HandleDepositCallback(ctx context.Context, cb *domain.GatewayCallback) error {
	meta, err := cb.DecodeMetadata()
	if err != nil {
		return err
	}
	if meta.Purpose != domain.PurposeDeposit {
		return domain.Errorf(domain.ErrInvalidState, "callback purpose %s is not a deposit", meta.Purpose)
	}
	status := domain.MapDepositStatus(cb.Status)

	err = s.dbManager.RunInTx(ctx, func(tx *sql.Tx) error {
		repo := s.transactionRepo.WithTx(tx)

		txn, err := s.correlate(ctx, repo, meta, cb.ExternalID, domain.KindDeposit)
		if err != nil {
			return err
		}
		if txn.Status.Terminal() {
			return domain.Errorf(domain.ErrReplayConflict, "deposit %s already settled as %s", txn.ID, txn.Status)
		}
		if status == domain.StatusPending {
			// still waiting for payment, keep the latest provider payload
			return repo.SetGatewayRef(ctx, txn.ID, cb.ExternalID, cb.Raw)
		}

		if err := repo.MarkSettled(ctx, txn.ID, status, cb.PaidAt, cb.Raw); err != nil {
			if err == sql.ErrNoRows {
				return domain.Errorf(domain.ErrReplayConflict, "deposit %s already settled", txn.ID)
			}
			return domain.WrapError(domain.ErrInternal, "failed to settle deposit", err)
		}

		if status == domain.StatusCompleted {
			if err := s.walletService.Credit(ctx, tx, txn.UserID, domain.SubAccountBalance, txn.AmountCents); err != nil {
				return err
			}
			if err := s.walletService.BumpCounter(ctx, tx, txn.UserID, domain.CounterDeposit, txn.AmountCents); err != nil {
				return err
			}
			s.broadcast(&domain.LedgerEvent{
				Type:          "deposit_completed",
				UserID:        txn.UserID,
				TransactionID: txn.ID,
				Status:        string(status),
				AmountCents:   txn.AmountCents,
				Message:       "Depósito confirmado: " + money.Format(txn.AmountCents),
				Timestamp:     time.Now(),
			})
		}
		return nil
	})

	s.metrics.CallbacksProcessed.WithLabelValues(string(domain.PurposeDeposit), string(status)).Inc()
	return err
}

func (s *paymentService) RequestWithdrawal(ctx context.Context, userID string, amountCents int64, pixKey string, pixType domain.PixType) (*domain.Transaction, error) {
	if amountCents < MinWithdrawalCents {
		return nil, domain.Errorf(domain.ErrInvalidAmount, "minimum withdrawal is %s", money.Format(MinWithdrawalCents))
	}
	if pixKey == "" {
		return nil, domain.NewError(domain.ErrInvalidState, "pix key is required")
	}

	var txn *domain.Transaction
	err := s.dbManager.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.walletService.Debit(ctx, tx, userID, domain.SubAccountWithdrawal, amountCents); err != nil {
			return err
		}
		if err := s.walletService.BumpCounter(ctx, tx, userID, domain.CounterWithdrawal, amountCents); err != nil {
			return err
		}

		txn = &domain.Transaction{
			ID:          uuid.New().String(),
			UserID:      userID,
			Kind:        domain.KindWithdrawal,
			Status:      domain.StatusPending,
			AmountCents: amountCents,
			PixKey:      &pixKey,
			PixType:     &pixType,
		}
		return s.transactionRepo.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("transaction_id", txn.ID).
		Int64("amount", amountCents).
		Msg("Withdrawal requested")
	return txn, nil
}

// ApproveWithdrawal submits the payout to the gateway and settles the
// transaction as COMPLETED on acceptance. A gateway rejection leaves the row
// PENDING for a retry; the provider's postback is only a status confirmation.
func (s *paymentService) ApproveWithdrawal(ctx context.Context, adminID, transactionID string) error {
	txn, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to load withdrawal", err)
	}
	if txn == nil {
		return domain.NewError(domain.ErrNotFound, "withdrawal not found")
	}
	if txn.Kind != domain.KindWithdrawal {
		return domain.NewError(domain.ErrInvalidState, "transaction is not a withdrawal")
	}
	if txn.Status != domain.StatusPending {
		return domain.Errorf(domain.ErrInvalidState, "withdrawal is %s, not pending", txn.Status)
	}
	if txn.ExternalID != nil {
		return domain.NewError(domain.ErrReplayConflict, "withdrawal already submitted to gateway")
	}
	if txn.PixKey == nil || txn.PixType == nil {
		return domain.NewError(domain.ErrInvalidState, "withdrawal has no payout destination")
	}

	transfer, err := s.gateway.CreateTransfer(ctx, &domain.TransferRequest{
		UserID:        txn.UserID,
		TransactionID: txn.ID,
		AmountCents:   txn.AmountCents,
		PixKey:        *txn.PixKey,
		PixType:       *txn.PixType,
	})
	if err != nil {
		s.metrics.GatewayErrors.WithLabelValues("create_transfer").Inc()
		return err
	}

	if err := s.transactionRepo.SetGatewayRef(ctx, txn.ID, transfer.ExternalID, nil); err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to store gateway reference", err)
	}
	if err := s.transactionRepo.SetApprover(ctx, txn.ID, adminID); err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to record approver", err)
	}
	if err := s.transactionRepo.MarkSettled(ctx, txn.ID, domain.StatusCompleted, nil, nil); err != nil {
		if err == sql.ErrNoRows {
			return domain.Errorf(domain.ErrReplayConflict, "withdrawal %s already settled", txn.ID)
		}
		return domain.WrapError(domain.ErrInternal, "failed to settle withdrawal", err)
	}

	s.broadcast(&domain.LedgerEvent{
		Type:          "withdrawal_completed",
		UserID:        txn.UserID,
		TransactionID: txn.ID,
		Status:        string(domain.StatusCompleted),
		AmountCents:   txn.AmountCents,
		Message:       "Saque pago: " + money.Format(txn.AmountCents),
		Timestamp:     time.Now(),
	})

	s.logger.Info().
		Str("admin_id", adminID).
		Str("transaction_id", txn.ID).
		Int64("amount", txn.AmountCents).
		Msg("Withdrawal approved and paid")
	return nil
}

func (s *paymentService) HandleWithdrawalCallback(ctx context.Context, cb *domain.GatewayCallback) error {
	meta, err := cb.DecodeMetadata()
	if err != nil {
		return err
	}
	if meta.Purpose != domain.PurposeWithdrawal {
		return domain.Errorf(domain.ErrInvalidState, "callback purpose %s is not a withdrawal", meta.Purpose)
	}
	status := domain.MapWithdrawalStatus(cb.Status)

	err = s.dbManager.RunInTx(ctx, func(tx *sql.Tx) error {
		repo := s.transactionRepo.WithTx(tx)

		txn, err := s.correlate(ctx, repo, meta, cb.ExternalID, domain.KindWithdrawal)
		if err != nil {
			return err
		}
		if txn.Status.Terminal() {
			return domain.Errorf(domain.ErrReplayConflict, "withdrawal %s already settled as %s", txn.ID, txn.Status)
		}
		if status == domain.StatusPending {
			return repo.SetGatewayRef(ctx, txn.ID, cb.ExternalID, cb.Raw)
		}

		if err := repo.MarkSettled(ctx, txn.ID, status, cb.PaidAt, cb.Raw); err != nil {
			if err == sql.ErrNoRows {
				return domain.Errorf(domain.ErrReplayConflict, "withdrawal %s already settled", txn.ID)
			}
			return domain.WrapError(domain.ErrInternal, "failed to settle withdrawal", err)
		}

		switch status {
		case domain.StatusCompleted:
			// funds already left the wallet at request time
			s.broadcast(&domain.LedgerEvent{
				Type:          "withdrawal_completed",
				UserID:        txn.UserID,
				TransactionID: txn.ID,
				Status:        string(status),
				AmountCents:   txn.AmountCents,
				Message:       "Saque pago: " + money.Format(txn.AmountCents),
				Timestamp:     time.Now(),
			})
		case domain.StatusFailed:
			// the payout bounced: the amount returns to the withdrawable
			// balance and the lifetime counter is reversed
			if err := s.walletService.Credit(ctx, tx, txn.UserID, domain.SubAccountWithdrawal, txn.AmountCents); err != nil {
				return err
			}
			if err := s.walletService.BumpCounter(ctx, tx, txn.UserID, domain.CounterWithdrawal, -txn.AmountCents); err != nil {
				return err
			}
			s.broadcast(&domain.LedgerEvent{
				Type:          "withdrawal_failed",
				UserID:        txn.UserID,
				TransactionID: txn.ID,
				Status:        string(status),
				AmountCents:   txn.AmountCents,
				Message:       "Saque falhou, valor devolvido ao saldo",
				Timestamp:     time.Now(),
			})
		}
		return nil
	})

	s.metrics.CallbacksProcessed.WithLabelValues(string(domain.PurposeWithdrawal), string(status)).Inc()
	return err
}

// correlate resolves a callback to its transaction row under lock. The
// metadata transaction id is authoritative, then the provider's own id,
// then the user's oldest pending row of the kind. The resolved row must be
// of the flow's kind; a cross-flow callback is rejected.
func (s *paymentService) correlate(ctx context.Context, repo transactionrepo.ITransactionRepository, meta *domain.CallbackMetadata, externalID string, kind domain.TransactionKind) (*domain.Transaction, error) {
	if meta.TransactionID != "" {
		return s.lockOfKind(ctx, repo, meta.TransactionID, kind)
	}

	if externalID != "" {
		txn, err := repo.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInternal, "failed to load transaction by external id", err)
		}
		if txn != nil {
			return s.lockOfKind(ctx, repo, txn.ID, kind)
		}
	}

	if meta.UserID == "" {
		return nil, domain.NewError(domain.ErrInvalidState, "callback metadata has no correlation keys")
	}
	txn, err := repo.FindPendingForUpdate(ctx, meta.UserID, kind)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to find pending transaction", err)
	}
	if txn == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "no pending %s for user %s", kind, meta.UserID)
	}
	return txn, nil
}

func (s *paymentService) lockOfKind(ctx context.Context, repo transactionrepo.ITransactionRepository, id string, kind domain.TransactionKind) (*domain.Transaction, error) {
	txn, err := repo.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to load transaction", err)
	}
	if txn == nil {
		return nil, domain.Errorf(domain.ErrNotFound, "transaction %s not found", id)
	}
	if txn.Kind != kind {
		return nil, domain.Errorf(domain.ErrInvalidState, "transaction %s is a %s, not a %s", txn.ID, txn.Kind, kind)
	}
	return txn, nil
}

func (s *paymentService) AdjustWallet(ctx context.Context, adminID, userID string, sub domain.SubAccount, deltaCents int64) error {
	if deltaCents == 0 {
		return domain.NewError(domain.ErrInvalidAmount, "adjustment must be non-zero")
	}

	kind := domain.KindDeposit
	if deltaCents < 0 {
		kind = domain.KindWithdrawal
	}

	err := s.dbManager.RunInTx(ctx, func(tx *sql.Tx) error {
		if deltaCents > 0 {
			if err := s.walletService.Credit(ctx, tx, userID, sub, deltaCents); err != nil {
				return err
			}
		} else {
			if err := s.walletService.Debit(ctx, tx, userID, sub, -deltaCents); err != nil {
				return err
			}
		}

		txn := &domain.Transaction{
			ID:          uuid.New().String(),
			UserID:      userID,
			ByUserID:    &adminID,
			Kind:        kind,
			Status:      domain.StatusCompleted,
			AmountCents: abs(deltaCents),
		}
		return s.transactionRepo.WithTx(tx).Create(ctx, txn)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("admin_id", adminID).
		Str("user_id", userID).
		Str("sub_account", string(sub)).
		Int64("delta", deltaCents).
		Msg("Wallet adjusted")
	return nil
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (s *paymentService) ListDeposits(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	txns, err := s.transactionRepo.ListByUserAndKind(ctx, userID, domain.KindDeposit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to list deposits", err)
	}
	return txns, nil
}

func (s *paymentService) ListWithdrawals(ctx context.Context, userID string) ([]*domain.Transaction, error) {
	txns, err := s.transactionRepo.ListByUserAndKind(ctx, userID, domain.KindWithdrawal)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to list withdrawals", err)
	}
	return txns, nil
}

func (s *paymentService) ListPendingWithdrawals(ctx context.Context) ([]*domain.Transaction, error) {
	txns, err := s.transactionRepo.ListByKindAndStatus(ctx, domain.KindWithdrawal, domain.StatusPending)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to list pending withdrawals", err)
	}
	return txns, nil
}

func (s *paymentService) UpdateGatewayCredentials(baseURL, publicKey, secretKey string) {
	s.gateway.UpdateCredentials(baseURL, publicKey, secretKey)
}

func (s *paymentService) broadcast(event *domain.LedgerEvent) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(event); err != nil {
		s.logger.Warn().Err(err).Str("type", event.Type).Msg("Failed to broadcast ledger event")
	}
}
