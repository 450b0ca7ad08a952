package walletservice

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/repositories/walletrepo"
)

// IWalletService is the ledger primitive layer. The transactional methods
// take the caller's open *sql.Tx so a purchase, payout, or commission touches
// every balance inside one atomic unit.
type IWalletService interface {
	CreateForUser(ctx context.Context, tx *sql.Tx, userID string) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	Credit(ctx context.Context, tx *sql.Tx, userID string, sub domain.SubAccount, amountCents int64) error
	Debit(ctx context.Context, tx *sql.Tx, userID string, sub domain.SubAccount, amountCents int64) error
	BumpCounter(ctx context.Context, tx *sql.Tx, userID string, counter domain.Counter, amountCents int64) error
}

type walletService struct {
	walletRepo walletrepo.IWalletRepository
	logger     zerolog.Logger
}

func New(walletRepo walletrepo.IWalletRepository, logger zerolog.Logger) IWalletService {
	return &walletService{
		walletRepo: walletRepo,
		logger:     logger,
	}
}

func (s *walletService) CreateForUser(ctx context.Context, tx *sql.Tx, userID string) (*domain.Wallet, error) {
	wallet := &domain.Wallet{
		ID:     uuid.New().String(),
		UserID: userID,
	}
	if err := s.walletRepo.WithTx(tx).Create(ctx, wallet); err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to create wallet", err)
	}
	return wallet, nil
}

func (s *walletService) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to load wallet", err)
	}
	if wallet == nil {
		return nil, domain.NewError(domain.ErrNotFound, "wallet not found")
	}
	return wallet, nil
}

// Credit locks the wallet row before mutating it so concurrent movers
// serialize in a stable order.
func (s *walletService) Credit(ctx context.Context, tx *sql.Tx, userID string, sub domain.SubAccount, amountCents int64) error {
	if amountCents <= 0 {
		return domain.NewError(domain.ErrInvalidAmount, "credit amount must be positive")
	}

	repo := s.walletRepo.WithTx(tx)
	wallet, err := repo.GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to lock wallet", err)
	}
	if wallet == nil {
		return domain.NewError(domain.ErrNotFound, "wallet not found")
	}

	if err := repo.Credit(ctx, userID, sub, amountCents); err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to credit wallet", err)
	}
	return nil
}

func (s *walletService) Debit(ctx context.Context, tx *sql.Tx, userID string, sub domain.SubAccount, amountCents int64) error {
	if amountCents <= 0 {
		return domain.NewError(domain.ErrInvalidAmount, "debit amount must be positive")
	}

	repo := s.walletRepo.WithTx(tx)
	wallet, err := repo.GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to lock wallet", err)
	}
	if wallet == nil {
		return domain.NewError(domain.ErrNotFound, "wallet not found")
	}

	ok, err := repo.Debit(ctx, userID, sub, amountCents)
	if err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to debit wallet", err)
	}
	if !ok {
		s.logger.Warn().
			Str("user_id", userID).
			Str("sub_account", string(sub)).
			Int64("amount", amountCents).
			Int64("available", wallet.SubAccountBalance(sub)).
			Msg("Debit rejected: insufficient funds")
		return domain.NewError(domain.ErrInsufficientFunds, "insufficient funds")
	}
	return nil
}

func (s *walletService) BumpCounter(ctx context.Context, tx *sql.Tx, userID string, counter domain.Counter, amountCents int64) error {
	if err := s.walletRepo.WithTx(tx).AddCounter(ctx, userID, counter, amountCents); err != nil {
		return domain.WrapError(domain.ErrInternal, "failed to update wallet counter", err)
	}
	return nil
}
