package accountservice

import (
	"context"
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/uuakee/xotc/internal/application/walletservice"
	"github.com/uuakee/xotc/internal/domain"
	"github.com/uuakee/xotc/internal/infrastructure/database"
	"github.com/uuakee/xotc/internal/repositories/referralrepo"
	"github.com/uuakee/xotc/internal/repositories/userrepo"
)

// SignupBonusCents is credited to every new wallet at registration.
const SignupBonusCents = 1000

const tokenTTL = 24 * time.Hour

type RegisterInput struct {
	RealName     string
	Phone        string
	CPF          string
	Password     string
	ReferralCode string
}

type ReferralStats struct {
	ReferralCode         string             `json:"referral_code"`
	ReferralCount        int                `json:"referral_count"`
	TotalCommissionCents int64              `json:"total_commission_cents"`
	Referrals            []*domain.Referral `json:"referrals"`
}

type IAccountService interface {
	// Register creates the user, their wallet, the referral edge when an
	// invite code was used, and the signup bonus in one transaction.
	Register(ctx context.Context, input *RegisterInput) (*domain.User, error)
	Login(ctx context.Context, phone, password string) (string, *domain.User, error)
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	GetBalance(ctx context.Context, userID string) (*domain.Wallet, error)
	GetReferralStats(ctx context.Context, userID string) (*ReferralStats, error)
}

type accountService struct {
	dbManager     *database.DBManager
	userRepo      userrepo.IUserRepository
	referralRepo  referralrepo.IReferralRepository
	walletService walletservice.IWalletService
	jwtSecret     string
	logger        zerolog.Logger
}

func New(
	dbManager *database.DBManager,
	userRepo userrepo.IUserRepository,
	referralRepo referralrepo.IReferralRepository,
	walletService walletservice.IWalletService,
	jwtSecret string,
	logger zerolog.Logger,
) IAccountService {
	return &accountService{
		dbManager:     dbManager,
		userRepo:      userRepo,
		referralRepo:  referralRepo,
		walletService: walletService,
		jwtSecret:     jwtSecret,
		logger:        logger,
	}
}

func (s *accountService) Register(ctx context.Context, input *RegisterInput) (*domain.User, error) {
	if input.RealName == "" || input.Phone == "" || input.CPF == "" {
		return nil, domain.NewError(domain.ErrInvalidState, "name, phone and cpf are required")
	}
	if len(input.Password) < 6 {
		return nil, domain.NewError(domain.ErrInvalidState, "password must be at least 6 characters")
	}

	exists, err := s.userRepo.ExistsByCPFOrPhone(ctx, input.CPF, input.Phone)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to check registration", err)
	}
	if exists {
		return nil, domain.NewError(domain.ErrInvalidState, "cpf or phone already registered")
	}

	var inviter *domain.User
	if input.ReferralCode != "" {
		inviter, err = s.userRepo.GetByReferralCode(ctx, input.ReferralCode)
		if err != nil {
			return nil, domain.WrapError(domain.ErrInternal, "failed to resolve referral code", err)
		}
		if inviter == nil {
			return nil, domain.NewError(domain.ErrNotFound, "referral code not found")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to hash password", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		RealName:     input.RealName,
		Phone:        input.Phone,
		CPF:          input.CPF,
		PasswordHash: string(hash),
		Level:        domain.Level5,
		IsActive:     true,
		ReferralCode: newReferralCode(),
	}
	if inviter != nil {
		user.InvitedByID = &inviter.ID
	}

	err = s.dbManager.RunInTx(ctx, func(tx *sql.Tx) error {
		userRepo := s.userRepo.WithTx(tx)

		if err := userRepo.Create(ctx, user); err != nil {
			return domain.WrapError(domain.ErrInternal, "failed to create user", err)
		}
		if _, err := s.walletService.CreateForUser(ctx, tx, user.ID); err != nil {
			return err
		}
		if err := s.walletService.Credit(ctx, tx, user.ID, domain.SubAccountBalance, SignupBonusCents); err != nil {
			return err
		}

		if inviter != nil {
			referral := &domain.Referral{
				ID:          uuid.New().String(),
				UserID:      user.ID,
				InvitedByID: inviter.ID,
			}
			if err := s.referralRepo.WithTx(tx).CreateReferral(ctx, referral); err != nil {
				return domain.WrapError(domain.ErrInternal, "failed to record referral", err)
			}
			if err := userRepo.IncrementReferralCount(ctx, inviter.ID); err != nil {
				return domain.WrapError(domain.ErrInternal, "failed to bump referral count", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Bool("referred", inviter != nil).
		Msg("User registered")
	return user, nil
}

func (s *accountService) Login(ctx context.Context, phone, password string) (string, *domain.User, error) {
	user, err := s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrInternal, "failed to load user", err)
	}
	if user == nil {
		return "", nil, domain.NewError(domain.ErrNotFound, "invalid credentials")
	}
	if !user.IsActive {
		return "", nil, domain.NewError(domain.ErrInvalidState, "account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.NewError(domain.ErrNotFound, "invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"is_admin": user.IsAdmin,
		"level":    string(user.Level),
		"exp":      time.Now().Add(tokenTTL).Unix(),
	})
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrInternal, "failed to sign token", err)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to update last login")
	}
	return signed, user, nil
}

func (s *accountService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to load user", err)
	}
	if user == nil {
		return nil, domain.NewError(domain.ErrNotFound, "user not found")
	}
	return user, nil
}

func (s *accountService) GetBalance(ctx context.Context, userID string) (*domain.Wallet, error) {
	return s.walletService.GetByUserID(ctx, userID)
}

func (s *accountService) GetReferralStats(ctx context.Context, userID string) (*ReferralStats, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.walletService.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	referrals, err := s.referralRepo.ListByInviter(ctx, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to list referrals", err)
	}
	// the referral edges are the source of truth; the denormalized counter
	// on the user row is display-only
	count, err := s.referralRepo.CountByInviter(ctx, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInternal, "failed to count referrals", err)
	}

	return &ReferralStats{
		ReferralCode:         user.ReferralCode,
		ReferralCount:        count,
		TotalCommissionCents: wallet.TotalCommissionCents,
		Referrals:            referrals,
	}, nil
}

const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newReferralCode() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return uuid.New().String()[:8]
	}
	for i := range buf {
		buf[i] = referralAlphabet[int(buf[i])%len(referralAlphabet)]
	}
	return string(buf)
}
