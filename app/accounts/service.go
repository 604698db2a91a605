package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/internal/cache"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/internal/security"
	"github.com/joefazee/optionsdesk/models"
	"github.com/shopspring/decimal"
)

const opFund = "fund"

type service struct {
	repo      Repository
	cache     cache.Cache[string]
	maker     security.Maker
	cfg       *Config
	faucetMax decimal.Decimal
	log       logger.Logger
	metrics   *metrics.Registry
	now       func() time.Time
}

// NewService creates a new accounts service
func NewService(repo Repository,
	c cache.Cache[string],
	maker security.Maker,
	cfg *Config,
	log logger.Logger,
	m *metrics.Registry,
) (Service, error) {
	if cfg == nil {
		cfg = GetDefaultConfig()
	}
	faucetMax, err := chain.ParseValue(cfg.FaucetMax, chain.Ether)
	if err != nil {
		return nil, fmt.Errorf("invalid faucet max: %w", err)
	}
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &service{
		repo:      repo,
		cache:     c,
		maker:     maker,
		cfg:       cfg,
		faucetMax: faucetMax,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}, nil
}

func challengeKey(address common.Address) string {
	return "auth:challenge:" + strings.ToLower(address.Hex())
}

func (s *service) challengeMessage(address common.Address, nonce string, issued time.Time) string {
	return fmt.Sprintf("%s wants you to sign in with your Ethereum account:\n%s\n\nNonce: %s\nIssued At: %s",
		s.cfg.Domain, address.Hex(), nonce, issued.UTC().Format(time.RFC3339))
}

func (s *service) Challenge(ctx context.Context, address common.Address) (*ChallengeResponse, error) {
	if address == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero address cannot sign in", models.ErrUnauthorized)
	}
	issued := s.now()
	nonce := uuid.NewString()
	message := s.challengeMessage(address, nonce, issued)

	// A new challenge replaces any pending one for the address.
	if err := s.cache.Set(ctx, challengeKey(address), message, s.cfg.ChallengeTTL); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}
	return &ChallengeResponse{
		Address:   address,
		Message:   message,
		Nonce:     nonce,
		ExpiresAt: issued.Add(s.cfg.ChallengeTTL),
	}, nil
}

func (s *service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	address := common.HexToAddress(req.Address)

	// Take consumes the challenge so a signature cannot be replayed.
	message, err := s.cache.Take(ctx, challengeKey(address))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrNoChallenge
		}
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	if err := security.VerifyPersonalSign(address, message, req.Signature); err != nil {
		s.log.Info("rejected wallet login", map[string]interface{}{
			"address": address.Hex(),
			"reason":  err.Error(),
		})
		return nil, ErrSignatureMismatch
	}

	token, payload, err := s.maker.CreateToken(address, s.cfg.TokenTTL, security.TokenScopeAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   payload.ExpiredAt,
		Address:     address,
	}, nil
}

func (s *service) Account(ctx context.Context, address common.Address) (*AccountResponse, error) {
	balance, err := ledger.NewBook(s.repo.Ledger()).Balance(ctx, address)
	if err != nil {
		return nil, err
	}
	return NewAccountResponse(address, balance), nil
}

func (s *service) Entries(ctx context.Context, filter ledger.EntryFilter) ([]models.LedgerEntry, int64, error) {
	return s.repo.Ledger().ListEntries(ctx, filter)
}

func (s *service) Fund(ctx context.Context, address common.Address, amount decimal.Decimal) (*AccountResponse, error) {
	if !amount.IsPositive() {
		return nil, models.ErrInvalidEntryAmount
	}
	if amount.GreaterThan(s.faucetMax) {
		return nil, ErrFaucetLimit
	}

	var balance decimal.Decimal
	err := s.repo.Transaction(ctx, func(repo ledger.Repository) error {
		book := ledger.NewBook(repo)
		if _, err := book.Mint(ctx, address, amount, "faucet"); err != nil {
			return err
		}
		var err error
		balance, err = book.Balance(ctx, address)
		return err
	})
	if err != nil {
		s.metrics.ObserveOperation(opFund, metrics.ResultError)
		return nil, err
	}
	s.metrics.ObserveOperation(opFund, metrics.ResultOK)

	s.log.Info("account funded", map[string]interface{}{
		"address": address.Hex(),
		"amount":  chain.FormatEther(amount),
	})
	return NewAccountResponse(address, balance), nil
}
