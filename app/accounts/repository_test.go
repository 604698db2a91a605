package accounts

import (
	"context"
	"testing"

	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/internal/cache"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/models"
	"github.com/joefazee/optionsdesk/tests/suites"
	"github.com/stretchr/testify/suite"
)

type AccountRepositoryTestSuite struct {
	suites.RepositoryTestSuite
	svc Service
}

func TestAccountRepository(t *testing.T) {
	suite.Run(t, new(AccountRepositoryTestSuite))
}

func (s *AccountRepositoryTestSuite) SetupSuite() {
	s.RepositoryTestSuite.SetupSuite()
	svc, err := NewService(NewRepository(s.DB), cache.NewMemoryCache[string](), nil,
		GetDefaultConfig(), logger.NewNullLogger(), nil)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *AccountRepositoryTestSuite) TestFundPersists() {
	ctx := context.Background()

	_, err := s.svc.Fund(ctx, bob, chain.MustEther("3"))
	s.Require().NoError(err)
	account, err := s.svc.Fund(ctx, bob, chain.MustEther("4"))
	s.Require().NoError(err)
	s.True(account.Balance.Equal(chain.MustEther("7")))

	entries, total, err := s.svc.Entries(ctx, ledger.EntryFilter{Account: bob, Kind: models.EntryKindFaucet})
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Len(entries, 2)
	s.Equal(int64(1), s.CountRecords("accounts"))
}

func (s *AccountRepositoryTestSuite) TestRejectedFundLeavesNoRows() {
	_, err := s.svc.Fund(context.Background(), bob, chain.MustEther("5000"))
	s.ErrorIs(err, ErrFaucetLimit)
	s.Equal(int64(0), s.CountRecords("ledger_entries"))
	s.Equal(int64(0), s.CountRecords("accounts"))
}
