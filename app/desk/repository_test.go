package desk

import (
	"context"
	"testing"

	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/models"
	"github.com/joefazee/optionsdesk/tests/suites"
	"github.com/stretchr/testify/suite"
)

type DeskRepositoryTestSuite struct {
	suites.RepositoryTestSuite
	repo Repository
	svc  Service
}

func TestDeskRepository(t *testing.T) {
	suite.Run(t, new(DeskRepositoryTestSuite))
}

func (s *DeskRepositoryTestSuite) SetupSuite() {
	s.RepositoryTestSuite.SetupSuite()
	s.repo = NewRepository(s.DB)
	s.svc = NewService(s.repo, pricing.MustCalculator(pricing.GetDefaultConfig()), GetDefaultConfig(),
		nil, logger.NewNullLogger(), nil)
}

func (s *DeskRepositoryTestSuite) TestDeployPersistsEverything() {
	ctx := context.Background()

	_, err := s.svc.Deploy(ctx, constructor("1", "100"))
	s.AssertNoDBError(err)

	s.Equal(int64(1), s.CountRecords("desks"))
	s.Equal(int64(3), s.CountRecords("token_prices"))
	s.Equal(int64(3), s.CountRecords("price_points"))
	s.Equal(int64(1), s.CountRecords("events"))
	// prefund mint plus both sides of the float transfer
	s.Equal(int64(3), s.CountRecords("ledger_entries"))

	desk, err := s.repo.GetDesk(ctx)
	s.Require().NoError(err)
	s.Equal(deployer, desk.Admin)
	s.True(chain.MustEther("1").Equal(desk.Float))

	price, err := s.repo.Prices().GetPrice(ctx, "COMP")
	s.Require().NoError(err)
	s.True(chain.MustEther("0.3").Equal(price.Price))
}

func (s *DeskRepositoryTestSuite) TestSecondDeployRollsBack() {
	ctx := context.Background()
	_, err := s.svc.Deploy(ctx, constructor("1", "100"))
	s.Require().NoError(err)

	_, err = s.svc.Deploy(ctx, constructor("1", "100"))
	reason, ok := models.RevertReason(err)
	s.Require().True(ok)
	s.Equal(models.ReasonDeskAlreadyDeployed, reason)
	s.Equal(int64(3), s.CountRecords("ledger_entries"))
}

func (s *DeskRepositoryTestSuite) TestCreateDeskConflict() {
	ctx := context.Background()
	desk := &models.Desk{
		Admin: deployer, Escrow: chain.EscrowAddress(deployer),
		PriceUnit: chain.MustEther("0.1"), ContractSize: 100,
	}
	s.Require().NoError(s.repo.CreateDesk(ctx, desk))

	again := *desk
	err := s.repo.CreateDesk(ctx, &again)
	reason, _ := models.RevertReason(err)
	s.Equal(models.ReasonDeskAlreadyDeployed, reason)
}
