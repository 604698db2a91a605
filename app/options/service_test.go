package options

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joefazee/optionsdesk/app/events"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/app/pricing"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	bob     = common.HexToAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	charles = common.HexToAddress("0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB")
	dixie   = common.HexToAddress("0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb")
	erin    = common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	start   = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

const (
	month    = int64(2_592_000)
	twoMonth = int64(5_184_000)
	day      = 24 * time.Hour
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*models.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...*models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Types() []models.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	t         *testing.T
	svc       *service
	repo      *MemoryRepository
	prices    pricing.Service
	calc      *pricing.Calculator
	publisher *recordingPublisher
	metrics   *metrics.Registry
	now       time.Time
}

// newFixture deploys a desk with the given constructor units (CRV, UNI, COMP)
// and funds bob, charles and dixie with 100 ether each.
func newFixture(t *testing.T, crv, uni, comp int64) *fixture {
	t.Helper()
	ctx := context.Background()
	cfg := pricing.GetDefaultConfig()
	calc := pricing.MustCalculator(cfg)

	book := pricing.NewMemoryRepository()
	book.Desk = &models.Desk{
		ID:           models.DeskID,
		Admin:        admin,
		Escrow:       chain.EscrowAddress(admin),
		PriceUnit:    calc.PriceUnit(),
		ContractSize: calc.ContractSize(),
		DeployedAt:   start,
	}
	_, err := pricing.SeedPrices(ctx, book, calc,
		[]decimal.Decimal{decimal.NewFromInt(crv), decimal.NewFromInt(uni), decimal.NewFromInt(comp)}, start)
	require.NoError(t, err)

	balance := ledger.NewMemoryRepository()
	for _, a := range []common.Address{bob, charles, dixie} {
		balance.Set(a, chain.MustEther("100"))
	}

	f := &fixture{
		t:         t,
		repo:      NewMemoryRepository(book, balance),
		calc:      calc,
		publisher: &recordingPublisher{},
		metrics:   metrics.New(),
		now:       start,
	}
	f.prices = pricing.NewService(book, calc, cfg, nil, nil, logger.NewNullLogger(), nil)
	notifier := events.NewNotifier(f.publisher, logger.NewNullLogger(), 0)
	f.svc = NewService(f.repo, f.prices, GetDefaultConfig(), nil, notifier, logger.NewNullLogger(), f.metrics).(*service)
	f.svc.now = func() time.Time { return f.now }
	return f
}

// newPurchasedFixture mirrors a desk deployed with (3, 2, 1): bob opens a
// European COMP buy option at tier 0 for a month and charles buys it.
func newPurchasedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, 3, 2, 1)
	f.create(bob, "7", "COMP", 0, models.OptionSideBuy, models.OptionStyleEuropean, month)
	_, err := f.svc.BuyOption(context.Background(), 0, charles, chain.MustEther("10"))
	require.NoError(t, err)
	return f
}

func (f *fixture) create(from common.Address, value, symbol string, tier int, side models.OptionSide, style models.OptionStyle, duration int64) *models.Option {
	f.t.Helper()
	option, err := f.svc.CreateOption(context.Background(), from, chain.MustEther(value), &CreateOptionRequest{
		StrikeTier: tier,
		Symbol:     symbol,
		Duration:   duration,
		Side:       string(side),
		Style:      string(style),
	})
	require.NoError(f.t, err)
	return option
}

func (f *fixture) option(id uint64) *models.Option {
	f.t.Helper()
	option, err := f.svc.ViewOption(context.Background(), id)
	require.NoError(f.t, err)
	return option
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) setPrice(symbol string, units int64) {
	f.t.Helper()
	_, err := f.prices.UpdatePrice(context.Background(), admin, symbol, decimal.NewFromInt(units))
	require.NoError(f.t, err)
}

func (f *fixture) assertBalance(addr common.Address, ether string) {
	f.t.Helper()
	got := f.repo.Balance.BalanceOf(addr)
	assert.True(f.t, got.Equal(chain.MustEther(ether)), "balance of %s: got %s ether, want %s",
		addr.Hex(), chain.FormatEther(got), ether)
}

func (f *fixture) assertBalanced() {
	f.t.Helper()
	report, err := f.svc.Audit(context.Background())
	require.NoError(f.t, err)
	assert.True(f.t, report.Balanced, "escrow %s, expected %s", report.EscrowBalance, report.Expected)
}

func requireRevert(t *testing.T, err error, reason string) {
	t.Helper()
	require.Error(t, err)
	got, ok := models.RevertReason(err)
	require.True(t, ok, "expected revert %q, got %v", reason, err)
	assert.Equal(t, reason, got)
}

func TestCreateOption_Reverts(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		req    CreateOptionRequest
		reason string
	}{
		{"unsupported token", "5", CreateOptionRequest{Symbol: "DOGE", Duration: month, Side: "buy", Style: "European"}, models.ReasonTokenNotSupported},
		{"unsupported token before duration", "5", CreateOptionRequest{Symbol: "DOGE", Duration: 100_000, Side: "buy", Style: "European"}, models.ReasonTokenNotSupported},
		{"duration", "5", CreateOptionRequest{Symbol: "CRV", Duration: 100_000, Side: "buy", Style: "European"}, models.ReasonDurationNotAccepted},
		{"side", "5", CreateOptionRequest{Symbol: "CRV", Duration: month, Side: "hold", Style: "European"}, models.ReasonInvalidSide},
		{"style", "5", CreateOptionRequest{Symbol: "CRV", Duration: month, Side: "buy", Style: "Asian"}, models.ReasonInvalidStyle},
		{"tier", "5", CreateOptionRequest{StrikeTier: 6, Symbol: "CRV", Duration: month, Side: "buy", Style: "European"}, models.ReasonInvalidStrikeTier},
		{"strike cover", "3.99", CreateOptionRequest{Symbol: "CRV", Duration: month, Side: "buy", Style: "European"}, models.ReasonCoverStrike},
		{"market cover", "9", CreateOptionRequest{Symbol: "CRV", Duration: month, Side: "sell", Style: "American"}, models.ReasonCoverMarket},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 1, 2, 3)
			req := tt.req
			_, err := f.svc.CreateOption(context.Background(), bob, chain.MustEther(tt.value), &req)
			requireRevert(t, err, tt.reason)

			f.assertBalance(bob, "100")
			desk, err := f.repo.GetDesk(context.Background())
			require.NoError(t, err)
			assert.Equal(t, uint64(0), desk.OptionCount)
			assert.Empty(t, f.publisher.Types())
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RevertsTotal.WithLabelValues("create_option", tt.reason)))
		})
	}
}

func TestCreateOption_UnpricedToken(t *testing.T) {
	f := newFixture(t, 0, 0, 0)
	ctx := context.Background()

	_, err := f.svc.CreateOption(ctx, bob, chain.MustEther("7"), &CreateOptionRequest{
		Symbol: "COMP", Duration: month, Side: "buy", Style: "European",
	})
	requireRevert(t, err, models.ReasonTokenPriceNotSet)
	f.assertBalance(bob, "100")

	_, err = f.prices.Quote(ctx, &pricing.QuoteRequest{Symbol: "COMP", Duration: month})
	requireRevert(t, err, models.ReasonTokenPriceNotSet)

	f.setPrice("COMP", 1)
	option := f.create(bob, "7", "COMP", 0, models.OptionSideBuy, models.OptionStyleEuropean, month)
	assert.Equal(t, uint64(0), option.ID)
	f.assertBalance(bob, "96")
}

func TestCreateOption_BuySideEscrowsStrike(t *testing.T) {
	f := newFixture(t, 1, 2, 3)

	option := f.create(bob, "5", "crv", 0, models.OptionSideBuy, models.OptionStyleEuropean, month)

	assert.Equal(t, uint64(0), option.ID)
	assert.Equal(t, "CRV", option.Symbol)
	assert.Equal(t, bob, option.Owner)
	assert.Equal(t, common.Address{}, option.RiskTaker)
	assert.Equal(t, models.OptionStatusOpen, option.Status)
	assert.True(t, option.StrikePrice.Equal(chain.MustEther("0.04")))
	assert.True(t, option.HolderEscrow.Equal(chain.MustEther("4")))
	assert.True(t, option.Collateral.IsZero())
	assert.False(t, option.Purchased)
	assert.Nil(t, option.ExpiresAt)

	// only strike * 100 leaves the creator
	f.assertBalance(bob, "96")
	f.assertBalance(chain.EscrowAddress(admin), "4")
	f.assertBalanced()
	assert.Equal(t, []models.EventType{models.EventOptionCreated}, f.publisher.Types())
}

func TestCreateOption_SellSideEscrowsMarket(t *testing.T) {
	f := newFixture(t, 1, 2, 3)

	option := f.create(charles, "12", "CRV", 1, models.OptionSideSell, models.OptionStyleAmerican, month)

	assert.Equal(t, charles, option.RiskTaker)
	assert.Equal(t, common.Address{}, option.Owner)
	assert.True(t, option.StrikePrice.Equal(chain.MustEther("0.06")))
	assert.True(t, option.Collateral.Equal(chain.MustEther("10")))
	assert.True(t, option.Premium.Equal(f.calc.Premium(chain.MustEther("10"), month)))
	f.assertBalance(charles, "90")
	f.assertBalanced()
}

func TestCreateOption_IDsAreGlobal(t *testing.T) {
	f := newFixture(t, 3, 2, 1)

	comp := f.create(bob, "7", "COMP", 0, models.OptionSideBuy, models.OptionStyleEuropean, month)
	uni := f.create(dixie, "12", "UNI", 0, models.OptionSideBuy, models.OptionStyleEuropean, twoMonth)

	assert.Equal(t, uint64(0), comp.ID)
	assert.Equal(t, uint64(1), uni.ID)
	f.assertBalance(dixie, "92")
}

func TestCreateOption_InsufficientBalance(t *testing.T) {
	f := newFixture(t, 1, 2, 3)

	_, err := f.svc.CreateOption(context.Background(), erin, chain.MustEther("5"), &CreateOptionRequest{
		Symbol: "CRV", Duration: month, Side: "buy", Style: "European",
	})
	assert.ErrorIs(t, err, models.ErrInsufficientBalance)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("create_option", metrics.ResultError)))
}

func TestBuyOption_BuySide(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	f.create(bob, "5", "CRV", 0, models.OptionSideBuy, models.OptionStyleEuropean, month)

	_, err := f.svc.BuyOption(ctx, 0, charles, chain.MustEther("9"))
	requireRevert(t, err, models.ReasonPurchaseMarketPrice)
	f.assertBalance(charles, "100")

	_, err = f.svc.BuyOption(ctx, 0, bob, chain.MustEther("10"))
	requireRevert(t, err, models.ReasonBuyOwnOption)

	option, err := f.svc.BuyOption(ctx, 0, charles, chain.MustEther("10"))
	require.NoError(t, err)
	assert.True(t, option.Purchased)
	assert.Equal(t, models.OptionStatusActive, option.Status)
	assert.Equal(t, charles, option.RiskTaker)
	assert.Equal(t, bob, option.Owner)
	assert.True(t, option.Collateral.Equal(chain.MustEther("10")))
	assert.True(t, option.Premium.Equal(f.calc.Premium(chain.MustEther("10"), month)))
	require.NotNil(t, option.ExpiresAt)
	assert.Equal(t, start.Add(30*day), *option.ExpiresAt)

	f.assertBalance(charles, "90")
	f.assertBalance(chain.EscrowAddress(admin), "14")
	f.assertBalanced()

	_, err = f.svc.BuyOption(ctx, 0, dixie, chain.MustEther("10"))
	requireRevert(t, err, models.ReasonOptionPurchased)

	_, err = f.svc.BuyOption(ctx, 7, dixie, chain.MustEther("10"))
	requireRevert(t, err, models.ReasonOptionNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues("buy_option", metrics.ResultOK)))
	assert.Equal(t, []models.EventType{models.EventOptionCreated, models.EventOptionPurchased}, f.publisher.Types())
}

func TestBuyOption_SellSideForwardsValue(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	option := f.create(charles, "10", "CRV", 1, models.OptionSideSell, models.OptionStyleAmerican, month)

	short := option.Premium.Sub(decimal.NewFromInt(1))
	_, err := f.svc.BuyOption(ctx, option.ID, bob, short)
	requireRevert(t, err, models.ReasonPurchasePremium)

	bought, err := f.svc.BuyOption(ctx, option.ID, bob, chain.MustEther("2"))
	require.NoError(t, err)
	assert.Equal(t, bob, bought.Owner)
	assert.Equal(t, charles, bought.RiskTaker)

	// the writer receives exactly what the buyer sent
	f.assertBalance(charles, "92")
	f.assertBalance(bob, "98")
	f.assertBalanced()
}

func TestResale(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	_, err := f.svc.SellPurchasedOption(ctx, 0, charles, chain.MustEther("3"), "")
	requireRevert(t, err, models.ReasonNotOwner)

	_, err = f.svc.SellPurchasedOption(ctx, 0, bob, decimal.Zero, "")
	requireRevert(t, err, models.ReasonPriceMustBePositive)

	_, err = f.svc.SellPurchasedOption(ctx, 0, bob, chain.MustEther("3"), "")
	require.NoError(t, err)
	price, err := f.svc.ViewOptionForSale(ctx, 0)
	require.NoError(t, err)
	assert.True(t, price.Equal(chain.MustEther("3")))

	_, err = f.svc.SellPurchasedOption(ctx, 0, bob, chain.MustEther("5"), "")
	requireRevert(t, err, models.ReasonAlreadyForSale)

	_, err = f.svc.DelistOption(ctx, 0, charles)
	requireRevert(t, err, models.ReasonNotOwner)
	_, err = f.svc.DelistOption(ctx, 0, bob)
	require.NoError(t, err)
	price, err = f.svc.ViewOptionForSale(ctx, 0)
	require.NoError(t, err)
	assert.True(t, price.IsZero())
	_, err = f.svc.DelistOption(ctx, 0, bob)
	requireRevert(t, err, models.ReasonNotForSale)

	_, err = f.svc.BuyPurchasedOption(ctx, 0, dixie, chain.MustEther("5"))
	requireRevert(t, err, models.ReasonNotForSale)

	_, err = f.svc.SellPurchasedOption(ctx, 0, bob, chain.MustEther("5"), "<b>priced</b> to go")
	require.NoError(t, err)
	assert.Equal(t, "priced to go", f.option(0).ListingNote)

	_, err = f.svc.BuyPurchasedOption(ctx, 0, bob, chain.MustEther("5"))
	requireRevert(t, err, models.ReasonAlreadyOwner)

	_, err = f.svc.BuyPurchasedOption(ctx, 0, dixie, chain.MustEther("4"))
	requireRevert(t, err, models.ReasonInsufficientForResale)

	option, err := f.svc.BuyPurchasedOption(ctx, 0, dixie, chain.MustEther("5"))
	require.NoError(t, err)
	assert.Equal(t, dixie, option.Owner)
	assert.False(t, option.ForSale)
	assert.Empty(t, option.ListingNote)

	f.assertBalance(bob, "101")
	f.assertBalance(dixie, "95")
	f.assertBalanced()
}

func TestSellPurchasedOption_NeverPurchased(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()
	f.create(dixie, "12", "UNI", 0, models.OptionSideBuy, models.OptionStyleEuropean, twoMonth)

	_, err := f.svc.SellPurchasedOption(ctx, 1, dixie, chain.MustEther("20"), "")
	requireRevert(t, err, models.ReasonStillUpForSale)
}

func TestResale_ExpiredOption(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	_, err := f.svc.SellPurchasedOption(ctx, 0, bob, chain.MustEther("3"), "")
	require.NoError(t, err)

	f.advance(30 * day)
	_, err = f.svc.BuyPurchasedOption(ctx, 0, dixie, chain.MustEther("3"))
	requireRevert(t, err, models.ReasonOptionExpired)
	f.assertBalance(dixie, "100")

	_, err = f.svc.DelistOption(ctx, 0, bob)
	require.NoError(t, err)
	_, err = f.svc.SellPurchasedOption(ctx, 0, bob, chain.MustEther("3"), "")
	requireRevert(t, err, models.ReasonOptionExpired)

	_, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	_, err = f.svc.SellPurchasedOption(ctx, 0, bob, chain.MustEther("3"), "")
	requireRevert(t, err, models.ReasonOptionExpired)
	assert.False(t, f.option(0).ForSale)
}

func TestSellPurchasedOption_NoteIsCapped(t *testing.T) {
	f := newPurchasedFixture(t)
	f.svc.cfg = &Config{SweepInterval: time.Minute, SweepBatch: 10, MaxNoteLength: 5}

	option, err := f.svc.SellPurchasedOption(context.Background(), 0, bob, chain.MustEther("1"), "<i>abcdefgh</i>")
	require.NoError(t, err)
	assert.Equal(t, "abcde", option.ListingNote)
}

func TestCallOption_EuropeanWindow(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	_, err := f.svc.CallOption(ctx, 0, charles, decimal.Zero)
	requireRevert(t, err, models.ReasonNotOwner)

	f.advance(28 * day)
	_, err = f.svc.CallOption(ctx, 0, bob, decimal.Zero)
	requireRevert(t, err, models.ReasonEuropeanAtExpiry)

	_, err = f.svc.SellPurchasedOption(ctx, 0, bob, chain.MustEther("1"), "")
	require.NoError(t, err)
	f.advance(day + 12*time.Hour)
	_, err = f.svc.CallOption(ctx, 0, bob, decimal.Zero)
	requireRevert(t, err, models.ReasonUpForSale)
	_, err = f.svc.DelistOption(ctx, 0, bob)
	require.NoError(t, err)

	f.setPrice("COMP", 2)
	settlement, err := f.svc.CallOption(ctx, 0, bob, decimal.Zero)
	require.NoError(t, err)

	// the holder's gain is capped by the collateral
	assert.Equal(t, models.OptionStatusCalled, settlement.Option.Status)
	require.Len(t, settlement.Payouts, 2)
	assert.Equal(t, bob, settlement.Payouts[0].To)
	assert.True(t, settlement.Payouts[0].Amount.Equal(chain.MustEther("10")))
	assert.Equal(t, charles, settlement.Payouts[1].To)
	assert.True(t, settlement.Payouts[1].Amount.Equal(chain.MustEther("4")))
	assert.True(t, settlement.Total().Equal(chain.MustEther("14")))

	f.assertBalance(bob, "106")
	f.assertBalance(charles, "94")
	f.assertBalance(chain.EscrowAddress(admin), "0")
	f.assertBalanced()

	_, err = f.svc.CallOption(ctx, 0, bob, decimal.Zero)
	requireRevert(t, err, models.ReasonOptionSettled)
	_, err = f.svc.SellPurchasedOption(ctx, 0, bob, chain.MustEther("1"), "")
	requireRevert(t, err, models.ReasonOptionSettled)
}

func TestCallOption_PriceDropPaysRiskTakerTheRest(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	f.create(bob, "8", "UNI", 0, models.OptionSideBuy, models.OptionStyleAmerican, month)
	_, err := f.svc.BuyOption(ctx, 0, charles, chain.MustEther("20"))
	require.NoError(t, err)

	f.advance(3 * day)
	f.setPrice("UNI", 1)
	_, err = f.svc.CallOption(ctx, 0, bob, decimal.Zero)
	require.NoError(t, err)

	f.assertBalance(bob, "102")
	f.assertBalance(charles, "98")
	f.assertBalanced()
}

func TestCallOption_SellSideHolderPaysStrike(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	f.create(charles, "10", "CRV", 1, models.OptionSideSell, models.OptionStyleAmerican, month)
	_, err := f.svc.BuyOption(ctx, 0, bob, chain.MustEther("2"))
	require.NoError(t, err)

	_, err = f.svc.CallOption(ctx, 0, bob, chain.MustEther("5"))
	requireRevert(t, err, models.ReasonCoverStrike)

	_, err = f.svc.CallOption(ctx, 0, bob, chain.MustEther("7"))
	require.NoError(t, err)

	f.assertBalance(bob, "102")
	f.assertBalance(charles, "98")
	f.assertBalanced()
}

func TestCallOption_Expired(t *testing.T) {
	f := newPurchasedFixture(t)
	f.advance(30 * day)

	_, err := f.svc.CallOption(context.Background(), 0, bob, decimal.Zero)
	requireRevert(t, err, models.ReasonOptionExpired)
}

func TestCallOption_NotPurchased(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	f.create(bob, "5", "CRV", 0, models.OptionSideBuy, models.OptionStyleAmerican, month)

	_, err := f.svc.CallOption(context.Background(), 0, bob, decimal.Zero)
	requireRevert(t, err, models.ReasonNotPurchased)
}

func TestCashOut_BuySidePaysPremiumFromStrikeEscrow(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	_, err := f.svc.CashOut(ctx, 0, bob)
	requireRevert(t, err, models.ReasonNotRiskTaker)
	_, err = f.svc.CashOut(ctx, 0, charles)
	requireRevert(t, err, models.ReasonNotExpired)

	f.advance(30 * day)
	settlement, err := f.svc.CashOut(ctx, 0, charles)
	require.NoError(t, err)
	assert.Equal(t, models.OptionStatusCashedOut, settlement.Option.Status)

	premium := f.calc.Premium(chain.MustEther("10"), month)
	assert.True(t, f.repo.Balance.BalanceOf(charles).Equal(chain.MustEther("100").Add(premium)))
	assert.True(t, f.repo.Balance.BalanceOf(bob).Equal(chain.MustEther("100").Sub(premium)))
	f.assertBalanced()

	_, err = f.svc.CashOut(ctx, 0, charles)
	requireRevert(t, err, models.ReasonOptionSettled)
}

func TestCashOut_SellSideReturnsCollateral(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	f.create(charles, "10", "CRV", 1, models.OptionSideSell, models.OptionStyleEuropean, month)
	_, err := f.svc.BuyOption(ctx, 0, bob, chain.MustEther("2"))
	require.NoError(t, err)

	f.advance(31 * day)
	settlement, err := f.svc.CashOut(ctx, 0, charles)
	require.NoError(t, err)
	require.Len(t, settlement.Payouts, 1)

	f.assertBalance(charles, "102")
	f.assertBalance(bob, "98")
	f.assertBalanced()
}

func TestCancelOption(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	f.create(bob, "5", "CRV", 0, models.OptionSideBuy, models.OptionStyleEuropean, month)

	_, err := f.svc.CancelOption(ctx, 0, charles)
	requireRevert(t, err, models.ReasonNotCreator)

	option, err := f.svc.CancelOption(ctx, 0, bob)
	require.NoError(t, err)
	assert.Equal(t, models.OptionStatusCancelled, option.Status)
	f.assertBalance(bob, "100")
	f.assertBalanced()

	_, err = f.svc.CancelOption(ctx, 0, bob)
	requireRevert(t, err, models.ReasonOptionCancelled)
	_, err = f.svc.BuyOption(ctx, 0, charles, chain.MustEther("10"))
	requireRevert(t, err, models.ReasonOptionCancelled)
}

func TestCancelOption_Purchased(t *testing.T) {
	f := newPurchasedFixture(t)

	_, err := f.svc.CancelOption(context.Background(), 0, bob)
	requireRevert(t, err, models.ReasonOptionPurchased)
}

func TestSweepExpired(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	n, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.advance(30 * day)
	n, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, models.OptionStatusLapsed, f.option(0).Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OptionsLapsed))
	assert.Contains(t, f.publisher.Types(), models.EventOptionLapsed)

	n, err = f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// a lapsed option can still be cashed out
	_, err = f.svc.CashOut(ctx, 0, charles)
	require.NoError(t, err)
	f.assertBalanced()
}

func TestSweeper_RunStopsWithContext(t *testing.T) {
	f := newPurchasedFixture(t)
	f.advance(30 * day)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSweeper(f.svc, time.Hour, logger.NewNullLogger()).Run(ctx) }()

	require.Eventually(t, func() bool {
		option, err := f.repo.GetOption(context.Background(), 0)
		return err == nil && option.Status == models.OptionStatusLapsed
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRebalanceOption(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	_, err := f.svc.RebalanceOption(ctx, 0, dixie, chain.MustEther("0.05"), decimal.Zero)
	requireRevert(t, err, models.ReasonRebalanceParty)
	_, err = f.svc.RebalanceOption(ctx, 0, bob, decimal.Zero, decimal.Zero)
	requireRevert(t, err, models.ReasonStrikeMustBePositive)

	result, err := f.svc.RebalanceOption(ctx, 0, bob, chain.MustEther("0.05"), chain.MustEther("1"))
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	f.assertBalance(bob, "95")
	f.assertBalanced()

	// a different strike from the counterparty replaces the proposal
	_, err = f.svc.RebalanceOption(ctx, 0, charles, chain.MustEther("0.06"), decimal.Zero)
	require.NoError(t, err)
	f.assertBalance(bob, "96")
	order, err := f.svc.ViewRebalanceOrder(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, charles, order.Rebalancer)

	_, err = f.svc.RebalanceOption(ctx, 0, bob, chain.MustEther("0.06"), chain.MustEther("1"))
	requireRevert(t, err, models.ReasonStrikeIncreaseFunds)
	f.assertBalance(bob, "96")

	result, err = f.svc.RebalanceOption(ctx, 0, bob, chain.MustEther("0.06"), chain.MustEther("3"))
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	assert.True(t, result.Option.StrikePrice.Equal(chain.MustEther("0.06")))
	assert.True(t, result.Option.HolderEscrow.Equal(chain.MustEther("6")))
	f.assertBalance(bob, "94")
	f.assertBalanced()
	order, err = f.svc.ViewRebalanceOrder(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, order)

	// a decrease pays the difference back to the holder
	_, err = f.svc.RebalanceOption(ctx, 0, charles, chain.MustEther("0.05"), decimal.Zero)
	require.NoError(t, err)
	result, err = f.svc.RebalanceOption(ctx, 0, bob, chain.MustEther("0.05"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, result.Accepted)
	f.assertBalance(bob, "95")
	assert.True(t, f.option(0).HolderEscrow.Equal(chain.MustEther("5")))

	// the holder's own deposit funds an increase the risk taker accepts
	_, err = f.svc.RebalanceOption(ctx, 0, bob, chain.MustEther("0.07"), chain.MustEther("3"))
	require.NoError(t, err)
	f.assertBalance(bob, "92")
	_, err = f.svc.RebalanceOption(ctx, 0, charles, chain.MustEther("0.07"), decimal.Zero)
	require.NoError(t, err)
	f.assertBalance(bob, "93")
	assert.True(t, f.option(0).HolderEscrow.Equal(chain.MustEther("7")))
	f.assertBalanced()

	assert.Contains(t, f.publisher.Types(), models.EventRebalanceProposed)
	assert.Contains(t, f.publisher.Types(), models.EventRebalanced)
}

func TestRebalanceOption_DepositReturnedOnCall(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	_, err := f.svc.RebalanceOption(ctx, 0, charles, chain.MustEther("0.03"), chain.MustEther("2"))
	require.NoError(t, err)
	f.assertBalance(charles, "88")

	f.advance(29*day + time.Hour)
	_, err = f.svc.CallOption(ctx, 0, bob, decimal.Zero)
	require.NoError(t, err)

	f.assertBalance(charles, "94")
	f.assertBalance(bob, "106")
	f.assertBalanced()
}

func TestRebalanceIncrease(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	_, err := f.svc.RebalanceIncrease(ctx, 0, bob, chain.MustEther("10"))
	requireRevert(t, err, models.ReasonOnlyRiskTakerIncrease)
	_, err = f.svc.RebalanceIncrease(ctx, 0, charles, chain.MustEther("10"))
	requireRevert(t, err, models.ReasonCollateralCovers)

	f.setPrice("COMP", 2)
	_, err = f.svc.RebalanceIncrease(ctx, 0, charles, chain.MustEther("5"))
	requireRevert(t, err, models.ReasonIncreaseFunds)

	option, err := f.svc.RebalanceIncrease(ctx, 0, charles, chain.MustEther("15"))
	require.NoError(t, err)
	assert.True(t, option.Collateral.Equal(chain.MustEther("20")))
	assert.True(t, option.MarketPrice.Equal(chain.MustEther("0.2")))
	f.assertBalance(charles, "80")
	f.assertBalanced()
}

func TestQuoteOption(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()

	valuation, err := f.svc.QuoteOption(ctx, 0)
	require.NoError(t, err)
	assert.True(t, valuation.Strike.Equal(chain.MustEther("0.04")))
	assert.InDelta(t, float64(month)/pricing.SecondsPerYear, valuation.Years, 1e-9)
	assert.True(t, valuation.FairValue.GreaterThanOrEqual(valuation.IntrinsicValue))

	f.advance(30 * day)
	_, err = f.svc.CashOut(ctx, 0, charles)
	require.NoError(t, err)
	valuation, err = f.svc.QuoteOption(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, valuation.Years)
	assert.True(t, valuation.FairValue.Equal(valuation.IntrinsicValue))

	_, err = f.svc.QuoteOption(ctx, 42)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestListOptions(t *testing.T) {
	f := newPurchasedFixture(t)
	ctx := context.Background()
	f.create(dixie, "12", "UNI", 0, models.OptionSideBuy, models.OptionStyleEuropean, twoMonth)

	all, total, err := f.svc.ListOptions(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	owner := dixie
	mine, total, err := f.svc.ListOptions(ctx, Filter{Owner: &owner})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "UNI", mine[0].Symbol)

	active, _, err := f.svc.ListOptions(ctx, Filter{Status: models.OptionStatusActive, Symbol: "comp"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, uint64(0), active[0].ID)

	page, total, err := f.svc.ListOptions(ctx, Filter{Page: 2, PerPage: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(1), page[0].ID)
}

func TestViews_NotFound(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()

	_, err := f.svc.ViewOption(ctx, 3)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
	_, err = f.svc.ViewOptionForSale(ctx, 3)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
	_, err = f.svc.ViewRebalanceOrder(ctx, 3)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
}

func TestMemoryRepository_TransactionRollsBack(t *testing.T) {
	f := newFixture(t, 1, 2, 3)
	ctx := context.Background()
	escrow := chain.EscrowAddress(admin)

	err := f.repo.Transaction(ctx, func(repo Repository) error {
		id, err := repo.NextOptionID(ctx)
		require.NoError(t, err)
		require.NoError(t, repo.CreateOption(ctx, &models.Option{
			ID: id, Symbol: "CRV", Creator: bob, Owner: bob, Side: models.OptionSideBuy,
			Style: models.OptionStyleEuropean, Status: models.OptionStatusOpen, Duration: month,
			StrikePrice: chain.MustEther("0.04"), MarketPrice: chain.MustEther("0.1"),
		}))
		_, err = ledger.NewBook(repo.Ledger()).Transfer(ctx, ledger.Transfer{
			From: bob, To: escrow, Amount: chain.MustEther("4"), Kind: models.EntryKindDeposit,
		})
		require.NoError(t, err)
		return models.Revert(models.ReasonCoverStrike)
	})
	requireRevert(t, err, models.ReasonCoverStrike)

	_, err = f.repo.GetOption(ctx, 0)
	assert.ErrorIs(t, err, models.ErrRecordNotFound)
	desk, err := f.repo.GetDesk(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), desk.OptionCount)
	f.assertBalance(bob, "100")
	f.assertBalance(escrow, "0")
}
