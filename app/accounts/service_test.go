package accounts

import (
	"context"
	"errors"
	"testing"
	"time"

	ethaccounts "github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joefazee/optionsdesk/app/ledger"
	"github.com/joefazee/optionsdesk/internal/cache"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/internal/security"
	"github.com/joefazee/optionsdesk/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var bob = common.HexToAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")

type wallet struct {
	address common.Address
	sign    func(message string) string
}

func newWallet(t *testing.T) *wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &wallet{
		address: crypto.PubkeyToAddress(key.PublicKey),
		sign: func(message string) string {
			sig, err := crypto.Sign(ethaccounts.TextHash([]byte(message)), key)
			require.NoError(t, err)
			sig[crypto.RecoveryIDOffset] += 27
			return hexutil.Encode(sig)
		},
	}
}

type fixture struct {
	svc     *service
	balance *ledger.MemoryRepository
	cache   *cache.MemoryCache[string]
	maker   security.Maker
	metrics *metrics.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	maker, err := security.NewPasetoMaker(GetDefaultConfig().SymmetricKey)
	require.NoError(t, err)

	f := &fixture{
		balance: ledger.NewMemoryRepository(),
		cache:   cache.NewMemoryCache[string](),
		maker:   maker,
		metrics: metrics.New(),
	}
	t.Cleanup(f.cache.Stop)

	svc, err := NewService(NewMemoryRepository(f.balance), f.cache, maker, GetDefaultConfig(), logger.NewNullLogger(), f.metrics)
	require.NoError(t, err)
	f.svc = svc.(*service)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestService_ChallengeAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := newWallet(t)

	challenge, err := f.svc.Challenge(ctx, w.address)
	require.NoError(t, err)
	assert.Equal(t, w.address, challenge.Address)
	assert.Contains(t, challenge.Message, "optionsdesk.local wants you to sign in")
	assert.Contains(t, challenge.Message, w.address.Hex())
	assert.Contains(t, challenge.Message, "Nonce: "+challenge.Nonce)
	assert.Equal(t, f.svc.now().Add(5*time.Minute), challenge.ExpiresAt)

	resp, err := f.svc.Login(ctx, &LoginRequest{
		Address:   w.address.Hex(),
		Signature: w.sign(challenge.Message),
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, w.address, resp.Address)

	payload, err := f.maker.VerifyToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, w.address, payload.Address)
	assert.Equal(t, security.TokenScopeAccess, payload.Scope)
}

func TestService_LoginConsumesChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := newWallet(t)

	challenge, err := f.svc.Challenge(ctx, w.address)
	require.NoError(t, err)
	req := &LoginRequest{Address: w.address.Hex(), Signature: w.sign(challenge.Message)}

	_, err = f.svc.Login(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, req)
	assert.ErrorIs(t, err, ErrNoChallenge)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestService_LoginRejectsOtherSigner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := newWallet(t)
	mallory := newWallet(t)

	challenge, err := f.svc.Challenge(ctx, w.address)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, &LoginRequest{
		Address:   w.address.Hex(),
		Signature: mallory.sign(challenge.Message),
	})
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	// the failed attempt still used up the challenge
	_, err = f.svc.Login(ctx, &LoginRequest{
		Address:   w.address.Hex(),
		Signature: w.sign(challenge.Message),
	})
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestService_NewChallengeReplacesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := newWallet(t)

	first, err := f.svc.Challenge(ctx, w.address)
	require.NoError(t, err)
	second, err := f.svc.Challenge(ctx, w.address)
	require.NoError(t, err)
	assert.NotEqual(t, first.Nonce, second.Nonce)

	_, err = f.svc.Login(ctx, &LoginRequest{Address: w.address.Hex(), Signature: w.sign(first.Message)})
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestService_ChallengeZeroAddress(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Challenge(context.Background(), common.Address{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestService_ChallengeCacheFailure(t *testing.T) {
	broken := new(cache.MockCache)
	broken.On("Set", mock.Anything, mock.Anything, mock.Anything, 5*time.Minute).Return(errors.New("redis down"))

	svc, err := NewService(NewMemoryRepository(nil), broken, new(security.MockMaker), nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.Challenge(context.Background(), bob)
	assert.ErrorContains(t, err, "redis down")
	broken.AssertExpectations(t)
}

func TestService_Fund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.svc.Fund(ctx, bob, chain.MustEther("10"))
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(chain.MustEther("10")))
	assert.Equal(t, "10", account.BalanceEther)

	account, err = f.svc.Fund(ctx, bob, chain.MustEther("2.5"))
	require.NoError(t, err)
	assert.True(t, account.Balance.Equal(chain.MustEther("12.5")))

	me, err := f.svc.Account(ctx, bob)
	require.NoError(t, err)
	assert.True(t, me.Balance.Equal(chain.MustEther("12.5")))

	entries, total, err := f.svc.Entries(ctx, ledger.EntryFilter{Account: bob, Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, e := range entries {
		assert.Equal(t, models.EntryKindFaucet, e.Kind)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.OperationsTotal.WithLabelValues(opFund, metrics.ResultOK)))
}

func TestService_FundLimits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Fund(ctx, bob, chain.MustEther("1000.1"))
	assert.ErrorIs(t, err, ErrFaucetLimit)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.svc.Fund(ctx, bob, chain.MustEther("0"))
	assert.ErrorIs(t, err, models.ErrInvalidEntryAmount)

	assert.True(t, f.balance.BalanceOf(bob).IsZero())
	assert.Empty(t, f.balance.Entries())

	_, err = f.svc.Fund(ctx, bob, chain.MustEther("1000"))
	assert.NoError(t, err)
}

func TestService_AccountUnknownAddress(t *testing.T) {
	f := newFixture(t)
	account, err := f.svc.Account(context.Background(), bob)
	require.NoError(t, err)
	assert.True(t, account.Balance.IsZero())
	assert.Equal(t, "0", account.BalanceEther)
}

func TestMemoryRepository_TransactionRestores(t *testing.T) {
	repo := NewMemoryRepository(nil)
	ctx := context.Background()
	boom := errors.New("boom")

	err := repo.Transaction(ctx, func(r ledger.Repository) error {
		if _, err := ledger.NewBook(r).Mint(ctx, bob, chain.MustEther("5"), "faucet"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, repo.Balance.BalanceOf(bob).IsZero())
	assert.Empty(t, repo.Balance.Entries())
}

func TestConfig_Validate(t *testing.T) {
	cfg := GetDefaultConfig()
	require.NoError(t, cfg.Validate())

	short := GetDefaultConfig()
	short.SymmetricKey = "short"
	assert.Error(t, short.Validate())

	faucet := GetDefaultConfig()
	faucet.FaucetMax = "-1"
	assert.Error(t, faucet.Validate())

	ttl := GetDefaultConfig()
	ttl.ChallengeTTL = 0
	assert.Error(t, ttl.Validate())
}
