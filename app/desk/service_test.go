package desk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/api"
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
	deployer = common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	other    = common.HexToAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
)

func newTestService(t *testing.T) (*service, *MemoryRepository, *metrics.Registry) {
	t.Helper()
	repo := NewMemoryRepository()
	reg := metrics.New()
	svc := NewService(repo, pricing.MustCalculator(pricing.GetDefaultConfig()), GetDefaultConfig(),
		nil, logger.NewNullLogger(), reg).(*service)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return svc, repo, reg
}

func constructor(value, prefund string) *DeployRequest {
	return &DeployRequest{
		Deployer: deployer,
		Units:    []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2), decimal.NewFromInt(3)},
		Value:    chain.MustEther(value),
		Prefund:  chain.MustEther(prefund),
	}
}

func TestService_Deploy(t *testing.T) {
	svc, repo, reg := newTestService(t)
	ctx := context.Background()

	result, err := svc.Deploy(ctx, constructor("1", "100"))
	require.NoError(t, err)

	assert.Equal(t, deployer, result.Desk.Admin)
	assert.Equal(t, chain.EscrowAddress(deployer), result.Desk.Escrow)
	assert.True(t, result.Desk.Float.Equal(chain.MustEther("1")))
	require.Len(t, result.Prices, 3)
	assert.Equal(t, "0.1", result.Prices[0].PriceEther)
	assert.Equal(t, "0.2", result.Prices[1].PriceEther)
	assert.Equal(t, "0.3", result.Prices[2].PriceEther)

	assert.True(t, repo.Balance.BalanceOf(deployer).Equal(chain.MustEther("99")))
	assert.True(t, repo.Balance.BalanceOf(result.Desk.Escrow).Equal(chain.MustEther("1")))

	stored := repo.Book.Events.Events()
	require.Len(t, stored, 1)
	assert.Equal(t, models.EventDeskDeployed, stored[0].Type)

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.True(t, info.EscrowBalance.Equal(chain.MustEther("1")))
	assert.Equal(t, []string{"CRV", "UNI", "COMP"}, info.Symbols)
	assert.Len(t, info.Durations, 4)

	admin, err := svc.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, deployer, admin)

	_, err = svc.Deploy(ctx, constructor("1", "0"))
	reason, ok := models.RevertReason(err)
	require.True(t, ok)
	assert.Equal(t, models.ReasonDeskAlreadyDeployed, reason)
	assert.True(t, repo.Balance.BalanceOf(deployer).Equal(chain.MustEther("99")))

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.OperationsTotal.WithLabelValues("deploy", metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.RevertsTotal.WithLabelValues("deploy", models.ReasonDeskAlreadyDeployed)))
}

func TestService_Deploy_ZeroPrices(t *testing.T) {
	svc, repo, _ := newTestService(t)
	req := constructor("10", "100")
	req.Units = []decimal.Decimal{decimal.Zero, decimal.Zero, decimal.Zero}

	result, err := svc.Deploy(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, result.Prices, 3)
	for _, p := range result.Prices {
		assert.Equal(t, "0", p.PriceEther)
	}
	assert.True(t, result.Desk.Float.Equal(chain.MustEther("10")))
	assert.True(t, repo.Balance.BalanceOf(result.Desk.Escrow).Equal(chain.MustEther("10")))
	assert.True(t, repo.Balance.BalanceOf(deployer).Equal(chain.MustEther("90")))
}

func TestService_Deploy_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *DeployRequest)
		wantErr error
	}{
		{"no deployer", func(r *DeployRequest) { r.Deployer = common.Address{} }, models.ErrInvalidAddress},
		{"two prices", func(r *DeployRequest) { r.Units = r.Units[:2] }, models.ErrInvalidMarketPrice},
		{"negative price", func(r *DeployRequest) { r.Units[1] = decimal.NewFromInt(-1) }, models.ErrRevert},
		{"prefund too large", func(r *DeployRequest) { r.Prefund = chain.MustEther("5000") }, ErrPrefundTooLarge},
		{"value above balance", func(r *DeployRequest) { r.Value = chain.MustEther("200") }, models.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService(t)
			req := constructor("1", "100")
			tt.mutate(req)

			_, err := svc.Deploy(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)

			_, err = svc.Info(context.Background())
			assert.ErrorIs(t, err, models.ErrDeskNotDeployed)
			assert.True(t, repo.Balance.Total().IsZero())
		})
	}
}

func TestHandler_Deploy(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		caller   common.Address
		body     string
		wantCode int
	}{
		{"unauthenticated", common.Address{}, `{"prices":["1","2","3"]}`, http.StatusUnauthorized},
		{"no prices", deployer, `{}`, http.StatusBadRequest},
		{"bad value", deployer, `{"prices":["1","2","3"],"value":"lots"}`, http.StatusBadRequest},
		{"wrong price count", deployer, `{"prices":["1"]}`, http.StatusBadRequest},
		{"deployed", deployer, `{"prices":["1","2","3"],"value":"1 ether","prefund":"10"}`, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			h := NewHandler(svc)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/desk/deploy", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")
			api.SetCaller(c, tt.caller)

			h.Deploy(c)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}
}

func TestHandler_GetInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/desk", nil)
	h.GetInfo(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	_, err := svc.Deploy(context.Background(), constructor("0", "0"))
	require.NoError(t, err)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/desk", nil)
	h.GetInfo(c)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data InfoResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, deployer, body.Data.Admin)
	assert.Len(t, body.Data.Prices, 3)
}

func TestAdminOnly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)
	_, err := svc.Deploy(context.Background(), constructor("0", "0"))
	require.NoError(t, err)

	engine := gin.New()
	engine.GET("/admin", func(c *gin.Context) {
		if v := c.GetHeader("X-Caller"); v != "" {
			api.SetCaller(c, common.HexToAddress(v))
		}
		c.Next()
	}, AdminOnly(svc), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name   string
		caller string
		want   int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"other", other.Hex(), http.StatusForbidden},
		{"admin", deployer.Hex(), http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.caller != "" {
				req.Header.Set("X-Caller", tt.caller)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
