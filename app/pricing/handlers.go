package pricing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/api"
	"github.com/joefazee/optionsdesk/internal/chain"
)

// OracleKeyHeader carries the oracle's shared key.
const OracleKeyHeader = "X-Oracle-Key"

// Handler handles HTTP requests for token prices
type Handler struct {
	service Service
}

// NewHandler creates a new price handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetPrices godoc
// @Summary List token prices
// @Description Current reference price of every supported token, in constructor order
// @Tags prices
// @Produce json
// @Success 200 {object} api.Response{data=[]PriceResponse}
// @Failure 500 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/prices [get]
func (h *Handler) GetPrices(c *gin.Context) {
	prices, err := h.service.Prices(c.Request.Context())
	if err != nil {
		api.InternalErrorResponse(c, "Failed to fetch prices")
		return
	}
	api.ListResponse(c, "Prices retrieved successfully", ToPriceResponses(prices), len(prices))
}

// GetPrice godoc
// @Summary Get token price
// @Tags prices
// @Produce json
// @Param symbol path string true "Token symbol"
// @Success 200 {object} api.Response{data=PriceResponse}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/prices/{symbol} [get]
func (h *Handler) GetPrice(c *gin.Context) {
	price, err := h.service.Price(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		api.ServiceErrorResponse(c, err, "Token")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Price retrieved successfully", ToPriceResponse(price))
}

// GetHistory godoc
// @Summary Token price history
// @Description Recorded price observations, oldest first
// @Tags prices
// @Produce json
// @Param symbol path string true "Token symbol"
// @Param limit query int false "Number of points" default(100)
// @Success 200 {object} api.Response{data=[]PricePointResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/prices/{symbol}/history [get]
func (h *Handler) GetHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		api.BadRequestResponse(c, map[string]string{"limit": "must be a non-negative integer"})
		return
	}

	points, err := h.service.History(c.Request.Context(), c.Param("symbol"), limit)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Token")
		return
	}
	api.ListResponse(c, "Price history retrieved successfully", ToPricePointResponses(points), len(points))
}

// GetQuote godoc
// @Summary Quote a new option
// @Description Strike, escrow amounts, premium and model value for an option before it is created
// @Tags prices
// @Produce json
// @Param symbol path string true "Token symbol"
// @Param tier query int false "Strike tier" default(0)
// @Param duration query int true "Duration in seconds"
// @Success 200 {object} api.Response{data=QuoteResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/prices/{symbol}/quote [get]
func (h *Handler) GetQuote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	req.Symbol = c.Param("symbol")

	quote, err := h.service.Quote(c.Request.Context(), &req)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Token")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Quote generated successfully", quote)
}

// UpdatePrice godoc
// @Summary Update token price
// @Description Admin only. Units are constructor units, scaled by the desk price unit.
// @Tags prices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param symbol path string true "Token symbol"
// @Param request body UpdatePriceRequest true "New price"
// @Success 200 {object} api.Response{data=PriceResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/prices/{symbol} [put]
func (h *Handler) UpdatePrice(c *gin.Context) {
	caller, ok := api.Caller(c)
	if !ok {
		api.UnauthorizedResponse(c)
		return
	}

	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	units, err := chain.ParseValue(req.Units, chain.Wei)
	if err != nil {
		api.BadRequestResponse(c, map[string]string{"units": err.Error()})
		return
	}

	price, err := h.service.UpdatePrice(c.Request.Context(), caller, c.Param("symbol"), units)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Token")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Price updated successfully", ToPriceResponse(price))
}

// OracleUpdatePrice godoc
// @Summary Push a token price from the oracle feed
// @Tags prices
// @Accept json
// @Produce json
// @Param X-Oracle-Key header string true "Oracle key"
// @Param symbol path string true "Token symbol"
// @Param request body UpdatePriceRequest true "New price"
// @Success 200 {object} api.Response{data=PriceResponse}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/oracle/prices/{symbol} [put]
func (h *Handler) OracleUpdatePrice(c *gin.Context) {
	key := c.GetHeader(OracleKeyHeader)
	if key == "" {
		api.UnauthorizedResponse(c)
		return
	}

	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	units, err := chain.ParseValue(req.Units, chain.Wei)
	if err != nil {
		api.BadRequestResponse(c, map[string]string{"units": err.Error()})
		return
	}

	price, err := h.service.OracleUpdate(c.Request.Context(), key, c.Param("symbol"), units)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Token")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Price updated successfully", ToPriceResponse(price))
}
