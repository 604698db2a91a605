package options

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/api"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/shopspring/decimal"
)

// Handler handles HTTP requests for options
type Handler struct {
	service Service
}

// NewHandler creates a new options handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func optionID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		api.BadRequestResponse(c, map[string]string{"id": "must be a non-negative integer"})
		return 0, false
	}
	return id, true
}

// sender returns the authenticated caller and the option id.
func sender(c *gin.Context) (common.Address, uint64, bool) {
	caller, ok := api.Caller(c)
	if !ok {
		api.UnauthorizedResponse(c)
		return common.Address{}, 0, false
	}
	id, ok := optionID(c)
	return caller, id, ok
}

// sentValue reads an optional {"value": ...} body.
func sentValue(c *gin.Context) (decimal.Decimal, bool) {
	var payload ValuePayload
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&payload); err != nil {
			api.BadRequestResponse(c, err.Error())
			return decimal.Zero, false
		}
	}
	value, err := payload.Amount()
	if err != nil {
		api.BadRequestResponse(c, map[string]string{"value": err.Error()})
		return decimal.Zero, false
	}
	return value, true
}

// ListOptions godoc
// @Summary List options
// @Description Options ordered by id, filtered by token, party, status or listing
// @Tags options
// @Produce json
// @Param symbol query string false "Token symbol"
// @Param owner query string false "Owner address"
// @Param risk_taker query string false "Risk taker address"
// @Param status query string false "Status" Enums(open, active, lapsed, called, cashed_out, cancelled)
// @Param for_sale query bool false "Only listed options"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Success 200 {object} api.Response{data=[]OptionResponse,meta=api.PaginationMeta}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options [get]
func (h *Handler) ListOptions(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	filter := query.ToFilter()
	filter.normalize()

	options, total, err := h.service.ListOptions(c.Request.Context(), filter)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.PaginatedResponse(c, "Options retrieved successfully", ToOptionResponses(options),
		api.NewPaginationMeta(filter.Page, filter.PerPage, total))
}

// GetOption godoc
// @Summary View an option
// @Tags options
// @Produce json
// @Param id path int true "Option ID"
// @Success 200 {object} api.Response{data=OptionResponse}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id} [get]
func (h *Handler) GetOption(c *gin.Context) {
	id, ok := optionID(c)
	if !ok {
		return
	}
	option, err := h.service.ViewOption(c.Request.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Option retrieved successfully", ToOptionResponse(option))
}

// GetListing godoc
// @Summary Resale price of an option
// @Description Zero when the option is not listed
// @Tags options
// @Produce json
// @Param id path int true "Option ID"
// @Success 200 {object} api.Response{data=ListingResponse}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/listing [get]
func (h *Handler) GetListing(c *gin.Context) {
	id, ok := optionID(c)
	if !ok {
		return
	}
	price, err := h.service.ViewOptionForSale(c.Request.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Listing retrieved successfully", ListingResponse{
		OptionID:   id,
		Price:      price,
		PriceEther: chain.FormatEther(price),
	})
}

// GetRebalanceOrder godoc
// @Summary Pending rebalance proposal
// @Description Data is null when no proposal is pending
// @Tags options
// @Produce json
// @Param id path int true "Option ID"
// @Success 200 {object} api.Response{data=models.RebalanceOrder}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/rebalance [get]
func (h *Handler) GetRebalanceOrder(c *gin.Context) {
	id, ok := optionID(c)
	if !ok {
		return
	}
	order, err := h.service.ViewRebalanceOrder(c.Request.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Rebalance order retrieved successfully", order)
}

// GetQuote godoc
// @Summary Model value of an option
// @Description Black-Scholes value and greeks over the option's remaining life
// @Tags options
// @Produce json
// @Param id path int true "Option ID"
// @Success 200 {object} api.Response{data=pricing.Valuation}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/quote [get]
func (h *Handler) GetQuote(c *gin.Context) {
	id, ok := optionID(c)
	if !ok {
		return
	}
	valuation, err := h.service.QuoteOption(c.Request.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Quote generated successfully", valuation)
}

// CreateOption godoc
// @Summary Create an option
// @Description A buy side creator escrows strike * 100, a sell side creator escrows market * 100
// @Tags options
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateOptionRequest true "Option terms and value sent"
// @Success 201 {object} api.Response{data=OptionResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options [post]
func (h *Handler) CreateOption(c *gin.Context) {
	caller, ok := api.Caller(c)
	if !ok {
		api.UnauthorizedResponse(c)
		return
	}

	var req CreateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	value, err := chain.ParseValue(req.Value, chain.Ether)
	if err != nil {
		api.BadRequestResponse(c, map[string]string{"value": err.Error()})
		return
	}

	option, err := h.service.CreateOption(c.Request.Context(), caller, value, &req)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.CreatedResponse(c, "Option created successfully", ToOptionResponse(option))
}

// BuyOption godoc
// @Summary Buy an option
// @Description Buy side: the buyer posts market * 100 as collateral. Sell side: the value is paid to the writer as premium.
// @Tags options
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Param request body ValuePayload true "Value sent"
// @Success 200 {object} api.Response{data=OptionResponse}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/buy [post]
func (h *Handler) BuyOption(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	value, ok := sentValue(c)
	if !ok {
		return
	}
	option, err := h.service.BuyOption(c.Request.Context(), id, caller, value)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Option purchased successfully", ToOptionResponse(option))
}

// SellOption godoc
// @Summary List a purchased option for resale
// @Tags options
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Param request body ListingPayload true "Asking price"
// @Success 200 {object} api.Response{data=OptionResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/sell [post]
func (h *Handler) SellOption(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	var payload ListingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	price, err := chain.ParseValue(payload.Price, chain.Ether)
	if err != nil {
		api.BadRequestResponse(c, map[string]string{"price": err.Error()})
		return
	}

	option, err := h.service.SellPurchasedOption(c.Request.Context(), id, caller, price, payload.Note)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Option listed successfully", ToOptionResponse(option))
}

// DelistOption godoc
// @Summary Withdraw a resale listing
// @Tags options
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Success 200 {object} api.Response{data=OptionResponse}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/delist [post]
func (h *Handler) DelistOption(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	option, err := h.service.DelistOption(c.Request.Context(), id, caller)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Option delisted successfully", ToOptionResponse(option))
}

// BuyListedOption godoc
// @Summary Buy a listed option
// @Description The whole value is paid to the seller
// @Tags options
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Param request body ValuePayload true "Value sent"
// @Success 200 {object} api.Response{data=OptionResponse}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/resale/buy [post]
func (h *Handler) BuyListedOption(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	value, ok := sentValue(c)
	if !ok {
		return
	}
	option, err := h.service.BuyPurchasedOption(c.Request.Context(), id, caller, value)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Option bought successfully", ToOptionResponse(option))
}

// CallOption godoc
// @Summary Exercise an option
// @Description Sell side holders send strike * 100 with the call
// @Tags options
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Param request body ValuePayload false "Value sent"
// @Success 200 {object} api.Response{data=Settlement}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/call [post]
func (h *Handler) CallOption(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	value, ok := sentValue(c)
	if !ok {
		return
	}
	settlement, err := h.service.CallOption(c.Request.Context(), id, caller, value)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Option called successfully", settlement)
}

// CashOut godoc
// @Summary Cash out an expired option
// @Tags options
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Success 200 {object} api.Response{data=Settlement}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/cash-out [post]
func (h *Handler) CashOut(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	settlement, err := h.service.CashOut(c.Request.Context(), id, caller)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Option cashed out successfully", settlement)
}

// CancelOption godoc
// @Summary Cancel an unpurchased option
// @Tags options
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Success 200 {object} api.Response{data=OptionResponse}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/cancel [post]
func (h *Handler) CancelOption(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	option, err := h.service.CancelOption(c.Request.Context(), id, caller)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Option cancelled successfully", ToOptionResponse(option))
}

// RebalanceOption godoc
// @Summary Propose or accept a new strike
// @Tags options
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Param request body RebalancePayload true "New strike and value sent"
// @Success 200 {object} api.Response{data=RebalanceResult}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/rebalance [post]
func (h *Handler) RebalanceOption(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	var payload RebalancePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	strike, err := chain.ParseValue(payload.NewStrike, chain.Ether)
	if err != nil {
		api.BadRequestResponse(c, map[string]string{"new_strike": err.Error()})
		return
	}
	value, err := chain.ParseValue(payload.Value, chain.Ether)
	if err != nil {
		api.BadRequestResponse(c, map[string]string{"value": err.Error()})
		return
	}

	result, err := h.service.RebalanceOption(c.Request.Context(), id, caller, strike, value)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	message := "Rebalance proposed successfully"
	if result.Accepted {
		message = "Rebalance accepted successfully"
	}
	api.SuccessResponse(c, http.StatusOK, message, result)
}

// RebalanceIncrease godoc
// @Summary Top collateral up to the current market price
// @Tags options
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Option ID"
// @Param request body ValuePayload true "Value sent"
// @Success 200 {object} api.Response{data=OptionResponse}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/options/{id}/rebalance/increase [post]
func (h *Handler) RebalanceIncrease(c *gin.Context) {
	caller, id, ok := sender(c)
	if !ok {
		return
	}
	value, ok := sentValue(c)
	if !ok {
		return
	}
	option, err := h.service.RebalanceIncrease(c.Request.Context(), id, caller, value)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Collateral increased successfully", ToOptionResponse(option))
}

// Audit godoc
// @Summary Escrow audit
// @Description Admin only. Compares the escrow balance with live escrow, pending deposits and float.
// @Tags desk
// @Produce json
// @Security BearerAuth
// @Success 200 {object} api.Response{data=AuditReport}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/desk/audit [get]
func (h *Handler) Audit(c *gin.Context) {
	report, err := h.service.Audit(c.Request.Context())
	if err != nil {
		api.ServiceErrorResponse(c, err, "Desk")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Audit completed", report)
}

// Sweep godoc
// @Summary Lapse expired options now
// @Tags desk
// @Produce json
// @Security BearerAuth
// @Success 200 {object} api.Response{data=map[string]int}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/desk/sweep [post]
func (h *Handler) Sweep(c *gin.Context) {
	lapsed, err := h.service.SweepExpired(c.Request.Context())
	if err != nil {
		api.ServiceErrorResponse(c, err, "Option")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Sweep completed", gin.H{"lapsed": lapsed})
}
