package accounts

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/api"
	"github.com/joefazee/optionsdesk/internal/chain"
	"github.com/joefazee/optionsdesk/models"
)

// Handler handles HTTP requests for wallet accounts
type Handler struct {
	service Service
}

// NewHandler creates a new accounts handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Challenge godoc
// @Summary Request a sign-in challenge
// @Description Returns a one-time message for the wallet to personal_sign
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ChallengeRequest true "Wallet address"
// @Success 200 {object} api.Response{data=ChallengeResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/auth/challenge [post]
func (h *Handler) Challenge(c *gin.Context) {
	var req ChallengeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	address, err := chain.ParseAddress(req.Address)
	if err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	challenge, err := h.service.Challenge(c.Request.Context(), address)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Challenge")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Sign this message with your wallet", challenge)
}

// Login godoc
// @Summary Sign in with a wallet
// @Description Exchanges a signed challenge for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Signed challenge"
// @Success 200 {object} api.Response{data=LoginResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			api.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
			return
		}
		api.ServiceErrorResponse(c, err, "Account")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Login successful", resp)
}

// Me godoc
// @Summary Caller balance
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} api.Response{data=AccountResponse}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/accounts/me [get]
func (h *Handler) Me(c *gin.Context) {
	caller, ok := api.Caller(c)
	if !ok {
		api.UnauthorizedResponse(c)
		return
	}
	account, err := h.service.Account(c.Request.Context(), caller)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Account")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Account retrieved successfully", account)
}

// Ledger godoc
// @Summary Caller ledger history
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param option_id query int false "Only entries for this option"
// @Param kind query string false "Entry kind"
// @Param page query int false "Page number"
// @Param per_page query int false "Items per page"
// @Success 200 {object} api.Response{data=[]models.LedgerEntry,meta=api.PaginationMeta}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/accounts/me/ledger [get]
func (h *Handler) Ledger(c *gin.Context) {
	caller, ok := api.Caller(c)
	if !ok {
		api.UnauthorizedResponse(c)
		return
	}
	var query LedgerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	filter := query.ToFilter(caller)

	entries, total, err := h.service.Entries(c.Request.Context(), filter)
	if err != nil {
		api.ServiceErrorResponse(c, err, "Ledger")
		return
	}
	api.PaginatedResponse(c, "Ledger retrieved successfully", entries,
		api.NewPaginationMeta(filter.Page, filter.PerPage, total))
}

// Fund godoc
// @Summary Fund an account from the faucet
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param address path string true "Wallet address"
// @Param request body FundPayload true "Amount"
// @Success 200 {object} api.Response{data=AccountResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/accounts/{address}/fund [post]
func (h *Handler) Fund(c *gin.Context) {
	address, err := chain.ParseAddress(c.Param("address"))
	if err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	var payload FundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	amount, err := chain.ParseValue(payload.Amount, chain.Ether)
	if err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	account, err := h.service.Fund(c.Request.Context(), address, amount)
	if err != nil {
		if errors.Is(err, models.ErrInvalidEntryAmount) {
			api.BadRequestResponse(c, err.Error())
			return
		}
		api.ServiceErrorResponse(c, err, "Account")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Account funded successfully", account)
}
