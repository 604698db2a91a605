package desk

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/api"
	"github.com/joefazee/optionsdesk/models"
)

// Handler handles HTTP requests for the desk
type Handler struct {
	service Service
}

// NewHandler creates a new desk handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetInfo godoc
// @Summary Desk information
// @Description Deployment parameters, escrow balance and current prices
// @Tags desk
// @Produce json
// @Success 200 {object} api.Response{data=InfoResponse}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/desk [get]
func (h *Handler) GetInfo(c *gin.Context) {
	info, err := h.service.Info(c.Request.Context())
	if err != nil {
		api.ServiceErrorResponse(c, err, "Desk")
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Desk retrieved successfully", info)
}

// Deploy godoc
// @Summary Deploy the desk
// @Description Constructor: seeds token prices, makes the caller admin and moves value into escrow
// @Tags desk
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DeployPayload true "Constructor arguments"
// @Success 201 {object} api.Response{data=DeployResult}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 401 {object} api.Response{error=api.ErrorInfo}
// @Failure 422 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/desk/deploy [post]
func (h *Handler) Deploy(c *gin.Context) {
	caller, ok := api.Caller(c)
	if !ok {
		api.UnauthorizedResponse(c)
		return
	}

	var payload DeployPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	req, err := payload.ToDeployRequest(caller)
	if err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	result, err := h.service.Deploy(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrPrefundTooLarge) || errors.Is(err, models.ErrInvalidMarketPrice) {
			api.BadRequestResponse(c, err.Error())
			return
		}
		api.ServiceErrorResponse(c, err, "Desk")
		return
	}
	api.CreatedResponse(c, "Desk deployed successfully", result)
}
