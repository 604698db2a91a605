package events

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joefazee/optionsdesk/app/api"
	"github.com/joefazee/optionsdesk/models"
)

type Handler struct {
	store Store
}

// NewHandler creates a new event log handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// ListEvents godoc
// @Summary List desk events
// @Description Stored lifecycle events, newest first
// @Tags events
// @Produce json
// @Param type query string false "Event type, e.g. option.called"
// @Param option_id query int false "Option ID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(50)
// @Success 200 {object} api.Response{data=[]models.Event}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 500 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	filter := Filter{
		Type: models.EventType(c.Query("type")),
	}
	if raw := c.Query("option_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			api.BadRequestResponse(c, map[string]string{"option_id": "must be a non-negative integer"})
			return
		}
		filter.OptionID = &id
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "50"))
	filter.normalize()

	events, total, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		api.InternalErrorResponse(c, "Failed to retrieve events")
		return
	}

	api.PaginatedResponse(c, "Events retrieved successfully", events,
		api.NewPaginationMeta(filter.Page, filter.PerPage, total))
}
