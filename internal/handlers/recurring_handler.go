package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moneta/internal/services"
)

// RecurringHandler exposes an operational trigger for the recurring
// transaction engine. It is mounted behind the ops API key, not behind user
// auth: the engine itself decides which templates are due.
type RecurringHandler struct {
	recurringService services.RecurringServicer
}

// NewRecurringHandler creates a new RecurringHandler
func NewRecurringHandler(recurringService services.RecurringServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService}
}

// Run triggers a recurring engine pass for the current day
// @Summary     Run the recurring engine
// @Description Materialize transactions from all templates due today; safe to call repeatedly
// @Tags        ops
// @Produce     json
// @Param       X-API-Key header string true "Ops API key"
// @Success     200 {object} services.RecurringRunResult
// @Failure     401 {object} ErrorResponse "Missing or invalid API key"
// @Failure     500 {object} ErrorResponse "Run failed"
// @Router      /ops/recurring/run [post]
func (h *RecurringHandler) Run(c *gin.Context) {
	result, err := h.recurringService.ProcessDueTemplates(time.Now())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
