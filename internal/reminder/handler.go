package reminder

import (
	"context"
	"errors"
	"net/http"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/api"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/logger"

	"github.com/gin-gonic/gin"
)

type Runner interface {
	RunNow(ctx context.Context) ([]Report, error)
}

type RunResponse struct {
	Reports []Report `json:"reports"`
}

type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

// Run godoc
// @Summary      Run reminder sweep
// @Description  Runs the full reminder sweep now and returns one report per sub-sweep
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  RunResponse
// @Failure      403  {object}  api.ErrorResponse
// @Failure      409  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse
// @Router       /admin/reminders/run [post]
func (h *Handler) Run(c *gin.Context) {
	reports, err := h.runner.RunNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrSweepRunning) {
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Reminder sweep already running"})
			return
		}
		logger.Error("manual reminder sweep failed", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to run reminder sweep"})
		return
	}

	c.JSON(http.StatusOK, RunResponse{Reports: reports})
}
