package credit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/api"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/auth"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/clock"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
	clock   clock.Clock
}

func NewHandler(service Service, clk clock.Clock) *Handler {
	return &Handler{service: service, clock: clk}
}

// GetMemberCredits godoc
// @Summary      Active credit ledger
// @Description  Returns the member's active session-credit ledger. Members may only read their own.
// @Tags         credits
// @Security     BearerAuth
// @Produce      json
// @Param        memberID  path      int  true  "Member ID"
// @Success      200       {object}  LedgerResponse
// @Failure      400       {object}  api.ErrorResponse
// @Failure      403       {object}  api.ErrorResponse
// @Failure      404       {object}  api.ErrorResponse
// @Router       /members/{memberID}/credits [get]
func (h *Handler) GetMemberCredits(c *gin.Context) {
	memberID, err := strconv.Atoi(c.Param("memberID"))
	if err != nil || memberID <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid member ID"})
		return
	}

	caller, ok := auth.GetCaller(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}
	if caller.Role == auth.RoleMember && caller.ID != memberID {
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Insufficient permissions"})
		return
	}

	l, err := h.service.GetActive(c.Request.Context(), memberID)
	if err != nil {
		if errors.Is(err, ErrLedgerNotFound) {
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No active credit ledger"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to load credits"})
		return
	}

	c.JSON(http.StatusOK, LedgerResponse{
		Ledger:    *l,
		Remaining: l.Remaining(),
		Valid:     l.Covers(h.clock.Now()),
	})
}
