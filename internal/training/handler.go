package training

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/api"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/auth"
	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/logger"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type listQuery struct {
	MemberID    *int   `form:"member_id" binding:"omitempty,gt=0"`
	TrainerID   *int   `form:"trainer_id" binding:"omitempty,gt=0"`
	ProgrammeID *int   `form:"programme_id" binding:"omitempty,gt=0"`
	State       string `form:"state" binding:"omitempty,oneof=scheduled in_progress completed cancelled no_show"`
	From        string `form:"from"`
	To          string `form:"to"`
	Page        int    `form:"page" binding:"omitempty,gte=1"`
	Limit       int    `form:"limit" binding:"omitempty,gte=1,lte=100"`
}

func (q listQuery) filter() (ListFilter, error) {
	f := ListFilter{
		MemberID:    q.MemberID,
		TrainerID:   q.TrainerID,
		ProgrammeID: q.ProgrammeID,
		Page:        q.Page,
		Limit:       q.Limit,
	}
	if q.State != "" {
		st := State(q.State)
		f.State = &st
	}

	var err error
	if f.From, err = parseTime("from", q.From); err != nil {
		return f, err
	}
	if f.To, err = parseTime("to", q.To); err != nil {
		return f, err
	}
	return f, nil
}

func parseTime(field, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, invalid(field, "datetime", field+" must be an RFC 3339 timestamp")
	}
	return &t, nil
}

func callerFrom(c *gin.Context) (Caller, bool) {
	ac, ok := auth.GetCaller(c)
	if !ok {
		return Caller{}, false
	}
	return Caller{ID: ac.ID, Role: ac.Role}, true
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, api.ValidationErrorResponse{Error: "validation failed", Details: verr.Fields})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{Error: err.Error()})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, api.ErrorResponse{Error: "Insufficient permissions"})
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrVersionConflict):
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: err.Error()})
	default:
		logger.Error("training request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Internal server error"})
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, api.ValidationErrorResponse{Error: "validation failed", Details: api.FieldErrors(err)})
		return false
	}
	return true
}

// prelude extracts the caller and, when param is non-empty, a path id.
func prelude(c *gin.Context, param string) (Caller, int, bool) {
	caller, ok := callerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return Caller{}, 0, false
	}
	if param == "" {
		return caller, 0, true
	}
	id, ok := idParam(c, param)
	return caller, id, ok
}

// Create godoc
// @Summary      Schedule a training session
// @Description  Trainers schedule for themselves. Admin and staff pass trainer_id or rely on the member's assigned trainer.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateRequest  true  "Session"
// @Success      201      {object}  Session
// @Failure      400      {object}  api.ValidationErrorResponse
// @Failure      403      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /sessions [post]
func (h *Handler) Create(c *gin.Context) {
	caller, _, ok := prelude(c, "")
	if !ok {
		return
	}
	var req CreateRequest
	if !bindJSON(c, &req) {
		return
	}

	sess, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// Get godoc
// @Summary      Get a training session
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        sessionID  path      int  true  "Session ID"
// @Success      200        {object}  Session
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /sessions/{sessionID} [get]
func (h *Handler) Get(c *gin.Context) {
	caller, id, ok := prelude(c, "sessionID")
	if !ok {
		return
	}

	sess, err := h.service.Get(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// List godoc
// @Summary      List training sessions
// @Description  Members see their own sessions and trainers the ones they run.
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        member_id     query     int     false  "Member ID"
// @Param        trainer_id    query     int     false  "Trainer ID"
// @Param        programme_id  query     int     false  "Programme ID"
// @Param        state         query     string  false  "State"  Enums(scheduled, in_progress, completed, cancelled, no_show)
// @Param        from          query     string  false  "Start time lower bound (RFC 3339)"
// @Param        to            query     string  false  "Start time upper bound (RFC 3339)"
// @Param        page          query     int     false  "Page"
// @Param        limit         query     int     false  "Page size"
// @Success      200           {object}  SessionListResponse
// @Failure      400           {object}  api.ValidationErrorResponse
// @Failure      403           {object}  api.ErrorResponse
// @Router       /sessions [get]
func (h *Handler) List(c *gin.Context) {
	h.list(c, func(caller Caller, f ListFilter) ([]Session, int, error) {
		return h.service.List(c.Request.Context(), caller, f)
	})
}

// ListForTrainer godoc
// @Summary      Sessions run by a trainer
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        trainerID  path      int  true   "Trainer ID"
// @Param        page       query     int  false  "Page"
// @Param        limit      query     int  false  "Page size"
// @Success      200        {object}  SessionListResponse
// @Failure      403        {object}  api.ErrorResponse
// @Router       /trainers/{trainerID}/sessions [get]
func (h *Handler) ListForTrainer(c *gin.Context) {
	trainerID, ok := idParam(c, "trainerID")
	if !ok {
		return
	}
	h.list(c, func(caller Caller, f ListFilter) ([]Session, int, error) {
		return h.service.ListForTrainer(c.Request.Context(), caller, trainerID, f)
	})
}

// ListForMember godoc
// @Summary      Sessions of a member
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        memberID  path      int  true   "Member ID"
// @Param        page      query     int  false  "Page"
// @Param        limit     query     int  false  "Page size"
// @Success      200       {object}  SessionListResponse
// @Failure      403       {object}  api.ErrorResponse
// @Router       /members/{memberID}/sessions [get]
func (h *Handler) ListForMember(c *gin.Context) {
	memberID, ok := idParam(c, "memberID")
	if !ok {
		return
	}
	h.list(c, func(caller Caller, f ListFilter) ([]Session, int, error) {
		return h.service.ListForMember(c.Request.Context(), caller, memberID, f)
	})
}

func (h *Handler) list(c *gin.Context, fetch func(Caller, ListFilter) ([]Session, int, error)) {
	caller, _, ok := prelude(c, "")
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ValidationErrorResponse{Error: "validation failed", Details: api.FieldErrors(err)})
		return
	}
	f, err := q.filter()
	if err != nil {
		respondError(c, err)
		return
	}

	sessions, total, err := fetch(caller, f)
	if err != nil {
		respondError(c, err)
		return
	}

	page, limit := api.NormalizePage(f.Page, f.Limit)
	c.JSON(http.StatusOK, SessionListResponse{
		Data:       sessions,
		Pagination: api.BuildPaginationMeta(page, limit, total),
	})
}

// Stats godoc
// @Summary      Session statistics
// @Description  Counts by state and the average rating of completed sessions.
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        member_id   query     int     false  "Member ID"
// @Param        trainer_id  query     int     false  "Trainer ID"
// @Param        from        query     string  false  "Start time lower bound (RFC 3339)"
// @Param        to          query     string  false  "Start time upper bound (RFC 3339)"
// @Success      200         {object}  Stats
// @Failure      403         {object}  api.ErrorResponse
// @Router       /sessions/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	caller, _, ok := prelude(c, "")
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, api.ValidationErrorResponse{Error: "validation failed", Details: api.FieldErrors(err)})
		return
	}
	f, err := q.filter()
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), caller, StatsFilter{
		MemberID:  f.MemberID,
		TrainerID: f.TrainerID,
		From:      f.From,
		To:        f.To,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MarkAttendance godoc
// @Summary      Mark attendance
// @Description  "present" more than the grace period after the start is recorded as "late".
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID  path      int                true  "Session ID"
// @Param        request    body      AttendanceRequest  true  "Outcome"
// @Success      200        {object}  Session
// @Failure      400        {object}  api.ValidationErrorResponse
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /sessions/{sessionID}/attendance [post]
func (h *Handler) MarkAttendance(c *gin.Context) {
	caller, id, ok := prelude(c, "sessionID")
	if !ok {
		return
	}
	var req AttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	sess, err := h.service.MarkAttendance(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Complete godoc
// @Summary      Complete a session
// @Description  Consumes one credit from the member's active ledger when eligible. Ineligibility does not fail the call.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID  path      int              true  "Session ID"
// @Param        request    body      CompleteRequest  true  "Outcome"
// @Success      200        {object}  CompletionResult
// @Failure      400        {object}  api.ValidationErrorResponse
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /sessions/{sessionID}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	caller, id, ok := prelude(c, "sessionID")
	if !ok {
		return
	}
	var req CompleteRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.service.Complete(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Cancel godoc
// @Summary      Cancel a session
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID  path      int            true  "Session ID"
// @Param        request    body      CancelRequest  false  "Reason"
// @Success      200        {object}  Session
// @Failure      403        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /sessions/{sessionID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	caller, id, ok := prelude(c, "sessionID")
	if !ok {
		return
	}
	var req CancelRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	sess, err := h.service.Cancel(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// RequestReschedule godoc
// @Summary      Ask staff to reschedule
// @Description  Available to the session's member while it is scheduled. The session itself is not changed.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID  path      int                true  "Session ID"
// @Param        request    body      RescheduleRequest  true  "Proposal"
// @Success      202        {object}  ChangeRequest
// @Failure      400        {object}  api.ValidationErrorResponse
// @Failure      403        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /sessions/{sessionID}/reschedule-request [post]
func (h *Handler) RequestReschedule(c *gin.Context) {
	caller, id, ok := prelude(c, "sessionID")
	if !ok {
		return
	}
	var req RescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	cr, err := h.service.RequestReschedule(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, cr)
}

// RequestCancel godoc
// @Summary      Ask staff to cancel
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID  path      int                  true   "Session ID"
// @Param        request    body      CancellationRequest  false  "Reason"
// @Success      202        {object}  ChangeRequest
// @Failure      403        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /sessions/{sessionID}/cancel-request [post]
func (h *Handler) RequestCancel(c *gin.Context) {
	caller, id, ok := prelude(c, "sessionID")
	if !ok {
		return
	}
	var req CancellationRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	cr, err := h.service.RequestCancel(c.Request.Context(), caller, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, cr)
}
