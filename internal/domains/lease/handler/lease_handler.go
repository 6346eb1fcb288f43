package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/lease/model"
	"library-backend/internal/domains/lease/service"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/response"
)

type LeaseHandler struct {
	engine   service.Transitioner
	resolver service.AvailabilityReader
}

func NewLeaseHandler(engine service.Transitioner, resolver service.AvailabilityReader) *LeaseHandler {
	return &LeaseHandler{
		engine:   engine,
		resolver: resolver,
	}
}

// ════════════════════════════════════════════════════════════════
// TOGGLE: PUT /v1/books/:id/leases
// Leased → 201, Returned → 200
// ════════════════════════════════════════════════════════════════

func (h *LeaseHandler) Toggle(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	var req model.LeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, fmt.Errorf("%w: %v", model.ErrInvalidReturnTime, err))
		return
	}

	result, err := h.engine.Transition(c.Request.Context(), model.TransitionRequest{
		BookID:     bookID,
		HolderID:   middleware.HolderID(c),
		ReturnedAt: req.ReturnedAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := model.TransitionResponse{
		LeaseResponse: result.Record.ToResponse(),
		Outcome:       result.Outcome,
	}

	if result.Outcome == model.OutcomeLeased {
		response.Success(c, http.StatusCreated, "Book leased successfully", resp)
		return
	}
	response.Success(c, http.StatusOK, "Book returned successfully", resp)
}

// ════════════════════════════════════════════════════════════════
// HISTORY: GET /v1/books/:id/leases
// ════════════════════════════════════════════════════════════════

func (h *LeaseHandler) History(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	records, err := h.resolver.GetLeaseHistory(c.Request.Context(), bookID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, "Get lease history successfully",
		model.ToResponses(records), &response.Meta{Total: len(records)})
}

// ════════════════════════════════════════════════════════════════
// EXPORT: GET /v1/books/:id/leases/export
// ════════════════════════════════════════════════════════════════

func (h *LeaseHandler) Export(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	records, err := h.resolver.GetLeaseHistory(c.Request.Context(), bookID)
	if err != nil {
		writeError(c, err)
		return
	}

	buf, err := BuildHistoryWorkbook(bookID, records)
	if err != nil {
		response.InternalServerError(c, "Failed to build export")
		return
	}

	filename := fmt.Sprintf("book-%d-leases.xlsx", bookID)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ════════════════════════════════════════════════════════════════
// AVAILABILITY: GET /v1/books/:id/availability
// ════════════════════════════════════════════════════════════════

func (h *LeaseHandler) Availability(c *gin.Context) {
	bookID, ok := parseBookID(c)
	if !ok {
		return
	}

	availability, err := h.resolver.GetAvailability(c.Request.Context(), bookID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Get availability successfully", availability)
}

func parseBookID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_BOOK_ID", "Invalid book id")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	response.Error(c, model.ToHTTPStatus(err), model.ToErrorCode(err), err.Error())
}
