package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/domains/book/service"
	"library-backend/internal/shared/response"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(s service.ServiceInterface) *Handler {
	return &Handler{
		service: s,
	}
}

// ListBooks godoc
// GET /v1/books?available=true|false
func (h *Handler) ListBooks(c *gin.Context) {
	available, err := model.ParseAvailableFilter(c.Query("available"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, model.ToErrorCode(err), "available must be true or false")
		return
	}

	books, err := h.service.ListBooks(c.Request.Context(), model.ListBooksRequest{Available: available})
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, "Get books successfully", books, &response.Meta{Total: len(books)})
}

// GetBookByID - GET /v1/books/:id
func (h *Handler) GetBookByID(c *gin.Context) {
	id, ok := parseID(c, "INVALID_BOOK_ID", "Invalid book id")
	if !ok {
		return
	}

	book, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Get book successfully", book)
}

// DeleteBook - DELETE /v1/books/:id
// A book that was ever leased answers 409.
func (h *Handler) DeleteBook(c *gin.Context) {
	id, ok := parseID(c, "INVALID_BOOK_ID", "Invalid book id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	response.NoContent(c)
}

// ListAuthorBooks - GET /v1/authors/:id/books
func (h *Handler) ListAuthorBooks(c *gin.Context) {
	authorID, ok := parseID(c, "INVALID_AUTHOR_ID", "Invalid author id")
	if !ok {
		return
	}

	books, err := h.service.ListByAuthor(c.Request.Context(), authorID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, "Get author books successfully", books, &response.Meta{Total: len(books)})
}

// CreateAuthorBook - POST /v1/authors/:id/books
func (h *Handler) CreateAuthorBook(c *gin.Context) {
	authorID, ok := parseID(c, "INVALID_AUTHOR_ID", "Invalid author id")
	if !ok {
		return
	}

	var req model.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	book, err := h.service.CreateForAuthor(c.Request.Context(), authorID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Create book successfully", book)
}

func parseID(c *gin.Context, code, message string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, code, message)
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	status := model.ToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal server error"
	}
	response.Error(c, status, model.ToErrorCode(err), message)
}
