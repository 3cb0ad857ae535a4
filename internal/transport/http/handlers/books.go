package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// BookHandler exposes the catalogue book endpoints.
type BookHandler struct {
	books *usecase.BookService
}

// NewBookHandler constructs BookHandler.
func NewBookHandler(books *usecase.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// RegisterRoutes binds the catalogue routes. Reads are open to any
// authenticated role; writes are gated on the book grants.
func (h *BookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", middleware.RequirePermission(ability.ActionRead, ability.SubjectBook), h.list)
	r.GET("/:id", middleware.RequirePermission(ability.ActionRead, ability.SubjectBook), h.get)
	r.GET("/slug/:slug", middleware.RequirePermission(ability.ActionRead, ability.SubjectBook), h.getBySlug)
	r.POST("", middleware.RequirePermission(ability.ActionCreate, ability.SubjectBook), h.create)
	r.PUT("/:id", middleware.RequirePermission(ability.ActionUpdate, ability.SubjectBook), h.update)
	r.DELETE("/:id", middleware.RequirePermission(ability.ActionDelete, ability.SubjectBook), h.remove)
	r.POST("/:id/cover", middleware.RequirePermission(ability.ActionUpdate, ability.SubjectBook), h.uploadCover)
}

func (h *BookHandler) list(c *gin.Context) {
	books, pageInfo, err := h.books.ListBooks(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list books failed"))
		return
	}
	c.JSON(http.StatusOK, NewBookListResponse(books, pageInfo))
}

func (h *BookHandler) get(c *gin.Context) {
	book, err := h.books.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, bookErrorCases(), http.StatusInternalServerError, "lookup book failed")
		return
	}
	c.JSON(http.StatusOK, NewBookResponse(book))
}

func (h *BookHandler) getBySlug(c *gin.Context) {
	book, err := h.books.GetBookBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondWithMappedError(c, err, bookErrorCases(), http.StatusInternalServerError, "lookup book failed")
		return
	}
	c.JSON(http.StatusOK, NewBookResponse(book))
}

func (h *BookHandler) create(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid book payload"))
		return
	}

	actorID, _ := middleware.GetAuthenticatedUserID(c)
	book, err := h.books.CreateBook(c.Request.Context(), actorID, bookInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, bookErrorCases(), http.StatusBadRequest, "create book failed")
		return
	}

	c.JSON(http.StatusCreated, NewBookResponse(book))
}

func (h *BookHandler) update(c *gin.Context) {
	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid book payload"))
		return
	}

	book, err := h.books.UpdateBook(c.Request.Context(), c.Param("id"), bookInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, bookErrorCases(), http.StatusBadRequest, "update book failed")
		return
	}

	c.JSON(http.StatusOK, NewBookResponse(book))
}

func (h *BookHandler) remove(c *gin.Context) {
	actorID, _ := middleware.GetAuthenticatedUserID(c)
	if err := h.books.DeleteBook(c.Request.Context(), actorID, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, bookErrorCases(), http.StatusInternalServerError, "delete book failed")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "book deleted"})
}

func (h *BookHandler) uploadCover(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "image file is required"))
		return
	}
	if file.Size > maxImageUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse(c, "image exceeds the size limit"))
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "image file unreadable"))
		return
	}
	defer src.Close()

	url, err := h.books.UploadCover(c.Request.Context(), c.Param("id"), src, file.Header.Get("Content-Type"))
	if err != nil {
		RespondWithMappedError(c, err, bookErrorCases(), http.StatusInternalServerError, "cover upload failed")
		return
	}

	c.JSON(http.StatusOK, UploadResponse{URL: url})
}

func bookInputFromRequest(req BookRequest) usecase.BookInput {
	return usecase.BookInput{
		Title:        req.Title,
		Summary:      req.Summary,
		PublishYear:  req.PublishYear,
		Tags:         req.Tags,
		Format:       domain.BookFormat(req.Format),
		Availability: domain.Availability(req.Availability),
		Genres:       req.Genres,
		PageCount:    req.PageCount,
		Language:     req.Language,
		AuthorIDs:    req.AuthorIDs,
	}
}

func bookErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrBookNotFound, Status: http.StatusNotFound, Message: "book not found"},
		{Err: usecase.ErrAuthorNotFound, Status: http.StatusBadRequest, Message: "linked author not found"},
		{Err: usecase.ErrSlugConflict, Status: http.StatusConflict, Message: "slug already in use"},
	}
}
