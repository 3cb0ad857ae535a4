package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// BookshelfHandler exposes the personal reading shelf endpoints. The target
// shelf defaults to the caller's own; naming another user requires an
// unconditional bookshelf grant.
type BookshelfHandler struct {
	shelf *usecase.BookshelfService
}

// NewBookshelfHandler constructs BookshelfHandler.
func NewBookshelfHandler(shelf *usecase.BookshelfService) *BookshelfHandler {
	return &BookshelfHandler{shelf: shelf}
}

// RegisterRoutes binds the bookshelf routes.
func (h *BookshelfHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", middleware.RequirePermission(ability.ActionRead, ability.SubjectBookshelf), h.list)
	r.GET("/due-soon", middleware.RequirePermission(ability.ActionRead, ability.SubjectBookshelf), h.dueSoon)
	r.GET("/:id", middleware.RequirePermission(ability.ActionRead, ability.SubjectBookshelf), h.get)
	r.POST("", middleware.RequirePermission(ability.ActionCreate, ability.SubjectBookshelf), h.add)
	r.PUT("/:id", middleware.RequirePermission(ability.ActionUpdate, ability.SubjectBookshelf), h.update)
	r.DELETE("/:id", middleware.RequirePermission(ability.ActionDelete, ability.SubjectBookshelf), h.remove)
}

func (h *BookshelfHandler) list(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	items, pageInfo, err := h.shelf.ListShelf(c.Request.Context(), ab, c.Query("user_id"), pageFromQuery(c))
	if err != nil {
		RespondWithMappedError(c, err, shelfErrorCases(), http.StatusInternalServerError, "list bookshelf failed")
		return
	}

	c.JSON(http.StatusOK, NewShelfListResponse(items, pageInfo))
}

func (h *BookshelfHandler) dueSoon(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, err := h.shelf.DueSoon(c.Request.Context(), ab, c.Query("user_id"), time.Duration(days)*24*time.Hour, limit)
	if err != nil {
		RespondWithMappedError(c, err, shelfErrorCases(), http.StatusInternalServerError, "due soon lookup failed")
		return
	}

	out := make([]ShelfItemResponse, 0, len(items))
	for i := range items {
		out = append(out, NewShelfItemResponse(&items[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *BookshelfHandler) get(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	item, err := h.shelf.GetItem(c.Request.Context(), ab, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, shelfErrorCases(), http.StatusInternalServerError, "lookup bookshelf item failed")
		return
	}

	c.JSON(http.StatusOK, NewShelfItemResponse(item))
}

func (h *BookshelfHandler) add(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ShelfItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid bookshelf payload"))
		return
	}
	if req.BookID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "book_id is required"))
		return
	}

	item, err := h.shelf.AddToShelf(c.Request.Context(), ab, c.Query("user_id"), req.BookID, shelfInputFromRequest(req))
	if err != nil {
		cases := append(shelfErrorCases(),
			ErrorCase{Err: usecase.ErrBookNotFound, Status: http.StatusNotFound, Message: "book not found"},
			ErrorCase{Err: usecase.ErrAlreadyShelved, Status: http.StatusConflict, Message: "book already on shelf"},
		)
		RespondWithMappedError(c, err, cases, http.StatusBadRequest, "add to bookshelf failed")
		return
	}

	c.JSON(http.StatusCreated, NewShelfItemResponse(item))
}

func (h *BookshelfHandler) update(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ShelfItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid bookshelf payload"))
		return
	}

	item, err := h.shelf.UpdateItem(c.Request.Context(), ab, c.Param("id"), shelfInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, shelfErrorCases(), http.StatusBadRequest, "update bookshelf item failed")
		return
	}

	c.JSON(http.StatusOK, NewShelfItemResponse(item))
}

func (h *BookshelfHandler) remove(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.shelf.RemoveItem(c.Request.Context(), ab, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, shelfErrorCases(), http.StatusInternalServerError, "remove bookshelf item failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "bookshelf item removed"})
}

func shelfInputFromRequest(req ShelfItemRequest) usecase.ShelfItemInput {
	return usecase.ShelfItemInput{
		Rating:        req.Rating,
		ReadStatus:    domain.ReadStatus(req.ReadStatus),
		StartReadDate: req.StartReadDate,
		EndReadDate:   req.EndReadDate,
		IsFavorite:    req.IsFavorite,
		DueDate:       req.DueDate,
	}
}

func shelfErrorCases() []ErrorCase {
	return append(append([]ErrorCase{}, permissionCases...),
		ErrorCase{Err: usecase.ErrShelfItemNotFound, Status: http.StatusNotFound, Message: "bookshelf item not found"},
		ErrorCase{Err: usecase.ErrRatingOutOfRange, Status: http.StatusBadRequest, Message: "rating out of range"},
	)
}
