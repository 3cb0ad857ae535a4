package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/domain"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// WishlistHandler exposes the wished-books endpoints.
type WishlistHandler struct {
	wishlists *usecase.WishlistService
}

// NewWishlistHandler constructs WishlistHandler.
func NewWishlistHandler(wishlists *usecase.WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlists: wishlists}
}

// RegisterRoutes binds the wishlist routes.
func (h *WishlistHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", middleware.RequirePermission(ability.ActionRead, ability.SubjectWishlist), h.list)
	r.GET("/:id", middleware.RequirePermission(ability.ActionRead, ability.SubjectWishlist), h.get)
	r.POST("", middleware.RequirePermission(ability.ActionCreate, ability.SubjectWishlist), h.create)
	r.PUT("/:id", middleware.RequirePermission(ability.ActionUpdate, ability.SubjectWishlist), h.update)
	r.DELETE("/:id", middleware.RequirePermission(ability.ActionDelete, ability.SubjectWishlist), h.remove)
	r.POST("/export", middleware.RequirePermission(ability.ActionRead, ability.SubjectWishlist), h.export)
}

func (h *WishlistHandler) list(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	entries, pageInfo, err := h.wishlists.ListEntries(c.Request.Context(), ab, c.Query("user_id"), pageFromQuery(c))
	if err != nil {
		RespondWithMappedError(c, err, wishlistErrorCases(), http.StatusInternalServerError, "list wishlist failed")
		return
	}

	out := make([]WishlistEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewWishlistEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, WishlistListResponse{Entries: out, Pagination: pageInfo})
}

func (h *WishlistHandler) get(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	entry, err := h.wishlists.GetEntry(c.Request.Context(), ab, c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, wishlistErrorCases(), http.StatusInternalServerError, "lookup wishlist entry failed")
		return
	}

	c.JSON(http.StatusOK, NewWishlistEntryResponse(entry))
}

func (h *WishlistHandler) create(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req WishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid wishlist payload"))
		return
	}

	entry, err := h.wishlists.CreateEntry(c.Request.Context(), ab, c.Query("user_id"), wishlistInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, wishlistErrorCases(), http.StatusBadRequest, "create wishlist entry failed")
		return
	}

	c.JSON(http.StatusCreated, NewWishlistEntryResponse(entry))
}

func (h *WishlistHandler) update(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req WishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid wishlist payload"))
		return
	}

	entry, err := h.wishlists.UpdateEntry(c.Request.Context(), ab, c.Param("id"), wishlistInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, wishlistErrorCases(), http.StatusBadRequest, "update wishlist entry failed")
		return
	}

	c.JSON(http.StatusOK, NewWishlistEntryResponse(entry))
}

func (h *WishlistHandler) remove(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.wishlists.DeleteEntry(c.Request.Context(), ab, c.Param("id")); err != nil {
		RespondWithMappedError(c, err, wishlistErrorCases(), http.StatusInternalServerError, "delete wishlist entry failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "wishlist entry deleted"})
}

// export mails the full wishlist to the owning account's address.
func (h *WishlistHandler) export(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	count, err := h.wishlists.SendExport(c.Request.Context(), ab, c.Query("user_id"))
	if err != nil {
		cases := append(wishlistErrorCases(),
			ErrorCase{Err: usecase.ErrWishlistEmpty, Status: http.StatusUnprocessableEntity, Message: "wishlist is empty"},
			ErrorCase{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "wishlist export failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "wishlist sent by email", "entries": count})
}

func wishlistInputFromRequest(req WishlistRequest) usecase.WishlistInput {
	return usecase.WishlistInput{
		Title:    req.Title,
		Author:   req.Author,
		Status:   domain.WishlistStatus(req.Status),
		Priority: domain.WishlistPriority(req.Priority),
	}
}

func wishlistErrorCases() []ErrorCase {
	return append(append([]ErrorCase{}, permissionCases...),
		ErrorCase{Err: usecase.ErrWishlistEntryNotFound, Status: http.StatusNotFound, Message: "wishlist entry not found"},
	)
}
