package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// AuthorHandler exposes the author catalogue endpoints.
type AuthorHandler struct {
	authors *usecase.AuthorService
}

// NewAuthorHandler constructs AuthorHandler.
func NewAuthorHandler(authors *usecase.AuthorService) *AuthorHandler {
	return &AuthorHandler{authors: authors}
}

// RegisterRoutes binds the author routes.
func (h *AuthorHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", middleware.RequirePermission(ability.ActionRead, ability.SubjectAuthor), h.list)
	r.GET("/:id", middleware.RequirePermission(ability.ActionRead, ability.SubjectAuthor), h.get)
	r.GET("/slug/:slug", middleware.RequirePermission(ability.ActionRead, ability.SubjectAuthor), h.getBySlug)
	r.POST("", middleware.RequirePermission(ability.ActionCreate, ability.SubjectAuthor), h.create)
	r.PUT("/:id", middleware.RequirePermission(ability.ActionUpdate, ability.SubjectAuthor), h.update)
	r.DELETE("/:id", middleware.RequirePermission(ability.ActionDelete, ability.SubjectAuthor), h.remove)
}

func (h *AuthorHandler) list(c *gin.Context) {
	authors, pageInfo, err := h.authors.ListAuthors(c.Request.Context(), pageFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list authors failed"))
		return
	}
	c.JSON(http.StatusOK, NewAuthorListResponse(authors, pageInfo))
}

func (h *AuthorHandler) get(c *gin.Context) {
	author, err := h.authors.GetAuthor(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, authorErrorCases(), http.StatusInternalServerError, "lookup author failed")
		return
	}
	c.JSON(http.StatusOK, NewAuthorResponse(author))
}

func (h *AuthorHandler) getBySlug(c *gin.Context) {
	author, err := h.authors.GetAuthorBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondWithMappedError(c, err, authorErrorCases(), http.StatusInternalServerError, "lookup author failed")
		return
	}
	c.JSON(http.StatusOK, NewAuthorResponse(author))
}

func (h *AuthorHandler) create(c *gin.Context) {
	var req AuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid author payload"))
		return
	}

	author, err := h.authors.CreateAuthor(c.Request.Context(), authorInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, authorErrorCases(), http.StatusBadRequest, "create author failed")
		return
	}

	c.JSON(http.StatusCreated, NewAuthorResponse(author))
}

func (h *AuthorHandler) update(c *gin.Context) {
	var req AuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid author payload"))
		return
	}

	author, err := h.authors.UpdateAuthor(c.Request.Context(), c.Param("id"), authorInputFromRequest(req))
	if err != nil {
		RespondWithMappedError(c, err, authorErrorCases(), http.StatusBadRequest, "update author failed")
		return
	}

	c.JSON(http.StatusOK, NewAuthorResponse(author))
}

// remove reassigns the author's books to the fallback author named in the
// query string, then deletes the author.
func (h *AuthorHandler) remove(c *gin.Context) {
	actorID, _ := middleware.GetAuthenticatedUserID(c)
	fallbackID := c.Query("fallback_author_id")

	err := h.authors.DeleteAuthor(c.Request.Context(), actorID, c.Param("id"), fallbackID)
	if err != nil {
		cases := append(authorErrorCases(),
			ErrorCase{Err: usecase.ErrFallbackAuthorInvalid, Status: http.StatusBadRequest, Message: "fallback author invalid"},
		)
		RespondWithMappedError(c, err, cases, http.StatusInternalServerError, "delete author failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "author deleted"})
}

func authorInputFromRequest(req AuthorRequest) usecase.AuthorInput {
	return usecase.AuthorInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		BirthDate: req.BirthDate,
		DeathDate: req.DeathDate,
	}
}

func authorErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrAuthorNotFound, Status: http.StatusNotFound, Message: "author not found"},
		{Err: usecase.ErrSlugConflict, Status: http.StatusConflict, Message: "slug already in use"},
	}
}
