package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Frederic-K/bibliophile-server/internal/ability"
	"github.com/Frederic-K/bibliophile-server/internal/core/port"
	"github.com/Frederic-K/bibliophile-server/internal/transport/http/middleware"
	"github.com/Frederic-K/bibliophile-server/internal/usecase"
)

// SearchHandler exposes the faceted search endpoint.
type SearchHandler struct {
	search *usecase.SearchService
}

// NewSearchHandler constructs SearchHandler.
func NewSearchHandler(search *usecase.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// RegisterRoutes binds the search route.
func (h *SearchHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/search", middleware.RequirePermission(ability.ActionRead, ability.SubjectSearch), h.query)
}

// SearchResponse carries one page of results; exactly one of the item lists
// is populated, matching the requested kind.
type SearchResponse struct {
	Kind       string              `json:"kind"`
	Books      []BookResponse      `json:"books,omitempty"`
	Authors    []AuthorResponse    `json:"authors,omitempty"`
	Users      []UserResponse      `json:"users,omitempty"`
	Items      []ShelfItemResponse `json:"items,omitempty"`
	Pagination port.PageInfo       `json:"pagination"`
}

func (h *SearchHandler) query(c *gin.Context) {
	ab, ok := middleware.CurrentAbility(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	req, err := searchRequestFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, err.Error()))
		return
	}

	result, err := h.search.Search(c.Request.Context(), ab, req, c.Query("user_id"))
	if err != nil {
		cases := append(append([]ErrorCase{}, permissionCases...),
			ErrorCase{Err: usecase.ErrRatingOutOfRange, Status: http.StatusBadRequest, Message: "rating out of range"},
		)
		RespondWithMappedError(c, err, cases, http.StatusBadRequest, "search failed")
		return
	}

	resp := SearchResponse{
		Kind:       string(result.Kind),
		Pagination: result.Page,
	}

	switch result.Kind {
	case usecase.SearchKindBooks:
		resp.Books = make([]BookResponse, 0, len(result.Books))
		for i := range result.Books {
			resp.Books = append(resp.Books, NewBookResponse(&result.Books[i]))
		}
	case usecase.SearchKindAuthors:
		resp.Authors = make([]AuthorResponse, 0, len(result.Authors))
		for i := range result.Authors {
			resp.Authors = append(resp.Authors, NewAuthorResponse(&result.Authors[i]))
		}
	case usecase.SearchKindUsers:
		resp.Users = make([]UserResponse, 0, len(result.Users))
		for i := range result.Users {
			resp.Users = append(resp.Users, NewUserResponse(&result.Users[i]))
		}
	case usecase.SearchKindBookshelf:
		resp.Items = make([]ShelfItemResponse, 0, len(result.Shelf))
		for i := range result.Shelf {
			resp.Items = append(resp.Items, NewShelfItemResponse(&result.Shelf[i]))
		}
	}

	c.JSON(http.StatusOK, resp)
}

func searchRequestFromQuery(c *gin.Context) (usecase.SearchRequest, error) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	minRating, _ := strconv.Atoi(c.DefaultQuery("min_rating", "0"))

	req := usecase.SearchRequest{
		Kind:               usecase.SearchKind(c.DefaultQuery("kind", string(usecase.SearchKindBooks))),
		Term:               c.Query("q"),
		Page:               page,
		Limit:              limit,
		SortBy:             c.Query("sort_by"),
		SortOrder:          c.Query("sort_order"),
		Format:             c.Query("format"),
		MinRating:          minRating,
		ReadStatus:         c.Query("read_status"),
		AvailabilityStatus: c.Query("availability"),
		IsFavorite:         c.Query("is_favorite"),
	}

	var err error
	if req.StartDate, err = dateQuery(c, "start_date"); err != nil {
		return usecase.SearchRequest{}, err
	}
	if req.EndDate, err = dateQuery(c, "end_date"); err != nil {
		return usecase.SearchRequest{}, err
	}
	return req, nil
}

// dateQuery parses an optional RFC 3339 or plain date query parameter.
func dateQuery(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return &ts, nil
		}
	}
	return nil, &queryError{param: name}
}

type queryError struct {
	param string
}

func (e *queryError) Error() string {
	return "invalid " + e.param + " parameter"
}
