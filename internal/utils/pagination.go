package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/constants"
)

// PaginationParams selects one page of the session stats listing
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

// NewPaginationParams clamps page and limit to the stats paging bounds. An
// out of range limit falls back to the default page size.
func NewPaginationParams(page, limit int) PaginationParams {
	if page < constants.StatsFirstPage {
		page = constants.StatsFirstPage
	}
	if limit < 1 || limit > constants.MaxStatsPageSize {
		limit = constants.DefaultStatsPageSize
	}
	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// StatsPageFromQuery reads page and limit from the query string
func StatsPageFromQuery(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		limit = constants.DefaultStatsPageSize
	}
	return NewPaginationParams(page, limit)
}

// Response describes the page within total sessions
func (p PaginationParams) Response(total int64) PaginationResponse {
	return PaginationResponse{
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		HasMore: int64(p.Offset+p.Limit) < total,
	}
}
