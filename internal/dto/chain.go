package dto

import (
	"github.com/yukikurage/chainboard/internal/engine"
	"github.com/yukikurage/chainboard/internal/models"
)

// LinkRequest is the body of POST /api/links
type LinkRequest struct {
	FromID   int64  `json:"fromId" binding:"required"`
	ToID     int64  `json:"toId" binding:"required"`
	LinkType string `json:"linkType"`
}

// UnlinkRequest is the body of DELETE /api/links
type UnlinkRequest struct {
	FromID int64 `json:"fromId" binding:"required"`
	ToID   int64 `json:"toId" binding:"required"`
}

// ResetChainRequest is the body of POST /api/chains/reset
type ResetChainRequest struct {
	TaskIDs []int64 `json:"taskIds" binding:"required,min=1"`
}

// ChainResponse is one materialized chain with its progress
type ChainResponse struct {
	Tasks    []models.Task `json:"tasks"`
	Progress int           `json:"progress"`
}

// ChainListResponse lists every distinct chain of the board
type ChainListResponse struct {
	Chains []ChainResponse `json:"chains"`
}

// ToChainResponse wraps a chain with its progress
func ToChainResponse(chain []models.Task) ChainResponse {
	if chain == nil {
		chain = []models.Task{}
	}
	return ChainResponse{
		Tasks:    chain,
		Progress: engine.ChainProgress(chain),
	}
}

// LinkListResponse lists the board's edges
type LinkListResponse struct {
	Links []engine.Link `json:"links"`
}
