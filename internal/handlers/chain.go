package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/chainboard/internal/dto"
	"github.com/yukikurage/chainboard/internal/engine"
	apierrors "github.com/yukikurage/chainboard/internal/errors"
	"github.com/yukikurage/chainboard/internal/models"
)

type ChainHandler struct {
	manager *engine.Manager
}

func NewChainHandler(manager *engine.Manager) *ChainHandler {
	return &ChainHandler{manager: manager}
}

// ListLinks returns every edge of the board
func (h *ChainHandler) ListLinks(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.LinkListResponse{Links: board.Links()})
}

// CreateLink links two tasks
func (h *ChainHandler) CreateLink(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	tasks, err := board.Link(req.FromID, req.ToID, models.LinkType(req.LinkType))
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// DeleteLink removes the edge between two tasks
func (h *ChainHandler) DeleteLink(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.UnlinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	tasks, err := board.Unlink(req.FromID, req.ToID)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// GetChain returns the chain reachable from a task with its progress
func (h *ChainHandler) GetChain(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	chain, err := board.Chain(id)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChainResponse(chain))
}

// StartChain arms a chain and starts its first task
func (h *ChainHandler) StartChain(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	chain, err := board.StartChain(id)
	if err != nil {
		respondEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToChainResponse(chain))
}

// ListChains returns every distinct chain of the board
func (h *ChainHandler) ListChains(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	chains := board.Chains()
	resp := dto.ChainListResponse{Chains: make([]dto.ChainResponse, 0, len(chains))}
	for _, chain := range chains {
		resp.Chains = append(resp.Chains, dto.ToChainResponse(chain))
	}

	c.JSON(http.StatusOK, resp)
}

// ResetChain cancels pending activations and resets the given tasks
func (h *ChainHandler) ResetChain(c *gin.Context) {
	board, ok := boardFor(c, h.manager)
	if !ok {
		return
	}

	var req dto.ResetChainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	c.JSON(http.StatusOK, dto.ToChainResponse(board.ResetChain(req.TaskIDs)))
}
