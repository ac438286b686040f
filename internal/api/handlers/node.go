package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iptables-easy/iptables-easy-backend/internal/service"
	"go.uber.org/zap"
)

// NodeHandler handles node lifecycle operations
type NodeHandler struct {
	nodeService *service.NodeService
	logger      *zap.Logger
}

// NewNodeHandler creates a new node handler
func NewNodeHandler(nodeService *service.NodeService, logger *zap.Logger) *NodeHandler {
	return &NodeHandler{
		nodeService: nodeService,
		logger:      logger,
	}
}

// NodeRequest represents a node create or update request
type NodeRequest struct {
	Name        string  `json:"name" binding:"required"`
	Hostname    string  `json:"hostname" binding:"required"`
	Description *string `json:"description"`
}

// CreateNode registers a new managed node
// @Summary Create node
// @Description Register a new managed node, offline with no agent binding
// @Accept json
// @Produce json
// @Param request body NodeRequest true "Node request"
// @Success 200 {object} NodeResponse
// @Router /nodes [post]
func (h *NodeHandler) CreateNode(c *gin.Context) {
	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.nodeService.Create(&service.CreateNodeRequest{
		Name:        req.Name,
		Hostname:    req.Hostname,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "node name already exists"})
			return
		}
		h.logger.Error("Failed to create node", zap.String("name", req.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create node"})
		return
	}

	h.logger.Info("Node created", zap.Int64("node_id", node.ID), zap.String("name", node.Name))

	c.JSON(http.StatusOK, newNodeResponse(node))
}

// ListNodes lists all nodes
// @Summary List nodes
// @Produce json
// @Success 200 {array} NodeResponse
// @Router /nodes [get]
func (h *NodeHandler) ListNodes(c *gin.Context) {
	nodes, err := h.nodeService.List()
	if err != nil {
		h.logger.Error("Failed to list nodes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list nodes"})
		return
	}

	c.JSON(http.StatusOK, newNodeListResponse(nodes))
}

// GetNode gets a specific node
// @Summary Get node
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {object} NodeResponse
// @Router /nodes/{id} [get]
func (h *NodeHandler) GetNode(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	node, err := h.nodeService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "node not found"})
			return
		}
		h.logger.Error("Failed to get node", zap.Int64("node_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get node"})
		return
	}

	c.JSON(http.StatusOK, newNodeResponse(node))
}

// UpdateNode overwrites a node's name, hostname, and description
// @Summary Update node
// @Accept json
// @Produce json
// @Param id path int true "Node ID"
// @Param request body NodeRequest true "Node request"
// @Success 200 {object} NodeResponse
// @Router /nodes/{id} [put]
func (h *NodeHandler) UpdateNode(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	var req NodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	node, err := h.nodeService.Update(id, &service.UpdateNodeRequest{
		Name:        req.Name,
		Hostname:    req.Hostname,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "node not found"})
		case errors.Is(err, service.ErrConflict):
			c.JSON(http.StatusBadRequest, gin.H{"error": "node name already exists"})
		default:
			h.logger.Error("Failed to update node", zap.Int64("node_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update node"})
		}
		return
	}

	h.logger.Info("Node updated", zap.Int64("node_id", id))

	c.JSON(http.StatusOK, newNodeResponse(node))
}

// DeleteNode removes a node and its rules
// @Summary Delete node
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {object} map[string]string
// @Router /nodes/{id} [delete]
func (h *NodeHandler) DeleteNode(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	if err := h.nodeService.Delete(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "node not found"})
			return
		}
		h.logger.Error("Failed to delete node", zap.Int64("node_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete node"})
		return
	}

	h.logger.Info("Node deleted", zap.Int64("node_id", id))

	c.JSON(http.StatusOK, gin.H{"message": "node deleted"})
}

// Heartbeat marks a node online and stamps its heartbeat timestamp
// @Summary Node heartbeat
// @Produce json
// @Param id path int true "Node ID"
// @Success 200 {object} map[string]string
// @Router /nodes/{id}/heartbeat [post]
func (h *NodeHandler) Heartbeat(c *gin.Context) {
	id, ok := h.nodeID(c)
	if !ok {
		return
	}

	node, err := h.nodeService.Heartbeat(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "node not found"})
			return
		}
		h.logger.Error("Failed to update heartbeat", zap.Int64("node_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update heartbeat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "heartbeat updated",
		"status":  node.Status,
	})
}

func (h *NodeHandler) nodeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid node id"})
		return 0, false
	}
	return id, true
}
