package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/iptables-easy/iptables-easy-backend/internal/service"
	"go.uber.org/zap"
)

// RuleHandler handles iptables rule management operations
type RuleHandler struct {
	ruleService *service.RuleService
	logger      *zap.Logger
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(ruleService *service.RuleService, logger *zap.Logger) *RuleHandler {
	return &RuleHandler{
		ruleService: ruleService,
		logger:      logger,
	}
}

// RuleRequest represents a rule create or update request. On update the
// node_id field is ignored; node reassignment is not supported.
type RuleRequest struct {
	NodeID        int64   `json:"node_id"`
	Chain         string  `json:"chain" binding:"required"`
	Action        string  `json:"action" binding:"required"`
	Protocol      *string `json:"protocol"`
	SourceIP      *string `json:"source_ip"`
	DestinationIP *string `json:"destination_ip"`
	Port          *int64  `json:"port"`
	Description   *string `json:"description"`
}

// CreateRule declares a new rule on an existing node. The authoring user is
// supplied by the caller as the created_by_id query parameter.
// @Summary Create rule
// @Accept json
// @Produce json
// @Param created_by_id query int true "Authoring user ID"
// @Param request body RuleRequest true "Rule request"
// @Success 200 {object} RuleResponse
// @Router /rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	createdByID, err := strconv.ParseInt(c.Query("created_by_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_by_id"})
		return
	}

	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.ruleService.Create(&service.CreateRuleRequest{
		NodeID:        req.NodeID,
		Chain:         req.Chain,
		Action:        req.Action,
		Protocol:      req.Protocol,
		SourceIP:      req.SourceIP,
		DestinationIP: req.DestinationIP,
		Port:          req.Port,
		Description:   req.Description,
		CreatedByID:   createdByID,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create rule", zap.Int64("node_id", req.NodeID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create rule"})
		return
	}

	h.logger.Info("Rule created", zap.Int64("rule_id", rule.ID), zap.Int64("node_id", rule.NodeID))

	c.JSON(http.StatusOK, newRuleResponse(rule))
}

// ListRules lists all rules, optionally filtered by node
// @Summary List rules
// @Produce json
// @Param node_id query int false "Filter by node ID"
// @Success 200 {array} RuleResponse
// @Router /rules [get]
func (h *RuleHandler) ListRules(c *gin.Context) {
	var nodeID *int64
	if raw := c.Query("node_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid node_id"})
			return
		}
		nodeID = &id
	}

	rules, err := h.ruleService.List(nodeID)
	if err != nil {
		h.logger.Error("Failed to list rules", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rules"})
		return
	}

	c.JSON(http.StatusOK, newRuleListResponse(rules))
}

// GetRule gets a specific rule
// @Summary Get rule
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} RuleResponse
// @Router /rules/{id} [get]
func (h *RuleHandler) GetRule(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.Get(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		h.logger.Error("Failed to get rule", zap.Int64("rule_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get rule"})
		return
	}

	c.JSON(http.StatusOK, newRuleResponse(rule))
}

// UpdateRule overwrites a rule's match and target fields
// @Summary Update rule
// @Accept json
// @Produce json
// @Param id path int true "Rule ID"
// @Param request body RuleRequest true "Rule request"
// @Success 200 {object} RuleResponse
// @Router /rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule, err := h.ruleService.Update(id, &service.UpdateRuleRequest{
		Chain:         req.Chain,
		Action:        req.Action,
		Protocol:      req.Protocol,
		SourceIP:      req.SourceIP,
		DestinationIP: req.DestinationIP,
		Port:          req.Port,
		Description:   req.Description,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		h.logger.Error("Failed to update rule", zap.Int64("rule_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update rule"})
		return
	}

	h.logger.Info("Rule updated", zap.Int64("rule_id", id))

	c.JSON(http.StatusOK, newRuleResponse(rule))
}

// DeleteRule removes a rule
// @Summary Delete rule
// @Produce json
// @Param id path int true "Rule ID"
// @Success 200 {object} map[string]string
// @Router /rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	id, ok := h.ruleID(c)
	if !ok {
		return
	}

	if err := h.ruleService.Delete(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
			return
		}
		h.logger.Error("Failed to delete rule", zap.Int64("rule_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete rule"})
		return
	}

	h.logger.Info("Rule deleted", zap.Int64("rule_id", id))

	c.JSON(http.StatusOK, gin.H{"message": "rule deleted"})
}

func (h *RuleHandler) ruleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return 0, false
	}
	return id, true
}
