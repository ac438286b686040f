package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iptables-easy/iptables-easy-backend/internal/database"
	"github.com/iptables-easy/iptables-easy-backend/internal/database/models"
	"go.uber.org/zap"
)

// RuleService manages iptables rule declarations scoped to nodes. Chain,
// action, protocol, and address fields are accepted as opaque strings;
// semantic validation belongs to the agent applying them.
type RuleService struct {
	db     *database.Database
	logger *zap.Logger
}

// NewRuleService creates a new rule service
func NewRuleService(db *database.Database, logger *zap.Logger) *RuleService {
	return &RuleService{
		db:     db,
		logger: logger,
	}
}

// CreateRuleRequest represents a request to create a rule
type CreateRuleRequest struct {
	NodeID        int64
	Chain         string
	Action        string
	Protocol      *string
	SourceIP      *string
	DestinationIP *string
	Port          *int64
	Description   *string
	CreatedByID   int64
}

// Create declares a new rule bound to an existing node. Both the node and
// the authoring user must resolve before anything is persisted.
func (s *RuleService) Create(req *CreateRuleRequest) (*models.IptablesRule, error) {
	if _, err := s.db.GetNode(req.NodeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	if _, err := s.db.GetUser(req.CreatedByID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	rule := &models.IptablesRule{
		NodeID:        req.NodeID,
		Chain:         req.Chain,
		Action:        req.Action,
		Protocol:      nullString(req.Protocol),
		SourceIP:      nullString(req.SourceIP),
		DestinationIP: nullString(req.DestinationIP),
		Port:          nullInt64(req.Port),
		Description:   nullString(req.Description),
		CreatedByID:   sql.NullInt64{Int64: req.CreatedByID, Valid: true},
		CreatedAt:     time.Now().UTC(),
		Enabled:       true,
		SyncStatus:    models.SyncStatusUnknown,
	}

	if err := s.db.CreateRule(rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	s.audit("create", rule.ID, fmt.Sprintf("rule created on node %d", rule.NodeID))
	return rule, nil
}

// List retrieves all rules, optionally filtered to one node. Filtering by a
// node with no rules yields an empty list, not an error.
func (s *RuleService) List(nodeID *int64) ([]*models.IptablesRule, error) {
	var rules []*models.IptablesRule
	var err error

	if nodeID != nil {
		rules, err = s.db.ListRulesByNode(*nodeID)
	} else {
		rules, err = s.db.ListRules()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return rules, nil
}

// Get retrieves a rule by ID
func (s *RuleService) Get(id int64) (*models.IptablesRule, error) {
	rule, err := s.db.GetRule(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

// UpdateRuleRequest represents a request to update a rule. The node binding
// cannot be changed; a node_id submitted on update is ignored.
type UpdateRuleRequest struct {
	Chain         string
	Action        string
	Protocol      *string
	SourceIP      *string
	DestinationIP *string
	Port          *int64
	Description   *string
}

// Update overwrites a rule's match and target fields. The enabled flag and
// sync fields are owned by other paths and left untouched.
func (s *RuleService) Update(id int64, req *UpdateRuleRequest) (*models.IptablesRule, error) {
	rule, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	rule.Chain = req.Chain
	rule.Action = req.Action
	rule.Protocol = nullString(req.Protocol)
	rule.SourceIP = nullString(req.SourceIP)
	rule.DestinationIP = nullString(req.DestinationIP)
	rule.Port = nullInt64(req.Port)
	rule.Description = nullString(req.Description)

	if err := s.db.UpdateRule(rule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	s.audit("update", id, fmt.Sprintf("rule updated on node %d", rule.NodeID))
	return rule, nil
}

// Delete removes a rule by ID
func (s *RuleService) Delete(id int64) error {
	if err := s.db.DeleteRule(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("rule %w", ErrNotFound)
		}
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	s.audit("delete", id, "rule deleted")
	return nil
}

// audit appends an audit log entry for a rule mutation. Best effort, same
// contract as the node service.
func (s *RuleService) audit(action string, ruleID int64, details string) {
	entry := &models.AuditLog{
		Action:       action,
		ResourceType: "rule",
		ResourceID:   ruleID,
		Details:      sql.NullString{String: details, Valid: details != ""},
		Timestamp:    time.Now().UTC(),
	}
	if err := s.db.CreateAuditLog(entry); err != nil {
		s.logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.Int64("rule_id", ruleID),
			zap.Error(err),
		)
	}
}
