package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iptables-easy/iptables-easy-backend/internal/auth"
	"github.com/iptables-easy/iptables-easy-backend/internal/database"
	"github.com/iptables-easy/iptables-easy-backend/internal/database/models"
	"go.uber.org/zap"
)

// NodeService handles the node lifecycle: creation, edits, deletion,
// heartbeats, and the agent registration handshake
type NodeService struct {
	db     *database.Database
	logger *zap.Logger
}

// NewNodeService creates a new node service
func NewNodeService(db *database.Database, logger *zap.Logger) *NodeService {
	return &NodeService{
		db:     db,
		logger: logger,
	}
}

// CreateNodeRequest represents a request to create a node
type CreateNodeRequest struct {
	Name        string
	Hostname    string
	Description *string
}

// Create registers a new managed node. Nodes start offline with no agent
// binding; an agent attaches later via RegisterAgent.
func (s *NodeService) Create(req *CreateNodeRequest) (*models.Node, error) {
	if _, err := s.db.GetNodeByName(req.Name); err == nil {
		return nil, fmt.Errorf("node name %w", ErrConflict)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check node name: %w", err)
	}

	node := &models.Node{
		Name:        req.Name,
		Hostname:    req.Hostname,
		Description: nullString(req.Description),
		Status:      models.NodeStatusOffline,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.db.CreateNode(node); err != nil {
		return nil, fmt.Errorf("failed to create node: %w", err)
	}

	s.audit("create", node.ID, "node "+node.Name+" created")
	return node, nil
}

// List retrieves all nodes
func (s *NodeService) List() ([]*models.Node, error) {
	nodes, err := s.db.ListNodes()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	return nodes, nil
}

// Get retrieves a node by ID
func (s *NodeService) Get(id int64) (*models.Node, error) {
	node, err := s.db.GetNode(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return node, nil
}

// UpdateNodeRequest represents a request to update a node
type UpdateNodeRequest struct {
	Name        string
	Hostname    string
	Description *string
}

// Update overwrites a node's name, hostname, and description. Status and
// agent fields are untouched. Renaming onto another node's name fails with
// ErrConflict; the schema declares the name unique and surfacing a store
// error instead would leak a 500.
func (s *NodeService) Update(id int64, req *UpdateNodeRequest) (*models.Node, error) {
	node, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if req.Name != node.Name {
		if other, err := s.db.GetNodeByName(req.Name); err == nil && other.ID != id {
			return nil, fmt.Errorf("node name %w", ErrConflict)
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to check node name: %w", err)
		}
	}

	if err := s.db.UpdateNode(id, req.Name, req.Hostname, nullString(req.Description)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update node: %w", err)
	}

	s.audit("update", id, "node "+req.Name+" updated")
	return s.Get(id)
}

// Delete removes a node by ID. Rules scoped to the node are removed with it.
func (s *NodeService) Delete(id int64) error {
	if err := s.db.DeleteNode(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("node %w", ErrNotFound)
		}
		return fmt.Errorf("failed to delete node: %w", err)
	}

	s.audit("delete", id, "node deleted")
	return nil
}

// Heartbeat marks a node online and stamps its heartbeat timestamp. This is
// the only path back to online; nothing in this plane ever sets a node
// offline after creation.
func (s *NodeService) Heartbeat(id int64) (*models.Node, error) {
	if err := s.db.UpdateNodeHeartbeat(id, models.NodeStatusOnline, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update heartbeat: %w", err)
	}

	s.audit("heartbeat", id, "node heartbeat received")
	return s.Get(id)
}

// RegisterAgentRequest represents the agent registration handshake
type RegisterAgentRequest struct {
	Name        string
	AgentURL    *string
	Description *string
}

// RegisterAgentResult carries the node binding issued to an agent
type RegisterAgentResult struct {
	Node       *models.Node
	AgentToken string
}

// RegisterAgent binds an agent to a pre-created node matched by name. It
// never creates a node. A fresh agent token is minted on every call, so
// re-registering rotates the credential and invalidates the previous one.
func (s *NodeService) RegisterAgent(req *RegisterAgentRequest) (*RegisterAgentResult, error) {
	node, err := s.db.GetNodeByName(req.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	token, err := auth.GenerateAgentToken()
	if err != nil {
		return nil, err
	}

	if err := s.db.UpdateNodeAgentBinding(node.ID, nullString(req.AgentURL), token, models.NodeStatusOnline, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to bind agent: %w", err)
	}

	node, err = s.Get(node.ID)
	if err != nil {
		return nil, err
	}

	s.audit("register_agent", node.ID, "agent bound to node "+node.Name)
	return &RegisterAgentResult{
		Node:       node,
		AgentToken: token,
	}, nil
}

// audit appends an audit log entry for a node mutation. Best effort: a
// failed append is logged and never fails the triggering request.
func (s *NodeService) audit(action string, nodeID int64, details string) {
	entry := &models.AuditLog{
		Action:       action,
		ResourceType: "node",
		ResourceID:   nodeID,
		Details:      sql.NullString{String: details, Valid: details != ""},
		Timestamp:    time.Now().UTC(),
	}
	if err := s.db.CreateAuditLog(entry); err != nil {
		s.logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.Int64("node_id", nodeID),
			zap.Error(err),
		)
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
