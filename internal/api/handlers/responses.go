// Package handlers provides HTTP request handlers for the iptables-easy
// backend API: authentication and the agent handshake, node lifecycle, and
// rule management. Request and response contracts are explicit typed
// structures; binding failures surface as 400 before any business logic runs.
package handlers

import (
	"database/sql"
	"time"

	"github.com/iptables-easy/iptables-easy-backend/internal/database/models"
)

// UserResponse is the serialized form of a user record. The password hash is
// never included.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// NodeResponse is the serialized form of a node record
type NodeResponse struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Hostname      string     `json:"hostname"`
	Description   *string    `json:"description"`
	Status        string     `json:"status"`
	AgentURL      *string    `json:"agent_url"`
	AgentToken    *string    `json:"agent_token"`
	LastHeartbeat *time.Time `json:"last_heartbeat"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedByID   *int64     `json:"created_by_id"`
}

func newNodeResponse(n *models.Node) NodeResponse {
	return NodeResponse{
		ID:            n.ID,
		Name:          n.Name,
		Hostname:      n.Hostname,
		Description:   stringPtr(n.Description),
		Status:        n.Status,
		AgentURL:      stringPtr(n.AgentURL),
		AgentToken:    stringPtr(n.AgentToken),
		LastHeartbeat: timePtr(n.LastHeartbeat),
		CreatedAt:     n.CreatedAt,
		CreatedByID:   int64Ptr(n.CreatedByID),
	}
}

func newNodeListResponse(nodes []*models.Node) []NodeResponse {
	out := make([]NodeResponse, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, newNodeResponse(n))
	}
	return out
}

// RuleResponse is the serialized form of an iptables rule record
type RuleResponse struct {
	ID            int64      `json:"id"`
	NodeID        int64      `json:"node_id"`
	Chain         string     `json:"chain"`
	Action        string     `json:"action"`
	Protocol      *string    `json:"protocol"`
	SourceIP      *string    `json:"source_ip"`
	DestinationIP *string    `json:"destination_ip"`
	Port          *int64     `json:"port"`
	Description   *string    `json:"description"`
	CreatedByID   *int64     `json:"created_by_id"`
	CreatedAt     time.Time  `json:"created_at"`
	Enabled       bool       `json:"enabled"`
	SyncStatus    string     `json:"sync_status"`
	LastSync      *time.Time `json:"last_sync"`
}

func newRuleResponse(r *models.IptablesRule) RuleResponse {
	return RuleResponse{
		ID:            r.ID,
		NodeID:        r.NodeID,
		Chain:         r.Chain,
		Action:        r.Action,
		Protocol:      stringPtr(r.Protocol),
		SourceIP:      stringPtr(r.SourceIP),
		DestinationIP: stringPtr(r.DestinationIP),
		Port:          int64Ptr(r.Port),
		Description:   stringPtr(r.Description),
		CreatedByID:   int64Ptr(r.CreatedByID),
		CreatedAt:     r.CreatedAt,
		Enabled:       r.Enabled,
		SyncStatus:    r.SyncStatus,
		LastSync:      timePtr(r.LastSync),
	}
}

func newRuleListResponse(rules []*models.IptablesRule) []RuleResponse {
	out := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, newRuleResponse(r))
	}
	return out
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}
