// Package models defines the data structures for database entities in the
// iptables-easy backend. It covers users, managed nodes, iptables rule
// declarations, and audit log entries, representing the core data model for
// the management plane.
package models

import (
	"database/sql"
	"time"
)

// User represents a system user. The password hash is never serialized.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Node represents a managed host. Agent fields are unset until an agent
// binds to the node via the registration handshake.
type Node struct {
	ID            int64          `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Hostname      string         `db:"hostname" json:"hostname"`
	Description   sql.NullString `db:"description" json:"description"`
	Status        string         `db:"status" json:"status"`
	AgentURL      sql.NullString `db:"agent_url" json:"agent_url"`
	AgentToken    sql.NullString `db:"agent_token" json:"agent_token"`
	LastHeartbeat sql.NullTime   `db:"last_heartbeat" json:"last_heartbeat"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	CreatedByID   sql.NullInt64  `db:"created_by_id" json:"created_by_id"`
}

// IptablesRule represents one declarative firewall rule scoped to a node.
// Chain, action, and protocol are stored as opaque strings; validating them
// is the downstream agent's concern.
type IptablesRule struct {
	ID            int64          `db:"id" json:"id"`
	NodeID        int64          `db:"node_id" json:"node_id"`
	Chain         string         `db:"chain" json:"chain"`
	Action        string         `db:"action" json:"action"`
	Protocol      sql.NullString `db:"protocol" json:"protocol"`
	SourceIP      sql.NullString `db:"source_ip" json:"source_ip"`
	DestinationIP sql.NullString `db:"destination_ip" json:"destination_ip"`
	Port          sql.NullInt64  `db:"port" json:"port"`
	Description   sql.NullString `db:"description" json:"description"`
	CreatedByID   sql.NullInt64  `db:"created_by_id" json:"created_by_id"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	Enabled       bool           `db:"enabled" json:"enabled"`
	SyncStatus    string         `db:"sync_status" json:"sync_status"`
	LastSync      sql.NullTime   `db:"last_sync" json:"last_sync"`
}

// AuditLog represents an append-only record of an action taken by a user
// against a resource.
type AuditLog struct {
	ID           int64          `db:"id" json:"id"`
	UserID       sql.NullInt64  `db:"user_id" json:"user_id"`
	Action       string         `db:"action" json:"action"`
	ResourceType string         `db:"resource_type" json:"resource_type"`
	ResourceID   int64          `db:"resource_id" json:"resource_id"`
	Details      sql.NullString `db:"details" json:"details"`
	Timestamp    time.Time      `db:"timestamp" json:"timestamp"`
}

// Node status values.
const (
	NodeStatusOnline  = "online"
	NodeStatusOffline = "offline"
)

// Rule sync status values. This core only ever writes SyncStatusUnknown;
// the agent reconciliation path owns the other transitions.
const (
	SyncStatusSynced    = "synced"
	SyncStatusOutOfSync = "out_of_sync"
	SyncStatusUnknown   = "unknown"
)

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
	RoleAgent = "agent"
)
