// Package database provides database connection management, migrations, and
// data access methods for the iptables-easy backend.
package database

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/iptables-easy/iptables-easy-backend/internal/config"
	"github.com/iptables-easy/iptables-easy-backend/internal/database/models"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Database represents the database connection and operations
type Database struct {
	db     *sql.DB
	dbType string
}

// New creates a new database connection
func New(cfg *config.Config) (*Database, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "sqlite":
		db, err = sql.Open("sqlite3", cfg.Database.SQLite.Path+"?_foreign_keys=on")
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite only allows one writer at a time
		db.SetMaxOpenConns(1)
	case "postgres":
		db, err = sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		dbType: cfg.Database.Type,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	var migrationFiles []string
	if d.dbType == "postgres" {
		migrationFiles = []string{
			"migrations/000001_init_schema.postgres.up.sql",
		}
	} else {
		migrationFiles = []string{
			"migrations/000001_init_schema.up.sql",
		}
	}

	for _, migrationFile := range migrationFiles {
		content, err := migrationsFS.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migrationFile, err)
		}

		// Remove comments and split into statements
		var statements []string
		lines := strings.Split(string(content), "\n")
		var currentStmt strings.Builder

		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "--") || line == "" {
				continue
			}

			currentStmt.WriteString(line)
			currentStmt.WriteString("\n")

			if strings.HasSuffix(line, ";") {
				stmt := strings.TrimSpace(currentStmt.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				currentStmt.Reset()
			}
		}

		for _, stmt := range statements {
			if _, err := d.db.Exec(stmt); err != nil {
				// Ignore errors from re-running idempotent migrations
				if !strings.Contains(err.Error(), "duplicate column") && !strings.Contains(err.Error(), "already exists") {
					return fmt.Errorf("migration %s failed: %w\nStatement: %s", migrationFile, err, stmt)
				}
			}
		}
	}

	return nil
}

// DB returns the underlying database connection for direct queries
func (d *Database) DB() *sql.DB {
	return d.db
}

// User operations

// CreateUser creates a new user and fills in the store-assigned ID
func (d *Database) CreateUser(user *models.User) error {
	if d.dbType == "postgres" {
		query := `INSERT INTO users (username, email, password_hash, role, is_active, created_at)
		          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		return d.db.QueryRow(query,
			user.Username, user.Email, user.PasswordHash, user.Role, user.IsActive, user.CreatedAt,
		).Scan(&user.ID)
	}

	query := `INSERT INTO users (username, email, password_hash, role, is_active, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	res, err := d.db.Exec(query,
		user.Username, user.Email, user.PasswordHash, user.Role, user.IsActive, user.CreatedAt,
	)
	if err != nil {
		return err
	}
	user.ID, err = res.LastInsertId()
	return err
}

const userColumns = `id, username, email, password_hash, role, is_active, created_at`

func (d *Database) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.IsActive, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser retrieves a user by ID
func (d *Database) GetUser(id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	}
	return d.scanUser(d.db.QueryRow(query, id))
}

// GetUserByUsername retrieves a user by username
func (d *Database) GetUserByUsername(username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	}
	return d.scanUser(d.db.QueryRow(query, username))
}

// GetUserByEmail retrieves a user by email
func (d *Database) GetUserByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	}
	return d.scanUser(d.db.QueryRow(query, email))
}

// CountUsers returns the number of user records
func (d *Database) CountUsers() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

// DeleteUser deletes a user by ID
func (d *Database) DeleteUser(id int64) error {
	query := `DELETE FROM users WHERE id = ?`
	if d.dbType == "postgres" {
		query = `DELETE FROM users WHERE id = $1`
	}

	res, err := d.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Node operations

const nodeColumns = `id, name, hostname, description, status, agent_url, agent_token, last_heartbeat, created_at, created_by_id`

func scanNode(scan func(...any) error) (*models.Node, error) {
	var node models.Node
	err := scan(
		&node.ID, &node.Name, &node.Hostname, &node.Description, &node.Status,
		&node.AgentURL, &node.AgentToken, &node.LastHeartbeat, &node.CreatedAt, &node.CreatedByID,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// CreateNode creates a new node and fills in the store-assigned ID
func (d *Database) CreateNode(node *models.Node) error {
	if d.dbType == "postgres" {
		query := `INSERT INTO nodes (name, hostname, description, status, agent_url, agent_token, last_heartbeat, created_at, created_by_id)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
		return d.db.QueryRow(query,
			node.Name, node.Hostname, node.Description, node.Status,
			node.AgentURL, node.AgentToken, node.LastHeartbeat, node.CreatedAt, node.CreatedByID,
		).Scan(&node.ID)
	}

	query := `INSERT INTO nodes (name, hostname, description, status, agent_url, agent_token, last_heartbeat, created_at, created_by_id)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := d.db.Exec(query,
		node.Name, node.Hostname, node.Description, node.Status,
		node.AgentURL, node.AgentToken, node.LastHeartbeat, node.CreatedAt, node.CreatedByID,
	)
	if err != nil {
		return err
	}
	node.ID, err = res.LastInsertId()
	return err
}

// GetNode retrieves a node by ID
func (d *Database) GetNode(id int64) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + nodeColumns + ` FROM nodes WHERE id = $1`
	}
	return scanNode(d.db.QueryRow(query, id).Scan)
}

// GetNodeByName retrieves a node by its unique name
func (d *Database) GetNodeByName(name string) (*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE name = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + nodeColumns + ` FROM nodes WHERE name = $1`
	}
	return scanNode(d.db.QueryRow(query, name).Scan)
}

// ListNodes retrieves all nodes
func (d *Database) ListNodes() ([]*models.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*models.Node
	for rows.Next() {
		node, err := scanNode(rows.Scan)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

// UpdateNode overwrites a node's name, hostname, and description
func (d *Database) UpdateNode(id int64, name, hostname string, description sql.NullString) error {
	query := `UPDATE nodes SET name = ?, hostname = ?, description = ? WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE nodes SET name = $1, hostname = $2, description = $3 WHERE id = $4`
	}

	res, err := d.db.Exec(query, name, hostname, description, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// UpdateNodeAgentBinding records an agent binding on a node: agent URL,
// rotated agent token, status, and heartbeat timestamp
func (d *Database) UpdateNodeAgentBinding(id int64, agentURL sql.NullString, agentToken, status string, heartbeat time.Time) error {
	query := `UPDATE nodes SET agent_url = ?, agent_token = ?, status = ?, last_heartbeat = ? WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE nodes SET agent_url = $1, agent_token = $2, status = $3, last_heartbeat = $4 WHERE id = $5`
	}

	res, err := d.db.Exec(query, agentURL, agentToken, status, heartbeat, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// UpdateNodeHeartbeat stamps a node's heartbeat timestamp and status
func (d *Database) UpdateNodeHeartbeat(id int64, status string, heartbeat time.Time) error {
	query := `UPDATE nodes SET status = ?, last_heartbeat = ? WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE nodes SET status = $1, last_heartbeat = $2 WHERE id = $3`
	}

	res, err := d.db.Exec(query, status, heartbeat, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// DeleteNode deletes a node by ID. Rules referencing the node are removed by
// the schema's ON DELETE CASCADE.
func (d *Database) DeleteNode(id int64) error {
	query := `DELETE FROM nodes WHERE id = ?`
	if d.dbType == "postgres" {
		query = `DELETE FROM nodes WHERE id = $1`
	}

	res, err := d.db.Exec(query, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// Rule operations

const ruleColumns = `id, node_id, chain, action, protocol, source_ip, destination_ip, port, description, created_by_id, created_at, enabled, sync_status, last_sync`

func scanRule(scan func(...any) error) (*models.IptablesRule, error) {
	var rule models.IptablesRule
	err := scan(
		&rule.ID, &rule.NodeID, &rule.Chain, &rule.Action, &rule.Protocol,
		&rule.SourceIP, &rule.DestinationIP, &rule.Port, &rule.Description,
		&rule.CreatedByID, &rule.CreatedAt, &rule.Enabled, &rule.SyncStatus, &rule.LastSync,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// CreateRule creates a new iptables rule and fills in the store-assigned ID
func (d *Database) CreateRule(rule *models.IptablesRule) error {
	if d.dbType == "postgres" {
		query := `INSERT INTO iptables_rules (node_id, chain, action, protocol, source_ip, destination_ip, port, description, created_by_id, created_at, enabled, sync_status, last_sync)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
		return d.db.QueryRow(query,
			rule.NodeID, rule.Chain, rule.Action, rule.Protocol, rule.SourceIP,
			rule.DestinationIP, rule.Port, rule.Description, rule.CreatedByID,
			rule.CreatedAt, rule.Enabled, rule.SyncStatus, rule.LastSync,
		).Scan(&rule.ID)
	}

	query := `INSERT INTO iptables_rules (node_id, chain, action, protocol, source_ip, destination_ip, port, description, created_by_id, created_at, enabled, sync_status, last_sync)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := d.db.Exec(query,
		rule.NodeID, rule.Chain, rule.Action, rule.Protocol, rule.SourceIP,
		rule.DestinationIP, rule.Port, rule.Description, rule.CreatedByID,
		rule.CreatedAt, rule.Enabled, rule.SyncStatus, rule.LastSync,
	)
	if err != nil {
		return err
	}
	rule.ID, err = res.LastInsertId()
	return err
}

// GetRule retrieves a rule by ID
func (d *Database) GetRule(id int64) (*models.IptablesRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM iptables_rules WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + ruleColumns + ` FROM iptables_rules WHERE id = $1`
	}
	return scanRule(d.db.QueryRow(query, id).Scan)
}

// ListRules retrieves all rules
func (d *Database) ListRules() ([]*models.IptablesRule, error) {
	return d.queryRules(`SELECT ` + ruleColumns + ` FROM iptables_rules`)
}

// ListRulesByNode retrieves all rules scoped to one node
func (d *Database) ListRulesByNode(nodeID int64) ([]*models.IptablesRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM iptables_rules WHERE node_id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + ruleColumns + ` FROM iptables_rules WHERE node_id = $1`
	}
	return d.queryRules(query, nodeID)
}

func (d *Database) queryRules(query string, args ...any) ([]*models.IptablesRule, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*models.IptablesRule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// UpdateRule overwrites a rule's mutable fields. The node binding, enabled
// flag, and sync fields are not touched.
func (d *Database) UpdateRule(rule *models.IptablesRule) error {
	query := `UPDATE iptables_rules SET chain = ?, action = ?, protocol = ?, source_ip = ?, destination_ip = ?, port = ?, description = ? WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE iptables_rules SET chain = $1, action = $2, protocol = $3, source_ip = $4, destination_ip = $5, port = $6, description = $7 WHERE id = $8`
	}

	res, err := d.db.Exec(query,
		rule.Chain, rule.Action, rule.Protocol, rule.SourceIP,
		rule.DestinationIP, rule.Port, rule.Description, rule.ID,
	)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// DeleteRule deletes a rule by ID
func (d *Database) DeleteRule(id int64) error {
	query := `DELETE FROM iptables_rules WHERE id = ?`
	if d.dbType == "postgres" {
		query = `DELETE FROM iptables_rules WHERE id = $1`
	}

	res, err := d.db.Exec(query, id)
	if err != nil {
		return err
	}
	return requireRowsAffected(res)
}

// Audit log operations

// CreateAuditLog appends an audit log entry
func (d *Database) CreateAuditLog(entry *models.AuditLog) error {
	if d.dbType == "postgres" {
		query := `INSERT INTO audit_logs (user_id, action, resource_type, resource_id, details, timestamp)
		          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		return d.db.QueryRow(query,
			entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, entry.Details, entry.Timestamp,
		).Scan(&entry.ID)
	}

	query := `INSERT INTO audit_logs (user_id, action, resource_type, resource_id, details, timestamp)
	          VALUES (?, ?, ?, ?, ?, ?)`
	res, err := d.db.Exec(query,
		entry.UserID, entry.Action, entry.ResourceType, entry.ResourceID, entry.Details, entry.Timestamp,
	)
	if err != nil {
		return err
	}
	entry.ID, err = res.LastInsertId()
	return err
}

// ListAuditLogs retrieves all audit log entries, newest first
func (d *Database) ListAuditLogs() ([]*models.AuditLog, error) {
	query := `SELECT id, user_id, action, resource_type, resource_id, details, timestamp
	          FROM audit_logs ORDER BY timestamp DESC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.AuditLog
	for rows.Next() {
		var entry models.AuditLog
		err := rows.Scan(
			&entry.ID, &entry.UserID, &entry.Action, &entry.ResourceType,
			&entry.ResourceID, &entry.Details, &entry.Timestamp,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func requireRowsAffected(res sql.Result) error {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
