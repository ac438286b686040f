package service

import (
	"testing"

	"github.com/iptables-easy/iptables-easy-backend/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func int64Ptr(v int64) *int64 { return &v }

func setupRuleFixtures(t *testing.T) (*RuleService, *models.Node, *models.User) {
	db, cfg := setupTestDB(t)

	userService := NewUserService(db, cfg)
	user, err := userService.Register(&RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "pw1",
	})
	require.NoError(t, err)

	nodeService := NewNodeService(db, zap.NewNop())
	node, err := nodeService.Create(&CreateNodeRequest{Name: "edge-1", Hostname: "h1"})
	require.NoError(t, err)

	return NewRuleService(db, zap.NewNop()), node, user
}

func TestRuleService_Create(t *testing.T) {
	ruleService, node, user := setupRuleFixtures(t)

	t.Run("Create rule with defaults filled in", func(t *testing.T) {
		rule, err := ruleService.Create(&CreateRuleRequest{
			NodeID:      node.ID,
			Chain:       "INPUT",
			Action:      "ACCEPT",
			Protocol:    strPtr("tcp"),
			Port:        int64Ptr(22),
			CreatedByID: user.ID,
		})
		require.NoError(t, err)
		assert.Greater(t, rule.ID, int64(0))
		assert.Equal(t, node.ID, rule.NodeID)
		assert.Equal(t, "INPUT", rule.Chain)
		assert.Equal(t, "ACCEPT", rule.Action)
		assert.Equal(t, "tcp", rule.Protocol.String)
		assert.Equal(t, int64(22), rule.Port.Int64)
		assert.Equal(t, user.ID, rule.CreatedByID.Int64)
		assert.True(t, rule.Enabled)
		assert.Equal(t, models.SyncStatusUnknown, rule.SyncStatus)
		assert.False(t, rule.LastSync.Valid)
	})

	t.Run("Missing node fails and persists nothing", func(t *testing.T) {
		_, err := ruleService.Create(&CreateRuleRequest{
			NodeID:      9999,
			Chain:       "INPUT",
			Action:      "DROP",
			CreatedByID: user.ID,
		})
		assert.ErrorIs(t, err, ErrNotFound)

		rules, err := ruleService.List(nil)
		require.NoError(t, err)
		assert.Len(t, rules, 1)
	})

	t.Run("Missing authoring user fails", func(t *testing.T) {
		_, err := ruleService.Create(&CreateRuleRequest{
			NodeID:      node.ID,
			Chain:       "INPUT",
			Action:      "DROP",
			CreatedByID: 9999,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Opaque chain and action strings are accepted", func(t *testing.T) {
		rule, err := ruleService.Create(&CreateRuleRequest{
			NodeID:      node.ID,
			Chain:       "MY-CUSTOM-CHAIN",
			Action:      "LOG",
			CreatedByID: user.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, "MY-CUSTOM-CHAIN", rule.Chain)
		assert.Equal(t, "LOG", rule.Action)
	})
}

func TestRuleService_List(t *testing.T) {
	ruleService, node, user := setupRuleFixtures(t)

	_, err := ruleService.Create(&CreateRuleRequest{
		NodeID: node.ID, Chain: "INPUT", Action: "ACCEPT", CreatedByID: user.ID,
	})
	require.NoError(t, err)
	_, err = ruleService.Create(&CreateRuleRequest{
		NodeID: node.ID, Chain: "OUTPUT", Action: "DROP", CreatedByID: user.ID,
	})
	require.NoError(t, err)

	t.Run("List all rules", func(t *testing.T) {
		rules, err := ruleService.List(nil)
		require.NoError(t, err)
		assert.Len(t, rules, 2)
	})

	t.Run("Filter by node returns the exact subset", func(t *testing.T) {
		rules, err := ruleService.List(&node.ID)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		for _, rule := range rules {
			assert.Equal(t, node.ID, rule.NodeID)
		}
	})

	t.Run("Filter by node without rules is an empty list", func(t *testing.T) {
		rules, err := ruleService.List(int64Ptr(9999))
		require.NoError(t, err)
		assert.Empty(t, rules)
	})
}

func TestRuleService_Update(t *testing.T) {
	ruleService, node, user := setupRuleFixtures(t)

	created, err := ruleService.Create(&CreateRuleRequest{
		NodeID:      node.ID,
		Chain:       "INPUT",
		Action:      "ACCEPT",
		Protocol:    strPtr("tcp"),
		Port:        int64Ptr(22),
		CreatedByID: user.ID,
	})
	require.NoError(t, err)

	t.Run("Update overwrites match and target fields", func(t *testing.T) {
		rule, err := ruleService.Update(created.ID, &UpdateRuleRequest{
			Chain:         "FORWARD",
			Action:        "REJECT",
			Protocol:      strPtr("udp"),
			SourceIP:      strPtr("10.0.0.0/8"),
			DestinationIP: strPtr("192.168.1.1"),
			Port:          int64Ptr(53),
			Description:   strPtr("dns"),
		})
		require.NoError(t, err)
		assert.Equal(t, "FORWARD", rule.Chain)
		assert.Equal(t, "REJECT", rule.Action)
		assert.Equal(t, "udp", rule.Protocol.String)
		assert.Equal(t, "10.0.0.0/8", rule.SourceIP.String)
		assert.Equal(t, int64(53), rule.Port.Int64)
	})

	t.Run("Update leaves node binding and sync fields untouched", func(t *testing.T) {
		rule, err := ruleService.Get(created.ID)
		require.NoError(t, err)
		assert.Equal(t, node.ID, rule.NodeID)
		assert.True(t, rule.Enabled)
		assert.Equal(t, models.SyncStatusUnknown, rule.SyncStatus)
		assert.False(t, rule.LastSync.Valid)
		assert.Equal(t, user.ID, rule.CreatedByID.Int64)
	})

	t.Run("Update clears optional fields omitted from the request", func(t *testing.T) {
		rule, err := ruleService.Update(created.ID, &UpdateRuleRequest{
			Chain:  "INPUT",
			Action: "ACCEPT",
		})
		require.NoError(t, err)
		assert.False(t, rule.Protocol.Valid)
		assert.False(t, rule.Port.Valid)
		assert.False(t, rule.Description.Valid)
	})

	t.Run("Update missing rule fails with not found", func(t *testing.T) {
		_, err := ruleService.Update(9999, &UpdateRuleRequest{Chain: "INPUT", Action: "DROP"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRuleService_Delete(t *testing.T) {
	ruleService, node, user := setupRuleFixtures(t)

	created, err := ruleService.Create(&CreateRuleRequest{
		NodeID: node.ID, Chain: "INPUT", Action: "ACCEPT", CreatedByID: user.ID,
	})
	require.NoError(t, err)

	t.Run("Deleted rule is gone", func(t *testing.T) {
		require.NoError(t, ruleService.Delete(created.ID))

		_, err := ruleService.Get(created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Deleting again fails with not found", func(t *testing.T) {
		assert.ErrorIs(t, ruleService.Delete(created.ID), ErrNotFound)
	})
}
