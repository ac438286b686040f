package handlers_test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ruleFixtures registers a user and creates a node, returning their ids
func ruleFixtures(t *testing.T, env *TestEnvironment) (nodeID, userID int64) {
	t.Helper()

	w := env.doJSON(t, "POST", "/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "pw1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	userID = int64(decodeJSON(t, w)["id"].(float64))

	nodeID = createTestNode(t, env, "edge-1")
	return nodeID, userID
}

func rulesPath(userID int64) string {
	return "/rules?created_by_id=" + strconv.FormatInt(userID, 10)
}

func TestRuleHandler_CreateRule(t *testing.T) {
	env := setupTestEnvironment(t)
	nodeID, userID := ruleFixtures(t, env)

	t.Run("Create rule with defaults filled in", func(t *testing.T) {
		w := env.doJSON(t, "POST", rulesPath(userID), map[string]interface{}{
			"node_id":   nodeID,
			"chain":     "INPUT",
			"action":    "ACCEPT",
			"protocol":  "tcp",
			"port":      22,
			"source_ip": "10.0.0.0/8",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		response := decodeJSON(t, w)
		assert.Equal(t, float64(nodeID), response["node_id"])
		assert.Equal(t, "INPUT", response["chain"])
		assert.Equal(t, "ACCEPT", response["action"])
		assert.Equal(t, "tcp", response["protocol"])
		assert.Equal(t, float64(22), response["port"])
		assert.Equal(t, true, response["enabled"])
		assert.Equal(t, "unknown", response["sync_status"])
		assert.Nil(t, response["last_sync"])
		assert.Equal(t, float64(userID), response["created_by_id"])
	})

	t.Run("Missing node fails with 404", func(t *testing.T) {
		w := env.doJSON(t, "POST", rulesPath(userID), map[string]interface{}{
			"node_id": 9999,
			"chain":   "INPUT",
			"action":  "DROP",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing created_by_id fails with 400", func(t *testing.T) {
		w := env.doJSON(t, "POST", "/rules", map[string]interface{}{
			"node_id": nodeID,
			"chain":   "INPUT",
			"action":  "DROP",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid created_by_id", decodeJSON(t, w)["error"])
	})

	t.Run("Unknown created_by_id fails with 404", func(t *testing.T) {
		w := env.doJSON(t, "POST", rulesPath(9999), map[string]interface{}{
			"node_id": nodeID,
			"chain":   "INPUT",
			"action":  "DROP",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing chain fails with 400", func(t *testing.T) {
		w := env.doJSON(t, "POST", rulesPath(userID), map[string]interface{}{
			"node_id": nodeID,
			"action":  "DROP",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRuleHandler_ListRules(t *testing.T) {
	env := setupTestEnvironment(t)
	nodeID, userID := ruleFixtures(t, env)
	otherNode := createTestNode(t, env, "edge-2")

	for _, chain := range []string{"INPUT", "OUTPUT"} {
		w := env.doJSON(t, "POST", rulesPath(userID), map[string]interface{}{
			"node_id": nodeID,
			"chain":   chain,
			"action":  "ACCEPT",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	listRules := func(t *testing.T, path string) []map[string]interface{} {
		t.Helper()
		w := env.doJSON(t, "GET", path, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var rules []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
		return rules
	}

	t.Run("List all rules", func(t *testing.T) {
		assert.Len(t, listRules(t, "/rules"), 2)
	})

	t.Run("Filter by node", func(t *testing.T) {
		rules := listRules(t, "/rules?node_id="+strconv.FormatInt(nodeID, 10))
		require.Len(t, rules, 2)
		for _, rule := range rules {
			assert.Equal(t, float64(nodeID), rule["node_id"])
		}
	})

	t.Run("Node without rules lists empty", func(t *testing.T) {
		assert.Empty(t, listRules(t, "/rules?node_id="+strconv.FormatInt(otherNode, 10)))
	})

	t.Run("Non-numeric node_id fails with 400", func(t *testing.T) {
		w := env.doJSON(t, "GET", "/rules?node_id=abc", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRuleHandler_GetUpdateDelete(t *testing.T) {
	env := setupTestEnvironment(t)
	nodeID, userID := ruleFixtures(t, env)

	w := env.doJSON(t, "POST", rulesPath(userID), map[string]interface{}{
		"node_id":  nodeID,
		"chain":    "INPUT",
		"action":   "ACCEPT",
		"protocol": "tcp",
		"port":     22,
	})
	require.Equal(t, http.StatusOK, w.Code)
	ruleID := strconv.FormatInt(int64(decodeJSON(t, w)["id"].(float64)), 10)

	t.Run("Get returns the rule", func(t *testing.T) {
		w := env.doJSON(t, "GET", "/rules/"+ruleID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "INPUT", decodeJSON(t, w)["chain"])
	})

	t.Run("Get missing rule fails with 404", func(t *testing.T) {
		w := env.doJSON(t, "GET", "/rules/9999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Update overwrites match fields but not the node binding", func(t *testing.T) {
		w := env.doJSON(t, "PUT", "/rules/"+ruleID, map[string]interface{}{
			"node_id":  9999,
			"chain":    "FORWARD",
			"action":   "REJECT",
			"protocol": "udp",
			"port":     53,
		})
		assert.Equal(t, http.StatusOK, w.Code)

		response := decodeJSON(t, w)
		assert.Equal(t, "FORWARD", response["chain"])
		assert.Equal(t, "REJECT", response["action"])
		assert.Equal(t, "udp", response["protocol"])
		assert.Equal(t, float64(53), response["port"])
		assert.Equal(t, float64(nodeID), response["node_id"])
	})

	t.Run("Update missing rule fails with 404", func(t *testing.T) {
		w := env.doJSON(t, "PUT", "/rules/9999", map[string]interface{}{
			"chain":  "INPUT",
			"action": "DROP",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Delete removes the rule", func(t *testing.T) {
		w := env.doJSON(t, "DELETE", "/rules/"+ruleID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "rule deleted", decodeJSON(t, w)["message"])

		w = env.doJSON(t, "GET", "/rules/"+ruleID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Deleting again fails with 404", func(t *testing.T) {
		w := env.doJSON(t, "DELETE", "/rules/"+ruleID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
