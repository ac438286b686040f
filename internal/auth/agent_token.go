package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// AgentTokenBytes is the entropy of a generated agent token
const AgentTokenBytes = 32

// GenerateAgentToken mints an opaque, long-lived agent credential. Unlike a
// session JWT it carries no claims and never expires; binding it to a node
// and rotating it is the node lifecycle's concern.
func GenerateAgentToken() (string, error) {
	buf := make([]byte, AgentTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate agent token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
