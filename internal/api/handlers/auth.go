package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iptables-easy/iptables-easy-backend/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles user registration, login, identity resolution, and the
// agent registration handshake
type AuthHandler struct {
	userService *service.UserService
	nodeService *service.NodeService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *service.UserService, nodeService *service.NodeService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		nodeService: nodeService,
		logger:      logger,
	}
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new user account
// @Summary Register user
// @Description Register a new user account
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 200 {object} UserResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Register(&service.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to register user", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		return
	}

	h.logger.Info("User registered", zap.String("username", user.Username), zap.Int64("user_id", user.ID))

	c.JSON(http.StatusOK, newUserResponse(user))
}

// LoginRequest represents a login request submitted as form fields
type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// Login authenticates a user and issues a bearer token
// @Summary User login
// @Description Authenticate with username and password form fields
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.userService.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Warn("Login failed", zap.String("username", req.Username))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("Failed to authenticate user", zap.String("username", req.Username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to authenticate"})
		return
	}

	h.logger.Info("User logged in", zap.String("username", req.Username))

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// GetCurrentUser resolves the token query parameter to the user it was
// issued to
// @Summary Get current user
// @Description Resolve a bearer token to its user record
// @Produce json
// @Param token query string true "Bearer token"
// @Success 200 {object} UserResponse
// @Router /auth/me [get]
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	user, err := h.userService.ResolveToken(token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			h.logger.Error("Failed to resolve token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve token"})
		}
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user))
}

// RegisterAgentRequest represents the agent registration handshake request
type RegisterAgentRequest struct {
	Name        string  `json:"name" binding:"required"`
	AgentURL    *string `json:"agent_url"`
	Description *string `json:"description"`
}

// RegisterAgent binds an agent to a pre-created node and issues its
// credential. The node must already exist; this endpoint never creates one.
// @Summary Register agent
// @Description Bind an agent to an existing node and issue an agent token
// @Accept json
// @Produce json
// @Param request body RegisterAgentRequest true "Agent registration request"
// @Success 200 {object} map[string]any
// @Router /auth/register-agent [post]
func (h *AuthHandler) RegisterAgent(c *gin.Context) {
	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.nodeService.RegisterAgent(&service.RegisterAgentRequest{
		Name:        req.Name,
		AgentURL:    req.AgentURL,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "node not found, create the node first"})
			return
		}
		h.logger.Error("Failed to register agent", zap.String("node", req.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register agent"})
		return
	}

	h.logger.Info("Agent registered",
		zap.String("node", result.Node.Name),
		zap.Int64("node_id", result.Node.ID),
	)

	c.JSON(http.StatusOK, gin.H{
		"node_id":     result.Node.ID,
		"agent_token": result.AgentToken,
		"message":     "agent registered, node status updated to online",
	})
}
