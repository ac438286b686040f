package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iptables-easy/iptables-easy-backend/internal/auth"
	"github.com/iptables-easy/iptables-easy-backend/internal/config"
	"github.com/iptables-easy/iptables-easy-backend/internal/database"
	"github.com/iptables-easy/iptables-easy-backend/internal/database/models"
)

// UserService handles user registration, authentication, and identity
// resolution
type UserService struct {
	db  *database.Database
	cfg *config.Config
}

// NewUserService creates a new user service
func NewUserService(db *database.Database, cfg *config.Config) *UserService {
	return &UserService{
		db:  db,
		cfg: cfg,
	}
}

// RegisterRequest represents a request to register a user
type RegisterRequest struct {
	Username string
	Email    string
	Password string
}

// Register creates a new user with the default role. Username and email must
// both be unused.
func (s *UserService) Register(req *RegisterRequest) (*models.User, error) {
	if _, err := s.db.GetUserByUsername(req.Username); err == nil {
		return nil, fmt.Errorf("username %w", ErrConflict)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	if _, err := s.db.GetUserByEmail(req.Email); err == nil {
		return nil, fmt.Errorf("email %w", ErrConflict)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Authenticate verifies credentials and returns a session JWT. An unknown
// username and a wrong password fail identically.
func (s *UserService) Authenticate(username, password string) (string, error) {
	user, err := s.db.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(
		user.ID,
		user.Username,
		user.Role,
		s.cfg.JWT.Secret,
		s.cfg.JWT.Issuer,
		s.cfg.JWT.Expiration,
	)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return token, nil
}

// ResolveToken resolves a session token to the user it was issued to.
// Returns ErrInvalidToken for a bad token and ErrNotFound when the subject
// user has since been deleted.
func (s *UserService) ResolveToken(token string) (*models.User, error) {
	claims, err := auth.ValidateToken(token, s.cfg.JWT.Secret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.db.GetUserByUsername(claims.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// Get retrieves a user by ID
func (s *UserService) Get(id int64) (*models.User, error) {
	user, err := s.db.GetUser(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Delete removes a user by ID. Nodes, rules, and audit entries created by
// the user survive with their creator reference nulled by the schema.
func (s *UserService) Delete(id int64) error {
	if err := s.db.DeleteUser(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %w", ErrNotFound)
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// EnsureDefaultAdmin seeds the configured administrator account when the
// user table is empty. It is an idempotent one-shot startup routine; callers
// treat a failure as non-fatal.
func (s *UserService) EnsureDefaultAdmin() (bool, error) {
	count, err := s.db.CountUsers()
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	passwordHash, err := auth.HashPassword(s.cfg.Bootstrap.AdminPassword)
	if err != nil {
		return false, fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	admin := &models.User{
		Username:     s.cfg.Bootstrap.AdminUsername,
		Email:        s.cfg.Bootstrap.AdminEmail,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.db.CreateUser(admin); err != nil {
		return false, fmt.Errorf("failed to create default admin: %w", err)
	}

	return true, nil
}
