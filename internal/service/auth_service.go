package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TokenType distinguishes token audiences. Only admin tokens are issued.
type TokenType string

const (
	TokenTypeAdmin TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	UserID      int       `json:"user_id"`
	Permissions []string  `json:"permissions,omitempty"`
}

// HasPermission reports whether the token grants code.
func (c *Claims) HasPermission(code string) bool {
	for _, p := range c.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// AdminFinder looks up admins.
type AdminFinder interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetByID(ctx context.Context, id int) (*model.Admin, error)
}

// AuthService handles admin authentication and JWTs.
type AuthService struct {
	cfg    *config.Config
	admins AdminFinder
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, admins AdminFinder) *AuthService {
	return &AuthService{cfg: cfg, admins: admins}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login verifies the credentials and issues a token carrying the admin's
// permissions. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req *model.AdminLoginRequest) (*model.AdminLoginResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}

	if err := s.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.GenerateAdminToken(admin)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &model.AdminLoginResponse{
		Token:       token,
		Admin:       *admin,
		Permissions: model.PermissionStrings(admin.Permissions),
	}, nil
}

// Profile returns the admin behind a validated token.
func (s *AuthService) Profile(ctx context.Context, claims *Claims) (*model.Admin, error) {
	admin, err := s.admins.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("find admin %d: %w", claims.UserID, err)
	}
	return admin, nil
}

// GenerateAdminToken creates a JWT for an admin with permissions embedded.
func (s *AuthService) GenerateAdminToken(admin *model.Admin) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   strconv.Itoa(admin.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType:   TokenTypeAdmin,
		UserID:      admin.ID,
		Permissions: model.PermissionStrings(admin.Permissions),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}
