package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stemsi/coursehub-backend/internal/config"
	"github.com/stemsi/coursehub-backend/internal/middleware"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/repository"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
)

type stubAdmins struct {
	admin *model.Admin
	err   error
}

func (s stubAdmins) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.admin == nil || s.admin.Email != email {
		return nil, repository.ErrNotFound
	}
	return s.admin, nil
}

func (s stubAdmins) GetByID(_ context.Context, id int) (*model.Admin, error) {
	if s.admin == nil || s.admin.ID != id {
		return nil, repository.ErrNotFound
	}
	return s.admin, nil
}

func newAuthRouter(t *testing.T, admins stubAdmins) (*gin.Engine, *service.AuthService) {
	t.Helper()
	cfg := &config.Config{JWTSecret: "handler-secret", JWTExpiry: time.Hour, BcryptCost: bcrypt.MinCost}
	auth := service.NewAuthService(cfg, admins)
	h := NewAuthHandler(auth, zerolog.Nop())

	r := gin.New()
	r.POST("/login", h.AdminLogin)
	r.GET("/me", middleware.RequireAdminJWT(auth), h.GetAdminProfile)
	return r, auth
}

func testAdmin(t *testing.T) *model.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	return &model.Admin{
		ID:           9,
		Email:        "ops@example.com",
		Name:         "Ops",
		PasswordHash: string(hash),
		Permissions:  []model.Permission{model.PermissionCoursesRefetch},
	}
}

func TestAdminLogin(t *testing.T) {
	r, _ := newAuthRouter(t, stubAdmins{admin: testAdmin(t)})

	w := doJSON(t, r, http.MethodPost, "/login", map[string]string{"email": "ops@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res model.AdminLoginResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, []string{string(model.PermissionCoursesRefetch)}, res.Permissions)
	assert.NotContains(t, w.Body.String(), "password_hash")
}

func TestAdminLoginFailures(t *testing.T) {
	admin := testAdmin(t)

	cases := []struct {
		name   string
		admins stubAdmins
		body   map[string]string
		status int
		code   response.ErrCode
	}{
		{"wrong password", stubAdmins{admin: admin}, map[string]string{"email": admin.Email, "password": "nope-nope"}, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{"unknown email", stubAdmins{admin: admin}, map[string]string{"email": "who@example.com", "password": "password123"}, http.StatusUnauthorized, response.ErrInvalidCredentials},
		{"invalid email", stubAdmins{admin: admin}, map[string]string{"email": "not-an-email", "password": "password123"}, http.StatusBadRequest, response.ErrValidation},
		{"store down", stubAdmins{err: errors.New("connection reset")}, map[string]string{"email": admin.Email, "password": "password123"}, http.StatusInternalServerError, response.ErrInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newAuthRouter(t, tc.admins)
			w := doJSON(t, r, http.MethodPost, "/login", tc.body)
			assert.Equal(t, tc.status, w.Code)
			env := decode(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestGetAdminProfile(t *testing.T) {
	admin := testAdmin(t)
	r, auth := newAuthRouter(t, stubAdmins{admin: admin})

	token, err := auth.GenerateAdminToken(admin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"email":"ops@example.com"`)

	w = doJSON(t, r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
