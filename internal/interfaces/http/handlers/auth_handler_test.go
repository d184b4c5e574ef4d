package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/interfaces/http/middleware"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

// MockIdentityAppService is a mock for the IdentityAppService
type MockIdentityAppService struct {
	mock.Mock
}

func (m *MockIdentityAppService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RegisterResponse), args.Error(1)
}

func (m *MockIdentityAppService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TokenResponse), args.Error(1)
}

func (m *MockIdentityAppService) Logout(ctx context.Context, p *models.Principal) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockIdentityAppService) Me(ctx context.Context, p *models.Principal) (*models.User, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockIdentityAppService) InviteUser(ctx context.Context, p *models.Principal, req *dto.InviteUserRequest) (*dto.InviteUserResponse, error) {
	args := m.Called(ctx, p, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.InviteUserResponse), args.Error(1)
}

func (m *MockIdentityAppService) DeactivateUser(ctx context.Context, p *models.Principal, userID string) (*models.User, error) {
	args := m.Called(ctx, p, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockIdentityAppService) ListUsers(ctx context.Context, p *models.Principal, page dto.PageRequest) (*dto.PageResult, error) {
	args := m.Called(ctx, p, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.PageResult), args.Error(1)
}

func (m *MockIdentityAppService) ChangePassword(ctx context.Context, p *models.Principal, req *dto.ChangePasswordRequest) error {
	return m.Called(ctx, p, req).Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorDTO   `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withPrincipal authenticates every request of the test engine as p.
func withPrincipal(p *models.Principal) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetPrincipal(c, p)
		c.Next()
	}
}

func testPrincipal(role constants.Role) *models.Principal {
	firmID := uuid.New()
	return &models.Principal{UserID: uuid.New(), FirmID: &firmID, Role: role, TokenID: uuid.NewString(), ExpiresAt: time.Now().Add(time.Hour)}
}

func TestAuthHandler_Register(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		identity := new(MockIdentityAppService)
		h := NewAuthHandler(identity)
		router := gin.New()
		router.POST("/auth/register", h.Register)

		reqBody := dto.RegisterRequest{Email: "owner@example.com", Password: "password123", FullName: "Owner", FirmName: "Acme Advisory"}
		resp := &dto.RegisterResponse{
			Firm:  &models.Firm{Name: "Acme Advisory"},
			Token: &dto.TokenResponse{AccessToken: "token", TokenType: "Bearer"},
		}
		identity.On("Register", mock.Anything, &reqBody).Return(resp, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/auth/register", reqBody))

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)
		var got dto.RegisterResponse
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, "token", got.Token.AccessToken)
		identity.AssertExpectations(t)
	})

	t.Run("Conflict maps to 409", func(t *testing.T) {
		identity := new(MockIdentityAppService)
		h := NewAuthHandler(identity)
		router := gin.New()
		router.POST("/auth/register", h.Register)

		identity.On("Register", mock.Anything, mock.AnythingOfType("*dto.RegisterRequest")).
			Return(nil, errors.ErrConflict("email already registered"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/auth/register", dto.RegisterRequest{Email: "dup@example.com"}))

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, string(errors.CodeConflict), env.Error.Code)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("Malformed body", func(t *testing.T) {
		identity := new(MockIdentityAppService)
		router := gin.New()
		router.POST("/auth/login", NewAuthHandler(identity).Login)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString("{not json"))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, string(errors.CodeInvalidRequest), decodeEnvelope(t, w).Error.Code)
		identity.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("Bad credentials", func(t *testing.T) {
		identity := new(MockIdentityAppService)
		router := gin.New()
		router.POST("/auth/login", NewAuthHandler(identity).Login)
		identity.On("Login", mock.Anything, mock.Anything).Return(nil, errors.ErrUnauthorized("invalid email or password"))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(http.MethodPost, "/auth/login", dto.LoginRequest{Email: "a@example.com", Password: "nope"}))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, string(errors.CodeUnauthorized), decodeEnvelope(t, w).Error.Code)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	t.Run("Without principal", func(t *testing.T) {
		identity := new(MockIdentityAppService)
		router := gin.New()
		router.GET("/auth/me", NewAuthHandler(identity).Me)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		identity.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
	})

	t.Run("With principal", func(t *testing.T) {
		identity := new(MockIdentityAppService)
		p := testPrincipal(constants.RoleAdvisor)
		router := gin.New()
		router.Use(withPrincipal(p))
		router.GET("/auth/me", NewAuthHandler(identity).Me)
		identity.On("Me", mock.Anything, p).Return(&models.User{ID: p.UserID, Email: "advisor@example.com", Role: p.Role}, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		var user models.User
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &user))
		assert.Equal(t, "advisor@example.com", user.Email)
		identity.AssertExpectations(t)
	})
}

func TestAuthHandler_DeactivateUser(t *testing.T) {
	identity := new(MockIdentityAppService)
	p := testPrincipal(constants.RoleFirmAdmin)
	router := gin.New()
	router.Use(withPrincipal(p))
	router.POST("/users/:user_id/deactivate", NewAuthHandler(identity).DeactivateUser)

	target := uuid.NewString()
	identity.On("DeactivateUser", mock.Anything, p, target).Return(&models.User{Active: false}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/users/"+target+"/deactivate", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	identity.AssertExpectations(t)
}

func TestAuthHandler_ListUsersBindsPage(t *testing.T) {
	identity := new(MockIdentityAppService)
	p := testPrincipal(constants.RoleFirmAdmin)
	router := gin.New()
	router.Use(withPrincipal(p))
	router.GET("/users", NewAuthHandler(identity).ListUsers)

	identity.On("ListUsers", mock.Anything, p, dto.PageRequest{Page: 2, PageSize: 5}).
		Return(&dto.PageResult{Items: []*models.User{}}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users?page=2&page_size=5", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	identity.AssertExpectations(t)
}

//Personal.AI order the ending
