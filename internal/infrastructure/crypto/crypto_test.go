package crypto

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

func newManager(secret string) *JWTManager {
	return NewJWTManager(&config.JWTConfig{
		Secret:         secret,
		Issuer:         "advisorhub-test",
		AccessTokenTTL: 15 * time.Minute,
	}, logger.NewNoopLogger())
}

func TestJWTManager_IssueAndVerify(t *testing.T) {
	ctx := context.Background()
	manager := newManager("test-secret")
	firmID := uuid.New()
	user := models.NewUser(&firmID, "jane@example.com", "Jane", "hash", constants.RoleAdvisor)

	token, jti, expiresAt, err := manager.Issue(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	principal, err := manager.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	require.NotNil(t, principal.FirmID)
	assert.Equal(t, firmID, *principal.FirmID)
	assert.Equal(t, constants.RoleAdvisor, principal.Role)
	assert.Equal(t, jti, principal.TokenID)
}

func TestJWTManager_PlatformAdminHasNoFirm(t *testing.T) {
	ctx := context.Background()
	manager := newManager("test-secret")
	admin := models.NewUser(nil, "ops@example.com", "Ops", "hash", constants.RolePlatformAdmin)

	token, _, _, err := manager.Issue(ctx, admin)
	require.NoError(t, err)
	principal, err := manager.Verify(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, principal.FirmID)
}

func TestJWTManager_Rejects(t *testing.T) {
	ctx := context.Background()
	manager := newManager("test-secret")
	user := models.NewUser(nil, "ops@example.com", "Ops", "hash", constants.RolePlatformAdmin)
	token, _, _, err := manager.Issue(ctx, user)
	require.NoError(t, err)

	expired := newManager("test-secret")
	expired.now = func() time.Time { return time.Now().Add(time.Hour) }

	otherIssuer := NewJWTManager(&config.JWTConfig{Secret: "test-secret", Issuer: "someone-else", AccessTokenTTL: time.Minute}, logger.NewNoopLogger())

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: user.ID.String(), Issuer: "advisorhub-test"},
		Role:             constants.RolePlatformAdmin,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		manager *JWTManager
		token   string
	}{
		{"wrong secret", newManager("other-secret"), token},
		{"expired", expired, token},
		{"wrong issuer", otherIssuer, token},
		{"alg none", manager, unsigned},
		{"garbage", manager, "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Verify(ctx, tt.token)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(4)
	hash, err := h.Hash("correcthorse1")
	require.NoError(t, err)
	assert.NotEqual(t, "correcthorse1", hash)
	assert.NoError(t, h.Compare(hash, "correcthorse1"))
	assert.Error(t, h.Compare(hash, "wrong"))
}

func TestVaultClient_ApplySecrets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/advisorhub" || r.Header.Get("X-Vault-Token") != "root" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"data": map[string]interface{}{
					SecretJWT:       "vault-jwt",
					SecretLLMAPIKey: "vault-llm",
				},
				"metadata": map[string]interface{}{
					"created_time":  "2024-01-01T00:00:00Z",
					"deletion_time": "",
					"destroyed":     false,
					"version":       1,
				},
			},
		})
	}))
	defer srv.Close()

	cfg := &config.Config{
		JWT:   config.JWTConfig{Secret: "file-jwt"},
		Audit: config.AuditConfig{SigningKey: "file-audit"},
		Vault: config.VaultConfig{Enabled: true, Address: srv.URL, Token: "root", MountPath: "secret", SecretPath: "advisorhub"},
	}
	client, err := NewVaultClient(&cfg.Vault, logger.NewNoopLogger())
	require.NoError(t, err)
	require.NoError(t, client.ApplySecrets(context.Background(), cfg))

	assert.Equal(t, "vault-jwt", cfg.JWT.Secret)
	assert.Equal(t, "vault-llm", cfg.LLM.APIKey)
	assert.Equal(t, "file-audit", cfg.Audit.SigningKey)
}
