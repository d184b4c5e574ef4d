package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"

	appService "github.com/turtacn/advisorhub/internal/application/service"
	"github.com/turtacn/advisorhub/internal/config"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/internal/infrastructure/audit"
	"github.com/turtacn/advisorhub/internal/infrastructure/crypto"
	"github.com/turtacn/advisorhub/internal/infrastructure/export"
	"github.com/turtacn/advisorhub/internal/infrastructure/monitoring"
	"github.com/turtacn/advisorhub/internal/infrastructure/persistence/postgres"
	redisstore "github.com/turtacn/advisorhub/internal/infrastructure/persistence/redis"
	"github.com/turtacn/advisorhub/internal/infrastructure/ratelimit"
	"github.com/turtacn/advisorhub/internal/infrastructure/storage"
	"github.com/turtacn/advisorhub/internal/interfaces/http/handlers"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// newTestRouter assembles the full stack over sqlite, miniredis and a temp directory.
func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	log := logger.NewNoopLogger()

	db, err := postgres.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	require.NoError(t, postgres.AutoMigrate(ctx, db))
	t.Cleanup(func() { _ = postgres.Close(db) })
	store := postgres.NewStore(db, log)
	repos := store.Repositories()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	conn := redisstore.NewRedisConnectionFromClient(client, "ah:", log)

	cfg := &config.Config{
		Environment: "test",
		RateLimit:   config.RateLimitConfig{Enabled: true, Limit: 1000, Window: time.Minute},
		Idempotency: config.IdempotencyConfig{Enabled: true, TTL: time.Hour},
	}
	metrics := monitoring.NewMetrics()
	adapter := monitoring.NewMetricsAdapter(metrics)
	tokens := crypto.NewJWTManager(&config.JWTConfig{Secret: "router-secret", Issuer: "advisorhub-test", AccessTokenTTL: time.Hour}, log)
	hasher := crypto.NewBcryptHasher(bcrypt.MinCost)
	blacklist := redisstore.NewTokenBlacklistStore(conn)
	cache := redisstore.NewSubscriptionCache(conn, adapter, log)
	auditSvc := audit.NewService(repos.AuditEvents, nil, audit.NewSigner("audit-key"), log)
	docs, err := storage.NewLocalStore(t.TempDir(), log)
	require.NoError(t, err)
	scorer, err := domainService.NewScorer(domainService.DefaultCatalog(), 40, 70)
	require.NoError(t, err)
	exporter := export.NewExcelExporter(0.8)

	h := &Handlers{
		Health: handlers.NewHealthHandler(map[string]handlers.HealthCheck{
			"database": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
			"redis":    conn.Ping,
		}, log),
		Auth:       handlers.NewAuthHandler(appService.NewIdentityAppService(store, repos, hasher, tokens, blacklist, cache, auditSvc, log)),
		Firm:       handlers.NewFirmHandler(appService.NewFirmAppService(store, repos, hasher, cache, auditSvc, log)),
		Client:     handlers.NewClientHandler(appService.NewClientAppService(store, repos, log)),
		Engagement: handlers.NewEngagementHandler(appService.NewEngagementAppService(store, repos, cache, auditSvc, log)),
		Document:   handlers.NewDocumentHandler(appService.NewDocumentAppService(repos, docs, 1<<20, adapter, auditSvc, log)),
		Report: handlers.NewReportHandler(appService.NewBBAAppService(store, repos, scorer, nil, redisstore.NewWorkflowLock(conn),
			exporter, cache, adapter, auditSvc, appService.BBAOptions{}, log)),
		Workbook: handlers.NewWorkbookHandler(appService.NewWorkbookAppService(repos, docs, nil, exporter, 0.8, adapter, auditSvc, log)),
		Audit:    handlers.NewAuditHandler(appService.NewAuditAppService(repos.AuditEvents)),
	}
	deps := &Dependencies{
		Tokens:      tokens,
		Blacklist:   blacklist,
		RateLimiter: ratelimit.NewRedisRateLimiter(client, "ah:", &cfg.RateLimit, log),
		Idempotency: redisstore.NewIdempotencyStore(conn),
		Metrics:     metrics,
	}
	return NewRouter(cfg, log, h, deps)
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func call(t *testing.T, r *Router, method, path, token string, body interface{}) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	var env apiEnvelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func dataField(t *testing.T, env apiEnvelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func TestRouter_Probes(t *testing.T) {
	r := newTestRouter(t)

	w, _ := call(t, r, http.MethodGet, "/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(constants.HeaderRequestID))

	w, _ = call(t, r, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := call(t, r, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Error.Code)

	w, _ = call(t, r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "advisorhub_http_requests_total")
}

func TestRouter_AuthenticationRequired(t *testing.T) {
	r := newTestRouter(t)

	w, env := call(t, r, http.MethodGet, "/api/v1/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", env.Error.Code)
}

func TestRouter_AdvisoryFlow(t *testing.T) {
	r := newTestRouter(t)

	// 1. Register a firm and sign in
	w, env := call(t, r, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "owner@acme.example", "password": "password123", "full_name": "Olive Owner", "firm_name": "Acme Advisory",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = call(t, r, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "owner@acme.example", "password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login struct {
		AccessToken string `json:"access_token"`
	}
	dataField(t, env, &login)
	token := login.AccessToken
	require.NotEmpty(t, token)

	// 2. Create a client and an engagement
	w, env = call(t, r, http.MethodPost, "/api/v1/clients", token, map[string]interface{}{
		"name": "Northwind", "industry": "Logistics", "annual_revenue": 1500000, "employee_count": 40,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var client struct {
		ID string `json:"id"`
	}
	dataField(t, env, &client)

	w, env = call(t, r, http.MethodPost, "/api/v1/engagements", token, map[string]interface{}{
		"client_id": client.ID, "title": "2025 strategy", "type": "strategy_workbook",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var engagement struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	dataField(t, env, &engagement)
	assert.Equal(t, "draft", engagement.Status)

	// 3. Upload a document twice; the second upload is deduplicated
	upload := func() *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", "vision.txt")
		require.NoError(t, err)
		_, _ = part.Write([]byte("Vision: lead the region"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/engagements/"+engagement.ID+"/documents", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		r.Engine().ServeHTTP(w, req)
		return w
	}
	w = upload()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = upload()
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = call(t, r, http.MethodGet, "/api/v1/engagements/"+engagement.ID+"/documents", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var documents []struct {
		ID string `json:"id"`
	}
	dataField(t, env, &documents)
	assert.Len(t, documents, 1)

	// 4. The audit trail records the work
	w, _ = call(t, r, http.MethodGet, "/api/v1/audit-events", token, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 5. After logout the token is refused
	w, _ = call(t, r, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = call(t, r, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_CatalogETag(t *testing.T) {
	r := newTestRouter(t)
	w, env := call(t, r, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "etag@acme.example", "password": "password123", "full_name": "Eve Tag", "firm_name": "Tag Partners",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	dataField(t, env, &reg)
	token := reg.Token.AccessToken

	get := func(etag string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/bba/catalog", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}
		w := httptest.NewRecorder()
		r.Engine().ServeHTTP(w, req)
		return w
	}

	first := get("")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	var catalog struct {
		Modules []struct {
			Key string `json:"key"`
		} `json:"modules"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &catalog))
	assert.NotEmpty(t, catalog.Modules)
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := get(etag)
	assert.Equal(t, http.StatusNotModified, second.Code)
	assert.Zero(t, second.Body.Len())
}

func TestRouter_IdempotentRegistration(t *testing.T) {
	r := newTestRouter(t)
	body, _ := json.Marshal(map[string]string{
		"email": "idem@acme.example", "password": "password123", "full_name": "Ida Idem", "firm_name": "Idem Partners",
	})
	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(constants.HeaderIdempotencyKey, "register-once")
		w := httptest.NewRecorder()
		r.Engine().ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusCreated, send())
	assert.Equal(t, http.StatusConflict, send())
}

func TestRouter_PlatformRoutesNeedPlatformAdmin(t *testing.T) {
	r := newTestRouter(t)
	w, env := call(t, r, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "admin@firm.example", "password": "password123", "full_name": "Fay Admin", "firm_name": "Firm One",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg struct {
		Token struct {
			AccessToken string `json:"access_token"`
		} `json:"token"`
	}
	dataField(t, env, &reg)

	w, env = call(t, r, http.MethodGet, "/api/v1/admin/firms", reg.Token.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", env.Error.Code)
}

//Personal.AI order the ending
