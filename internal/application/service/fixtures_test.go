package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"

	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/repository"
	domainService "github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/internal/infrastructure/crypto"
	"github.com/turtacn/advisorhub/internal/infrastructure/persistence/postgres"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

type fixture struct {
	t      *testing.T
	store  *postgres.Store
	repos  repository.Repositories
	hasher *crypto.BcryptHasher
	tokens *crypto.JWTManager
	audit  *recordingAudit
	log    logger.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := postgres.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	require.NoError(t, postgres.AutoMigrate(context.Background(), db))
	t.Cleanup(func() { _ = postgres.Close(db) })

	log := logger.NewNoopLogger()
	store := postgres.NewStore(db, log)
	return &fixture{
		t:      t,
		store:  store,
		repos:  store.Repositories(),
		hasher: crypto.NewBcryptHasher(bcrypt.MinCost),
		tokens: crypto.NewJWTManager(&config.JWTConfig{Secret: "test-secret", Issuer: "advisorhub-test", AccessTokenTTL: time.Hour}, log),
		audit:  &recordingAudit{},
		log:    log,
	}
}

// seedFirm creates a firm on plan with an active subscription and returns its admin.
func (f *fixture) seedFirm(plan constants.SubscriptionPlan) (*models.Firm, *models.Principal) {
	f.t.Helper()
	ctx := context.Background()
	firm := models.NewFirm("Firm "+uuid.NewString()[:6], "firm-"+uuid.NewString()[:8])
	require.NoError(f.t, f.repos.Firms.Save(ctx, firm))
	sub := models.NewTrialSubscription(firm.ID, time.Now())
	sub.ApplyPlan(plan)
	sub.Status = constants.SubscriptionActive
	sub.CurrentPeriodEnd = sub.CurrentPeriodStart.Add(constants.BillingPeriod)
	require.NoError(f.t, f.repos.Subscriptions.Save(ctx, sub))
	return firm, f.seedUser(firm, constants.RoleFirmAdmin)
}

func (f *fixture) seedUser(firm *models.Firm, role constants.Role) *models.Principal {
	f.t.Helper()
	hash, err := f.hasher.Hash("password123")
	require.NoError(f.t, err)
	u := models.NewUser(&firm.ID, uuid.NewString()[:8]+"@example.com", "Test User", hash, role)
	require.NoError(f.t, f.repos.Users.Save(context.Background(), u))
	return &models.Principal{UserID: u.ID, FirmID: &firm.ID, Role: role, TokenID: uuid.NewString(), ExpiresAt: time.Now().Add(time.Hour)}
}

func (f *fixture) seedClient(firm *models.Firm) *models.Client {
	f.t.Helper()
	c := models.NewClient(firm.ID, "Acme Manufacturing")
	c.Industry = "Manufacturing"
	require.NoError(f.t, f.repos.Clients.Save(context.Background(), c))
	return c
}

func (f *fixture) seedEngagement(firm *models.Firm, client *models.Client, advisor *models.Principal, typ constants.EngagementType, status constants.EngagementStatus) *models.Engagement {
	f.t.Helper()
	now := time.Now().UTC()
	e := &models.Engagement{
		ID:        uuid.New(),
		FirmID:    firm.ID,
		ClientID:  client.ID,
		AdvisorID: advisor.UserID,
		Title:     "Engagement",
		Type:      typ,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(f.t, f.repos.Engagements.Save(context.Background(), e))
	return e
}

func assertCode(t *testing.T, err error, code errors.Code) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code(), appErr.Error())
}

// recordingAudit keeps events in memory.
type recordingAudit struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

func (a *recordingAudit) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *recordingAudit) types() []constants.AuditEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]constants.AuditEventType, len(a.events))
	for i, e := range a.events {
		out[i] = e.Type
	}
	return out
}

// memoryLocker is a single-process WorkflowLocker.
// beforeLock, when set, runs once ahead of the next TryLock.
type memoryLocker struct {
	mu         sync.Mutex
	held       map[string]bool
	beforeLock func()
}

func newMemoryLocker() *memoryLocker { return &memoryLocker{held: map[string]bool{}} }

func (l *memoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	hook := l.beforeLock
	l.beforeLock = nil
	l.mu.Unlock()
	if hook != nil {
		hook()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, true, nil
}

// memoryBlacklist records revoked token IDs.
type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (b *memoryBlacklist) Revoke(ctx context.Context, jti string, exp time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.revoked == nil {
		b.revoked = map[string]time.Time{}
	}
	b.revoked[jti] = exp
	return nil
}

func (b *memoryBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[jti]
	return ok, nil
}

// memoryStore is an in-memory DocumentStore.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut error
}

func newMemoryStore() *memoryStore { return &memoryStore{objects: map[string][]byte{}} }

func (s *memoryStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if s.failPut != nil {
		return s.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.ErrNotFound("object", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// scriptedAdvisor answers every model call deterministically.
// findingGate, when set, runs inside every GenerateFinding call.
type scriptedAdvisor struct {
	mu           sync.Mutex
	findingCalls []string
	failFindings error
	failSummary  error
	findingGate  func()
	extracted    *domainService.ExtractedWorkbook
	attachments  []domainService.Attachment
}

var testUsage = domainService.Usage{Model: "gemini-test", PromptTokens: 100, CompletionTokens: 20}

func (a *scriptedAdvisor) GenerateFinding(ctx context.Context, in domainService.FindingInput) (*models.Finding, domainService.Usage, error) {
	a.mu.Lock()
	a.findingCalls = append(a.findingCalls, in.Module.Key)
	gate := a.findingGate
	a.mu.Unlock()
	if gate != nil {
		gate()
	}
	if a.failFindings != nil {
		return nil, testUsage, a.failFindings
	}
	return &models.Finding{
		ModuleKey:  in.Module.Key,
		ModuleName: in.Module.Name,
		RAG:        in.Score.RAG,
		Kind:       models.FindingGap,
		Title:      "Gap in " + in.Module.Name,
		Summary:    "Needs work",
	}, testUsage, nil
}

func (a *scriptedAdvisor) GenerateRecommendations(ctx context.Context, in domainService.ReportInput) ([]models.Recommendation, domainService.Usage, error) {
	recs := make([]models.Recommendation, 0, len(in.Findings))
	for _, f := range in.Findings {
		recs = append(recs, models.Recommendation{ModuleKey: f.ModuleKey, Title: "Fix " + f.ModuleName, Priority: constants.PriorityHigh})
	}
	return recs, testUsage, nil
}

func (a *scriptedAdvisor) GenerateRoadmap(ctx context.Context, in domainService.ReportInput) ([]models.RoadmapPhase, domainService.Usage, error) {
	return []models.RoadmapPhase{{Name: "Stabilise", Horizon: "0-90 days", Actions: []string{"Do the thing"}}}, testUsage, nil
}

func (a *scriptedAdvisor) GenerateSummary(ctx context.Context, in domainService.ReportInput) (string, domainService.Usage, error) {
	if a.failSummary != nil {
		return "", testUsage, a.failSummary
	}
	return "The business is sound.", testUsage, nil
}

func (a *scriptedAdvisor) ExtractWorkbook(ctx context.Context, docs []domainService.Attachment) (*domainService.ExtractedWorkbook, domainService.Usage, error) {
	a.mu.Lock()
	a.attachments = docs
	a.mu.Unlock()
	if a.extracted == nil {
		return nil, testUsage, errors.ErrUpstream("llm", "model unavailable")
	}
	out := *a.extracted
	return &out, testUsage, nil
}

// stubExporter returns fixed bytes.
type stubExporter struct{}

func (stubExporter) ScorecardXLSX(report *models.BBAReport) ([]byte, error) {
	return []byte("scorecard"), nil
}

func (stubExporter) WorkbookXLSX(wb *models.StrategyWorkbook) ([]byte, error) {
	return []byte("workbook"), nil
}

//Personal.AI order the ending
