package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/config"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/internal/infrastructure/crypto"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

type MockReportStatusReader struct {
	mock.Mock
}

func (m *MockReportStatusReader) GetStatus(ctx context.Context, p *models.Principal, reportID string) (*dto.ReportStatusResponse, error) {
	args := m.Called(ctx, p, reportID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReportStatusResponse), args.Error(1)
}

type memoryBlacklist struct {
	revoked map[string]bool
}

func (b *memoryBlacklist) Revoke(_ context.Context, jti string, _ time.Time) error {
	b.revoked[jti] = true
	return nil
}

func (b *memoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	return b.revoked[jti], nil
}

type denyAll struct{}

func (denyAll) Allow(context.Context, service.RateLimitDimension, string) (bool, int, time.Time, error) {
	return false, 0, time.Now().Add(time.Minute), nil
}

type testEnv struct {
	conn      *grpc.ClientConn
	reader    *MockReportStatusReader
	tokens    *crypto.JWTManager
	blacklist *memoryBlacklist
}

func newTestEnv(t *testing.T, limiter service.RateLimitService) *testEnv {
	t.Helper()
	log := logger.NewNoopLogger()
	env := &testEnv{
		reader:    new(MockReportStatusReader),
		tokens:    crypto.NewJWTManager(&config.JWTConfig{Secret: "grpc-secret", Issuer: "advisorhub-test", AccessTokenTTL: time.Hour}, log),
		blacklist: &memoryBlacklist{revoked: map[string]bool{}},
	}

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(env.reader, NewInterceptorChain(log, env.tokens, env.blacklist, limiter), log)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	env.conn = conn
	return env
}

func (e *testEnv) issue(t *testing.T) (string, *models.User, string) {
	t.Helper()
	firmID := uuid.New()
	user := models.NewUser(&firmID, "advisor@example.com", "Ada", "hash", constants.RoleAdvisor)
	token, jti, _, err := e.tokens.Issue(context.Background(), user)
	require.NoError(t, err)
	return token, user, jti
}

func (e *testEnv) getStatus(ctx context.Context, token, reportID string) (*structpb.Struct, error) {
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	in, _ := structpb.NewStruct(map[string]interface{}{"report_id": reportID})
	out := new(structpb.Struct)
	err := e.conn.Invoke(ctx, GetReportStatusMethod, in, out)
	return out, err
}

func TestGetReportStatus(t *testing.T) {
	ctx := context.Background()
	reportID := uuid.NewString()

	t.Run("Authenticated caller receives status", func(t *testing.T) {
		env := newTestEnv(t, nil)
		token, user, _ := env.issue(t)
		env.reader.On("GetStatus", mock.Anything, mock.MatchedBy(func(p *models.Principal) bool {
			return p.UserID == user.ID
		}), reportID).Return(&dto.ReportStatusResponse{
			ReportID:    reportID,
			Status:      constants.ReportInProgress,
			CurrentStep: constants.StepScoring,
			NextStep:    constants.StepFindings,
		}, nil)

		out, err := env.getStatus(ctx, token, reportID)
		require.NoError(t, err)
		assert.Equal(t, reportID, out.Fields["report_id"].GetStringValue())
		assert.Equal(t, string(constants.ReportInProgress), out.Fields["status"].GetStringValue())
		assert.Equal(t, string(constants.StepFindings), out.Fields["next_step"].GetStringValue())
		_, hasError := out.Fields["last_error"]
		assert.False(t, hasError)
	})

	t.Run("Missing token", func(t *testing.T) {
		env := newTestEnv(t, nil)
		_, err := env.getStatus(ctx, "", reportID)
		assert.Equal(t, grpcCodes.Unauthenticated, status.Code(err))
	})

	t.Run("Revoked token", func(t *testing.T) {
		env := newTestEnv(t, nil)
		token, _, jti := env.issue(t)
		env.blacklist.revoked[jti] = true
		_, err := env.getStatus(ctx, token, reportID)
		assert.Equal(t, grpcCodes.Unauthenticated, status.Code(err))
	})

	t.Run("Domain errors keep their meaning", func(t *testing.T) {
		env := newTestEnv(t, nil)
		token, _, _ := env.issue(t)
		env.reader.On("GetStatus", mock.Anything, mock.Anything, reportID).Return(nil, errors.ErrNotFound("report", reportID))

		_, err := env.getStatus(ctx, token, reportID)
		assert.Equal(t, grpcCodes.NotFound, status.Code(err))
	})

	t.Run("Missing report id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		token, _, _ := env.issue(t)
		_, err := env.getStatus(ctx, token, "")
		assert.Equal(t, grpcCodes.InvalidArgument, status.Code(err))
	})

	t.Run("Rate limited", func(t *testing.T) {
		env := newTestEnv(t, denyAll{})
		token, _, _ := env.issue(t)
		_, err := env.getStatus(ctx, token, reportID)
		assert.Equal(t, grpcCodes.ResourceExhausted, status.Code(err))
		env.reader.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHealthServiceNeedsNoToken(t *testing.T) {
	env := newTestEnv(t, denyAll{})
	resp, err := healthpb.NewHealthClient(env.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ReportServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestConvertDomainErrorToGRPC(t *testing.T) {
	cases := map[grpcCodes.Code]error{
		grpcCodes.InvalidArgument:    errors.ErrInvalidRequest("bad"),
		grpcCodes.PermissionDenied:   errors.ErrForbidden("no"),
		grpcCodes.AlreadyExists:      errors.ErrConflict("dup"),
		grpcCodes.ResourceExhausted:  errors.ErrQuotaExceeded("ai_reports", 5),
		grpcCodes.FailedPrecondition: errors.ErrWorkflowViolation("out of order"),
		grpcCodes.Unavailable:        errors.ErrUpstream("llm", "timeout"),
		grpcCodes.Internal:           assert.AnError,
	}
	for want, err := range cases {
		assert.Equal(t, want, status.Code(convertDomainErrorToGRPC(err)), err.Error())
	}
}

//Personal.AI order the ending
