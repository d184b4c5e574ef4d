package grpc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	grpcCodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

// healthServicePrefix marks methods served without authentication.
const healthServicePrefix = "/grpc.health.v1.Health/"

type principalKey struct{}

// PrincipalFromContext returns the caller stored by the auth interceptor.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*models.Principal)
	return p, ok && p != nil
}

// InterceptorChain 拦截器链
type InterceptorChain struct {
	log         logger.Logger
	tokens      service.TokenManager
	blacklist   service.TokenBlacklistStore
	rateLimiter service.RateLimitService
}

// NewInterceptorChain 创建拦截器链. rateLimiter may be nil.
func NewInterceptorChain(
	log logger.Logger,
	tokens service.TokenManager,
	blacklist service.TokenBlacklistStore,
	rateLimiter service.RateLimitService,
) *InterceptorChain {
	return &InterceptorChain{
		log:         log.WithComponent("GRPCServer"),
		tokens:      tokens,
		blacklist:   blacklist,
		rateLimiter: rateLimiter,
	}
}

// UnaryRecoveryInterceptor 恢复拦截器(捕获 panic)
func (ic *InterceptorChain) UnaryRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				ic.log.Error(ctx, "gRPC handler panic recovered", fmt.Errorf("%v", r),
					logger.String("method", info.FullMethod),
				)
				err = status.Error(grpcCodes.Internal, "internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// UnaryLoggingInterceptor 日志拦截器
func (ic *InterceptorChain) UnaryLoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		startTime := time.Now()
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if ids := md.Get(strings.ToLower(constants.HeaderRequestID)); len(ids) > 0 {
				ctx = context.WithValue(ctx, constants.ContextKeyRequestID, ids[0])
			}
		}

		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []logger.Field{
			logger.String("method", info.FullMethod),
			logger.Int64("duration_ms", time.Since(startTime).Milliseconds()),
			logger.String("status", code.String()),
		}
		switch code {
		case grpcCodes.OK:
			ic.log.Info(ctx, "gRPC request completed", fields...)
		case grpcCodes.Internal, grpcCodes.Unavailable, grpcCodes.Unknown:
			ic.log.Error(ctx, "gRPC request failed", err, fields...)
		default:
			ic.log.Warn(ctx, "gRPC request rejected", fields...)
		}
		return resp, err
	}
}

// UnaryErrorInterceptor 错误转换拦截器(将领域错误转换为 gRPC 状态码)
func (ic *InterceptorChain) UnaryErrorInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return resp, err
		}
		return resp, convertDomainErrorToGRPC(err)
	}
}

// UnaryAuthInterceptor verifies the bearer token from the "authorization" metadata.
func (ic *InterceptorChain) UnaryAuthInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}

		// 1. Extract the token
		md, _ := metadata.FromIncomingContext(ctx)
		var raw string
		if values := md.Get("authorization"); len(values) > 0 {
			raw = values[0]
		}
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return nil, errors.ErrUnauthorized("missing bearer token")
		}

		// 2. Verify signature and revocation
		p, err := ic.tokens.Verify(ctx, strings.TrimSpace(token))
		if err != nil {
			return nil, err
		}
		revoked, err := ic.blacklist.IsRevoked(ctx, p.TokenID)
		if err != nil {
			ic.log.Error(ctx, "token blacklist check failed", err, logger.String("method", info.FullMethod))
			return nil, errors.ErrServiceUnavailable("unable to verify token")
		}
		if revoked {
			return nil, errors.ErrUnauthorized("token has been revoked")
		}

		// 3. Attach the caller
		ctx = context.WithValue(ctx, principalKey{}, p)
		ctx = context.WithValue(ctx, constants.ContextKeyUserID, p.UserID.String())
		if p.FirmID != nil {
			ctx = context.WithValue(ctx, constants.ContextKeyFirmID, p.FirmID.String())
		}
		return handler(ctx, req)
	}
}

// UnaryRateLimitInterceptor 限流拦截器; shares the per-user bucket with the REST API.
func (ic *InterceptorChain) UnaryRateLimitInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		if ic.rateLimiter == nil || strings.HasPrefix(info.FullMethod, healthServicePrefix) {
			return handler(ctx, req)
		}

		dimension := service.RateLimitDimensionIP
		identifier := "unknown"
		if p, ok := PrincipalFromContext(ctx); ok {
			dimension = service.RateLimitDimensionUser
			identifier = p.UserID.String()
		} else if pr, ok := peer.FromContext(ctx); ok && pr.Addr != nil {
			identifier = pr.Addr.String()
		}

		allowed, _, _, err := ic.rateLimiter.Allow(ctx, dimension, identifier)
		if err != nil {
			// 限流服务故障时降级放行
			ic.log.Warn(ctx, "rate limit check failed", logger.String("method", info.FullMethod), logger.Err(err))
			return handler(ctx, req)
		}
		if !allowed {
			ic.log.Warn(ctx, "rate limit exceeded",
				logger.String("identifier", identifier),
				logger.String("method", info.FullMethod),
			)
			return nil, errors.ErrRateLimitExceeded(string(dimension), 0)
		}
		return handler(ctx, req)
	}
}

// convertDomainErrorToGRPC 将领域错误转换为 gRPC 错误
func convertDomainErrorToGRPC(err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return status.Error(grpcCodes.Internal, "internal server error")
	}

	msg := errors.MessageOf(appErr)
	switch appErr.Code() {
	case errors.CodeInvalidRequest:
		return status.Error(grpcCodes.InvalidArgument, msg)
	case errors.CodeUnauthorized:
		return status.Error(grpcCodes.Unauthenticated, msg)
	case errors.CodeForbidden:
		return status.Error(grpcCodes.PermissionDenied, msg)
	case errors.CodeNotFound:
		return status.Error(grpcCodes.NotFound, msg)
	case errors.CodeConflict:
		return status.Error(grpcCodes.AlreadyExists, msg)
	case errors.CodeQuotaExceeded, errors.CodeRateLimitExceeded:
		return status.Error(grpcCodes.ResourceExhausted, msg)
	case errors.CodeWorkflowViolation:
		return status.Error(grpcCodes.FailedPrecondition, msg)
	case errors.CodeServiceUnavailable, errors.CodeUpstream:
		return status.Error(grpcCodes.Unavailable, msg)
	default:
		return status.Error(grpcCodes.Internal, "internal server error")
	}
}

// ChainUnaryInterceptors 链式调用所有拦截器
func (ic *InterceptorChain) ChainUnaryInterceptors() grpc.ServerOption {
	return grpc.ChainUnaryInterceptor(
		ic.UnaryRecoveryInterceptor(),  // 1. 恢复 panic
		ic.UnaryLoggingInterceptor(),   // 2. 日志
		ic.UnaryErrorInterceptor(),     // 3. 错误转换
		ic.UnaryAuthInterceptor(),      // 4. 认证
		ic.UnaryRateLimitInterceptor(), // 5. 限流
	)
}

//Personal.AI order the ending
