// Package grpc serves the report status RPC for service-to-service callers.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/turtacn/advisorhub/internal/application/dto"
	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/pkg/errors"
	"github.com/turtacn/advisorhub/pkg/logger"
)

const (
	// ReportServiceName is the fully qualified gRPC service name.
	ReportServiceName = "advisorhub.v1.ReportService"
	// GetReportStatusMethod is the full method path of GetReportStatus.
	GetReportStatusMethod = "/" + ReportServiceName + "/GetReportStatus"
)

// ReportStatusReader is the part of the BBA application service the RPC needs.
type ReportStatusReader interface {
	GetStatus(ctx context.Context, p *models.Principal, reportID string) (*dto.ReportStatusResponse, error)
}

// ReportServiceServer is the server API of advisorhub.v1.ReportService.
// Messages are google.protobuf.Struct so callers need no generated stubs.
type ReportServiceServer interface {
	GetReportStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// ReportServiceDesc describes advisorhub.v1.ReportService for grpc.Server.RegisterService.
var ReportServiceDesc = grpc.ServiceDesc{
	ServiceName: ReportServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetReportStatus",
			Handler:    getReportStatusHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "advisorhub/v1/report.proto",
}

func getReportStatusHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).GetReportStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetReportStatusMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportServiceServer).GetReportStatus(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ReportGRPCService implements ReportServiceServer over the BBA application service.
type ReportGRPCService struct {
	reports ReportStatusReader
	log     logger.Logger
}

// NewReportGRPCService creates the report RPC implementation.
func NewReportGRPCService(reports ReportStatusReader, log logger.Logger) *ReportGRPCService {
	return &ReportGRPCService{reports: reports, log: log.WithComponent("ReportGRPCService")}
}

// GetReportStatus expects {"report_id": "<uuid>"} and answers with the report's progress.
func (s *ReportGRPCService) GetReportStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, errors.ErrUnauthorized("authentication required")
	}
	reportID := req.GetFields()["report_id"].GetStringValue()
	if reportID == "" {
		return nil, errors.ErrMissingRequiredParameter("report_id")
	}

	st, err := s.reports.GetStatus(ctx, p, reportID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"report_id":     st.ReportID,
		"engagement_id": st.EngagementID,
		"status":        string(st.Status),
		"current_step":  string(st.CurrentStep),
		"next_step":     string(st.NextStep),
	}
	if st.LastError != "" {
		fields["last_error"] = st.LastError
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, errors.ErrServerError("failed to encode report status").WithCause(err)
	}
	return out, nil
}

// Server bundles the gRPC server with its health service.
type Server struct {
	server *grpc.Server
	health *health.Server
	log    logger.Logger
}

// NewServer registers the report and health services behind the interceptor chain.
func NewServer(reports ReportStatusReader, chain *InterceptorChain, log logger.Logger, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{chain.ChainUnaryInterceptors()}, opts...)
	server := grpc.NewServer(opts...)
	server.RegisterService(&ReportServiceDesc, NewReportGRPCService(reports, log))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ReportServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, hs)

	return &Server{server: server, health: hs, log: log.WithComponent("GRPCServer")}
}

// Serve blocks accepting connections on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info(context.Background(), "Starting gRPC server", logger.String("address", lis.Addr().String()))
	return s.server.Serve(lis)
}

// Stop marks the services not serving and drains in-flight calls until ctx ends.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
}

//Personal.AI order the ending
