package mrld

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// OptimizationServiceName is the fully qualified gRPC service name.
// Requests and responses are google.protobuf.Struct documents with the
// same shape as the HTTP API bodies.
const OptimizationServiceName = "mrlopt.v1.OptimizationService"

// OptimizationServiceServer is the server API of the optimization service
type OptimizationServiceServer interface {
	CreateRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRuns(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StopRun(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRunResult(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type serviceMethod func(OptimizationServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call serviceMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OptimizationServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + OptimizationServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OptimizationServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// OptimizationServiceDesc describes the service for grpc.Server registration
var OptimizationServiceDesc = grpc.ServiceDesc{
	ServiceName: OptimizationServiceName,
	HandlerType: (*OptimizationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("CreateRun", OptimizationServiceServer.CreateRun),
		unaryHandler("StartRun", OptimizationServiceServer.StartRun),
		unaryHandler("GetRun", OptimizationServiceServer.GetRun),
		unaryHandler("ListRuns", OptimizationServiceServer.ListRuns),
		unaryHandler("StopRun", OptimizationServiceServer.StopRun),
		unaryHandler("GetRunResult", OptimizationServiceServer.GetRunResult),
	},
	Streams: []grpc.StreamDesc{},
}

// RegisterOptimizationServiceServer registers srv together with the standard
// health service, which reports the optimization service as serving.
func RegisterOptimizationServiceServer(s *grpc.Server, srv OptimizationServiceServer) *health.Server {
	s.RegisterService(&OptimizationServiceDesc, srv)
	hs := health.NewServer()
	hs.SetServingStatus(OptimizationServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// OptimizationServiceClient calls the service over a client connection
type OptimizationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOptimizationServiceClient(cc grpc.ClientConnInterface) *OptimizationServiceClient {
	return &OptimizationServiceClient{cc: cc}
}

func (c *OptimizationServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+OptimizationServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OptimizationServiceClient) CreateRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateRun", in, opts...)
}

func (c *OptimizationServiceClient) StartRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartRun", in, opts...)
}

func (c *OptimizationServiceClient) GetRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetRun", in, opts...)
}

func (c *OptimizationServiceClient) ListRuns(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListRuns", in, opts...)
}

func (c *OptimizationServiceClient) StopRun(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StopRun", in, opts...)
}

func (c *OptimizationServiceClient) GetRunResult(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetRunResult", in, opts...)
}

// OptimizationGRPCServer implements OptimizationServiceServer on top of the
// run store and executor.
type OptimizationGRPCServer struct {
	store    *RunStore
	executor *RunExecutor
}

func NewOptimizationGRPCServer(store *RunStore, executor *RunExecutor) *OptimizationGRPCServer {
	return &OptimizationGRPCServer{store: store, executor: executor}
}

type runIDRequest struct {
	RunID string `json:"run_id"`
}

func decodeRunID(in *structpb.Struct) (string, error) {
	var req runIDRequest
	if err := fromStruct(in, &req); err != nil {
		return "", status.Error(codes.InvalidArgument, err.Error())
	}
	if req.RunID == "" {
		return "", status.Error(codes.InvalidArgument, "run_id is required")
	}
	return req.RunID, nil
}

func runResponse(run Run) (*structpb.Struct, error) {
	out, err := toStruct(map[string]any{"run": runToJSON(run)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, ErrRunNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrRunExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrRunTerminal):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidRunID), errors.Is(err, ErrRunIDMissing):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (s *OptimizationGRPCServer) CreateRun(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		RunID string    `json:"run_id"`
		Input *RunInput `json:"input"`
		Start *bool     `json:"start"`
	}
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Input == nil {
		return nil, status.Error(codes.InvalidArgument, "input is required")
	}
	if req.Input.CallbackURL != "" {
		if err := ValidateCallbackURL(req.Input.CallbackURL); err != nil {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
	}

	rec, err := s.executor.Create(req.RunID, *req.Input)
	if err != nil {
		return nil, grpcError(err)
	}
	if req.Start != nil && *req.Start {
		if rec, err = s.executor.Start(rec.Run.ID); err != nil {
			return nil, grpcError(err)
		}
	}
	return runResponse(rec.Run)
}

func (s *OptimizationGRPCServer) StartRun(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(in)
	if err != nil {
		return nil, err
	}
	rec, err := s.executor.Start(runID)
	if err != nil {
		return nil, grpcError(err)
	}
	return runResponse(rec.Run)
}

func (s *OptimizationGRPCServer) GetRun(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(in)
	if err != nil {
		return nil, err
	}
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	return runResponse(rec.Run)
}

func (s *OptimizationGRPCServer) ListRuns(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req struct {
		Limit  int    `json:"limit"`
		Offset int    `json:"offset"`
		Status string `json:"status"`
	}
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Limit < 0 || req.Offset < 0 {
		return nil, status.Error(codes.InvalidArgument, "limit and offset must be non-negative")
	}
	var st RunStatus
	if req.Status != "" {
		if st = ParseRunStatus(req.Status); st == "" {
			return nil, status.Error(codes.InvalidArgument, "invalid status: "+req.Status)
		}
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultListLimit
	}

	records := s.store.List(limit, req.Offset, st)
	runs := make([]any, 0, len(records))
	for _, rec := range records {
		runs = append(runs, runToJSON(rec.Run))
	}
	out, err := toStruct(map[string]any{"runs": runs, "total": s.store.Count()})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *OptimizationGRPCServer) StopRun(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(in)
	if err != nil {
		return nil, err
	}
	rec, err := s.executor.Stop(runID)
	if err != nil {
		return nil, grpcError(err)
	}
	return runResponse(rec.Run)
}

func (s *OptimizationGRPCServer) GetRunResult(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	runID, err := decodeRunID(in)
	if err != nil {
		return nil, err
	}
	rec, ok := s.store.Get(runID)
	if !ok {
		return nil, status.Error(codes.NotFound, "run not found")
	}
	if rec.Result == nil {
		return nil, status.Error(codes.FailedPrecondition, "result not available")
	}
	out, err := toStruct(map[string]any{"run": runToJSON(rec.Run), "result": rec.Result})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}
