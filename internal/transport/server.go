package transport

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"path"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	kernelv1 "parambridge/api/kernel/v1"
	"parambridge/internal/kernel"
	"parambridge/internal/logging"
	"parambridge/internal/param"
	"parambridge/internal/telemetry"
)

// watchBuffer is how many notifications a Watch stream may lag behind the
// kernel before the kernel's listener goroutine waits for it.
const watchBuffer = 64

// Server exposes a kernel over gRPC together with the standard health
// service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	log    *slog.Logger
}

type ServerOption func(*serverOptions)

type serverOptions struct {
	log  *slog.Logger
	grpc []grpc.ServerOption
}

func WithServerLogger(l *slog.Logger) ServerOption {
	return func(o *serverOptions) { o.log = l }
}

// WithGRPCOptions passes extra options to grpc.NewServer.
func WithGRPCOptions(opts ...grpc.ServerOption) ServerOption {
	return func(o *serverOptions) { o.grpc = append(o.grpc, opts...) }
}

func NewServer(k *kernel.Kernel, opts ...ServerOption) *Server {
	o := serverOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = logging.For("transport")
	}
	gopts := append([]grpc.ServerOption{
		grpc.ChainUnaryInterceptor(unaryMetrics),
		grpc.ChainStreamInterceptor(streamMetrics),
	}, o.grpc...)

	s := &Server{
		grpc:   grpc.NewServer(gopts...),
		health: health.NewServer(),
		log:    o.log,
	}
	kernelv1.RegisterKernelServer(s.grpc, &kernelService{k: k, log: o.log})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(kernelv1.Kernel_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

// Serve blocks until Stop is called or lis fails.
func (s *Server) Serve(lis net.Listener) error {
	s.log.Info("transport: serving", "addr", lis.Addr().String())
	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop marks the service not serving and drains in-flight calls. Watch
// streams only end once the kernel closes or their clients leave, so when
// ctx ends first every connection is closed at once.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpc.Stop()
		<-done
	}
}

type kernelService struct {
	kernelv1.UnimplementedKernelServer
	k   *kernel.Kernel
	log *slog.Logger
}

func (s *kernelService) Descriptors(ctx context.Context, _ *kernelv1.DescriptorsRequest) (*kernelv1.DescriptorsReply, error) {
	descs, err := s.k.Descriptors(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	out := &kernelv1.DescriptorsReply{Parameters: make([]*kernelv1.Descriptor, 0, len(descs))}
	for _, d := range descs {
		out.Parameters = append(out.Parameters, kernelv1.FromDescriptor(d))
	}
	return out, nil
}

func (s *kernelService) RequestFullSync(ctx context.Context, _ *kernelv1.SyncRequest) (*kernelv1.Ack, error) {
	if err := s.k.RequestFullSync(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &kernelv1.Ack{}, nil
}

func (s *kernelService) PushValue(ctx context.Context, in *kernelv1.PushRequest) (*kernelv1.Ack, error) {
	if err := s.k.PushValue(ctx, param.ID(in.ID), in.Value); err != nil {
		return nil, toStatus(err)
	}
	return &kernelv1.Ack{}, nil
}

func (s *kernelService) BeginGrab(ctx context.Context, in *kernelv1.GrabRequest) (*kernelv1.GrabReply, error) {
	h, err := s.k.BeginGrab(ctx, param.ID(in.ID))
	if err != nil {
		return nil, toStatus(err)
	}
	return &kernelv1.GrabReply{Handle: uint64(h)}, nil
}

func (s *kernelService) MoveGrab(ctx context.Context, in *kernelv1.MoveRequest) (*kernelv1.Ack, error) {
	if err := s.k.MoveGrab(ctx, param.GrabHandle(in.Handle), in.Value); err != nil {
		return nil, toStatus(err)
	}
	return &kernelv1.Ack{}, nil
}

func (s *kernelService) EndGrab(ctx context.Context, in *kernelv1.EndGrabRequest) (*kernelv1.Ack, error) {
	if err := s.k.EndGrab(ctx, param.GrabHandle(in.Handle)); err != nil {
		return nil, toStatus(err)
	}
	return &kernelv1.Ack{}, nil
}

// Watch registers a kernel listener, sends the response headers to tell the
// client it is registered, then forwards notifications until the client
// leaves or the kernel closes.
func (s *kernelService) Watch(_ *kernelv1.WatchRequest, stream kernelv1.Kernel_WatchServer) error {
	ctx := stream.Context()
	ch := make(chan kernel.Notification, watchBuffer)
	gone := make(chan struct{})

	stop, err := s.k.ListenSeq(func(n kernel.Notification) {
		select {
		case ch <- n:
		case <-gone:
		}
	})
	if err != nil {
		return toStatus(err)
	}
	defer func() {
		close(gone)
		stop()
	}()

	if err := stream.SendHeader(metadata.Pairs("x-watch", "registered")); err != nil {
		return err
	}
	s.log.Debug("transport: watcher registered")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.k.Done():
			return status.Error(codes.Unavailable, kernel.ErrClosed.Error())
		case n := <-ch:
			msg := &kernelv1.ValueChanged{ID: string(n.ID), Value: n.Value, Seq: n.Seq, Origin: string(n.Origin)}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// toStatus maps kernel errors to gRPC status codes.
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, kernel.ErrUnknownParameter):
		code = codes.NotFound
	case errors.Is(err, kernel.ErrAlreadyGrabbed):
		code = codes.FailedPrecondition
	case errors.Is(err, kernel.ErrClosed):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	return status.Error(code, err.Error())
}

func unaryMetrics(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	telemetry.KernelRequests.WithLabelValues(path.Base(info.FullMethod), status.Code(err).String()).Inc()
	return resp, err
}

func streamMetrics(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	err := handler(srv, ss)
	telemetry.KernelRequests.WithLabelValues(path.Base(info.FullMethod), status.Code(err).String()).Inc()
	return err
}
