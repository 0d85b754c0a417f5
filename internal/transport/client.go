package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	kernelv1 "parambridge/api/kernel/v1"
	"parambridge/internal/kernel"
	"parambridge/internal/logging"
	"parambridge/internal/param"
	"parambridge/internal/telemetry"
)

// Client talks to a remote kernel. It implements bridge.Authority.
type Client struct {
	cc     *grpc.ClientConn
	kc     kernelv1.KernelClient
	health healthpb.HealthClient
	log    *slog.Logger
	moves  *throttle
}

type ClientOption func(*clientOptions)

type clientOptions struct {
	log      *slog.Logger
	dial     []grpc.DialOption
	moveRate int
}

func WithClientLogger(l *slog.Logger) ClientOption {
	return func(o *clientOptions) { o.log = l }
}

// WithDialOptions appends options to the defaults (insecure credentials).
func WithDialOptions(opts ...grpc.DialOption) ClientOption {
	return func(o *clientOptions) { o.dial = append(o.dial, opts...) }
}

// WithMoveRate limits MoveGrab to n requests per second. Zero means no limit.
func WithMoveRate(n int) ClientOption {
	return func(o *clientOptions) { o.moveRate = n }
}

// Dial creates a client for the kernel at target. The connection is
// established lazily on the first request.
func Dial(target string, opts ...ClientOption) (*Client, error) {
	o := clientOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = logging.For("transport")
	}
	dopts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, o.dial...)
	cc, err := grpc.NewClient(target, dopts...)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", target, err)
	}
	return &Client{
		cc:     cc,
		kc:     kernelv1.NewKernelClient(cc),
		health: healthpb.NewHealthClient(cc),
		log:    o.log,
		moves:  perSecond(o.moveRate),
	}, nil
}

func (c *Client) Descriptors(ctx context.Context) (map[param.ID]param.Descriptor, error) {
	resp, err := c.kc.Descriptors(ctx, &kernelv1.DescriptorsRequest{})
	if err != nil {
		return nil, fromStatus("descriptors", err)
	}
	out := make(map[param.ID]param.Descriptor, len(resp.Parameters))
	for _, d := range resp.Parameters {
		if d == nil {
			continue
		}
		pd := d.Param()
		out[pd.ID] = pd
	}
	return out, nil
}

func (c *Client) RequestFullSync(ctx context.Context) error {
	_, err := c.kc.RequestFullSync(ctx, &kernelv1.SyncRequest{})
	return fromStatus("sync", err)
}

func (c *Client) PushValue(ctx context.Context, id param.ID, value float64) error {
	_, err := c.kc.PushValue(ctx, &kernelv1.PushRequest{ID: string(id), Value: value})
	return fromStatus("push", err)
}

func (c *Client) BeginGrab(ctx context.Context, id param.ID) (param.GrabHandle, error) {
	resp, err := c.kc.BeginGrab(ctx, &kernelv1.GrabRequest{ID: string(id)})
	if err != nil {
		return 0, fromStatus("grab", err)
	}
	return param.GrabHandle(resp.Handle), nil
}

func (c *Client) MoveGrab(ctx context.Context, h param.GrabHandle, value float64) error {
	if c.moves != nil {
		if err := c.moves.acquire(ctx); err != nil {
			return fmt.Errorf("transport: move: %w", err)
		}
	}
	_, err := c.kc.MoveGrab(ctx, &kernelv1.MoveRequest{Handle: uint64(h), Value: value})
	return fromStatus("move", err)
}

func (c *Client) EndGrab(ctx context.Context, h param.GrabHandle) error {
	_, err := c.kc.EndGrab(ctx, &kernelv1.EndGrabRequest{Handle: uint64(h)})
	return fromStatus("ungrab", err)
}

// Listen opens a Watch stream and returns once the kernel has registered it,
// so a RequestFullSync issued afterwards is seen by fn. Notifications carrying
// a sequence number not newer than the last one seen for the same parameter
// are dropped.
func (c *Client) Listen(fn param.NotifyFunc) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	stream, err := c.kc.Watch(ctx, &kernelv1.WatchRequest{})
	if err != nil {
		cancel()
		return nil, fromStatus("watch", err)
	}
	if _, err := stream.Header(); err != nil {
		cancel()
		return nil, fromStatus("watch", err)
	}

	go c.watch(ctx, stream, fn)

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (c *Client) watch(ctx context.Context, stream kernelv1.Kernel_WatchClient, fn param.NotifyFunc) {
	last := make(map[param.ID]uint64)
	for {
		msg, err := stream.Recv()
		if err != nil {
			if ctx.Err() == nil && !errors.Is(err, io.EOF) {
				c.log.Warn("transport: watch ended", "err", err)
			}
			return
		}
		id := param.ID(msg.ID)
		if seq, seen := last[id]; seen && msg.Seq <= seq {
			telemetry.Suppressed.WithLabelValues(telemetry.ReasonStaleSeq).Inc()
			c.log.Debug("transport: stale notification dropped", "param", id, "seq", msg.Seq, "last", seq)
			continue
		}
		last[id] = msg.Seq
		fn(id, msg.Value)
	}
}

// Health asks the kernel's health service about the kernel API.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: kernelv1.Kernel_ServiceDesc.ServiceName})
	if err != nil {
		return "", fromStatus("health", err)
	}
	return resp.GetStatus().String(), nil
}

func (c *Client) Target() string { return c.cc.Target() }

func (c *Client) Close() error {
	if c.moves != nil {
		c.moves.close()
	}
	return c.cc.Close()
}

// fromStatus turns a gRPC status back into the kernel's sentinel errors so
// callers can use errors.Is across the wire.
func fromStatus(op string, err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("transport: %s: %w", op, err)
	}
	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = kernel.ErrUnknownParameter
	case codes.FailedPrecondition:
		sentinel = kernel.ErrAlreadyGrabbed
	case codes.DeadlineExceeded:
		sentinel = context.DeadlineExceeded
	case codes.Canceled:
		sentinel = context.Canceled
	default:
		return fmt.Errorf("transport: %s: %w", op, err)
	}
	return fmt.Errorf("transport: %s: %w (%s)", op, sentinel, st.Message())
}
