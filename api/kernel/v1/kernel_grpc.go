package kernelv1

import (
	context "context"

	grpc "google.golang.org/grpc"
	codes "google.golang.org/grpc/codes"
	status "google.golang.org/grpc/status"
)

const _ = grpc.SupportPackageIsVersion9

const (
	Kernel_Descriptors_FullMethodName     = "/parambridge.kernel.v1.Kernel/Descriptors"
	Kernel_RequestFullSync_FullMethodName = "/parambridge.kernel.v1.Kernel/RequestFullSync"
	Kernel_PushValue_FullMethodName       = "/parambridge.kernel.v1.Kernel/PushValue"
	Kernel_BeginGrab_FullMethodName       = "/parambridge.kernel.v1.Kernel/BeginGrab"
	Kernel_MoveGrab_FullMethodName        = "/parambridge.kernel.v1.Kernel/MoveGrab"
	Kernel_EndGrab_FullMethodName         = "/parambridge.kernel.v1.Kernel/EndGrab"
	Kernel_Watch_FullMethodName           = "/parambridge.kernel.v1.Kernel/Watch"
)

type KernelClient interface {
	Descriptors(ctx context.Context, in *DescriptorsRequest, opts ...grpc.CallOption) (*DescriptorsReply, error)
	RequestFullSync(ctx context.Context, in *SyncRequest, opts ...grpc.CallOption) (*Ack, error)
	PushValue(ctx context.Context, in *PushRequest, opts ...grpc.CallOption) (*Ack, error)
	BeginGrab(ctx context.Context, in *GrabRequest, opts ...grpc.CallOption) (*GrabReply, error)
	MoveGrab(ctx context.Context, in *MoveRequest, opts ...grpc.CallOption) (*Ack, error)
	EndGrab(ctx context.Context, in *EndGrabRequest, opts ...grpc.CallOption) (*Ack, error)
	// Watch streams every value change the kernel applies. The server sends
	// response headers once the watcher is registered.
	Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ValueChanged], error)
}

type kernelClient struct {
	cc grpc.ClientConnInterface
}

func NewKernelClient(cc grpc.ClientConnInterface) KernelClient {
	return &kernelClient{cc}
}

func (c *kernelClient) Descriptors(ctx context.Context, in *DescriptorsRequest, opts ...grpc.CallOption) (*DescriptorsReply, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(DescriptorsReply)
	err := c.cc.Invoke(ctx, Kernel_Descriptors_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kernelClient) RequestFullSync(ctx context.Context, in *SyncRequest, opts ...grpc.CallOption) (*Ack, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(Ack)
	err := c.cc.Invoke(ctx, Kernel_RequestFullSync_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kernelClient) PushValue(ctx context.Context, in *PushRequest, opts ...grpc.CallOption) (*Ack, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(Ack)
	err := c.cc.Invoke(ctx, Kernel_PushValue_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kernelClient) BeginGrab(ctx context.Context, in *GrabRequest, opts ...grpc.CallOption) (*GrabReply, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(GrabReply)
	err := c.cc.Invoke(ctx, Kernel_BeginGrab_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kernelClient) MoveGrab(ctx context.Context, in *MoveRequest, opts ...grpc.CallOption) (*Ack, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(Ack)
	err := c.cc.Invoke(ctx, Kernel_MoveGrab_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kernelClient) EndGrab(ctx context.Context, in *EndGrabRequest, opts ...grpc.CallOption) (*Ack, error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
	out := new(Ack)
	err := c.cc.Invoke(ctx, Kernel_EndGrab_FullMethodName, in, out, cOpts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *kernelClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[ValueChanged], error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod(), grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &Kernel_ServiceDesc.Streams[0], Kernel_Watch_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchRequest, ValueChanged]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type Kernel_WatchClient = grpc.ServerStreamingClient[ValueChanged]

type KernelServer interface {
	Descriptors(context.Context, *DescriptorsRequest) (*DescriptorsReply, error)
	RequestFullSync(context.Context, *SyncRequest) (*Ack, error)
	PushValue(context.Context, *PushRequest) (*Ack, error)
	BeginGrab(context.Context, *GrabRequest) (*GrabReply, error)
	MoveGrab(context.Context, *MoveRequest) (*Ack, error)
	EndGrab(context.Context, *EndGrabRequest) (*Ack, error)
	Watch(*WatchRequest, grpc.ServerStreamingServer[ValueChanged]) error
	mustEmbedUnimplementedKernelServer()
}

type UnimplementedKernelServer struct{}

func (UnimplementedKernelServer) Descriptors(context.Context, *DescriptorsRequest) (*DescriptorsReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Descriptors not implemented")
}
func (UnimplementedKernelServer) RequestFullSync(context.Context, *SyncRequest) (*Ack, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RequestFullSync not implemented")
}
func (UnimplementedKernelServer) PushValue(context.Context, *PushRequest) (*Ack, error) {
	return nil, status.Errorf(codes.Unimplemented, "method PushValue not implemented")
}
func (UnimplementedKernelServer) BeginGrab(context.Context, *GrabRequest) (*GrabReply, error) {
	return nil, status.Errorf(codes.Unimplemented, "method BeginGrab not implemented")
}
func (UnimplementedKernelServer) MoveGrab(context.Context, *MoveRequest) (*Ack, error) {
	return nil, status.Errorf(codes.Unimplemented, "method MoveGrab not implemented")
}
func (UnimplementedKernelServer) EndGrab(context.Context, *EndGrabRequest) (*Ack, error) {
	return nil, status.Errorf(codes.Unimplemented, "method EndGrab not implemented")
}
func (UnimplementedKernelServer) Watch(*WatchRequest, grpc.ServerStreamingServer[ValueChanged]) error {
	return status.Errorf(codes.Unimplemented, "method Watch not implemented")
}
func (UnimplementedKernelServer) mustEmbedUnimplementedKernelServer() {}
func (UnimplementedKernelServer) testEmbeddedByValue()                {}

func RegisterKernelServer(s grpc.ServiceRegistrar, srv KernelServer) {
	if t, ok := srv.(interface{ testEmbeddedByValue() }); ok {
		t.testEmbeddedByValue()
	}
	s.RegisterService(&Kernel_ServiceDesc, srv)
}

func _Kernel_Descriptors_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DescriptorsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KernelServer).Descriptors(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Kernel_Descriptors_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KernelServer).Descriptors(ctx, req.(*DescriptorsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Kernel_RequestFullSync_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SyncRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KernelServer).RequestFullSync(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Kernel_RequestFullSync_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KernelServer).RequestFullSync(ctx, req.(*SyncRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Kernel_PushValue_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PushRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KernelServer).PushValue(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Kernel_PushValue_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KernelServer).PushValue(ctx, req.(*PushRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Kernel_BeginGrab_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GrabRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KernelServer).BeginGrab(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Kernel_BeginGrab_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KernelServer).BeginGrab(ctx, req.(*GrabRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Kernel_MoveGrab_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(MoveRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KernelServer).MoveGrab(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Kernel_MoveGrab_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KernelServer).MoveGrab(ctx, req.(*MoveRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Kernel_EndGrab_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(EndGrabRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(KernelServer).EndGrab(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: Kernel_EndGrab_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(KernelServer).EndGrab(ctx, req.(*EndGrabRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _Kernel_Watch_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(WatchRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(KernelServer).Watch(m, &grpc.GenericServerStream[WatchRequest, ValueChanged]{ServerStream: stream})
}

type Kernel_WatchServer = grpc.ServerStreamingServer[ValueChanged]

var Kernel_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "parambridge.kernel.v1.Kernel",
	HandlerType: (*KernelServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Descriptors",
			Handler:    _Kernel_Descriptors_Handler,
		},
		{
			MethodName: "RequestFullSync",
			Handler:    _Kernel_RequestFullSync_Handler,
		},
		{
			MethodName: "PushValue",
			Handler:    _Kernel_PushValue_Handler,
		},
		{
			MethodName: "BeginGrab",
			Handler:    _Kernel_BeginGrab_Handler,
		},
		{
			MethodName: "MoveGrab",
			Handler:    _Kernel_MoveGrab_Handler,
		},
		{
			MethodName: "EndGrab",
			Handler:    _Kernel_EndGrab_Handler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       _Kernel_Watch_Handler,
			ServerStreams: true,
		},
	},
	Metadata: "kernel/v1/kernel.go",
}
