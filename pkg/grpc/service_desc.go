package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "pizzaplanet.v1.OrderService"

const (
	methodGetOrderStatus = "/" + ServiceName + "/GetOrderStatus"
	methodAdvanceStatus  = "/" + ServiceName + "/AdvanceStatus"
	methodCancelOrder    = "/" + ServiceName + "/CancelOrder"
	methodGetMenu        = "/" + ServiceName + "/GetMenu"
	methodPlaceOrder     = "/" + ServiceName + "/PlaceOrder"
)

// OrderServiceServer uses protobuf well-known types on the wire so no
// generated code is needed. Structs carry the JSON shape of the HTTP API.
type OrderServiceServer interface {
	GetOrderStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	AdvanceStatus(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMenu(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	PlaceOrder(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(OrderServiceServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(OrderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(OrderServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetOrderStatus",
			Handler:    unaryHandler(methodGetOrderStatus, OrderServiceServer.GetOrderStatus),
		},
		{
			MethodName: "AdvanceStatus",
			Handler:    unaryHandler(methodAdvanceStatus, OrderServiceServer.AdvanceStatus),
		},
		{
			MethodName: "CancelOrder",
			Handler:    unaryHandler(methodCancelOrder, OrderServiceServer.CancelOrder),
		},
		{
			MethodName: "GetMenu",
			Handler:    unaryHandler(methodGetMenu, OrderServiceServer.GetMenu),
		},
		{
			MethodName: "PlaceOrder",
			Handler:    unaryHandler(methodPlaceOrder, OrderServiceServer.PlaceOrder),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pizzaplanet/v1/order_service",
}
