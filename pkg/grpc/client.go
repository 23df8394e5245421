package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/example/pizzaplanet/pkg/discovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// OrderServiceClient is the client side of OrderServiceDesc.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) GetOrderStatus(ctx context.Context, orderID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetOrderStatus, wrapperspb.String(orderID), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) AdvanceStatus(ctx context.Context, orderID, status string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := toStruct(advanceRequest{OrderID: orderID, Status: status})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodAdvanceStatus, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) CancelOrder(ctx context.Context, orderID, reason string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := toStruct(cancelRequest{OrderID: orderID, Reason: reason})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodCancelOrder, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) GetMenu(ctx context.Context, category string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetMenu, wrapperspb.String(category), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) PlaceOrder(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodPlaceOrder, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Discoverer resolves a service name to live instances.
type Discoverer interface {
	Discover(ctx context.Context, serviceName string) ([]*discovery.ServiceInstance, error)
}

// ClientManager owns the connection to the order service, found through
// discovery when available.
type ClientManager struct {
	discovery Discoverer
	logger    *zap.Logger

	orderConn   *grpc.ClientConn
	orderClient *OrderServiceClient
}

func NewClientManager(logger *zap.Logger, disc Discoverer) *ClientManager {
	return &ClientManager{discovery: disc, logger: logger}
}

// Connect dials serviceName, falling back to target when discovery is off
// or finds nothing.
func (m *ClientManager) Connect(serviceName, target string) error {
	if m.discovery != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		instances, err := m.discovery.Discover(ctx, serviceName)
		if err == nil && len(instances) > 0 {
			target = instances[0].Addr()
			m.logger.Info("Discovered order service", zap.String("address", target))
		} else {
			m.logger.Info("Using default address for order service", zap.String("address", target))
		}
	}

	m.logger.Info("Connecting to order service", zap.String("target", target))
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to order service: %w", err)
	}

	m.orderConn = conn
	m.orderClient = NewOrderServiceClient(conn)
	return nil
}

func (m *ClientManager) OrderClient() *OrderServiceClient {
	return m.orderClient
}

func (m *ClientManager) Close() error {
	if m.orderConn == nil {
		return nil
	}
	if err := m.orderConn.Close(); err != nil {
		return fmt.Errorf("order connection close error: %w", err)
	}
	return nil
}
