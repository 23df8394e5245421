package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/service"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// OrderService is the part of the service layer exposed over gRPC.
type OrderService interface {
	GetOrderStatus(ctx context.Context, orderID string) (*service.OrderStatusView, error)
	AdvanceOrderStatus(ctx context.Context, orderID, status string) (*service.OrderStatusView, error)
	CancelOrder(ctx context.Context, orderID, reason string) (*service.OrderStatusView, error)
	GetMenu(category string) ([]models.MenuItem, error)
	PlaceDirectOrder(ctx context.Context, lines []service.OrderLine, customer models.CustomerInfo) (*models.Order, error)
}

type OrderServer struct {
	svc    OrderService
	config *config.ServerConfig
	logger *zap.Logger
	srv    *grpc.Server
	health *health.Server
}

func NewOrderServer(svc OrderService, cfg *config.ServerConfig, logger *zap.Logger) *OrderServer {
	s := &OrderServer{
		svc:    svc,
		config: cfg,
		logger: logger,
		health: health.NewServer(),
	}
	s.srv = grpc.NewServer(grpc.ChainUnaryInterceptor(s.logInterceptor))
	RegisterOrderServiceServer(s.srv, s)
	healthpb.RegisterHealthServer(s.srv, s.health)
	if cfg.Reflection {
		reflection.Register(s.srv)
	}
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *OrderServer) Start() error {
	addr := s.config.Addr()
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.logger.Info("Order service started", zap.String("address", addr))
	return s.Serve(lis)
}

func (s *OrderServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

func (s *OrderServer) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}

func (s *OrderServer) logInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.Duration("latency", time.Since(start)),
		zap.String("code", status.Code(err).String()),
	}
	if err != nil {
		s.logger.Warn("gRPC request failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Debug("gRPC request", fields...)
	}
	return resp, err
}

func (s *OrderServer) GetOrderStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	view, err := s.svc.GetOrderStatus(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(view)
}

type advanceRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (s *OrderServer) AdvanceStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in advanceRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	view, err := s.svc.AdvanceOrderStatus(ctx, in.OrderID, in.Status)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(view)
}

type cancelRequest struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

func (s *OrderServer) CancelOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in cancelRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	view, err := s.svc.CancelOrder(ctx, in.OrderID, in.Reason)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(view)
}

func (s *OrderServer) GetMenu(_ context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	items, err := s.svc.GetMenu(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]interface{}{"items": items, "count": len(items)})
}

type placeRequest struct {
	Customer models.CustomerInfo `json:"customer"`
	Items    []service.OrderLine `json:"items"`
}

func (s *OrderServer) PlaceOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in placeRequest
	if err := fromStruct(req, &in); err != nil {
		return nil, err
	}
	order, err := s.svc.PlaceDirectOrder(ctx, in.Items, in.Customer)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(order)
}

// toStatus maps domain errors to gRPC codes.
func toStatus(err error) error {
	var nf *models.ItemNotFoundError
	switch {
	case errors.As(err, &nf):
		names := make([]string, len(nf.Suggestions))
		for i, it := range nf.Suggestions {
			names[i] = it.DisplayName()
		}
		return status.Errorf(codes.NotFound, "%v; suggestions: %v", err, names)
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrUserNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, models.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrNoPendingOrder):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	return status.Error(codes.Internal, "internal error")
}

func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, dst interface{}) error {
	data, err := json.Marshal(s.AsMap())
	if err != nil {
		return status.Error(codes.InvalidArgument, "malformed request")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}
