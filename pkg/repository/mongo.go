package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const auditService = "pizzaplanet"

type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

func NewMongoRepository(cfg *config.MongoDBConfig, logger *zap.Logger) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	return &MongoRepository{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// AuditLog is one order event.
type AuditLog struct {
	ID        string    `bson:"_id,omitempty"`
	Service   string    `bson:"service"`
	Action    string    `bson:"action"`
	EntityID  string    `bson:"entity_id"`
	UserID    string    `bson:"user_id,omitempty"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
}

// auditLogFor flattens an event into an audit entry. Holds are keyed by
// user since they have no order id yet.
func auditLogFor(ev store.Event) *AuditLog {
	log := &AuditLog{
		Service:   auditService,
		Action:    string(ev.Type),
		UserID:    ev.UserID,
		Data:      bson.M{},
		CreatedAt: ev.At,
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	switch {
	case ev.Order != nil:
		o := ev.Order
		log.EntityID = o.ID
		log.Data["status"] = string(o.Status)
		log.Data["total_amount"] = o.TotalAmount
		log.Data["email"] = o.Customer.Email
		log.Data["items"] = o.ItemsSummary()
		if ev.Previous != "" {
			log.Data["previous_status"] = string(ev.Previous)
		}
		if ev.Reason != "" {
			log.Data["reason"] = ev.Reason
		}
	case ev.Pending != nil:
		log.EntityID = "pending:" + ev.UserID
		log.Data["item_count"] = len(ev.Pending.Items)
		log.Data["total_amount"] = ev.Pending.TotalAmount()
	}
	return log
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	_, err := m.collection.InsertOne(ctx, log)
	return err
}

func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error) {
	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}

// OrderEvents reads an order's audit trail, newest first.
func (m *MongoRepository) OrderEvents(ctx context.Context, orderID string, limit int) ([]models.OrderEvent, error) {
	logs, err := m.GetAuditLogs(ctx, orderID, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	out := make([]models.OrderEvent, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.event())
	}
	return out, nil
}

func (l *AuditLog) event() models.OrderEvent {
	return models.OrderEvent{
		Action: l.Action,
		UserID: l.UserID,
		Data:   map[string]interface{}(l.Data),
		At:     l.CreatedAt,
	}
}

func (m *MongoRepository) OnOrderEvent(ctx context.Context, ev store.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), observerTimeout)
	defer cancel()

	log := auditLogFor(ev)
	if err := m.CreateAuditLog(ctx, log); err != nil {
		m.logger.Warn("Failed to write audit log",
			zap.String("entity_id", log.EntityID),
			zap.String("action", log.Action),
			zap.Error(err))
	}
}
