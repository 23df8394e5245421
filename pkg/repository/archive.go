package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/pizzaplanet/pkg/config"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderRecord is the archived row of an order. Items are stored as JSON.
type OrderRecord struct {
	ID                    string  `gorm:"primaryKey;size:16"`
	UserID                string  `gorm:"size:255"`
	CustomerName          string  `gorm:"size:255"`
	Email                 string  `gorm:"size:255;index"`
	Phone                 string  `gorm:"size:64"`
	Address               string  `gorm:"size:512"`
	Status                string  `gorm:"size:32;index"`
	TotalAmount           float64 `gorm:"type:decimal(10,2)"`
	Items                 string  `gorm:"type:text"`
	SpecialInstructions   *string `gorm:"size:512"`
	EstimatedDeliveryTime *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func toRecord(o *models.Order) (*OrderRecord, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	return &OrderRecord{
		ID:                    o.ID,
		UserID:                o.UserID,
		CustomerName:          o.Customer.Name,
		Email:                 o.Customer.Email,
		Phone:                 o.Customer.Phone,
		Address:               o.Customer.Address,
		Status:                string(o.Status),
		TotalAmount:           o.TotalAmount,
		Items:                 string(items),
		SpecialInstructions:   o.SpecialInstructions,
		EstimatedDeliveryTime: o.EstimatedDeliveryTime,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}, nil
}

func (r *OrderRecord) toOrder() (*models.Order, error) {
	var items []models.OrderItem
	if err := json.Unmarshal([]byte(r.Items), &items); err != nil {
		return nil, fmt.Errorf("failed to decode items of %s: %w", r.ID, err)
	}
	return &models.Order{
		ID:     r.ID,
		UserID: r.UserID,
		Customer: models.CustomerInfo{
			Name:    r.CustomerName,
			Email:   r.Email,
			Phone:   r.Phone,
			Address: r.Address,
		},
		Items:                 items,
		Status:                models.OrderStatus(r.Status),
		TotalAmount:           r.TotalAmount,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		EstimatedDeliveryTime: r.EstimatedDeliveryTime,
		SpecialInstructions:   r.SpecialInstructions,
	}, nil
}

// Archive keeps every order version in MySQL. It is written behind the
// in-memory store and read only for lookups the store cannot answer.
type Archive struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewArchive(cfg *config.MySQLConfig, logger *zap.Logger) (*Archive, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.AutoMigrate(&OrderRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return NewArchiveFromDB(db, logger), nil
}

func NewArchiveFromDB(db *gorm.DB, logger *zap.Logger) *Archive {
	return &Archive{db: db, logger: logger}
}

// Save upserts the current version of an order.
func (a *Archive) Save(ctx context.Context, o *models.Order) error {
	rec, err := toRecord(o)
	if err != nil {
		return err
	}
	return a.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(rec).Error
}

func (a *Archive) LookupOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var rec OrderRecord
	err := a.db.WithContext(ctx).First(&rec, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archived order: %w", err)
	}
	return rec.toOrder()
}

func (a *Archive) OrdersByEmail(ctx context.Context, email string, limit int) ([]*models.Order, error) {
	var recs []OrderRecord
	err := a.db.WithContext(ctx).
		Where("email = ?", models.NormalizeEmail(email)).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list archived orders: %w", err)
	}
	out := make([]*models.Order, 0, len(recs))
	for i := range recs {
		o, err := recs[i].toOrder()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (a *Archive) OnOrderEvent(ctx context.Context, ev store.Event) {
	if ev.Order == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), observerTimeout)
	defer cancel()

	if err := a.Save(ctx, ev.Order); err != nil {
		a.logger.Warn("Failed to archive order",
			zap.String("order_id", ev.Order.ID),
			zap.String("event", string(ev.Type)),
			zap.Error(err))
	}
}
