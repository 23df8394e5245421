package repository

import (
	"context"
	"testing"
	"time"

	"github.com/example/pizzaplanet/pkg/menu"
	"github.com/example/pizzaplanet/pkg/models"
	"github.com/example/pizzaplanet/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func sampleOrder(t *testing.T) *models.Order {
	t.Helper()
	c, err := models.NewCustomerInfo("Ann", "ann@example.com", "555", "1 Road")
	require.NoError(t, err)
	o, err := models.NewOrder("ORD-1234abcd", c, []models.OrderItem{{MenuItem: menu.Default()[0], Quantity: 2}}, time.Now())
	require.NoError(t, err)
	require.NoError(t, o.Transition(models.StatusPlaced, time.Now()))
	return o
}

func TestOrderRecord_KeepsItems(t *testing.T) {
	o := sampleOrder(t)
	rec, err := toRecord(o)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", rec.Status)
	assert.Equal(t, "ann@example.com", rec.Email)
	assert.Contains(t, rec.Items, `"Margherita"`)

	back, err := rec.toOrder()
	require.NoError(t, err)
	require.Len(t, back.Items, 1)
	assert.Equal(t, 2, back.Items[0].Quantity)
	assert.Equal(t, o.Items[0].MenuItem.ID, back.Items[0].MenuItem.ID)

	rec.Items = "not json"
	_, err = rec.toOrder()
	assert.Error(t, err)
}

func TestArchive_UpsertStatement(t *testing.T) {
	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "user:pass@tcp(127.0.0.1:3306)/pizzaplanet?parseTime=True",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	rec, err := toRecord(sampleOrder(t))
	require.NoError(t, err)
	stmt := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Statement
	sql := stmt.SQL.String()
	assert.Contains(t, sql, "INSERT INTO `order_records`")
	assert.Contains(t, sql, "ON DUPLICATE KEY UPDATE")
}

func TestAuditLogFor(t *testing.T) {
	o := sampleOrder(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	log := auditLogFor(store.Event{
		Type: store.EventStatusChanged, UserID: "u1", Order: o,
		Previous: models.StatusPending, At: at,
	})
	assert.Equal(t, "status_changed", log.Action)
	assert.Equal(t, o.ID, log.EntityID)
	assert.Equal(t, at, log.CreatedAt)
	assert.Equal(t, "confirmed", log.Data["status"])
	assert.Equal(t, "pending", log.Data["previous_status"])
	assert.NotContains(t, log.Data, "reason")

	held := auditLogFor(store.Event{
		Type: store.EventPendingHeld, UserID: "u1",
		Pending: &models.PendingOrder{UserID: "u1", Items: o.Items},
	})
	assert.Equal(t, "pending:u1", held.EntityID)
	assert.Equal(t, bson.M{"item_count": 1, "total_amount": o.TotalAmount}, held.Data)
	assert.False(t, held.CreatedAt.IsZero())
}

func TestArchive_IgnoresHolds(t *testing.T) {
	// A nil db would panic if Save were reached.
	a := NewArchiveFromDB(nil, nil)
	a.OnOrderEvent(context.Background(), store.Event{Type: store.EventPendingHeld})
}
