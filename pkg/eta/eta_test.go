package eta

import (
	"math/rand"
	"testing"
	"time"

	"github.com/example/pizzaplanet/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_RangeMembership(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		status   string
		min, max int
	}{
		{"placed", 25, 35},
		{"pending", 25, 35},
		{"confirmed", 25, 35},
		{"preparing", 15, 25},
		{"cooking", 8, 15},
		{"ready", 3, 8},
		{"out_for_delivery", 3, 8},
		{"mystery", 20, 40},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				est := e.Estimate(tt.status)
				assert.GreaterOrEqual(t, est.Minutes, tt.min)
				assert.LessOrEqual(t, est.Minutes, tt.max)
			}
		})
	}
}

func TestEstimate_Delivered(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 20; i++ {
		est := e.Estimate("delivered")
		assert.Equal(t, 0, est.Minutes)
		assert.Equal(t, "Delivered", est.Text)
		assert.Equal(t, "Delivered", est.DeliverySlot)
	}
}

func TestEstimate_DeliverySlot(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 13, 50, 0, 0, time.UTC)
	e := NewEngine(WithClock(func() time.Time { return fixed }), WithRand(rand.New(rand.NewSource(1))))

	est := e.Estimate("cooking")
	require.GreaterOrEqual(t, est.Minutes, 8)
	want := fixed.Add(time.Duration(est.Minutes) * time.Minute)
	assert.Equal(t, want, est.DeliveryAt)
	assert.Equal(t, want.Format("03:04 PM"), est.DeliverySlot)
	assert.Contains(t, est.DeliverySlot, "PM")
	assert.Contains(t, est.Text, "minutes")
}

func TestStatusProgression(t *testing.T) {
	p := StatusProgression("cooking")
	assert.Equal(t, 50, p.Percentage)
	require.Len(t, p.Steps, 5)
	assert.True(t, p.Steps[0].Completed)
	assert.True(t, p.Steps[2].Active)
	assert.True(t, p.Steps[2].Completed)
	assert.False(t, p.Steps[3].Completed)

	assert.Equal(t, 0, StatusProgression("placed").Percentage)
	assert.Equal(t, 0, StatusProgression("confirmed").Percentage)
	assert.Equal(t, 25, StatusProgression("preparing").Percentage)
	assert.Equal(t, 75, StatusProgression("ready").Percentage)
	assert.Equal(t, 100, StatusProgression("delivered").Percentage)
	assert.Equal(t, 0, StatusProgression("unknown").Percentage)
}

func TestMessage(t *testing.T) {
	assert.Contains(t, Message("ORD-1234abcd", Estimate{Status: "delivered"}), "delivered")
	assert.Contains(t, Message("ORD-1234abcd", Estimate{Status: "cooking", Minutes: 9}), "9 minutes")
}

func TestEstimate_CancelledHasNoETA(t *testing.T) {
	est := NewEngine().Estimate("cancelled")
	assert.Equal(t, 0, est.Minutes)
	assert.Equal(t, "Cancelled", est.Text)
	assert.Empty(t, est.DeliverySlot)
}

func TestForOrder_ReadsStampedTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 13, 50, 0, 0, time.UTC)
	now := start
	e := NewEngine(WithClock(func() time.Time { return now }))

	stamped := e.Estimate("confirmed")
	o := &models.Order{ID: "ORD-0000abcd", Status: models.StatusConfirmed, EstimatedDeliveryTime: &stamped.DeliveryAt}

	for i := 0; i < 20; i++ {
		got := e.ForOrder(o)
		assert.True(t, got.DeliveryAt.Equal(stamped.DeliveryAt))
		assert.Equal(t, stamped.Minutes, got.Minutes)
		assert.Equal(t, stamped.DeliverySlot, got.DeliverySlot)
	}

	now = start.Add(10 * time.Minute)
	got := e.ForOrder(o)
	assert.Equal(t, stamped.Minutes-10, got.Minutes)
	assert.True(t, got.DeliveryAt.Equal(stamped.DeliveryAt))

	now = stamped.DeliveryAt.Add(time.Minute)
	got = e.ForOrder(o)
	assert.Equal(t, 0, got.Minutes)
	assert.Equal(t, "Any minute now", got.Text)
}

func TestForOrder_FinishedAndUnstamped(t *testing.T) {
	e := NewEngine()
	at := time.Now().Add(time.Hour)

	done := &models.Order{Status: models.StatusDelivered, EstimatedDeliveryTime: &at}
	assert.Equal(t, 0, e.ForOrder(done).Minutes)

	cancelled := &models.Order{Status: models.StatusCancelled}
	assert.Equal(t, "Cancelled", e.ForOrder(cancelled).Text)

	fresh := e.ForOrder(&models.Order{Status: models.StatusCooking})
	assert.GreaterOrEqual(t, fresh.Minutes, 8)
	assert.LessOrEqual(t, fresh.Minutes, 15)
}
