package repository

import (
	"testing"
	"time"

	"github.com/example/pizzaplanet/pkg/store"
	"github.com/stretchr/testify/assert"
)

func TestAuditLog_Event(t *testing.T) {
	o := sampleOrder(t)
	at := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	ev := auditLogFor(store.Event{
		Type: store.EventCancelled, UserID: "u1", Order: o,
		Reason: "changed my mind", At: at,
	}).event()
	assert.Equal(t, "order_cancelled", ev.Action)
	assert.Equal(t, "u1", ev.UserID)
	assert.True(t, ev.At.Equal(at))
	assert.Equal(t, "changed my mind", ev.Data["reason"])
	assert.Equal(t, o.Customer.Email, ev.Data["email"])
}
