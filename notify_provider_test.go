package viewsync

import (
	"testing"

	"github.com/jackc/pgx"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	logger := log.New()
	logger.Level = log.ErrorLevel
	return logger
}

func TestNotifyProviderProcessMessage(t *testing.T) {
	p := NewNotifyProvider(NotifyLogger(quietLogger()))

	ch := p.OpenChannel("viewsync:health:test")
	var received []*Change
	ch.On(EventPredicate{Schema: "public", Table: "land_health"}, func(c *Change) {
		received = append(received, c)
	})

	p.processMessage(&pgx.Notification{Payload: `{
		"action": "INSERT",
		"schema": "public",
		"table": "land_health",
		"timestamp": "2025-04-01T12:00:00Z",
		"new_values": {"id": "h1", "ndvi": 0.42, "observation_date": "2025-04-01"}
	}`})

	require.Equal(t, 1, len(received))
	assert.Equal(t, ChangeKindInsert, received[0].Kind)
	assert.Equal(t, "land_health", received[0].Table)
	assert.Equal(t, 0.42, received[0].NewRecord["ndvi"])
	assert.Equal(t, 2025, received[0].Timestamp.Year())
}

func TestNotifyProviderDropsUnmatchedTables(t *testing.T) {
	p := NewNotifyProvider(NotifyLogger(quietLogger()))

	ch := p.OpenChannel("viewsync:health:test")
	var count int
	ch.On(EventPredicate{Schema: "public", Table: "land_health"}, func(c *Change) {
		count++
	})

	p.processMessage(&pgx.Notification{Payload: `{
		"action": "insert",
		"schema": "public",
		"table": "alerts",
		"new_values": {"id": "a1"}
	}`})

	assert.Equal(t, 0, count)
}

func TestNotifyProviderDropsInvalidPayloads(t *testing.T) {
	p := NewNotifyProvider(NotifyLogger(quietLogger()))

	ch := p.OpenChannel("viewsync:health:test")
	var count int
	ch.On(EventPredicate{}, func(c *Change) {
		count++
	})

	p.processMessage(&pgx.Notification{Payload: `not json`})
	p.processMessage(&pgx.Notification{Payload: `{"action":"truncate","schema":"public","table":"land_health"}`})

	assert.Equal(t, 0, count)
}

func TestNotifyProviderClosedChannelStopsDelivery(t *testing.T) {
	p := NewNotifyProvider(NotifyLogger(quietLogger()))

	ch := p.OpenChannel("viewsync:health:test")
	var count int
	ch.On(EventPredicate{}, func(c *Change) {
		count++
	})

	require.NoError(t, p.CloseChannel(ch))
	// closing twice is fine
	require.NoError(t, p.CloseChannel(ch))

	p.processMessage(&pgx.Notification{Payload: `{
		"action": "insert",
		"schema": "public",
		"table": "land_health",
		"new_values": {"id": "h1"}
	}`})

	assert.Equal(t, 0, count)
}

func TestNotifyProviderDeliversDeletes(t *testing.T) {
	p := NewNotifyProvider(NotifyLogger(quietLogger()))

	ch := p.OpenChannel("viewsync:alerts:test")
	var received []*Change
	ch.On(EventPredicate{Schema: "public", Table: "alerts"}, func(c *Change) {
		received = append(received, c)
	})

	p.processMessage(&pgx.Notification{Payload: `{
		"action": "DELETE",
		"schema": "public",
		"table": "alerts",
		"old_values": {"id": "a9"}
	}`})

	require.Equal(t, 1, len(received))
	assert.Equal(t, ChangeKindDelete, received[0].Kind)
	assert.Nil(t, received[0].NewRecord)
	assert.Equal(t, "a9", received[0].OldRecord["id"])
}
