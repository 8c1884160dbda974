package audit_test

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/audit"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
	"github.com/Peer-Ride/peer-ride-functions/internal/testutil"
)

func newStore(t *testing.T) *audit.Store {
	t.Helper()
	dsn := testutil.RequireDSN(t)
	ctx := context.Background()

	require.NoError(t, audit.Migrate(ctx, dsn))
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return audit.NewStore(pool)
}

func TestStore_RecordAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	tripID := uuid.NewString()
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	err := s.Record(ctx,
		trip.Event{TripID: tripID, RequestID: "r1", Entity: trip.EntityRequest, FromStatus: "pending", ToStatus: "accepted", ActorID: "host", CreatedAt: at},
		trip.Event{TripID: tripID, Entity: trip.EntityTrip, FromStatus: "open", ToStatus: "paired", ActorID: "host", CreatedAt: at.Add(time.Millisecond)},
	)
	require.NoError(t, err)

	got, err := s.ListByTrip(ctx, tripID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].RequestID)
	assert.Equal(t, trip.EntityTrip, got[1].Entity)
	assert.Empty(t, got[1].RequestID)
	assert.True(t, at.Equal(got[0].CreatedAt))
}

func TestStore_RecordNothing(t *testing.T) {
	assert.NoError(t, audit.NewStore(nil).Record(context.Background()))
}

func TestMigrations_Embedded(t *testing.T) {
	entries, err := fs.ReadDir(audit.Migrations, ".")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
