package cleanup_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Peer-Ride/peer-ride-functions/internal/modules/cleanup"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/notify"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/trip"
	"github.com/Peer-Ride/peer-ride-functions/internal/testutil"
)

func TestFirestoreStore_Sweep(t *testing.T) {
	client := testutil.NewFirestore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedTrip := func(id string, status trip.TripStatus, end time.Time) {
		ref := client.Collection(trip.TripsCollection).Doc(id)
		_, err := ref.Set(ctx, map[string]any{"status": string(status), "departureEnd": end})
		require.NoError(t, err)
		_, err = client.Collection(trip.RequestsCollection).Doc(id+"-req").Set(ctx, map[string]any{"tripId": id, "status": "pending"})
		require.NoError(t, err)
		_, err = ref.Collection(cleanup.MessagesCollection).Doc("m1").Set(ctx, map[string]any{"text": "hi"})
		require.NoError(t, err)
	}
	seedTrip("expired", trip.TripOpen, now.Add(-48*time.Hour))
	seedTrip("recent", trip.TripOpen, now.Add(-12*time.Hour))

	_, err := client.Collection(notify.MailCollection).Doc("old").Set(ctx, map[string]any{"to": "a@b.c", "createdAt": now.Add(-8 * 24 * time.Hour)})
	require.NoError(t, err)

	rep, err := cleanup.NewSweeper(cleanup.NewFirestoreStore(client), nil).Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.TripsDeleted)
	assert.Equal(t, 1, rep.RequestsDeleted)
	assert.Equal(t, 1, rep.MessagesDeleted)
	assert.Equal(t, 1, rep.MailDeleted)

	_, err = client.Collection(trip.TripsCollection).Doc("recent").Get(ctx)
	assert.NoError(t, err)
	_, err = client.Collection(trip.TripsCollection).Doc("expired").Get(ctx)
	assert.Error(t, err)
}
