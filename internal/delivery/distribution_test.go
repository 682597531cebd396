package delivery

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T) *DistributionTracker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewDistributionTracker(client)
}

func TestDistributionSnapshot(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tracker.RecordSend(ctx, "camp-1", "sendgrid")
	}
	tracker.RecordSend(ctx, "camp-1", "mailgun")
	tracker.RecordFailure(ctx, "camp-1", "sendgrid")

	// A different campaign must not leak into the snapshot.
	tracker.RecordSend(ctx, "camp-2", "ses")

	snapshot, err := tracker.Snapshot(ctx, "camp-1")
	require.NoError(t, err)
	require.Len(t, snapshot, 2)

	byProvider := make(map[string]ProviderDistribution)
	for _, pd := range snapshot {
		byProvider[pd.Provider] = pd
	}

	sg := byProvider["sendgrid"]
	assert.Equal(t, int64(3), sg.SentCount)
	assert.Equal(t, int64(1), sg.FailedCount)
	assert.InDelta(t, 75.0, sg.Percentage, 0.01)

	mg := byProvider["mailgun"]
	assert.Equal(t, int64(1), mg.SentCount)
	assert.InDelta(t, 25.0, mg.Percentage, 0.01)
}

func TestDistributionAdhocSends(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	tracker.RecordSend(ctx, "", "sendgrid")

	// A campaign literally named "adhoc" is a different bucket.
	tracker.RecordSend(ctx, "adhoc", "mailgun")

	snapshot, err := tracker.Snapshot(ctx, "")
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	assert.Equal(t, "sendgrid", snapshot[0].Provider)
	assert.Equal(t, int64(1), snapshot[0].SentCount)

	named, err := tracker.Snapshot(ctx, "adhoc")
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, "mailgun", named[0].Provider)
}

func TestDistributionCampaignIDWithColon(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	tracker.RecordSend(ctx, "org:42:spring", "sendgrid")
	tracker.RecordFailure(ctx, "org:42:spring", "sendgrid")
	tracker.RecordSend(ctx, "org:42", "mailgun")

	snapshot, err := tracker.Snapshot(ctx, "org:42:spring")
	require.NoError(t, err)
	require.Len(t, snapshot, 1, "a colon in the campaign id must not break key parsing or leak across campaigns")
	assert.Equal(t, "sendgrid", snapshot[0].Provider)
	assert.Equal(t, int64(1), snapshot[0].SentCount)
	assert.Equal(t, int64(1), snapshot[0].FailedCount)
}

func TestDistributionClear(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	tracker.RecordSend(ctx, "camp-1", "sendgrid")
	tracker.RecordFailure(ctx, "camp-1", "mailgun")

	require.NoError(t, tracker.Clear(ctx, "camp-1"))

	snapshot, err := tracker.Snapshot(ctx, "camp-1")
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}
