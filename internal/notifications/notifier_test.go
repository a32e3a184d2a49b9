package notifications

import (
	"context"
	"testing"
	"time"

	"crowdfund/internal/projection"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	userID uint
	ev     Event
}

func TestNotifier_PledgeReceivedReachesSubscriber(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	got := make(chan received, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(userID uint, ev Event) {
		got <- received{userID, ev}
	}))

	supporter := "ada"
	sent := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, n.PledgeReceived(ctx, 5, projection.PledgeView{
		ID: 11, Amount: 40, ProjectID: 3, Supporter: &supporter, DateSent: sent,
	}))

	select {
	case r := <-got:
		assert.Equal(t, uint(5), r.userID)
		assert.Equal(t, EventPledgeReceived, r.ev.Type)
		assert.Equal(t, uint(3), r.ev.ProjectID)
		require.NotNil(t, r.ev.Pledge)
		assert.Equal(t, 40, r.ev.Pledge.Amount)
		assert.True(t, sent.Equal(r.ev.SentAt))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishUser(context.Background(), 1, Event{Type: EventPledgeReceived}))
	assert.NoError(t, n.StartPatternSubscriber(context.Background(), func(uint, Event) {}))

	var missing *Notifier
	assert.NoError(t, missing.PledgeReceived(context.Background(), 1, projection.PledgeView{}))
}

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "notifications:user:42", UserChannel(42))
}
