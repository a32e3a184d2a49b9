// Package notifications publishes per-user events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"crowdfund/internal/middleware"
	"crowdfund/internal/projection"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"

	// EventPledgeReceived is sent to a project owner when a pledge lands.
	EventPledgeReceived = "pledge_received"
)

// Event is the payload written to a user channel.
type Event struct {
	Type      string                 `json:"type"`
	ProjectID uint                   `json:"project"`
	Pledge    *projection.PledgeView `json:"pledge,omitempty"`
	SentAt    time.Time              `json:"sent_at"`
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// UserChannel is the channel a user's events are published on.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// PublishUser sends an event to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, ev Event) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PledgeReceived tells the project owner about a new pledge.
func (n *Notifier) PledgeReceived(ctx context.Context, ownerID uint, pledge projection.PledgeView) error {
	return n.PublishUser(ctx, ownerID, Event{
		Type:      EventPledgeReceived,
		ProjectID: pledge.ProjectID,
		Pledge:    &pledge,
		SentAt:    pledge.DateSent,
	})
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage
// with the recipient and decoded event until ctx is cancelled.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(userID uint, ev Event)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*")
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				dispatch(msg, onMessage)
			}
		}
	}()

	return nil
}

func dispatch(msg *redis.Message, onMessage func(uint, Event)) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("panic in notification subscriber",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	id, err := strconv.ParseUint(strings.TrimPrefix(msg.Channel, userChannelPrefix), 10, 64)
	if err != nil {
		middleware.Logger.Warn("notification on unexpected channel", slog.String("channel", msg.Channel))
		return
	}
	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		middleware.Logger.Warn("undecodable notification", slog.String("channel", msg.Channel))
		return
	}
	onMessage(uint(id), ev)
}
