package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-facility-api/internal/models"
)

// BookingEventType labels a change on the shared booking set.
type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "CREATED"
	BookingEventDecided   BookingEventType = "DECIDED"
	BookingEventWithdrawn BookingEventType = "WITHDRAWN"
)

// BookingEvent is published whenever a booking mutates. Teacher and admin
// screens consume the same channel so neither ever holds a diverging private
// copy of the schedule.
type BookingEvent struct {
	Type      BookingEventType     `json:"type"`
	BookingID string               `json:"booking_id"`
	Resource  string               `json:"resource"`
	Date      string               `json:"date"`
	TimeSlot  string               `json:"time"`
	Status    models.BookingStatus `json:"status"`
	At        time.Time            `json:"at"`
}

// BookingFeed broadcasts booking change events over a Redis pub/sub channel.
type BookingFeed struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewBookingFeed constructs the feed.
func NewBookingFeed(client *redis.Client, channel string, logger *zap.Logger) *BookingFeed {
	if channel == "" {
		channel = "bookings:events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingFeed{client: client, channel: channel, logger: logger}
}

// Publish broadcasts one event. Publishing is best-effort: the booking
// mutation it describes has already been persisted.
func (f *BookingFeed) Publish(ctx context.Context, event BookingEvent) error {
	if f.client == nil {
		return nil
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish booking event: %w", err)
	}
	return nil
}

// Subscribe returns a channel of booking events plus a cancel function. The
// channel closes when the context ends or cancel is called.
func (f *BookingFeed) Subscribe(ctx context.Context) (<-chan BookingEvent, func()) {
	out := make(chan BookingEvent)
	if f.client == nil {
		close(out)
		return out, func() {}
	}

	sub := f.client.Subscribe(ctx, f.channel)
	done := make(chan struct{})

	go func() {
		defer close(out)
		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event BookingEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					f.logger.Warn("malformed booking event", zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel
}
