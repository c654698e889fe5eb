package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ragavi-632007/exam-timetable/internal/models"
)

// NotificationPublisher fans department notifications out over a Redis channel.
type NotificationPublisher struct {
	client  *redis.Client
	channel string
}

// NewNotificationPublisher creates a publisher. A nil client makes Publish a no-op.
func NewNotificationPublisher(client *redis.Client, channel string) *NotificationPublisher {
	return &NotificationPublisher{client: client, channel: channel}
}

// Publish sends one notification as JSON.
func (p *NotificationPublisher) Publish(ctx context.Context, n models.DepartmentNotification) error {
	if p == nil || p.client == nil || p.channel == "" {
		return nil
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}
