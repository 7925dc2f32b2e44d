package delivery

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// UserTopic is the FCM topic a user's devices subscribe to.
func UserTopic(userID uint) string { return fmt.Sprintf("user-%d", userID) }

// Pusher sends FCM notifications to a user's topic.
type Pusher struct {
	client *messaging.Client
}

func NewPusher(client *messaging.Client) *Pusher {
	return &Pusher{client: client}
}

func (p *Pusher) Push(ctx context.Context, msg Message) error {
	_, err := p.client.Send(ctx, &messaging.Message{
		Topic: UserTopic(msg.RecipientID),
		Notification: &messaging.Notification{
			Title: msg.Payload["title"],
			Body:  msg.Payload["body"],
		},
		Data: msg.Payload,
	})
	return err
}
