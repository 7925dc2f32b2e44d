package delivery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// EmailSender and PushSender are the outbound channels the worker routes to.
type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

type PushSender interface {
	Push(ctx context.Context, msg Message) error
}

// Router delivers a consumed Message over the channel its template needs.
type Router struct {
	email  EmailSender
	push   PushSender
	logger *zap.Logger
}

func NewRouter(email EmailSender, push PushSender, logger *zap.Logger) *Router {
	return &Router{email: email, push: push, logger: logger}
}

var errNoChannel = errors.New("channel not configured")

func (r *Router) Handle(ctx context.Context, msg Message) error {
	switch msg.Template.Channel() {
	case ChannelEmail:
		if r.email == nil {
			return errNoChannel
		}
		if msg.To == "" {
			return fmt.Errorf("%s: missing recipient address", msg.Template)
		}
		subject, body, err := renderEmail(msg)
		if err != nil {
			return err
		}
		return r.email.Send(msg.To, subject, body)
	case ChannelSMS:
		// No SMS provider is wired; the code is only logged.
		r.logger.Info("SMS delivery",
			zap.Uint("recipient_id", msg.RecipientID),
			zap.String("to", msg.To),
			zap.String("template", string(msg.Template)),
		)
		return nil
	default:
		if r.push == nil {
			r.logger.Debug("Push skipped, FCM not configured", zap.Uint("recipient_id", msg.RecipientID))
			return nil
		}
		return r.push.Push(ctx, msg)
	}
}
