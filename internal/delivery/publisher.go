package delivery

import (
	"context"
)

// Publisher hands a Message to the delivery channel.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

// Noop drops every message.
type Noop struct{}

func (Noop) Publish(context.Context, Message) error { return nil }
func (Noop) Close() error                           { return nil }

// Direct hands every message straight to a Router. It is used when no
// broker is configured, so the API process delivers on its own.
type Direct struct {
	router *Router
}

func NewDirect(router *Router) *Direct { return &Direct{router: router} }

func (d *Direct) Publish(ctx context.Context, msg Message) error {
	return d.router.Handle(ctx, msg)
}

func (d *Direct) Close() error { return nil }
