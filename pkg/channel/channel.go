package channel

import (
	"context"

	"chatdispatch/pkg/bus"
)

// Handler dispatches one inbound channel message and returns the reply.
type Handler func(context.Context, bus.InboundMessage) (bus.OutboundMessage, error)

// Adapter bridges one external transport (for example Telegram) into the dispatcher.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
